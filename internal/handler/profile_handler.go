package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// Get は指定IDのプロフィールを返す。
	Get(ctx context.Context, profileID string) (*model.Profile, error)
	// Save は表示名・Tシャツサイズを更新して返す。
	Save(ctx context.Context, profileID string, input profile.SaveInput) (*model.Profile, error)
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// profileResponse はプロフィール情報のAPIレスポンス。
type profileResponse struct {
	DisplayName            string   `json:"display_name"`
	MainEmail              string   `json:"main_email"`
	TeeShirtSize           string   `json:"tee_shirt_size"`
	ConferenceKeysToAttend []string `json:"conference_keys_to_attend"`
	WishlistOfSessionKeys  []string `json:"wishlist_of_session_keys"`
}

// profileSaveRequest はプロフィール更新リクエストのボディ。nilのフィールドは変更しない。
type profileSaveRequest struct {
	DisplayName  *string `json:"display_name"`
	TeeShirtSize *string `json:"tee_shirt_size"`
}

// GetProfile はログイン中のプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), profileID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(p))
}

// SaveProfile はプロフィールの表示名・Tシャツサイズを更新する。
// PUT /api/profile
func (h *ProfileHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	var req profileSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	p, err := h.service.Save(r.Context(), profileID, profile.SaveInput{
		DisplayName:  req.DisplayName,
		TeeShirtSize: req.TeeShirtSize,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(p))
}

// toProfileResponse はmodel.ProfileからAPIレスポンスに変換する。
func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		DisplayName:            p.DisplayName,
		MainEmail:              p.MainEmail,
		TeeShirtSize:           string(p.TeeShirtSize),
		ConferenceKeysToAttend: []string(p.ConferenceKeysToAttend),
		WishlistOfSessionKeys:  []string(p.WishlistOfSessionKeys),
	}
}
