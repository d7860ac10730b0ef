package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/confman/internal/model"
)

// LedgerServiceInterface は台帳ハンドラーが必要とするサービスインターフェース。
type LedgerServiceInterface interface {
	// Register はカンファレンスに参加登録する。
	Register(ctx context.Context, profileID, conferenceRef string) error
	// Unregister は参加登録を取り消す。未登録の場合はfalseを返す。
	Unregister(ctx context.Context, profileID, conferenceRef string) (bool, error)
	// AddToWishlist はセッションをウィッシュリストに追加する。
	AddToWishlist(ctx context.Context, profileID, sessionRef string) error
	// RemoveFromWishlist はセッションをウィッシュリストから取り除く。
	RemoveFromWishlist(ctx context.Context, profileID, sessionRef string) (bool, error)
}

// LedgerMetricsRecorder は台帳操作のメトリクス記録インターフェース。
type LedgerMetricsRecorder interface {
	RecordRegistration()
	RecordUnregistration()
	RecordLedgerConflict(code string)
}

// LedgerHandler は参加登録・ウィッシュリストのHTTPハンドラー。
type LedgerHandler struct {
	service LedgerServiceInterface
	metrics LedgerMetricsRecorder
}

// NewLedgerHandler はLedgerHandlerを生成する。
func NewLedgerHandler(service LedgerServiceInterface, metrics LedgerMetricsRecorder) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		metrics: metrics,
	}
}

// appliedResponse は台帳操作の適用結果を表すレスポンス。
// 冪等な取り消し操作では、対象が含まれていなかった場合にfalseになる。
type appliedResponse struct {
	Applied bool `json:"applied"`
}

// Register はカンファレンスに参加登録する。
// POST /api/conferences/:key/registration
func (h *LedgerHandler) Register(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	conferenceRef := chi.URLParam(r, "key")

	if err := h.service.Register(r.Context(), profileID, conferenceRef); err != nil {
		h.recordConflict(err)
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRegistration()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appliedResponse{Applied: true})
}

// Unregister は参加登録を取り消す。
// DELETE /api/conferences/:key/registration
func (h *LedgerHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	conferenceRef := chi.URLParam(r, "key")

	removed, err := h.service.Unregister(r.Context(), profileID, conferenceRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if removed && h.metrics != nil {
		h.metrics.RecordUnregistration()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appliedResponse{Applied: removed})
}

// AddToWishlist はセッションをウィッシュリストに追加する。
// POST /api/sessions/:key/wishlist
func (h *LedgerHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	sessionRef := chi.URLParam(r, "key")

	if err := h.service.AddToWishlist(r.Context(), profileID, sessionRef); err != nil {
		h.recordConflict(err)
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appliedResponse{Applied: true})
}

// RemoveFromWishlist はセッションをウィッシュリストから取り除く。
// DELETE /api/sessions/:key/wishlist
func (h *LedgerHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	sessionRef := chi.URLParam(r, "key")

	removed, err := h.service.RemoveFromWishlist(r.Context(), profileID, sessionRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appliedResponse{Applied: removed})
}

// recordConflict は業務競合エラーをメトリクスに記録する。
func (h *LedgerHandler) recordConflict(err error) {
	if h.metrics == nil {
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Category == "conflict" {
		h.metrics.RecordLedgerConflict(apiErr.Code)
	}
}
