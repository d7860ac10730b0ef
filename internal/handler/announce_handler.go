package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
)

// AnnounceServiceInterface は告知ハンドラーが必要とするサービスインターフェース。
type AnnounceServiceInterface interface {
	// Announcement は現在の残席わずか告知文を返す。告知がない場合は空文字。
	Announcement(ctx context.Context) (string, error)
	// RefreshAnnouncement は残席わずかのカンファレンスを集計して告知文を更新する。
	RefreshAnnouncement(ctx context.Context) (string, error)
	// FeaturedSpeaker は指定カンファレンスの注目スピーカー文を返す。
	FeaturedSpeaker(ctx context.Context, conferenceID string) (string, error)
}

// AnnounceHandler は告知・注目スピーカーのHTTPハンドラー。
type AnnounceHandler struct {
	service AnnounceServiceInterface
}

// NewAnnounceHandler はAnnounceHandlerを生成する。
func NewAnnounceHandler(service AnnounceServiceInterface) *AnnounceHandler {
	return &AnnounceHandler{service: service}
}

// announcementResponse は告知文のAPIレスポンス。告知がない場合は空文字。
type announcementResponse struct {
	Announcement string `json:"announcement"`
}

// featuredSpeakerResponse は注目スピーカー文のAPIレスポンス。未設定の場合は空文字。
type featuredSpeakerResponse struct {
	FeaturedSpeaker string `json:"featured_speaker"`
}

// GetAnnouncement は現在の残席わずか告知を返す。
// GET /api/announcement
func (h *AnnounceHandler) GetAnnouncement(w http.ResponseWriter, r *http.Request) {
	announcement, err := h.service.Announcement(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(announcementResponse{Announcement: announcement})
}

// RefreshAnnouncement は残席わずか告知を再集計する。
// POST /api/announcement/refresh
func (h *AnnounceHandler) RefreshAnnouncement(w http.ResponseWriter, r *http.Request) {
	announcement, err := h.service.RefreshAnnouncement(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(announcementResponse{Announcement: announcement})
}

// GetFeaturedSpeaker はカンファレンスの注目スピーカーを返す。
// GET /api/conferences/:key/featured-speaker
func (h *AnnounceHandler) GetFeaturedSpeaker(w http.ResponseWriter, r *http.Request) {
	conferenceRef := chi.URLParam(r, "key")

	conferenceID, err := keyref.DecodeAs(conferenceRef, keyref.KindConference)
	if err != nil {
		handleServiceError(w, model.NewConferenceNotFoundError(conferenceRef))
		return
	}

	message, err := h.service.FeaturedSpeaker(r.Context(), conferenceID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(featuredSpeakerResponse{FeaturedSpeaker: message})
}
