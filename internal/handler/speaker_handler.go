package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/speaker"
)

// SpeakerServiceInterface はスピーカーハンドラーが必要とするサービスインターフェース。
type SpeakerServiceInterface interface {
	// Create はスピーカーを作成する。連絡先の形式を検証する。
	Create(ctx context.Context, input speaker.CreateInput) (*model.Speaker, error)
	// Get は外部参照キーでスピーカーを取得する。
	Get(ctx context.Context, speakerRef string) (*model.Speaker, error)
	// List は全スピーカーを名前順で返す。
	List(ctx context.Context) ([]*model.Speaker, error)
	// FreeIntervals は指定年月の空き日区間を返す。
	FreeIntervals(ctx context.Context, speakerRef string, year, month int) ([]model.FreeInterval, error)
}

// FreeIntervalMetricsRecorder は空き日程照会のメトリクス記録インターフェース。
type FreeIntervalMetricsRecorder interface {
	RecordFreeIntervalRequest()
}

// SpeakerHandler はスピーカー管理のHTTPハンドラー。
type SpeakerHandler struct {
	service SpeakerServiceInterface
	metrics FreeIntervalMetricsRecorder
}

// NewSpeakerHandler はSpeakerHandlerを生成する。
func NewSpeakerHandler(service SpeakerServiceInterface, metrics FreeIntervalMetricsRecorder) *SpeakerHandler {
	return &SpeakerHandler{
		service: service,
		metrics: metrics,
	}
}

// speakerResponse はスピーカー情報のAPIレスポンス。
type speakerResponse struct {
	WebsafeKey  string   `json:"websafe_key"`
	Name        string   `json:"name"`
	Phones      []string `json:"phones,omitempty"`
	Emails      []string `json:"emails,omitempty"`
	Website     string   `json:"website,omitempty"`
	Company     string   `json:"company,omitempty"`
	SessionKeys []string `json:"session_keys"`
}

// speakerCreateRequest はスピーカー作成リクエストのボディ。
type speakerCreateRequest struct {
	Name    string   `json:"name"`
	Phones  []string `json:"phones"`
	Emails  []string `json:"emails"`
	Website string   `json:"website"`
	Company string   `json:"company"`
}

// freeIntervalResponse は空き日区間のAPIレスポンス。
type freeIntervalResponse struct {
	FromDay int `json:"from_day"`
	ToDay   int `json:"to_day"`
}

// CreateSpeaker はスピーカーを作成する。
// POST /api/speakers
func (h *SpeakerHandler) CreateSpeaker(w http.ResponseWriter, r *http.Request) {
	var req speakerCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	sp, err := h.service.Create(r.Context(), speaker.CreateInput{
		Name:    req.Name,
		Phones:  req.Phones,
		Emails:  req.Emails,
		Website: req.Website,
		Company: req.Company,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSpeakerResponse(sp))
}

// GetSpeaker はスピーカーの詳細を取得する。
// GET /api/speakers/:key
func (h *SpeakerHandler) GetSpeaker(w http.ResponseWriter, r *http.Request) {
	speakerRef := chi.URLParam(r, "key")

	sp, err := h.service.Get(r.Context(), speakerRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSpeakerResponse(sp))
}

// ListSpeakers は全スピーカーを名前順で返す。
// GET /api/speakers
func (h *SpeakerHandler) ListSpeakers(w http.ResponseWriter, r *http.Request) {
	speakers, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]speakerResponse, len(speakers))
	for i, sp := range speakers {
		results[i] = toSpeakerResponse(sp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// ListFreeIntervals はスピーカーの指定年月の空き日区間を返す。
// GET /api/speakers/:key/free-intervals?year=YYYY&month=M
func (h *SpeakerHandler) ListFreeIntervals(w http.ResponseWriter, r *http.Request) {
	speakerRef := chi.URLParam(r, "key")

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		handleServiceError(w, model.NewInvalidRequestError("yearは整数で指定してください"))
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		handleServiceError(w, model.NewInvalidRequestError("monthは整数で指定してください"))
		return
	}

	if h.metrics != nil {
		h.metrics.RecordFreeIntervalRequest()
	}

	intervals, err := h.service.FreeIntervals(r.Context(), speakerRef, year, month)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]freeIntervalResponse, len(intervals))
	for i, iv := range intervals {
		results[i] = freeIntervalResponse{FromDay: iv.FromDay, ToDay: iv.ToDay}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// toSpeakerResponse はmodel.SpeakerからAPIレスポンスに変換する。
func toSpeakerResponse(sp *model.Speaker) speakerResponse {
	return speakerResponse{
		WebsafeKey:  keyref.Encode(keyref.KindSpeaker, sp.ID),
		Name:        sp.Name,
		Phones:      sp.Phones,
		Emails:      sp.Emails,
		Website:     sp.Website,
		Company:     sp.Company,
		SessionKeys: []string(sp.SessionRefs),
	}
}
