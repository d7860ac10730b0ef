// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/confman/internal/conference"
	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/middleware"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
)

// 日付・時刻のAPI表現
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// ConferenceServiceInterface はカンファレンスハンドラーが必要とするサービスインターフェース。
type ConferenceServiceInterface interface {
	// Create はカンファレンスを作成する。作成者が主催者になる。
	Create(ctx context.Context, organizerID string, input conference.CreateInput) (*model.Conference, error)
	// Update はカンファレンスを部分更新する。主催者のみが実行できる。
	Update(ctx context.Context, organizerID, conferenceRef string, input conference.UpdateInput) (*model.Conference, error)
	// Get は外部参照キーでカンファレンスを取得する。
	Get(ctx context.Context, conferenceRef string) (*model.Conference, error)
	// ListCreated は主催カンファレンス一覧を返す。
	ListCreated(ctx context.Context, organizerID string) ([]*model.Conference, error)
	// ListCreatedInMonth は主催カンファレンスのうち指定年月に開始するものを返す。
	ListCreatedInMonth(ctx context.Context, organizerID string, year, month int) ([]*model.Conference, error)
	// ListToAttend は参加予定カンファレンスを登録順・主催者名付きで返す。
	ListToAttend(ctx context.Context, profileID string) ([]conference.ConferenceWithOrganizer, error)
	// Attendees は参加者プロフィール一覧を返す。
	Attendees(ctx context.Context, conferenceRef string) ([]*model.Profile, error)
	// Query はフィルタ条件でカンファレンスを検索する。
	Query(ctx context.Context, filters []query.Filter) ([]*model.Conference, error)
}

// ScheduleServiceInterface は主催者の空き日程計算のサービスインターフェース。
type ScheduleServiceInterface interface {
	// FreeIntervalsForMonth は主催カンファレンスの開催期間を埋まり日として
	// 指定年月の空き日区間を返す。
	FreeIntervalsForMonth(ctx context.Context, organizerID string, year, month int) ([]model.FreeInterval, error)
}

// QueryMetricsRecorder はフィルタコンパイル拒否のメトリクス記録インターフェース。
type QueryMetricsRecorder interface {
	RecordQueryRejected(code string)
}

// ConferenceHandler はカンファレンス管理のHTTPハンドラー。
type ConferenceHandler struct {
	service  ConferenceServiceInterface
	schedule ScheduleServiceInterface
	metrics  QueryMetricsRecorder
}

// NewConferenceHandler はConferenceHandlerを生成する。
func NewConferenceHandler(service ConferenceServiceInterface, schedule ScheduleServiceInterface, metrics QueryMetricsRecorder) *ConferenceHandler {
	return &ConferenceHandler{
		service:  service,
		schedule: schedule,
		metrics:  metrics,
	}
}

// conferenceResponse はカンファレンス情報のAPIレスポンス。
type conferenceResponse struct {
	WebsafeKey           string   `json:"websafe_key"`
	Name                 string   `json:"name"`
	Description          string   `json:"description,omitempty"`
	Topics               []string `json:"topics"`
	City                 string   `json:"city"`
	StartDate            *string  `json:"start_date,omitempty"`
	EndDate              *string  `json:"end_date,omitempty"`
	Month                int      `json:"month"`
	MaxAttendees         int      `json:"max_attendees"`
	SeatsAvailable       int      `json:"seats_available"`
	OrganizerDisplayName string   `json:"organizer_display_name,omitempty"`
}

// conferenceCreateRequest はカンファレンス作成リクエストのボディ。
// 省略されたフィールドには既定値が適用される。
type conferenceCreateRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Topics       []string `json:"topics"`
	City         *string  `json:"city"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	MaxAttendees *int     `json:"max_attendees"`
}

// conferenceUpdateRequest はカンファレンス部分更新リクエストのボディ。
// nilのフィールドは変更しない。
type conferenceUpdateRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Topics       []string `json:"topics"`
	City         *string  `json:"city"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	MaxAttendees *int     `json:"max_attendees"`
}

// queryRequest はフィルタ検索リクエストのボディ。
type queryRequest struct {
	Filters []query.Filter `json:"filters"`
}

// CreateConference はカンファレンスを作成する。
// POST /api/conferences
func (h *ConferenceHandler) CreateConference(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	var req conferenceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	startDate, err := parseDatePtr(req.StartDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	endDate, err := parseDatePtr(req.EndDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	conf, err := h.service.Create(r.Context(), profileID, conference.CreateInput{
		Name:         req.Name,
		Description:  req.Description,
		Topics:       req.Topics,
		City:         req.City,
		StartDate:    startDate,
		EndDate:      endDate,
		MaxAttendees: req.MaxAttendees,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toConferenceResponse(conf, ""))
}

// UpdateConference はカンファレンスを部分更新する。
// PATCH /api/conferences/:key
func (h *ConferenceHandler) UpdateConference(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	conferenceRef := chi.URLParam(r, "key")

	var req conferenceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	startDate, err := parseDatePtr(req.StartDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	endDate, err := parseDatePtr(req.EndDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	conf, err := h.service.Update(r.Context(), profileID, conferenceRef, conference.UpdateInput{
		Name:         req.Name,
		Description:  req.Description,
		Topics:       req.Topics,
		City:         req.City,
		StartDate:    startDate,
		EndDate:      endDate,
		MaxAttendees: req.MaxAttendees,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toConferenceResponse(conf, ""))
}

// GetConference はカンファレンスの詳細を取得する。
// GET /api/conferences/:key
func (h *ConferenceHandler) GetConference(w http.ResponseWriter, r *http.Request) {
	conferenceRef := chi.URLParam(r, "key")

	conf, err := h.service.Get(r.Context(), conferenceRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toConferenceResponse(conf, ""))
}

// ListCreated はログイン中のプロフィールが主催するカンファレンス一覧を返す。
// yearとmonthの両方が指定された場合は該当年月に開始するものに絞り込む。
// GET /api/conferences/created?year=YYYY&month=M
func (h *ConferenceHandler) ListCreated(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	var confs []*model.Conference
	var err error

	yearStr := r.URL.Query().Get("year")
	monthStr := r.URL.Query().Get("month")
	if yearStr != "" || monthStr != "" {
		year, yerr := strconv.Atoi(yearStr)
		month, merr := strconv.Atoi(monthStr)
		if yerr != nil || merr != nil {
			handleServiceError(w, model.NewInvalidRequestError("yearとmonthは整数で指定してください"))
			return
		}
		confs, err = h.service.ListCreatedInMonth(r.Context(), profileID, year, month)
	} else {
		confs, err = h.service.ListCreated(r.Context(), profileID)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]conferenceResponse, len(confs))
	for i, conf := range confs {
		results[i] = toConferenceResponse(conf, "")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// ListToAttend は参加予定カンファレンスを登録順のまま返す。
// GET /api/conferences/attending
func (h *ConferenceHandler) ListToAttend(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListToAttend(r.Context(), profileID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]conferenceResponse, len(items))
	for i, item := range items {
		results[i] = toConferenceResponse(item.Conference, item.OrganizerName)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// ListFreeIntervals はログイン中の主催者の指定年月の空き日区間を返す。
// GET /api/conferences/free-intervals?year=YYYY&month=M
func (h *ConferenceHandler) ListFreeIntervals(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	year, yerr := strconv.Atoi(r.URL.Query().Get("year"))
	month, merr := strconv.Atoi(r.URL.Query().Get("month"))
	if yerr != nil || merr != nil {
		handleServiceError(w, model.NewInvalidRequestError("yearとmonthは整数で指定してください"))
		return
	}

	intervals, err := h.schedule.FreeIntervalsForMonth(r.Context(), profileID, year, month)
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

// ListAttendees はカンファレンスの参加者一覧を返す。
// GET /api/conferences/:key/attendees
func (h *ConferenceHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	conferenceRef := chi.URLParam(r, "key")

	profiles, err := h.service.Attendees(r.Context(), conferenceRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		results[i] = toProfileResponse(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// QueryConferences はフィルタ条件でカンファレンスを検索する。
// POST /api/conferences/query
func (h *ConferenceHandler) QueryConferences(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	confs, err := h.service.Query(r.Context(), req.Filters)
	if err != nil {
		h.recordQueryRejection(err)
		handleServiceError(w, err)
		return
	}

	results := make([]conferenceResponse, len(confs))
	for i, conf := range confs {
		results[i] = toConferenceResponse(conf, "")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// recordQueryRejection はコンパイル拒否エラーをメトリクスに記録する。
func (h *ConferenceHandler) recordQueryRejection(err error) {
	if h.metrics == nil {
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Category == "query" {
		h.metrics.RecordQueryRejected(apiErr.Code)
	}
}

// --- ヘルパー関数 ---

// toConferenceResponse はmodel.ConferenceからAPIレスポンスに変換する。
func toConferenceResponse(conf *model.Conference, organizerName string) conferenceResponse {
	return conferenceResponse{
		WebsafeKey:           keyref.Encode(keyref.KindConference, conf.ID),
		Name:                 conf.Name,
		Description:          conf.Description,
		Topics:               conf.Topics,
		City:                 conf.City,
		StartDate:            formatDatePtr(conf.StartDate),
		EndDate:              formatDatePtr(conf.EndDate),
		Month:                conf.Month,
		MaxAttendees:         conf.MaxAttendees,
		SeatsAvailable:       conf.SeatsAvailable,
		OrganizerDisplayName: organizerName,
	}
}

// parseDatePtr はYYYY-MM-DD形式の日付文字列ポインタを解釈する。nilはnilのまま返す。
func parseDatePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, model.NewInvalidRequestError("日付はYYYY-MM-DD形式で指定してください: " + *s)
	}
	return &t, nil
}

// parseTimePtr はHH:MM:SSまたはHH:MM形式の時刻文字列ポインタを解釈する。
func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, *s)
	if err != nil {
		t, err = time.Parse("15:04", *s)
		if err != nil {
			return nil, model.NewInvalidRequestError("時刻はHH:MM:SS形式で指定してください: " + *s)
		}
	}
	return &t, nil
}

// formatDatePtr は日付をYYYY-MM-DD形式の文字列ポインタに変換する。
func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// requireProfileID はコンテキストから認証済みプロフィールIDを取得する。
// 未認証の場合は401を書き込んでfalseを返す。
func requireProfileID(w http.ResponseWriter, r *http.Request) (string, bool) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return "", false
	}
	return profileID, true
}

// writeInvalidBodyResponse はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidBodyResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     model.ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// apiErrorResponse はAPIエラーレスポンスのJSON表現。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidFilter, model.ErrCodeMultipleInequalityField,
		model.ErrCodeInvalidRequest, model.ErrCodeNameRequired,
		model.ErrCodeInvalidSpeakerContact, model.ErrCodeInvalidMonthYear:
		return http.StatusBadRequest
	case model.ErrCodeConferenceNotFound, model.ErrCodeSessionNotFound,
		model.ErrCodeSpeakerNotFound, model.ErrCodeProfileNotFound:
		return http.StatusNotFound
	case model.ErrCodeAlreadyRegistered, model.ErrCodeNoSeatsAvailable,
		model.ErrCodeAlreadyInWishlist:
		return http.StatusConflict
	case model.ErrCodeNotOrganizer:
		return http.StatusForbidden
	case model.ErrCodeTransientFailure:
		return http.StatusServiceUnavailable
	case "UNAUTHORIZED":
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
