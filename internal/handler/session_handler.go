package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
	"github.com/hitoshi/confman/internal/session"
)

// SessionServiceInterface はセッションハンドラーが必要とするサービスインターフェース。
type SessionServiceInterface interface {
	// Create はセッションを作成する。所属カンファレンスの主催者のみが実行できる。
	Create(ctx context.Context, organizerID, conferenceRef string, input session.CreateInput) (*model.Session, error)
	// Get は外部参照キーでセッションを取得する。
	Get(ctx context.Context, sessionRef string) (*model.Session, error)
	// ByConference は指定カンファレンスの全セッションを返す。
	ByConference(ctx context.Context, conferenceRef string) ([]*model.Session, error)
	// ByConferenceAndType は指定カンファレンスの指定タイプのセッションを返す。
	ByConferenceAndType(ctx context.Context, conferenceRef, typeOfSession string) ([]*model.Session, error)
	// BySpeaker は指定スピーカーの担当セッションを参照順のまま返す。
	BySpeaker(ctx context.Context, speakerRef string) ([]*model.Session, error)
	// Wishlist はウィッシュリストのセッションを追加順のまま返す。
	Wishlist(ctx context.Context, profileID string) ([]*model.Session, error)
	// WishlistByConference はウィッシュリストのうち指定カンファレンス分のみを返す。
	WishlistByConference(ctx context.Context, profileID, conferenceRef string) ([]*model.Session, error)
	// Query はフィルタ条件でセッションを検索する。
	Query(ctx context.Context, filters []query.Filter) ([]*model.Session, error)
	// EarlyNonMatching は指定時刻より前に始まる指定タイプ以外のセッションを返す。
	EarlyNonMatching(ctx context.Context, maxStartTime, excludeType string) ([]*model.Session, error)
	// InDateWindow は空席のあるカンファレンスの指定期間内のセッションを返す。
	InDateWindow(ctx context.Context, from, to time.Time) ([]*model.Session, error)
}

// SessionHandler はセッション管理のHTTPハンドラー。
type SessionHandler struct {
	service SessionServiceInterface
	metrics QueryMetricsRecorder
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionServiceInterface, metrics QueryMetricsRecorder) *SessionHandler {
	return &SessionHandler{
		service: service,
		metrics: metrics,
	}
}

// sessionResponse はセッション情報のAPIレスポンス。
type sessionResponse struct {
	WebsafeKey    string `json:"websafe_key"`
	ConferenceKey string `json:"conference_key"`
	Name          string `json:"name"`
	Highlights    string `json:"highlights,omitempty"`
	TypeOfSession string `json:"type_of_session"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Duration      string `json:"duration,omitempty"`
	Location      string `json:"location,omitempty"`
	SpeakerKey    string `json:"speaker_key,omitempty"`
}

// sessionCreateRequest はセッション作成リクエストのボディ。
// 省略されたフィールドには既定値が適用される。
type sessionCreateRequest struct {
	Name          string  `json:"name"`
	Highlights    string  `json:"highlights"`
	TypeOfSession *string `json:"type_of_session"`
	Date          *string `json:"date"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	Location      string  `json:"location"`
	SpeakerKey    string  `json:"speaker_key"`
}

// CreateSession はカンファレンスにセッションを作成する。
// POST /api/conferences/:key/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	conferenceRef := chi.URLParam(r, "key")

	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	date, err := parseDatePtr(req.Date)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	startTime, err := parseTimePtr(req.StartTime)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	endTime, err := parseTimePtr(req.EndTime)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	sess, err := h.service.Create(r.Context(), profileID, conferenceRef, session.CreateInput{
		Name:          req.Name,
		Highlights:    req.Highlights,
		TypeOfSession: req.TypeOfSession,
		Date:          date,
		StartTime:     startTime,
		EndTime:       endTime,
		Location:      req.Location,
		SpeakerRef:    req.SpeakerKey,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSessionResponse(sess))
}

// GetSession はセッションの詳細を取得する。
// GET /api/sessions/:key
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionRef := chi.URLParam(r, "key")

	sess, err := h.service.Get(r.Context(), sessionRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSessionResponse(sess))
}

// ListByConference はカンファレンスの全セッションを返す。
// GET /api/conferences/:key/sessions
func (h *SessionHandler) ListByConference(w http.ResponseWriter, r *http.Request) {
	conferenceRef := chi.URLParam(r, "key")

	sessions, err := h.service.ByConference(r.Context(), conferenceRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSessionList(w, sessions)
}

// ListByConferenceAndType はカンファレンスの指定タイプのセッションを返す。
// GET /api/conferences/:key/sessions/type/:type
func (h *SessionHandler) ListByConferenceAndType(w http.ResponseWriter, r *http.Request) {
	conferenceRef := chi.URLParam(r, "key")
	typeOfSession := chi.URLParam(r, "type")

	sessions, err := h.service.ByConferenceAndType(r.Context(), conferenceRef, typeOfSession)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSessionList(w, sessions)
}

// ListBySpeaker はスピーカーの担当セッションを返す。
// GET /api/speakers/:key/sessions
func (h *SessionHandler) ListBySpeaker(w http.ResponseWriter, r *http.Request) {
	speakerRef := chi.URLParam(r, "key")

	sessions, err := h.service.BySpeaker(r.Context(), speakerRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSessionList(w, sessions)
}

// ListWishlist はウィッシュリストのセッションを追加順のまま返す。
// GET /api/wishlist
func (h *SessionHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	sessions, err := h.service.Wishlist(r.Context(), profileID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSessionList(w, sessions)
}

// ListWishlistByConference はウィッシュリストのうち指定カンファレンス分を返す。
// GET /api/conferences/:key/wishlist
func (h *SessionHandler) ListWishlistByConference(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfileID(w, r)
	if !ok {
		return
	}

	conferenceRef := chi.URLParam(r, "key")

	sessions, err := h.service.WishlistByConference(r.Context(), profileID, conferenceRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSessionList(w, sessions)
}

// QuerySessions はフィルタ条件でセッションを検索する。
// POST /api/sessions/query
func (h *SessionHandler) QuerySessions(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	sessions, err := h.service.Query(r.Context(), req.Filters)
	if err != nil {
		h.recordQueryRejection(err)
		handleServiceError(w, err)
		return
	}

	writeSessionList(w, sessions)
}

// ListEarlyNonMatching は指定時刻より前に始まる指定タイプ以外のセッションを返す。
// GET /api/sessions/early-non-matching?before=HH:MM:SS&exclude=TYPE
func (h *SessionHandler) ListEarlyNonMatching(w http.ResponseWriter, r *http.Request) {
	before := r.URL.Query().Get("before")
	exclude := r.URL.Query().Get("exclude")
	if before == "" || exclude == "" {
		handleServiceError(w, model.NewInvalidRequestError("beforeとexcludeの両方を指定してください"))
		return
	}

	sessions, err := h.service.EarlyNonMatching(r.Context(), before, exclude)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSessionList(w, sessions)
}

// ListInDateWindow は空席のあるカンファレンスの指定期間内のセッションを返す。
// GET /api/sessions/window?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *SessionHandler) ListInDateWindow(w http.ResponseWriter, r *http.Request) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")

	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		handleServiceError(w, model.NewInvalidRequestError("fromはYYYY-MM-DD形式で指定してください"))
		return
	}
	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		handleServiceError(w, model.NewInvalidRequestError("toはYYYY-MM-DD形式で指定してください"))
		return
	}

	sessions, err := h.service.InDateWindow(r.Context(), from, to)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSessionList(w, sessions)
}

// recordQueryRejection はコンパイル拒否エラーをメトリクスに記録する。
func (h *SessionHandler) recordQueryRejection(err error) {
	if h.metrics == nil {
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Category == "query" {
		h.metrics.RecordQueryRejected(apiErr.Code)
	}
}

// --- ヘルパー関数 ---

// toSessionResponse はmodel.SessionからAPIレスポンスに変換する。
func toSessionResponse(sess *model.Session) sessionResponse {
	resp := sessionResponse{
		WebsafeKey:    keyref.Encode(keyref.KindSession, sess.ID),
		ConferenceKey: keyref.Encode(keyref.KindConference, sess.ConferenceID),
		Name:          sess.Name,
		Highlights:    sess.Highlights,
		TypeOfSession: sess.TypeOfSession,
		Date:          sess.Date.Format(dateLayout),
		StartTime:     sess.StartTime.Format(timeLayout),
		EndTime:       sess.EndTime.Format(timeLayout),
		Duration:      sess.Duration(),
		Location:      sess.Location,
	}
	if sess.SpeakerID != "" {
		resp.SpeakerKey = keyref.Encode(keyref.KindSpeaker, sess.SpeakerID)
	}
	return resp
}

// writeSessionList はセッション一覧をJSONで書き込む。
func writeSessionList(w http.ResponseWriter, sessions []*model.Session) {
	results := make([]sessionResponse, len(sessions))
	for i, sess := range sessions {
		results[i] = toSessionResponse(sess)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}
