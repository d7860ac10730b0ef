package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/confman/internal/conference"
	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/middleware"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
)

// --- モック ---

type mockConferenceService struct {
	createFn             func(ctx context.Context, organizerID string, input conference.CreateInput) (*model.Conference, error)
	updateFn             func(ctx context.Context, organizerID, conferenceRef string, input conference.UpdateInput) (*model.Conference, error)
	getFn                func(ctx context.Context, conferenceRef string) (*model.Conference, error)
	listCreatedFn        func(ctx context.Context, organizerID string) ([]*model.Conference, error)
	listCreatedInMonthFn func(ctx context.Context, organizerID string, year, month int) ([]*model.Conference, error)
	listToAttendFn       func(ctx context.Context, profileID string) ([]conference.ConferenceWithOrganizer, error)
	attendeesFn          func(ctx context.Context, conferenceRef string) ([]*model.Profile, error)
	queryFn              func(ctx context.Context, filters []query.Filter) ([]*model.Conference, error)
}

func (m *mockConferenceService) Create(ctx context.Context, organizerID string, input conference.CreateInput) (*model.Conference, error) {
	return m.createFn(ctx, organizerID, input)
}
func (m *mockConferenceService) Update(ctx context.Context, organizerID, conferenceRef string, input conference.UpdateInput) (*model.Conference, error) {
	return m.updateFn(ctx, organizerID, conferenceRef, input)
}
func (m *mockConferenceService) Get(ctx context.Context, conferenceRef string) (*model.Conference, error) {
	return m.getFn(ctx, conferenceRef)
}
func (m *mockConferenceService) ListCreated(ctx context.Context, organizerID string) ([]*model.Conference, error) {
	return m.listCreatedFn(ctx, organizerID)
}
func (m *mockConferenceService) ListCreatedInMonth(ctx context.Context, organizerID string, year, month int) ([]*model.Conference, error) {
	return m.listCreatedInMonthFn(ctx, organizerID, year, month)
}
func (m *mockConferenceService) ListToAttend(ctx context.Context, profileID string) ([]conference.ConferenceWithOrganizer, error) {
	return m.listToAttendFn(ctx, profileID)
}
func (m *mockConferenceService) Attendees(ctx context.Context, conferenceRef string) ([]*model.Profile, error) {
	return m.attendeesFn(ctx, conferenceRef)
}
func (m *mockConferenceService) Query(ctx context.Context, filters []query.Filter) ([]*model.Conference, error) {
	return m.queryFn(ctx, filters)
}

// mockQueryMetrics はフィルタ拒否の記録を捕捉する。
type mockQueryMetrics struct {
	rejectedCodes []string
}

func (m *mockQueryMetrics) RecordQueryRejected(code string) {
	m.rejectedCodes = append(m.rejectedCodes, code)
}

// authedRequest は認証済みプロフィールIDをコンテキストに載せたリクエストを生成する。
func authedRequest(method, target, body, profileID string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if profileID != "" {
		r = r.WithContext(middleware.ContextWithProfileID(r.Context(), profileID))
	}
	return r
}

// --- テスト ---

// TestCreateConference_Unauthenticated は未認証リクエストが401になることを検証する。
func TestCreateConference_Unauthenticated(t *testing.T) {
	h := NewConferenceHandler(&mockConferenceService{}, nil, nil)

	w := httptest.NewRecorder()
	h.CreateConference(w, authedRequest(http.MethodPost, "/api/conferences", `{"name":"Go Conference"}`, ""))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	var resp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.Code != "UNAUTHORIZED" {
		t.Errorf("code = %s, want UNAUTHORIZED", resp.Code)
	}
}

// TestCreateConference_InvalidBody は解析できないボディが400になることを検証する。
func TestCreateConference_InvalidBody(t *testing.T) {
	h := NewConferenceHandler(&mockConferenceService{}, nil, nil)

	w := httptest.NewRecorder()
	h.CreateConference(w, authedRequest(http.MethodPost, "/api/conferences", `{not json`, "profile-1"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var resp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %s, want %s", resp.Code, model.ErrCodeInvalidRequest)
	}
}

// TestCreateConference は作成成功時に201と外部参照キーが返ることを検証する。
func TestCreateConference(t *testing.T) {
	svc := &mockConferenceService{
		createFn: func(ctx context.Context, organizerID string, input conference.CreateInput) (*model.Conference, error) {
			if organizerID != "profile-1" {
				t.Errorf("organizerID = %s, want profile-1", organizerID)
			}
			return &model.Conference{ID: "conf-1", Name: input.Name, City: "Tokyo"}, nil
		},
	}
	h := NewConferenceHandler(svc, nil, nil)

	w := httptest.NewRecorder()
	h.CreateConference(w, authedRequest(http.MethodPost, "/api/conferences",
		`{"name":"Go Conference","city":"Tokyo"}`, "profile-1"))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var resp conferenceResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	id, err := keyref.DecodeAs(resp.WebsafeKey, keyref.KindConference)
	if err != nil || id != "conf-1" {
		t.Errorf("websafe_key = %s (id=%s, err=%v), want conf-1のキー", resp.WebsafeKey, id, err)
	}
}

// TestCreateConference_InvalidDate は不正な日付形式が400になることを検証する。
func TestCreateConference_InvalidDate(t *testing.T) {
	h := NewConferenceHandler(&mockConferenceService{}, nil, nil)

	w := httptest.NewRecorder()
	h.CreateConference(w, authedRequest(http.MethodPost, "/api/conferences",
		`{"name":"Go Conference","start_date":"June 15"}`, "profile-1"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// TestGetConference_NotFound は存在しないキーが404になることを検証する。
func TestGetConference_NotFound(t *testing.T) {
	svc := &mockConferenceService{
		getFn: func(ctx context.Context, conferenceRef string) (*model.Conference, error) {
			return nil, model.NewConferenceNotFoundError(conferenceRef)
		},
	}
	h := NewConferenceHandler(svc, nil, nil)

	r := chi.NewRouter()
	r.Get("/api/conferences/{key}", h.GetConference)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conferences/bogus", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestQueryConferences_RecordsRejection はフィルタのコンパイル拒否が
// メトリクスに記録されることを検証する。
func TestQueryConferences_RecordsRejection(t *testing.T) {
	svc := &mockConferenceService{
		queryFn: func(ctx context.Context, filters []query.Filter) ([]*model.Conference, error) {
			return nil, model.NewInvalidFilterError("UNKNOWN", "EQ")
		},
	}
	metrics := &mockQueryMetrics{}
	h := NewConferenceHandler(svc, nil, metrics)

	w := httptest.NewRecorder()
	h.QueryConferences(w, httptest.NewRequest(http.MethodPost, "/api/conferences/query",
		strings.NewReader(`{"filters":[{"field":"UNKNOWN","operator":"EQ","value":"x"}]}`)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(metrics.rejectedCodes) != 1 || metrics.rejectedCodes[0] != model.ErrCodeInvalidFilter {
		t.Errorf("rejectedCodes = %v, want [%s]", metrics.rejectedCodes, model.ErrCodeInvalidFilter)
	}
}

// TestMapAPIErrorToHTTPStatus はエラーコードとHTTPステータスの対応を検証する。
func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{code: model.ErrCodeInvalidFilter, want: http.StatusBadRequest},
		{code: model.ErrCodeMultipleInequalityField, want: http.StatusBadRequest},
		{code: model.ErrCodeInvalidMonthYear, want: http.StatusBadRequest},
		{code: model.ErrCodeConferenceNotFound, want: http.StatusNotFound},
		{code: model.ErrCodeProfileNotFound, want: http.StatusNotFound},
		{code: model.ErrCodeAlreadyRegistered, want: http.StatusConflict},
		{code: model.ErrCodeNoSeatsAvailable, want: http.StatusConflict},
		{code: model.ErrCodeNotOrganizer, want: http.StatusForbidden},
		{code: model.ErrCodeTransientFailure, want: http.StatusServiceUnavailable},
		{code: "UNAUTHORIZED", want: http.StatusUnauthorized},
		{code: "SOMETHING_ELSE", want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := mapAPIErrorToHTTPStatus(&model.APIError{Code: tt.code})
			if got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}
