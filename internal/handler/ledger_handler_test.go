package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/confman/internal/model"
)

// --- モック ---

type mockLedgerService struct {
	registerFn           func(ctx context.Context, profileID, conferenceRef string) error
	unregisterFn         func(ctx context.Context, profileID, conferenceRef string) (bool, error)
	addToWishlistFn      func(ctx context.Context, profileID, sessionRef string) error
	removeFromWishlistFn func(ctx context.Context, profileID, sessionRef string) (bool, error)
}

func (m *mockLedgerService) Register(ctx context.Context, profileID, conferenceRef string) error {
	return m.registerFn(ctx, profileID, conferenceRef)
}
func (m *mockLedgerService) Unregister(ctx context.Context, profileID, conferenceRef string) (bool, error) {
	return m.unregisterFn(ctx, profileID, conferenceRef)
}
func (m *mockLedgerService) AddToWishlist(ctx context.Context, profileID, sessionRef string) error {
	return m.addToWishlistFn(ctx, profileID, sessionRef)
}
func (m *mockLedgerService) RemoveFromWishlist(ctx context.Context, profileID, sessionRef string) (bool, error) {
	return m.removeFromWishlistFn(ctx, profileID, sessionRef)
}

// mockLedgerMetrics は台帳操作の記録を捕捉する。
type mockLedgerMetrics struct {
	registrations   int
	unregistrations int
	conflictCodes   []string
}

func (m *mockLedgerMetrics) RecordRegistration()   { m.registrations++ }
func (m *mockLedgerMetrics) RecordUnregistration() { m.unregistrations++ }
func (m *mockLedgerMetrics) RecordLedgerConflict(code string) {
	m.conflictCodes = append(m.conflictCodes, code)
}

func newLedgerRouter(h *LedgerHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/api/conferences/{key}/registration", h.Register)
	r.Delete("/api/conferences/{key}/registration", h.Unregister)
	r.Post("/api/sessions/{key}/wishlist", h.AddToWishlist)
	r.Delete("/api/sessions/{key}/wishlist", h.RemoveFromWishlist)
	return r
}

// --- テスト ---

// TestRegister は参加登録成功時にapplied=trueとメトリクス記録を検証する。
func TestRegister(t *testing.T) {
	svc := &mockLedgerService{
		registerFn: func(ctx context.Context, profileID, conferenceRef string) error {
			if profileID != "profile-1" {
				t.Errorf("profileID = %s, want profile-1", profileID)
			}
			return nil
		},
	}
	metrics := &mockLedgerMetrics{}
	r := newLedgerRouter(NewLedgerHandler(svc, metrics))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/api/conferences/abc/registration", "", "profile-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp appliedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if !resp.Applied {
		t.Error("applied = false, want true")
	}
	if metrics.registrations != 1 {
		t.Errorf("registrations = %d, want 1", metrics.registrations)
	}
}

// TestRegister_NoSeats は満席時に409と競合メトリクス記録を検証する。
func TestRegister_NoSeats(t *testing.T) {
	svc := &mockLedgerService{
		registerFn: func(ctx context.Context, profileID, conferenceRef string) error {
			return model.NewNoSeatsAvailableError()
		},
	}
	metrics := &mockLedgerMetrics{}
	r := newLedgerRouter(NewLedgerHandler(svc, metrics))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/api/conferences/abc/registration", "", "profile-1"))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if metrics.registrations != 0 {
		t.Errorf("registrations = %d, want 0", metrics.registrations)
	}
	if len(metrics.conflictCodes) != 1 || metrics.conflictCodes[0] != model.ErrCodeNoSeatsAvailable {
		t.Errorf("conflictCodes = %v, want [%s]", metrics.conflictCodes, model.ErrCodeNoSeatsAvailable)
	}
}

// TestUnregister_NotRegistered は未登録の取り消しがapplied=falseになり、
// メトリクスに記録されないことを検証する。
func TestUnregister_NotRegistered(t *testing.T) {
	svc := &mockLedgerService{
		unregisterFn: func(ctx context.Context, profileID, conferenceRef string) (bool, error) {
			return false, nil
		},
	}
	metrics := &mockLedgerMetrics{}
	r := newLedgerRouter(NewLedgerHandler(svc, metrics))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodDelete, "/api/conferences/abc/registration", "", "profile-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp appliedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.Applied {
		t.Error("applied = true, want false")
	}
	if metrics.unregistrations != 0 {
		t.Errorf("unregistrations = %d, want 0", metrics.unregistrations)
	}
}

// TestAddToWishlist_AlreadyInWishlist は重複追加が409になることを検証する。
func TestAddToWishlist_AlreadyInWishlist(t *testing.T) {
	svc := &mockLedgerService{
		addToWishlistFn: func(ctx context.Context, profileID, sessionRef string) error {
			return model.NewAlreadyInWishlistError()
		},
	}
	metrics := &mockLedgerMetrics{}
	r := newLedgerRouter(NewLedgerHandler(svc, metrics))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/api/sessions/abc/wishlist", "", "profile-1"))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if len(metrics.conflictCodes) != 1 || metrics.conflictCodes[0] != model.ErrCodeAlreadyInWishlist {
		t.Errorf("conflictCodes = %v, want [%s]", metrics.conflictCodes, model.ErrCodeAlreadyInWishlist)
	}
}

// TestRemoveFromWishlist は削除成功時にapplied=trueが返ることを検証する。
func TestRemoveFromWishlist(t *testing.T) {
	svc := &mockLedgerService{
		removeFromWishlistFn: func(ctx context.Context, profileID, sessionRef string) (bool, error) {
			return true, nil
		},
	}
	r := newLedgerRouter(NewLedgerHandler(svc, &mockLedgerMetrics{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodDelete, "/api/sessions/abc/wishlist", "", "profile-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp appliedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if !resp.Applied {
		t.Error("applied = false, want true")
	}
}

// TestRegister_Unauthenticated は未認証の台帳操作が401になることを検証する。
func TestRegister_Unauthenticated(t *testing.T) {
	r := newLedgerRouter(NewLedgerHandler(&mockLedgerService{}, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/api/conferences/abc/registration", "", ""))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
