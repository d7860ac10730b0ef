package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     60,
		GeneralBurst:    2,
		RegisterRate:    10,
		RegisterBurst:   1,
		CleanupInterval: time.Hour,
	}
}

// TestRateLimiter_General はバースト許容量を超えたリクエストが429になることを検証する。
func TestRateLimiter_General(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	makeRequest := func() int {
		r := httptest.NewRequest(http.MethodGet, "/api/conferences/created", nil)
		r = r.WithContext(ContextWithProfileID(r.Context(), "profile-1"))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	// バースト分は通る
	if code := makeRequest(); code != http.StatusOK {
		t.Errorf("1回目 status = %d, want %d", code, http.StatusOK)
	}
	if code := makeRequest(); code != http.StatusOK {
		t.Errorf("2回目 status = %d, want %d", code, http.StatusOK)
	}
	if code := makeRequest(); code != http.StatusTooManyRequests {
		t.Errorf("3回目 status = %d, want %d", code, http.StatusTooManyRequests)
	}
}

// TestRateLimiter_PerUser はレート制限がユーザー単位であることを検証する。
func TestRateLimiter_PerUser(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	makeRequest := func(profileID string) int {
		r := httptest.NewRequest(http.MethodGet, "/api/conferences/created", nil)
		r = r.WithContext(ContextWithProfileID(r.Context(), profileID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	// profile-1のバーストを使い切る
	makeRequest("profile-1")
	makeRequest("profile-1")
	if code := makeRequest("profile-1"); code != http.StatusTooManyRequests {
		t.Fatalf("profile-1 status = %d, want %d", code, http.StatusTooManyRequests)
	}

	// 別ユーザーは影響を受けない
	if code := makeRequest("profile-2"); code != http.StatusOK {
		t.Errorf("profile-2 status = %d, want %d", code, http.StatusOK)
	}
}

// TestRateLimiter_RegisterSeparate は参加登録リミターが一般リミターと
// 独立していることを検証する。
func TestRateLimiter_RegisterSeparate(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	general := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	register := rl.RegisterMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	makeRequest := func(h http.Handler) int {
		r := httptest.NewRequest(http.MethodPost, "/api/conferences/abc/registration", nil)
		r = r.WithContext(ContextWithProfileID(r.Context(), "profile-1"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	// 参加登録のバースト(1)を使い切る
	makeRequest(register)
	if code := makeRequest(register); code != http.StatusTooManyRequests {
		t.Fatalf("register status = %d, want %d", code, http.StatusTooManyRequests)
	}

	// 一般リミターはまだ通る
	if code := makeRequest(general); code != http.StatusOK {
		t.Errorf("general status = %d, want %d", code, http.StatusOK)
	}
}

// TestRateLimiter_RetryAfterHeader は429レスポンスにRetry-Afterヘッダーが
// 付くことを検証する。
func TestRateLimiter_RetryAfterHeader(t *testing.T) {
	config := testRateLimiterConfig()
	config.GeneralBurst = 0
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/conferences/created", nil)
	r = r.WithContext(ContextWithProfileID(r.Context(), "profile-1"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %s, want 60", got)
	}
}
