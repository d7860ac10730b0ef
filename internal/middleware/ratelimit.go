package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/confman/internal/model"
)

// RateLimiterConfig はレート制限の設定。
type RateLimiterConfig struct {
	// GeneralRate は一般APIの1分あたりのリクエスト数上限。
	GeneralRate int
	// GeneralBurst は一般APIのバースト許容量。
	GeneralBurst int
	// RegisterRate はカンファレンス参加登録APIの1分あたりのリクエスト数上限。
	// 座席を奪い合う書き込み操作のため一般APIより厳しく制限する。
	RegisterRate int
	// RegisterBurst は参加登録APIのバースト許容量。
	RegisterBurst int
	// CleanupInterval は非アクティブユーザーのリミター削除間隔。
	CleanupInterval time.Duration
}

// userLimiter はユーザーごとのリミターと最終アクセス時刻を保持する。
type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter はユーザー単位の2段階レート制限を提供する。
// 一般APIと参加登録APIで別々のリミターを保持する。
type RateLimiter struct {
	config RateLimiterConfig

	mu               sync.Mutex
	generalLimiters  map[string]*userLimiter
	registerLimiters map[string]*userLimiter

	stopCh chan struct{}
}

// NewRateLimiter はRateLimiterを生成し、クリーンアップループを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:           config,
		generalLimiters:  make(map[string]*userLimiter),
		registerLimiters: make(map[string]*userLimiter),
		stopCh:           make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop はクリーンアップループを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// cleanupLoop は一定間隔で非アクティブユーザーのリミターを削除する。
// メモリリークを防ぐため、最終アクセスからクリーンアップ間隔の2倍を
// 経過したエントリを削除対象とする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := time.Now().Add(-2 * rl.config.CleanupInterval)
	for userID, ul := range rl.generalLimiters {
		if ul.lastSeen.Before(threshold) {
			delete(rl.generalLimiters, userID)
		}
	}
	for userID, ul := range rl.registerLimiters {
		if ul.lastSeen.Before(threshold) {
			delete(rl.registerLimiters, userID)
		}
	}
}

// getGeneralLimiter はユーザーの一般APIリミターを取得または生成する。
func (rl *RateLimiter) getGeneralLimiter(userID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.generalLimiters[userID]
	if !ok {
		ul = &userLimiter{
			limiter: rate.NewLimiter(
				rate.Limit(float64(rl.config.GeneralRate)/60.0),
				rl.config.GeneralBurst,
			),
		}
		rl.generalLimiters[userID] = ul
	}
	ul.lastSeen = time.Now()
	return ul.limiter
}

// getRegisterLimiter はユーザーの参加登録APIリミターを取得または生成する。
func (rl *RateLimiter) getRegisterLimiter(userID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.registerLimiters[userID]
	if !ok {
		ul = &userLimiter{
			limiter: rate.NewLimiter(
				rate.Limit(float64(rl.config.RegisterRate)/60.0),
				rl.config.RegisterBurst,
			),
		}
		rl.registerLimiters[userID] = ul
	}
	ul.lastSeen = time.Now()
	return ul.limiter
}

// GeneralMiddleware は一般APIのレート制限ミドルウェアを返す。
// セッションミドルウェアの後に配置すること。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID, err := ProfileIDFromContext(r.Context())
			if err != nil {
				// 未認証リクエストはセッションミドルウェアで拒否されるため、
				// ここではリモートアドレス単位で制限する
				profileID = r.RemoteAddr
			}

			if !rl.getGeneralLimiter(profileID).Allow() {
				writeRateLimitResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RegisterMiddleware はカンファレンス参加登録APIのレート制限ミドルウェアを返す。
func (rl *RateLimiter) RegisterMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID, err := ProfileIDFromContext(r.Context())
			if err != nil {
				profileID = r.RemoteAddr
			}

			if !rl.getRegisterLimiter(profileID).Allow() {
				writeRateLimitResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimitResponse(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	WriteErrorResponse(w, http.StatusTooManyRequests, &model.APIError{
		Code:     "RATE_LIMIT_EXCEEDED",
		Message:  "リクエスト数が上限を超えました。",
		Category: "rate_limit",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
