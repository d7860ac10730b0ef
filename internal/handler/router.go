package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/confman/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なDB疎通確認のインターフェース。
// *sql.DB がそのまま適合する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.LoginSessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// OnHTTPStatus はレスポンス完了後にステータスコードを通知するフック（nil可）。
	OnHTTPStatus func(statusCode int)

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメインサービス
	ProfileService    ProfileServiceInterface
	ConferenceService ConferenceServiceInterface
	ScheduleService   ScheduleServiceInterface
	SessionService    SessionServiceInterface
	SpeakerService    SpeakerServiceInterface
	LedgerService     LedgerServiceInterface
	AnnounceService   AnnounceServiceInterface

	// メトリクス（nil可）
	QueryMetrics        QueryMetricsRecorder
	LedgerMetrics       LedgerMetricsRecorder
	FreeIntervalMetrics FreeIntervalMetricsRecorder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）はミドルウェアチェーンの外に配置する。
// 参加登録・ウィッシュリストの変更操作には専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default(), deps.OnHTTPStatus))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	confHandler := NewConferenceHandler(deps.ConferenceService, deps.ScheduleService, deps.QueryMetrics)
	sessionHandler := NewSessionHandler(deps.SessionService, deps.QueryMetrics)
	speakerHandler := NewSpeakerHandler(deps.SpeakerService, deps.FreeIntervalMetrics)
	ledgerHandler := NewLedgerHandler(deps.LedgerService, deps.LedgerMetrics)
	announceHandler := NewAnnounceHandler(deps.AnnounceService)

	// --- 認証不要のルート ---

	// ヘルスチェック（Dockerヘルスチェック・監視用）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusスクレイプ
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		registerLimit := deps.RateLimiter.RegisterMiddleware()

		// プロフィール管理
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.GetProfile)
			r.Put("/", profileHandler.SaveProfile)
		})

		// カンファレンス管理
		r.Route("/api/conferences", func(r chi.Router) {
			r.Post("/", confHandler.CreateConference)
			r.Post("/query", confHandler.QueryConferences)
			r.Get("/created", confHandler.ListCreated)
			r.Get("/attending", confHandler.ListToAttend)
			r.Get("/free-intervals", confHandler.ListFreeIntervals)

			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", confHandler.GetConference)
				r.Patch("/", confHandler.UpdateConference)
				r.Get("/attendees", confHandler.ListAttendees)
				r.Get("/featured-speaker", announceHandler.GetFeaturedSpeaker)

				// 参加登録（登録専用レート制限を追加）
				r.With(registerLimit).Post("/registration", ledgerHandler.Register)
				r.With(registerLimit).Delete("/registration", ledgerHandler.Unregister)

				// カンファレンス配下のセッション
				r.Post("/sessions", sessionHandler.CreateSession)
				r.Get("/sessions", sessionHandler.ListByConference)
				r.Get("/sessions/type/{type}", sessionHandler.ListByConferenceAndType)
				r.Get("/wishlist", sessionHandler.ListWishlistByConference)
			})
		})

		// セッション管理
		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/query", sessionHandler.QuerySessions)
			r.Get("/early-non-matching", sessionHandler.ListEarlyNonMatching)
			r.Get("/window", sessionHandler.ListInDateWindow)

			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)

				// ウィッシュリスト（登録専用レート制限を追加）
				r.With(registerLimit).Post("/wishlist", ledgerHandler.AddToWishlist)
				r.With(registerLimit).Delete("/wishlist", ledgerHandler.RemoveFromWishlist)
			})
		})

		// ウィッシュリスト全体
		r.Get("/api/wishlist", sessionHandler.ListWishlist)

		// スピーカー管理
		r.Route("/api/speakers", func(r chi.Router) {
			r.Post("/", speakerHandler.CreateSpeaker)
			r.Get("/", speakerHandler.ListSpeakers)

			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", speakerHandler.GetSpeaker)
				r.Get("/sessions", sessionHandler.ListBySpeaker)
				r.Get("/free-intervals", speakerHandler.ListFreeIntervals)
			})
		})

		// 告知
		r.Route("/api/announcement", func(r chi.Router) {
			r.Get("/", announceHandler.GetAnnouncement)
			r.Post("/refresh", announceHandler.RefreshAnnouncement)
		})
	})

	return r
}
