// Package app はアプリケーションの起動モードと依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/confman/internal/announce"
	"github.com/hitoshi/confman/internal/auth"
	"github.com/hitoshi/confman/internal/cache"
	"github.com/hitoshi/confman/internal/conference"
	"github.com/hitoshi/confman/internal/config"
	"github.com/hitoshi/confman/internal/database"
	"github.com/hitoshi/confman/internal/handler"
	"github.com/hitoshi/confman/internal/ledger"
	"github.com/hitoshi/confman/internal/logger"
	"github.com/hitoshi/confman/internal/mailer"
	"github.com/hitoshi/confman/internal/metrics"
	"github.com/hitoshi/confman/internal/middleware"
	"github.com/hitoshi/confman/internal/profile"
	"github.com/hitoshi/confman/internal/query"
	"github.com/hitoshi/confman/internal/repository"
	"github.com/hitoshi/confman/internal/schedule"
	"github.com/hitoshi/confman/internal/security"
	"github.com/hitoshi/confman/internal/session"
	"github.com/hitoshi/confman/internal/speaker"
	"github.com/hitoshi/confman/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newCacheStore は設定に応じたキャッシュストアを生成する。
// REDIS_URLが設定されていればRedis、未設定ならプロセス内メモリを使用する。
func newCacheStore(cfg *config.Config) (cache.Store, error) {
	if cfg.RedisURL == "" {
		slog.Info("using in-memory cache store")
		return cache.NewMemoryStore(), nil
	}
	store, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("using redis cache store")
	return store, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	loginSessionRepo := repository.NewPostgresLoginSessionRepo(db)
	confRepo := repository.NewPostgresConferenceRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	speakerRepo := repository.NewPostgresSpeakerRepo(db)
	txRunner := repository.NewPostgresTxRunner(db, cfg.TxMaxAttempts)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	txRunner.OnRetry = collector.RecordTxRetry

	// 4. キャッシュストアの初期化
	cacheStore, err := newCacheStore(cfg)
	if err != nil {
		return err
	}

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, profileRepo, identRepo, loginSessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	sanitizer := security.NewContentSanitizer()
	logMailer := mailer.NewLogMailer()

	confCompiler := query.NewCompiler(query.ConferenceFields, cfg.QuerySingleInequality, cfg.QueryMaxFilters)
	sessCompiler := query.NewCompiler(query.SessionFields, cfg.QuerySingleInequality, cfg.QueryMaxFilters)

	announceService := announce.NewService(
		cacheStore, confRepo, sessionRepo, speakerRepo,
		cfg.AnnouncementThreshold, cfg.AnnouncementTTL,
	)
	conferenceService := conference.NewService(confRepo, profileRepo, confCompiler, sanitizer, logMailer)
	sessionService := session.NewService(
		sessionRepo, confRepo, speakerRepo, profileRepo,
		sessCompiler, sanitizer, announceService,
	)
	speakerService := speaker.NewService(speakerRepo, sessionRepo)
	scheduleService := schedule.NewService(confRepo)
	profileService := profile.NewService(profileRepo)
	ledgerService := ledger.NewService(txRunner, sessionRepo)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     cfg.RateLimitGeneral,
		GeneralBurst:    cfg.RateLimitGeneral,
		RegisterRate:    cfg.RateLimitRegister,
		RegisterBurst:   cfg.RateLimitRegister,
		CleanupInterval: 10 * time.Minute,
	})
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     loginSessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),
		OnHTTPStatus:   collector.RecordHTTPStatus,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProfileService:    profileService,
		ConferenceService: conferenceService,
		ScheduleService:   scheduleService,
		SessionService:    sessionService,
		SpeakerService:    speakerService,
		LedgerService:     ledgerService,
		AnnounceService:   announceService,

		QueryMetrics:        collector,
		LedgerMetrics:       collector,
		FreeIntervalMetrics: collector,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れログインセッションの削除ジョブを一定間隔で実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. クリーンアップジョブの初期化
	loginSessionRepo := repository.NewPostgresLoginSessionRepo(db)
	cleanupJob := cleanup.NewCleanupJob(loginSessionRepo, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	// 起動直後に1回実行
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
