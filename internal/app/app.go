// Package app は設定の読み込みと依存関係のワイヤリングを行い、サブコマンドを起動する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/boardman/internal/apiclient"
	"github.com/hitoshi/boardman/internal/auth"
	"github.com/hitoshi/boardman/internal/board"
	"github.com/hitoshi/boardman/internal/config"
	"github.com/hitoshi/boardman/internal/database"
	"github.com/hitoshi/boardman/internal/handler"
	"github.com/hitoshi/boardman/internal/i18n"
	"github.com/hitoshi/boardman/internal/logger"
	"github.com/hitoshi/boardman/internal/metrics"
	"github.com/hitoshi/boardman/internal/middleware"
	"github.com/hitoshi/boardman/internal/repository"
	"github.com/hitoshi/boardman/internal/security"
	"github.com/hitoshi/boardman/internal/view"
	"github.com/hitoshi/boardman/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		// 設定エラーもJSONログで出せるようにする
		logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetupDefault(w, cfg.LogLevel)
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
		slog.String("session_store", cfg.SessionStore),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// sessionStore は選択されたセッションストアとその疎通確認・後始末をまとめる。
type sessionStore struct {
	repo  repository.SessionRepository
	ping  handler.HealthCheckFunc
	close func() error
}

// openSessionStore は設定に応じてPostgreSQLまたはRedisのセッションストアを開き、疎通を確認する。
func openSessionStore(ctx context.Context, cfg *config.Config) (*sessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		client, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := database.PingRedis(ctx, client); err != nil {
			client.Close()
			return nil, err
		}
		slog.Info("redis connection established")
		return &sessionStore{
			repo: repository.NewRedisSessionRepo(client),
			ping: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			close: client.Close,
		}, nil

	default:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")
		return &sessionStore{
			repo:  repository.NewPostgresSessionRepo(db),
			ping:  db.PingContext,
			close: db.Close,
		}, nil
	}
}

// server はHTTPハンドラーと、停止時に解放するリソース。
type server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// newServer は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
func newServer(cfg *config.Config, store *sessionStore, reg *prometheus.Registry, log *slog.Logger) (*server, error) {
	collector := metrics.NewCollector(reg)

	// 1. セキュリティサービス
	guard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 2. バックエンドAPIクライアント
	api := apiclient.NewClient(apiclient.Config{
		BaseURL:  cfg.APIServer,
		ClientID: cfg.APIClientID,
		Timeout:  cfg.APITimeout,
	}, nil, log, collector)

	// 3. OAuthプロバイダー（外部へのリクエストはSSRF対策済みクライアントで行う）
	providers, err := newProviders(cfg, guard.NewSafeClient(cfg.APITimeout))
	if err != nil {
		return nil, err
	}

	// 4. 認証・セッション
	orchestrator := auth.NewOrchestrator(
		auth.NewCredentialVerifier(api),
		auth.NewOAuthBridge(api, log, collector),
		providers,
		store.repo,
		auth.NewTokenSigner(cfg.SessionSecret),
		api,
		auth.OrchestratorConfig{
			SessionMaxAge: cfg.SessionMaxAge,
			LandingPath:   cfg.LandingPath,
		},
		log, collector,
	)
	signup := auth.NewSignup(api, log)

	// 5. 掲示板とページ描画
	boards := board.NewService(api, sanitizer, guard, cfg.PostsPerPage, log)
	renderer, err := view.NewRenderer(log)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	cookies := middleware.CookieConfig{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain}

	// configのレート制限はreq/min単位なのでreq/secに変換する
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.AuthRate = rate.Limit(float64(cfg.RateLimitAuth) / 60.0)
	rlCfg.AuthBurst = cfg.RateLimitAuth
	limiter := middleware.NewRateLimiter(rlCfg)

	lang, ok := i18n.ParseTag(cfg.DefaultLang)
	if !ok {
		lang = language.Korean
	}

	router := handler.NewRouter(&handler.RouterDeps{
		SessionResolver:    orchestrator,
		Cookies:            cookies,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		DefaultLanguage:    lang,
		Metrics:            collector,
		Logger:             log,

		Auth:   handler.NewAuthHandler(orchestrator, signup, api, renderer, guard, sanitizer, cookies, log),
		Boards: handler.NewBoardHandler(boards, renderer, guard, cfg.DefaultBoard, cfg.BaseURL, log),

		HealthChecker:  store.ping,
		MetricsHandler: metrics.Handler(reg),
	})

	return &server{handler: router, rateLimiter: limiter}, nil
}

// newProviders はクライアントIDが設定されたOAuthプロバイダーを登録する。
func newProviders(cfg *config.Config, httpClient *http.Client) (*auth.Providers, error) {
	providers := auth.NewProviders()
	candidates := []struct {
		id, secret string
		build      func(auth.ProviderConfig, *http.Client) *auth.OAuth2Provider
		name       string
	}{
		{cfg.GoogleClientID, cfg.GoogleClientSecret, auth.NewGoogle, "google"},
		{cfg.GithubClientID, cfg.GithubClientSecret, auth.NewGithub, "github"},
		{cfg.KakaoClientID, cfg.KakaoClientSecret, auth.NewKakao, "kakao"},
	}
	for _, c := range candidates {
		if c.id == "" {
			continue
		}
		p := c.build(auth.ProviderConfig{
			ClientID:     c.id,
			ClientSecret: c.secret,
			RedirectURL:  cfg.CallbackURL(c.name),
		}, httpClient)
		if err := providers.Use(p); err != nil {
			return nil, fmt.Errorf("failed to register %s provider: %w", c.name, err)
		}
	}
	return providers, nil
}

// runServe はWebサーバーモードで起動する。
// セッションストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := newServer(cfg, store, reg, slog.Default())
	if err != nil {
		return err
	}
	defer srv.rateLimiter.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除を定期実行し、ctxがキャンセルされるまでブロックする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.close()

	job := cleanup.NewCleanupJob(store.repo, slog.Default())
	slog.Info("worker starting", slog.Duration("interval", job.Interval))

	job.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はセッションテーブルのマイグレーションを実行する。
// Redisストアのみを使う構成ではDATABASE_URLがないため実行できない。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migration requires DATABASE_URL")
	}
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
