package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/boardman/internal/metrics"
	"github.com/hitoshi/boardman/internal/middleware"
	"golang.org/x/text/language"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver    middleware.SessionResolver
	Cookies            middleware.CookieConfig
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	DefaultLanguage    language.Tag
	Metrics            metrics.MetricsCollector
	Logger             *slog.Logger

	// 認証
	Auth *AuthHandler

	// 掲示板
	Boards *BoardHandler

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → SecurityHeaders → CORS → Session → Logging → Language → RateLimit(General) → RequestSize → CSRF
//
// ログイン・会員登録・OAuth開始には認証用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewSessionMiddleware(deps.SessionResolver, deps.Cookies))
	r.Use(middleware.NewLoggingMiddleware(logger, collector))
	r.Use(middleware.NewLanguageMiddleware(deps.DefaultLanguage))
	r.Use(deps.RateLimiter.GeneralMiddleware())

	r.NotFound(deps.Boards.NotFound)

	// --- 運用エンドポイント（CSRF対象外） ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker, logger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		// CSRF検証がフォームを読む前にボディサイズを制限する
		r.Use(chimw.RequestSize(maxSignupSize))
		r.Use(middleware.NewCSRFMiddleware(deps.Cookies))

		authLimit := deps.RateLimiter.AuthMiddleware()
		a := deps.Auth

		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler().ServeHTTP)
		r.With(authLimit).Post("/api/users/login", a.APILogin)

		r.Get("/login", a.LoginPage)
		r.With(authLimit).Post("/login", a.Login)
		r.Get("/signup", a.SignupPage)
		r.With(authLimit).Post("/signup", a.Signup)

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimit).Get("/{provider}/login", a.ProviderLogin)
			r.Get("/{provider}/callback", a.ProviderCallback)
			r.Post("/signout", a.SignOut)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession)
				r.Get("/session", a.Session)
				r.Patch("/session", a.UpdateSession)
			})
		})

		b := deps.Boards
		r.Get("/", b.Home)
		r.Get("/{type}", b.List)
		r.Get("/{type}/feed.xml", b.Feed)
	})

	return r
}
