package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/boardman/internal/config"
	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
)

// memSessionRepo はテスト用のインメモリSessionRepository。
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*model.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) UpdateUser(_ context.Context, id string, u model.SessionUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.User = u
	return nil
}

func (r *memSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

var _ repository.SessionRepository = (*memSessionRepo)(nil)

// newBackend は投稿一覧とログインに応答するバックエンドのスタブ。
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("client-id") != "board-client" {
			t.Errorf("client-id header missing")
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/users/login":
			w.Write([]byte(`{"ok":1,"item":{"_id":3,"name":"네오","type":"user","token":{"accessToken":"a","refreshToken":"r"}}}`))
		default:
			w.Write([]byte(`{"ok":1,"item":[{"_id":1,"type":"info","title":"안녕하세요","user":{"_id":3,"name":"네오"},"views":2,"repliesCount":0,"createdAt":"2024.05.01 10:20:30"}],"pagination":{"page":1,"limit":10,"total":1,"totalPages":1}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(apiServer string) *config.Config {
	return &config.Config{
		APIServer:        apiServer,
		APIClientID:      "board-client",
		APITimeout:       5 * time.Second,
		SessionSecret:    "test-session-secret-32bytes-long!",
		SessionMaxAge:    time.Hour,
		SessionStore:     config.SessionStorePostgres,
		GithubClientID:   "gh-id",
		LandingPath:      "/",
		DefaultBoard:     "info",
		PostsPerPage:     10,
		RateLimitGeneral: 120,
		RateLimitAuth:    10,
		BaseURL:          "http://localhost:8080",
		DefaultLang:      "ko",
	}
}

func newTestServer(t *testing.T, pingErr error) (*server, *prometheus.Registry) {
	t.Helper()
	store := &sessionStore{
		repo:  newMemSessionRepo(),
		ping:  func(context.Context) error { return pingErr },
		close: func() error { return nil },
	}
	reg := prometheus.NewRegistry()
	srv, err := newServer(testConfig(newBackend(t).URL), store, reg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	t.Cleanup(srv.rateLimiter.Stop)
	return srv, reg
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewServer_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if rec := get(t, srv.handler, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("/health = %d, want 200", rec.Code)
	}

	rec := get(t, srv.handler, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "boardman_http_status_total") {
		t.Error("metrics should include http status counter")
	}
}

func TestNewServer_BoardPage(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := get(t, srv.handler, "/info")
	if rec.Code != http.StatusOK {
		t.Fatalf("/info = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "안녕하세요") {
		t.Error("board page should list backend posts")
	}
}

func TestNewServer_LoginPageListsConfiguredProviders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body := get(t, srv.handler, "/login").Body.String()
	if !strings.Contains(body, "/auth/github/login") {
		t.Error("github provider should be listed")
	}
	if strings.Contains(body, "/auth/google/login") {
		t.Error("unconfigured google provider should not be listed")
	}
}

func TestNewServer_UnknownProvider(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if rec := get(t, srv.handler, "/auth/google/login"); rec.Code != http.StatusNotFound {
		t.Errorf("unconfigured provider = %d, want 404", rec.Code)
	}
}

func TestNewProviders_RegistersConfiguredOnly(t *testing.T) {
	cfg := testConfig("http://api")
	cfg.KakaoClientID = "kakao-id"

	providers, err := newProviders(cfg, http.DefaultClient)
	if err != nil {
		t.Fatalf("newProviders: %v", err)
	}
	names := providers.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 providers, got %v", names)
	}
	for _, name := range names {
		if name != "github" && name != "kakao" {
			t.Errorf("unexpected provider %q", name)
		}
	}
}
