package handler

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/boardman/internal/auth"
	"github.com/hitoshi/boardman/internal/board"
	"github.com/hitoshi/boardman/internal/middleware"
	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/security"
	"github.com/hitoshi/boardman/internal/view"
	"golang.org/x/net/html"
)

// --- モック実装 ---

type mockAuthenticator struct {
	authorizeFn      func(ctx context.Context, form model.LoginForm) auth.SignIn
	signInProviderFn func(providerName, redirect string) (*auth.ProviderRedirect, error)
	completeFn       func(ctx context.Context, providerName, code, state, sealed string) auth.SignIn
	signOutFn        func(ctx context.Context, token string) string
	updateFn         func(ctx context.Context, token string, patch model.SessionUserPatch) (*model.SessionUser, error)
	providers        []string
}

func (m *mockAuthenticator) Authorize(ctx context.Context, form model.LoginForm) auth.SignIn {
	return m.authorizeFn(ctx, form)
}

func (m *mockAuthenticator) SignInWithProvider(providerName, redirect string) (*auth.ProviderRedirect, error) {
	return m.signInProviderFn(providerName, redirect)
}

func (m *mockAuthenticator) CompleteProviderSignIn(ctx context.Context, providerName, code, state, sealed string) auth.SignIn {
	return m.completeFn(ctx, providerName, code, state, sealed)
}

func (m *mockAuthenticator) SignOut(ctx context.Context, token string) string {
	if m.signOutFn == nil {
		return "/"
	}
	return m.signOutFn(ctx, token)
}

func (m *mockAuthenticator) UpdateSessionUser(ctx context.Context, token string, patch model.SessionUserPatch) (*model.SessionUser, error) {
	return m.updateFn(ctx, token, patch)
}

func (m *mockAuthenticator) LandingPath() string          { return "/" }
func (m *mockAuthenticator) SessionMaxAge() time.Duration { return time.Hour }
func (m *mockAuthenticator) Providers() []string          { return m.providers }

type mockRegistrar struct {
	registerFn func(ctx context.Context, form auth.SignupForm) auth.Result[*model.User]
}

func (m *mockRegistrar) Register(ctx context.Context, form auth.SignupForm) auth.Result[*model.User] {
	return m.registerFn(ctx, form)
}

type mockCredentials struct {
	loginFn func(ctx context.Context, form model.LoginForm) (*model.Envelope[model.User], error)
}

func (m *mockCredentials) Login(ctx context.Context, form model.LoginForm) (*model.Envelope[model.User], error) {
	return m.loginFn(ctx, form)
}

type mockBoards struct {
	listFn func(ctx context.Context, boardType string, page int, extra url.Values) (*board.Page, error)
	feedFn func(ctx context.Context, boardType, baseURL string) ([]byte, error)
}

func (m *mockBoards) List(ctx context.Context, boardType string, page int, extra url.Values) (*board.Page, error) {
	return m.listFn(ctx, boardType, page, extra)
}

func (m *mockBoards) Feed(ctx context.Context, boardType, baseURL string) ([]byte, error) {
	return m.feedFn(ctx, boardType, baseURL)
}

// コンパイル時インターフェースチェック
var (
	_ Authenticator  = (*mockAuthenticator)(nil)
	_ Registrar      = (*mockRegistrar)(nil)
	_ CredentialAPI  = (*mockCredentials)(nil)
	_ BoardLister    = (*mockBoards)(nil)
	_ Renderer       = (*view.Renderer)(nil)
	_ ImageValidator = security.SSRFGuardService(nil)

	_ Authenticator = (*auth.Orchestrator)(nil)
	_ Registrar     = (*auth.Signup)(nil)
	_ BoardLister   = (*board.Service)(nil)
)

// --- ヘルパー ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestRenderer(t *testing.T) *view.Renderer {
	t.Helper()
	r, err := view.NewRenderer(discardLogger())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func newTestAuthHandler(t *testing.T, a *mockAuthenticator, reg *mockRegistrar, cred *mockCredentials) *AuthHandler {
	t.Helper()
	if a == nil {
		a = &mockAuthenticator{}
	}
	if reg == nil {
		reg = &mockRegistrar{}
	}
	if cred == nil {
		cred = &mockCredentials{}
	}
	return NewAuthHandler(a, reg, cred, newTestRenderer(t), security.NewSSRFGuard(),
		security.NewContentSanitizer(), testCookies, discardLogger())
}

var testCookies = middleware.CookieConfig{}

func parseHTML(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return hasClass(n, class) }
}

func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool { return attr(n, "id") == id }
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func sessionUser() *model.User {
	return &model.User{
		ID:    "7",
		Name:  "홍길동",
		Type:  model.UserTypeUser,
		Token: &model.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
	}
}

func authenticated(token string) auth.SignIn {
	u, _ := model.ProjectUser(sessionUser())
	return auth.SignIn{
		State:   auth.StateAuthenticated,
		Session: &model.Session{ID: "sess-1", User: u},
		Token:   token,
	}
}
