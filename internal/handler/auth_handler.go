package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/boardman/internal/apiclient"
	"github.com/hitoshi/boardman/internal/auth"
	"github.com/hitoshi/boardman/internal/i18n"
	"github.com/hitoshi/boardman/internal/middleware"
	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/security"
	"github.com/hitoshi/boardman/internal/view"
)

const (
	oauthStateCookie = "boardman_oauth_state"
	// maxSignupSize はプロフィール画像を含む会員登録フォームの上限（10MB）。
	maxSignupSize = 10 << 20
	// maxJSONBodySize はJSONボディの上限。
	maxJSONBodySize = 64 << 10
)

var providerLabels = map[string]string{
	string(model.LoginTypeGoogle): "Google",
	string(model.LoginTypeGithub): "GitHub",
	string(model.LoginTypeKakao):  "Kakao",
}

// Authenticator は認証ハンドラーが必要とするセッション操作。
// auth.Orchestratorが実装する。
type Authenticator interface {
	Authorize(ctx context.Context, form model.LoginForm) auth.SignIn
	SignInWithProvider(providerName, postLoginRedirect string) (*auth.ProviderRedirect, error)
	CompleteProviderSignIn(ctx context.Context, providerName, code, state, sealedState string) auth.SignIn
	SignOut(ctx context.Context, token string) string
	UpdateSessionUser(ctx context.Context, token string, patch model.SessionUserPatch) (*model.SessionUser, error)
	LandingPath() string
	SessionMaxAge() time.Duration
	Providers() []string
}

// Registrar は会員登録を行う。auth.Signupが実装する。
type Registrar interface {
	Register(ctx context.Context, form auth.SignupForm) auth.Result[*model.User]
}

// CredentialAPI はバックエンドのログインAPIをそのまま呼び出す。
type CredentialAPI interface {
	Login(ctx context.Context, form model.LoginForm) (*model.Envelope[model.User], error)
}

// AuthHandler はログイン・会員登録・サインアウトとセッションAPIのHTTPハンドラー。
type AuthHandler struct {
	*pages
	auth        Authenticator
	registrar   Registrar
	credentials CredentialAPI
	sanitizer   security.ContentSanitizerService
	cookies     middleware.CookieConfig
	logger      *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	authenticator Authenticator,
	registrar Registrar,
	credentials CredentialAPI,
	renderer Renderer,
	images ImageValidator,
	sanitizer security.ContentSanitizerService,
	cookies middleware.CookieConfig,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		pages:       &pages{renderer: renderer, images: images},
		auth:        authenticator,
		registrar:   registrar,
		credentials: credentials,
		sanitizer:   sanitizer,
		cookies:     cookies,
		logger:      logger,
	}
}

// LoginPage はログインフォームを表示する。
// GET /login?redirect=/info&error=oauth
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.SessionFromContext(r.Context()); ok {
		http.Redirect(w, r, h.auth.LandingPath(), http.StatusFound)
		return
	}
	q := r.URL.Query()
	h.renderLogin(w, r, http.StatusOK, view.LoginContent{
		Redirect:    localRedirect(q.Get("redirect")),
		OAuthFailed: q.Get("error") == "oauth",
	})
}

// Login はメール・パスワードでログインする。
// 失敗時はフィールドごとのメッセージを付けてフォームを422で再表示する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "error.generic")
		return
	}
	form := model.LoginForm{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}
	redirect := localRedirect(r.PostForm.Get("redirect"))

	signIn := h.auth.Authorize(r.Context(), form)
	if !signIn.Authenticated() {
		h.renderLogin(w, r, http.StatusUnprocessableEntity, view.LoginContent{
			Email:     form.Email,
			Redirect:  redirect,
			Rejection: signIn.Rejection,
		})
		return
	}

	h.setSession(w, signIn.Token)
	if redirect == "" {
		redirect = h.auth.LandingPath()
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, content view.LoginContent) {
	for _, name := range h.auth.Providers() {
		link := "/auth/" + name + "/login"
		if content.Redirect != "" {
			link += "?" + url.Values{"redirect": {content.Redirect}}.Encode()
		}
		label := providerLabels[name]
		if label == "" {
			label = name
		}
		content.Providers = append(content.Providers, view.ProviderLink{Name: name, Label: label, URL: link})
	}
	h.render(w, r, status, view.PageLogin, h.pageTitle(r, "login.title"), content)
}

// APILogin はバックエンドのログイン結果をエンベロープのまま返す。
// POST /api/users/login
func (h *AuthHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	var form model.LoginForm
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodySize)).Decode(&form); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("invalid JSON body"))
		return
	}

	env, err := h.credentials.Login(r.Context(), form)
	if err != nil {
		h.logger.Error("login request failed", slog.String("error", err.Error()))
		rejection := model.NewGenericRejection()
		rejection.Status = http.StatusBadGateway
		middleware.WriteRejection(w, rejection)
		return
	}

	status := env.Status
	if status == 0 {
		status = http.StatusOK
	}
	middleware.WriteJSON(w, status, env)
}

// SignupPage は会員登録フォームを表示する。
// GET /signup
func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageSignup, h.pageTitle(r, "signup.title"), view.SignupContent{
		Type: model.UserTypeUser,
	})
}

// Signup は会員登録を行う。画像が添付されていれば先にアップロードする。
// 成功時はログインページへ遷移する。
// POST /signup (multipart/form-data)
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSignupSize)
	if err := r.ParseMultipartForm(maxSignupSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Warn("failed to parse signup form", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusBadRequest, "error.generic")
		return
	}

	form := auth.SignupForm{
		Type:     signupType(r.FormValue("type")),
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}

	if file, header, err := r.FormFile("attach"); err == nil {
		defer file.Close()
		if header.Size > 0 {
			form.Attachment = &apiclient.FileUpload{Filename: header.Filename, Content: file}
		}
	}

	res := h.registrar.Register(r.Context(), form)
	if !res.OK() {
		h.render(w, r, http.StatusUnprocessableEntity, view.PageSignup, h.pageTitle(r, "signup.title"), view.SignupContent{
			Type:      form.Type,
			Name:      form.Name,
			Email:     form.Email,
			Rejection: res.Failure(),
		})
		return
	}

	h.logger.Info("user signed up", slog.String("user_id", res.Value.ID.String()))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ProviderLogin はプロバイダーの認可画面へリダイレクトする。
// GET /auth/{provider}/login?redirect=/info
func (h *AuthHandler) ProviderLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	redirect, err := h.auth.SignInWithProvider(provider, r.URL.Query().Get("redirect"))
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			middleware.WriteErrorResponse(w, http.StatusNotFound, apiErr)
			return
		}
		h.logger.Error("failed to start provider sign in",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	middleware.SetCookie(w, h.cookies, oauthStateCookie, redirect.SealedState, redirect.MaxAge)
	http.Redirect(w, r, redirect.URL, http.StatusFound)
}

// ProviderCallback はプロバイダーからのコールバックを処理する。
// 失敗時は詳細を出さずにログインページへ戻す。
// GET /auth/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	sealed := ""
	if c, err := r.Cookie(oauthStateCookie); err == nil {
		sealed = c.Value
	}
	middleware.ClearCookie(w, h.cookies, oauthStateCookie)

	if errParam := q.Get("error"); errParam != "" || q.Get("code") == "" {
		h.logger.Info("provider sign in cancelled",
			slog.String("provider", provider),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/login?error=oauth", http.StatusFound)
		return
	}

	signIn := h.auth.CompleteProviderSignIn(r.Context(), provider, q.Get("code"), q.Get("state"), sealed)
	if !signIn.Authenticated() {
		http.Redirect(w, r, "/login?error=oauth", http.StatusFound)
		return
	}

	h.setSession(w, signIn.Token)
	target := signIn.Redirect
	if !auth.IsLocalPath(target) {
		target = h.auth.LandingPath()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// SignOut はセッションを破棄してランディングへ遷移する。
// POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	landing := h.auth.LandingPath()
	if c, err := r.Cookie(middleware.SessionCookieName); err == nil && c.Value != "" {
		landing = h.auth.SignOut(r.Context(), c.Value)
	}
	middleware.ClearCookie(w, h.cookies, middleware.SessionCookieName)
	http.Redirect(w, r, landing, http.StatusSeeOther)
}

// sessionResponse はセッションAPIのレスポンス。リフレッシュトークンは含めない。
type sessionResponse struct {
	ID          model.ID `json:"id"`
	Name        string   `json:"name"`
	Image       string   `json:"image,omitempty"`
	AccessToken string   `json:"accessToken"`
}

func newSessionResponse(u model.SessionUser) sessionResponse {
	return sessionResponse{ID: u.ID, Name: u.Name, Image: u.Image, AccessToken: u.AccessToken}
}

// Session は現在のセッションのユーザー情報を返す。
// GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newSessionResponse(s.User))
}

// UpdateSession はセッションのユーザー名・画像を更新する。
// PATCH /auth/session  {"name": "...", "image": "..."}
func (h *AuthHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || c.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var patch model.SessionUserPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodySize)).Decode(&patch); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("invalid JSON body"))
		return
	}
	if patch.Name != nil {
		name := h.sanitizer.StripTags(*patch.Name)
		if name == "" {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("name must not be empty"))
			return
		}
		patch.Name = &name
	}
	if patch.Image != nil && *patch.Image != "" {
		if err := h.images.ValidateImageURL(*patch.Image); err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("image must be a local path or https URL"))
			return
		}
	}

	updated, err := h.auth.UpdateSessionUser(r.Context(), c.Value, patch)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
			return
		}
		h.logger.Error("failed to update session user", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newSessionResponse(*updated))
}

func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	middleware.SetCookie(w, h.cookies, middleware.SessionCookieName, token, h.auth.SessionMaxAge())
}

func (h *AuthHandler) pageTitle(r *http.Request, key string) string {
	return i18n.FromContext(r.Context()).T(key)
}

// localRedirect はローカルパスのみを遷移先として受け付ける。
func localRedirect(p string) string {
	if auth.IsLocalPath(p) {
		return p
	}
	return ""
}

// signupType はフォームの会員種別を解釈する。未指定や不正な値は一般会員とする。
func signupType(v string) model.UserType {
	switch model.UserType(v) {
	case model.UserTypeSeller:
		return model.UserTypeSeller
	default:
		return model.UserTypeUser
	}
}
