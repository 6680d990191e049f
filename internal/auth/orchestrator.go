// Package auth は認証とセッション管理を提供する。
// メール・パスワード認証とOAuthプロバイダー認証を1つのセッションモデルにまとめる。
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/boardman/internal/metrics"
	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
	"golang.org/x/oauth2"
)

// State はセッションの認証状態。
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthorizing   State = "authorizing"
	StateAuthenticated State = "authenticated"
	// StateUnavailable はストアまたはバックエンドに一時的に到達できず、
	// セッションを確認できなかったことを表す。セッションは破棄されない。
	StateUnavailable State = "unavailable"
)

// サインイン方式。ログとメトリクスのラベルに使う。
const methodCredentials = "credentials"

const (
	defaultSessionMaxAge = 30 * 24 * time.Hour
	defaultStateTTL      = 10 * time.Minute
	defaultLandingPath   = "/"
	// accessTokenLeeway は期限直前のアクセストークンを期限切れとみなす幅。
	accessTokenLeeway = 30 * time.Second
)

// TokenRefresher はリフレッシュトークンでアクセストークンを再発行する。
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*model.RefreshResponse, error)
}

// SignIn はサインイン操作の結果。
// 成功時はSessionとToken（Cookieに入れる署名済みトークン）を、
// 失敗時はRejection（UIに描画するエンベロープ）を持つ。
type SignIn struct {
	State     State
	Session   *model.Session
	Token     string
	Rejection *model.ErrorEnvelope
	// Redirect はプロバイダーログインで指定されたログイン後の遷移先。
	Redirect string
}

// Authenticated はサインインが成功した場合にtrueを返す。
func (s SignIn) Authenticated() bool {
	return s.State == StateAuthenticated
}

// ProviderRedirect はプロバイダーの認可画面へ遷移するための情報。
type ProviderRedirect struct {
	URL string
	// SealedState はCookieに保存するstateとPKCE verifierの封入トークン。
	SealedState string
	MaxAge      time.Duration
}

// OrchestratorConfig はセッションオーケストレーターの設定。
type OrchestratorConfig struct {
	SessionMaxAge time.Duration
	StateTTL      time.Duration
	LandingPath   string
}

// Orchestrator は認証方式をまとめ、結果をセッションに反映する。
type Orchestrator struct {
	verifier  *CredentialVerifier
	bridge    *OAuthBridge
	providers *Providers
	sessions  repository.SessionRepository
	tokens    *TokenSigner
	refresher TokenRefresher
	config    OrchestratorConfig
	logger    *slog.Logger
	metrics   metrics.MetricsCollector
	now       func() time.Time
	newID     func() string
}

// NewOrchestrator はOrchestratorを生成する。
func NewOrchestrator(
	verifier *CredentialVerifier,
	bridge *OAuthBridge,
	providers *Providers,
	sessions repository.SessionRepository,
	tokens *TokenSigner,
	refresher TokenRefresher,
	config OrchestratorConfig,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Orchestrator {
	if config.SessionMaxAge <= 0 {
		config.SessionMaxAge = defaultSessionMaxAge
	}
	if config.StateTTL <= 0 {
		config.StateTTL = defaultStateTTL
	}
	if !IsLocalPath(config.LandingPath) {
		config.LandingPath = defaultLandingPath
	}
	if providers == nil {
		providers = NewProviders()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Orchestrator{
		verifier:  verifier,
		bridge:    bridge,
		providers: providers,
		sessions:  sessions,
		tokens:    tokens,
		refresher: refresher,
		config:    config,
		logger:    logger,
		metrics:   collector,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// LandingPath はサインアウト後などに遷移する固定のパスを返す。
func (o *Orchestrator) LandingPath() string {
	return o.config.LandingPath
}

// SessionMaxAge はセッションの有効期間を返す。
func (o *Orchestrator) SessionMaxAge() time.Duration {
	return o.config.SessionMaxAge
}

// Providers は登録済みのプロバイダー名を返す。
func (o *Orchestrator) Providers() []string {
	return o.providers.Names()
}

// Authorize はメール・パスワードで認証し、成功すればセッションを作成する。
// 失敗時もエラーは返さず、描画用のエンベロープをSignInに入れて返す。
func (o *Orchestrator) Authorize(ctx context.Context, form model.LoginForm) SignIn {
	o.logger.Debug("authorizing", slog.String("method", methodCredentials))
	return o.complete(ctx, methodCredentials, o.verifier.Verify(ctx, form))
}

// AuthorizeOAuth はプロバイダーの認証結果からユーザーを解決し、セッションを作成する。
func (o *Orchestrator) AuthorizeOAuth(ctx context.Context, identity ProviderIdentity) SignIn {
	method := string(identity.Provider)
	o.logger.Debug("authorizing", slog.String("method", method))
	return o.complete(ctx, method, o.bridge.Resolve(ctx, identity))
}

// complete は認証結果を状態遷移に変換する。
// 通信失敗はここでログに残し、汎用の拒否エンベロープに置き換える。
func (o *Orchestrator) complete(ctx context.Context, method string, res Result[*model.User]) SignIn {
	o.metrics.RecordSignIn(method, res.Outcome.String())

	switch res.Outcome {
	case OutcomeTransportFailed:
		o.logger.Error("sign in failed",
			slog.String("method", method),
			slog.String("error", res.Err.Error()),
		)
		return SignIn{State: StateAnonymous, Rejection: res.Failure()}
	case OutcomeRejected:
		o.logger.Info("sign in rejected",
			slog.String("method", method),
			slog.String("message", res.Rejection.Message),
		)
		return SignIn{State: StateAnonymous, Rejection: res.Failure()}
	}

	projection, ok := model.ProjectUser(res.Value)
	if !ok {
		o.logger.Error("authenticated user has no token",
			slog.String("method", method),
			slog.String("user_id", res.Value.ID.String()),
		)
		return SignIn{State: StateAnonymous, Rejection: model.NewGenericRejection()}
	}

	session, token, err := o.createSession(ctx, projection)
	if err != nil {
		o.logger.Error("failed to create session",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return SignIn{State: StateAnonymous, Rejection: model.NewGenericRejection()}
	}

	o.logger.Info("user signed in",
		slog.String("method", method),
		slog.String("user_id", projection.ID.String()),
	)
	return SignIn{State: StateAuthenticated, Session: session, Token: token}
}

// createSession はセッションを作成し永続化する。
func (o *Orchestrator) createSession(ctx context.Context, user model.SessionUser) (*model.Session, string, error) {
	now := o.now()
	session := &model.Session{
		ID:        o.newID(),
		User:      user,
		ExpiresAt: now.Add(o.config.SessionMaxAge),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.sessions.Create(ctx, session); err != nil {
		return nil, "", err
	}
	token, err := o.tokens.SignSession(session.ID, session.ExpiresAt)
	if err != nil {
		return nil, "", err
	}
	return session, token, nil
}

// SignInWithProvider はプロバイダーの認可URLとCookieに保存するstateを生成する。
// postLoginRedirectはローカルパスのみ受け付け、それ以外はランディングに置き換える。
func (o *Orchestrator) SignInWithProvider(providerName, postLoginRedirect string) (*ProviderRedirect, error) {
	provider, err := o.providers.Get(providerName)
	if err != nil {
		return nil, model.NewProviderNotFoundError(providerName)
	}

	if !IsLocalPath(postLoginRedirect) {
		postLoginRedirect = o.config.LandingPath
	}

	st := OAuthState{
		Provider: providerName,
		State:    randomState(),
		Verifier: oauth2.GenerateVerifier(),
		Redirect: postLoginRedirect,
	}
	sealed, err := o.tokens.SealState(st, o.config.StateTTL)
	if err != nil {
		return nil, err
	}

	return &ProviderRedirect{
		URL:         provider.AuthCodeURL(st.State, st.Verifier),
		SealedState: sealed,
		MaxAge:      o.config.StateTTL,
	}, nil
}

// CompleteProviderSignIn はプロバイダーからのコールバックを処理する。
// stateを検証し、コードを交換してからAuthorizeOAuthに進む。
func (o *Orchestrator) CompleteProviderSignIn(ctx context.Context, providerName, code, state, sealedState string) SignIn {
	st, err := o.tokens.OpenState(sealedState)
	if err != nil || st.Provider != providerName ||
		subtle.ConstantTimeCompare([]byte(st.State), []byte(state)) != 1 {
		o.logger.Warn("oauth state mismatch", slog.String("provider", providerName))
		o.metrics.RecordSignIn(providerName, OutcomeRejected.String())
		return SignIn{State: StateAnonymous, Rejection: model.NewGenericRejection()}
	}

	provider, err := o.providers.Get(providerName)
	if err != nil {
		return SignIn{State: StateAnonymous, Rejection: model.NewGenericRejection()}
	}

	identity, err := provider.Exchange(ctx, code, st.Verifier)
	if err != nil {
		o.logger.Error("oauth exchange failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		o.metrics.RecordSignIn(providerName, OutcomeTransportFailed.String())
		return SignIn{State: StateAnonymous, Rejection: model.NewGenericRejection()}
	}

	signIn := o.AuthorizeOAuth(ctx, identity)
	if signIn.Authenticated() {
		signIn.Redirect = st.Redirect
	}
	return signIn
}

// SignOut はセッションを破棄し、ランディングのパスを返す。
// セッションがない場合や削除に失敗した場合もランディングへ遷移させる。
func (o *Orchestrator) SignOut(ctx context.Context, token string) string {
	sessionID, err := o.tokens.ParseSession(token)
	if err != nil {
		return o.config.LandingPath
	}
	if err := o.sessions.DeleteByID(ctx, sessionID); err != nil {
		o.logger.Error("failed to delete session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return o.config.LandingPath
	}
	o.logger.Info("user signed out", slog.String("session_id", sessionID))
	return o.config.LandingPath
}

// UpdateSessionUser はセッションのユーザー射影に名前・画像を反映する。
// IDとトークンは変更しない。同じ内容の更新は書き込みを行わない。
func (o *Orchestrator) UpdateSessionUser(ctx context.Context, token string, patch model.SessionUserPatch) (*model.SessionUser, error) {
	sessionID, err := o.tokens.ParseSession(token)
	if err != nil {
		return nil, model.NewSessionNotFoundError()
	}
	session, err := o.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewSessionNotFoundError()
	}

	updated := patch.Apply(session.User)
	if updated == session.User {
		return &updated, nil
	}

	if err := o.sessions.UpdateUser(ctx, sessionID, updated); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, model.NewSessionNotFoundError()
		}
		return nil, err
	}
	return &updated, nil
}

// Resolve はトークンから有効なセッションを取得する。
// アクセストークンが期限切れであればリフレッシュし、
// バックエンドがリフレッシュを拒否した場合はセッションを破棄する。
// ストアやバックエンドへの通信失敗はStateUnavailableとして返し、セッションは残す。
func (o *Orchestrator) Resolve(ctx context.Context, token string) (*model.Session, State) {
	if token == "" {
		return nil, StateAnonymous
	}
	sessionID, err := o.tokens.ParseSession(token)
	if err != nil {
		return nil, StateAnonymous
	}
	session, err := o.sessions.FindByID(ctx, sessionID)
	if err != nil {
		o.logger.Error("failed to find session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, StateUnavailable
	}
	if session == nil {
		return nil, StateAnonymous
	}

	if !AccessTokenExpired(session.User.AccessToken, o.now(), accessTokenLeeway) {
		return session, StateAuthenticated
	}
	state := o.refresh(ctx, session)
	if state != StateAuthenticated {
		return nil, state
	}
	return session, StateAuthenticated
}

// refresh はアクセストークンを再発行してセッションに保存する。
// 拒否された場合はセッションを破棄してStateAnonymousを返す。
// 通信失敗のときはセッションを残してStateUnavailableを返す。
func (o *Orchestrator) refresh(ctx context.Context, session *model.Session) State {
	if session.User.RefreshToken == "" || o.refresher == nil {
		o.destroy(ctx, session.ID, "no refresh token")
		o.metrics.RecordSessionRefresh(OutcomeRejected.String())
		return StateAnonymous
	}

	res, err := o.refresher.RefreshAccessToken(ctx, session.User.RefreshToken)
	if err != nil {
		o.logger.Error("failed to refresh access token",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		o.metrics.RecordSessionRefresh(OutcomeTransportFailed.String())
		return StateUnavailable
	}
	if res.Ok != 1 {
		o.destroy(ctx, session.ID, "refresh rejected")
		o.metrics.RecordSessionRefresh(OutcomeRejected.String())
		return StateAnonymous
	}

	session.User.AccessToken = res.AccessToken
	if err := o.sessions.UpdateUser(ctx, session.ID, session.User); err != nil {
		o.logger.Error("failed to store refreshed token",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return StateAnonymous
		}
		return StateUnavailable
	}
	session.UpdatedAt = o.now()
	o.metrics.RecordSessionRefresh(OutcomeSuccess.String())
	return StateAuthenticated
}

func (o *Orchestrator) destroy(ctx context.Context, sessionID, reason string) {
	if err := o.sessions.DeleteByID(ctx, sessionID); err != nil {
		o.logger.Error("failed to delete session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}
	o.logger.Info("session destroyed",
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	)
}

// IsLocalPath はパスが同一オリジン内の絶対パスである場合にtrueを返す。
// "//host" や "/\host" のようなスキーム相対URLは拒否する。
func IsLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	return !strings.ContainsAny(p, "\r\n")
}
