package auth

import (
	"context"
	"log/slog"

	"github.com/hitoshi/boardman/internal/metrics"
	"github.com/hitoshi/boardman/internal/model"
)

// ProviderIdentity は外部プロバイダーで認証されたユーザーの情報。
// ProviderAccountIDだけが照合に使われる。メールでの照合は行わない。
type ProviderIdentity struct {
	Provider          model.LoginType
	ProviderAccountID string
	Name              string
	Email             string // プロバイダーによっては取得できない
	Image             string
	Profile           map[string]any
}

// OAuthAPI はOAuthブリッジが使うバックエンド操作。
type OAuthAPI interface {
	LoginWith(ctx context.Context, providerAccountID string) (*model.Envelope[model.User], error)
	CreateOAuthUser(ctx context.Context, identity model.OAuthIdentity) (*model.Envelope[model.User], error)
}

// OAuthBridge はプロバイダーの認証結果をバックエンドのユーザーに対応付ける。
// 未登録のアカウントは初回ログイン時に自動作成する。
type OAuthBridge struct {
	api     OAuthAPI
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewOAuthBridge はOAuthBridgeを生成する。
func NewOAuthBridge(api OAuthAPI, logger *slog.Logger, collector metrics.MetricsCollector) *OAuthBridge {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &OAuthBridge{api: api, logger: logger, metrics: collector}
}

// Resolve はプロバイダーアカウントIDでユーザーを検索し、存在しなければ作成する。
//
// 1. LoginWithで検索する。成功すればそのユーザーを返す。
// 2. 404（該当なし）の場合のみ、OAuthIdentityを組み立ててCreateOAuthUserを1回呼ぶ。
// 3. 作成結果にトークンがなければ、LoginWithを1回だけ呼んでトークンを得る。
//
// 404以外の拒否と通信失敗はそのまま返し、自動作成は行わない。
func (b *OAuthBridge) Resolve(ctx context.Context, identity ProviderIdentity) Result[*model.User] {
	if identity.ProviderAccountID == "" {
		return Rejected[*model.User](&model.ErrorEnvelope{
			Message: "provider account id is required",
		})
	}

	env, err := b.api.LoginWith(ctx, identity.ProviderAccountID)
	if err != nil {
		return TransportFailed[*model.User](err)
	}
	if env.IsSuccess() {
		user := env.Item
		return Succeeded(&user)
	}
	if !env.IsNotFound() {
		return Rejected[*model.User](env.Rejection())
	}

	return b.provision(ctx, identity)
}

// provision はOAuthユーザーを1回だけ作成する。リトライはしない。
func (b *OAuthBridge) provision(ctx context.Context, identity ProviderIdentity) Result[*model.User] {
	created, err := b.api.CreateOAuthUser(ctx, newOAuthIdentity(identity))
	if err != nil {
		return TransportFailed[*model.User](err)
	}
	if !created.IsSuccess() {
		b.logger.Warn("oauth user provisioning rejected",
			slog.String("provider", string(identity.Provider)),
			slog.Int("http_status", created.Status),
			slog.String("message", created.Message),
		)
		return Rejected[*model.User](created.Rejection())
	}

	b.metrics.RecordProvisioning(string(identity.Provider))
	b.logger.Info("oauth user provisioned",
		slog.String("user_id", created.Item.ID.String()),
		slog.String("provider", string(identity.Provider)),
	)

	user := created.Item
	if user.Token != nil && user.Token.AccessToken != "" {
		return Succeeded(&user)
	}

	// 作成APIがトークンを返さない場合はログインしてトークンを得る
	env, err := b.api.LoginWith(ctx, identity.ProviderAccountID)
	if err != nil {
		return TransportFailed[*model.User](err)
	}
	if !env.IsSuccess() {
		return Rejected[*model.User](env.Rejection())
	}
	loggedIn := env.Item
	return Succeeded(&loggedIn)
}

// newOAuthIdentity はバックエンドに送る自動登録用の情報を組み立てる。
// メールがない場合は空のまま送らない。
func newOAuthIdentity(identity ProviderIdentity) model.OAuthIdentity {
	extra := map[string]any{
		"providerAccountId": identity.ProviderAccountID,
	}
	if len(identity.Profile) > 0 {
		extra["profile"] = identity.Profile
	}
	return model.OAuthIdentity{
		Type:      model.UserTypeUser,
		LoginType: identity.Provider,
		Name:      identity.Name,
		Email:     identity.Email,
		Image:     identity.Image,
		Extra:     extra,
	}
}
