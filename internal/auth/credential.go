package auth

import (
	"context"

	"github.com/hitoshi/boardman/internal/model"
)

// CredentialAPI はメール・パスワード認証に使うバックエンド操作。
type CredentialAPI interface {
	Login(ctx context.Context, form model.LoginForm) (*model.Envelope[model.User], error)
}

// CredentialVerifier はメール・パスワードをバックエンドで検証する。
// パスワードの形式はローカルで検証せず、判断はすべてバックエンドに委ねる。
type CredentialVerifier struct {
	api CredentialAPI
}

// NewCredentialVerifier はCredentialVerifierを生成する。
func NewCredentialVerifier(api CredentialAPI) *CredentialVerifier {
	return &CredentialVerifier{api: api}
}

// Verify は資格情報をバックエンドのログインAPIに1回だけ転送する。
func (v *CredentialVerifier) Verify(ctx context.Context, form model.LoginForm) Result[*model.User] {
	env, err := v.api.Login(ctx, form)
	if err != nil {
		return TransportFailed[*model.User](err)
	}
	if !env.IsSuccess() {
		return Rejected[*model.User](env.Rejection())
	}
	user := env.Item
	return Succeeded(&user)
}
