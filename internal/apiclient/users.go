package apiclient

import (
	"context"
	"net/http"

	"github.com/hitoshi/boardman/internal/model"
)

// 操作名。ログとメトリクスのラベルに使う。
const (
	OpCreateUser      = "create_user"
	OpLogin           = "login"
	OpCreateOAuthUser = "create_oauth_user"
	OpLoginWith       = "login_with"
	OpUploadFiles     = "upload_files"
	OpRefreshToken    = "refresh_token"
	OpListPosts       = "list_posts"
)

// CreateUser は会員登録を行う。
// POST /users
func (c *Client) CreateUser(ctx context.Context, form model.UserForm) (*model.Envelope[model.User], error) {
	req, err := jsonRequest(OpCreateUser, http.MethodPost, "/users", form)
	if err != nil {
		return nil, err
	}
	return send[model.User](ctx, c, req)
}

// Login はメール・パスワードで認証する。
// POST /users/login
func (c *Client) Login(ctx context.Context, form model.LoginForm) (*model.Envelope[model.User], error) {
	req, err := jsonRequest(OpLogin, http.MethodPost, "/users/login", form)
	if err != nil {
		return nil, err
	}
	return send[model.User](ctx, c, req)
}

// CreateOAuthUser は外部プロバイダーと紐づいたユーザーを作成する。
// POST /users/signup/oauth
func (c *Client) CreateOAuthUser(ctx context.Context, identity model.OAuthIdentity) (*model.Envelope[model.User], error) {
	req, err := jsonRequest(OpCreateOAuthUser, http.MethodPost, "/users/signup/oauth", identity)
	if err != nil {
		return nil, err
	}
	return send[model.User](ctx, c, req)
}

// loginWithRequest はプロバイダーアカウントIDによるログインのボディ。
type loginWithRequest struct {
	ProviderAccountID string `json:"providerAccountId"`
}

// LoginWith はプロバイダーアカウントIDで認証する。
// 該当ユーザーがいない場合、バックエンドは404のエラーエンベロープを返す。
// POST /users/login/with
func (c *Client) LoginWith(ctx context.Context, providerAccountID string) (*model.Envelope[model.User], error) {
	req, err := jsonRequest(OpLoginWith, http.MethodPost, "/users/login/with", loginWithRequest{
		ProviderAccountID: providerAccountID,
	})
	if err != nil {
		return nil, err
	}
	return send[model.User](ctx, c, req)
}
