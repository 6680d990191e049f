// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// UserType はアカウント種別を表す。
type UserType string

const (
	UserTypeUser   UserType = "user"
	UserTypeSeller UserType = "seller"
	UserTypeAdmin  UserType = "admin"
)

// LoginType はアカウントのログイン経路を表す。
type LoginType string

const (
	LoginTypeEmail  LoginType = "email"
	LoginTypeKakao  LoginType = "kakao"
	LoginTypeGoogle LoginType = "google"
	LoginTypeGithub LoginType = "github"
)

// ID はバックエンドが発行するドキュメントID。
// バックエンドは数値で返すことがあるため、文字列・数値のどちらもデコードできる。
type ID string

// UnmarshalJSON は文字列または数値のIDを受け付ける。
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// String はIDの文字列表現を返す。
func (id ID) String() string {
	return string(id)
}

// TokenPair は認証成功時にバックエンドが発行するトークンの組。
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// User はバックエンドが管理するユーザーレコード。
// typeは常に存在し、メール以外でログインしたユーザーはloginTypeも持つ。
// tokenは認証に成功したレスポンスにのみ含まれる。
type User struct {
	ID        ID             `json:"_id"`
	Name      string         `json:"name,omitempty"`
	Email     string         `json:"email,omitempty"`
	Phone     string         `json:"phone,omitempty"`
	Address   string         `json:"address,omitempty"`
	Type      UserType       `json:"type"`
	LoginType LoginType      `json:"loginType,omitempty"`
	Image     string         `json:"image,omitempty"`
	Token     *TokenPair     `json:"token,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// UserForm は会員登録時にバックエンドへ送るボディ。
// imageは添付がない場合も空文字列で送る。
type UserForm struct {
	Type     UserType `json:"type"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Image    string   `json:"image"`
}

// LoginForm はメール・パスワードによるログインのボディ。
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OAuthIdentity は外部プロバイダー認証後の自動登録に使う一時的な構造体。
// 永続化はされず、OAuthブリッジが1回だけ消費する。
type OAuthIdentity struct {
	Type      UserType       `json:"type"`
	LoginType LoginType      `json:"loginType"`
	Name      string         `json:"name,omitempty"`
	Email     string         `json:"email,omitempty"`
	Image     string         `json:"image,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// SessionUser はセッションに保持するユーザー情報の射影。
type SessionUser struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Image        string `json:"image,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ProjectUser はUserからセッション用の射影を作る。
// トークンを持たないユーザーはセッション化できないためfalseを返す。
func ProjectUser(u *User) (SessionUser, bool) {
	if u == nil || u.Token == nil || u.Token.AccessToken == "" {
		return SessionUser{}, false
	}
	return SessionUser{
		ID:           u.ID,
		Name:         u.Name,
		Image:        u.Image,
		AccessToken:  u.Token.AccessToken,
		RefreshToken: u.Token.RefreshToken,
	}, true
}

// SessionUserPatch はセッション射影の部分更新。nilのフィールドは変更しない。
type SessionUserPatch struct {
	Name  *string `json:"name,omitempty"`
	Image *string `json:"image,omitempty"`
}

// Apply はパッチを適用した射影を返す。IDとトークンは変更しない。
func (p SessionUserPatch) Apply(u SessionUser) SessionUser {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Image != nil {
		u.Image = *p.Image
	}
	return u
}

// IsEmpty はパッチが何も変更しない場合にtrueを返す。
func (p SessionUserPatch) IsEmpty() bool {
	return p.Name == nil && p.Image == nil
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	User      SessionUser
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
