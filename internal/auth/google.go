package auth

import (
	"fmt"
	"net/http"

	"github.com/hitoshi/boardman/internal/model"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// NewGoogle はGoogleのOAuthプロバイダーを生成する。
// スコープにはopenid, email, profileを含む。
func NewGoogle(config ProviderConfig, httpClient *http.Client) *OAuth2Provider {
	return newOAuth2Provider(
		model.LoginTypeGoogle,
		config,
		endpoints.Google,
		[]string{"openid", "email", "profile"},
		googleUserInfoURL,
		httpClient,
		mapGoogleProfile,
	)
}

// mapGoogleProfile はuserinfoエンドポイントのレスポンスを変換する。
func mapGoogleProfile(profile map[string]any) (ProviderIdentity, error) {
	sub := stringField(profile, "sub")
	if sub == "" {
		return ProviderIdentity{}, fmt.Errorf("empty sub in google profile")
	}
	return ProviderIdentity{
		ProviderAccountID: sub,
		Name:              stringField(profile, "name"),
		Email:             stringField(profile, "email"),
		Image:             stringField(profile, "picture"),
	}, nil
}
