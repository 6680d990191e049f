package auth

import (
	"fmt"
	"net/http"

	"github.com/hitoshi/boardman/internal/model"
	"golang.org/x/oauth2"
)

const kakaoUserURL = "https://kapi.kakao.com/v2/user/me"

// kakaoEndpoint はKakaoのOAuthエンドポイント。
// client_secretはボディで送る。
var kakaoEndpoint = oauth2.Endpoint{
	AuthURL:   "https://kauth.kakao.com/oauth/authorize",
	TokenURL:  "https://kauth.kakao.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// NewKakao はKakaoのOAuthプロバイダーを生成する。
func NewKakao(config ProviderConfig, httpClient *http.Client) *OAuth2Provider {
	return newOAuth2Provider(
		model.LoginTypeKakao,
		config,
		kakaoEndpoint,
		[]string{"profile_nickname", "profile_image"},
		kakaoUserURL,
		httpClient,
		mapKakaoProfile,
	)
}

// mapKakaoProfile は/v2/user/meのレスポンスを変換する。
// メールは同意項目のため、取得できないことが多い。
func mapKakaoProfile(profile map[string]any) (ProviderIdentity, error) {
	id := stringField(profile, "id")
	if id == "" {
		return ProviderIdentity{}, fmt.Errorf("empty id in kakao profile")
	}
	name := stringField(profile, "kakao_account", "profile", "nickname")
	if name == "" {
		name = stringField(profile, "properties", "nickname")
	}
	image := stringField(profile, "kakao_account", "profile", "profile_image_url")
	if image == "" {
		image = stringField(profile, "properties", "profile_image")
	}
	return ProviderIdentity{
		ProviderAccountID: id,
		Name:              name,
		Email:             stringField(profile, "kakao_account", "email"),
		Image:             image,
	}, nil
}
