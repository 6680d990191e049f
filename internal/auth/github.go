package auth

import (
	"fmt"
	"net/http"

	"github.com/hitoshi/boardman/internal/model"
	"golang.org/x/oauth2/endpoints"
)

const githubUserURL = "https://api.github.com/user"

// NewGithub はGitHubのOAuthプロバイダーを生成する。
func NewGithub(config ProviderConfig, httpClient *http.Client) *OAuth2Provider {
	return newOAuth2Provider(
		model.LoginTypeGithub,
		config,
		endpoints.GitHub,
		[]string{"read:user", "user:email"},
		githubUserURL,
		httpClient,
		mapGithubProfile,
	)
}

// mapGithubProfile は/userのレスポンスを変換する。
// 公開メールを設定していないユーザーはemailがnullになる。
func mapGithubProfile(profile map[string]any) (ProviderIdentity, error) {
	id := stringField(profile, "id")
	if id == "" {
		return ProviderIdentity{}, fmt.Errorf("empty id in github profile")
	}
	name := stringField(profile, "name")
	if name == "" {
		name = stringField(profile, "login")
	}
	return ProviderIdentity{
		ProviderAccountID: id,
		Name:              name,
		Email:             stringField(profile, "email"),
		Image:             stringField(profile, "avatar_url"),
	}, nil
}
