package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/hitoshi/boardman/internal/model"
	"golang.org/x/oauth2"
)

var (
	ErrProviderConflict = errors.New("provider already registered")
	ErrProviderNotFound = errors.New("provider not found")
)

// maxProfileSize はプロフィールレスポンスの読み取り上限（1MB）。
const maxProfileSize = 1 << 20

// Provider は外部OAuthプロバイダー。認可URLの生成とコード交換を行う。
type Provider interface {
	// Name はログイン種別として使うプロバイダー名を返す。
	Name() model.LoginType
	// AuthCodeURL はstateとPKCEのcode_challengeを含む認可URLを返す。
	AuthCodeURL(state, verifier string) string
	// Exchange は認可コードを交換し、プロフィールを取得する。
	Exchange(ctx context.Context, code, verifier string) (ProviderIdentity, error)
}

// Providers は名前で引けるプロバイダーの登録簿。
type Providers struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewProviders は空のProvidersを生成する。
func NewProviders() *Providers {
	return &Providers{providers: make(map[string]Provider)}
}

// Use はプロバイダーを登録する。同名の登録はErrProviderConflictになる。
func (p *Providers) Use(provider Provider) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := string(provider.Name())
	if _, ok := p.providers[name]; ok {
		return ErrProviderConflict
	}
	p.providers[name] = provider
	return nil
}

// Get は名前に対応するプロバイダーを返す。
func (p *Providers) Get(name string) (Provider, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	provider, ok := p.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}

// Names は登録済みのプロバイダー名をソートして返す。
func (p *Providers) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.providers))
	for name := range p.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderConfig はOAuthプロバイダーの設定。
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	Endpoint   *oauth2.Endpoint
	ProfileURL string
}

// profileMapper はプロフィールJSONをProviderIdentityに変換する。
type profileMapper func(profile map[string]any) (ProviderIdentity, error)

// OAuth2Provider はx/oauth2による認可コードフローとプロフィール取得を行う。
type OAuth2Provider struct {
	name       model.LoginType
	cfg        *oauth2.Config
	profileURL string
	httpClient *http.Client
	mapProfile profileMapper
}

func newOAuth2Provider(
	name model.LoginType,
	config ProviderConfig,
	endpoint oauth2.Endpoint,
	scopes []string,
	profileURL string,
	httpClient *http.Client,
	mapProfile profileMapper,
) *OAuth2Provider {
	if config.Endpoint != nil {
		endpoint = *config.Endpoint
	}
	if config.ProfileURL != "" {
		profileURL = config.ProfileURL
	}
	return &OAuth2Provider{
		name: name,
		cfg: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		profileURL: profileURL,
		httpClient: httpClient,
		mapProfile: mapProfile,
	}
}

// Name はプロバイダー名を返す。
func (p *OAuth2Provider) Name() model.LoginType {
	return p.name
}

// AuthCodeURL はS256のcode_challengeを付けた認可URLを返す。
func (p *OAuth2Provider) AuthCodeURL(state, verifier string) string {
	return p.cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange は認可コードをトークンに交換し、プロフィールを取得する。
func (p *OAuth2Provider) Exchange(ctx context.Context, code, verifier string) (ProviderIdentity, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	// 1. 認可コードをアクセストークンに交換
	tok, err := p.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return ProviderIdentity{}, fmt.Errorf("failed to exchange %s code: %w", p.name, err)
	}

	// 2. アクセストークンでプロフィールを取得
	profile, err := p.fetchProfile(ctx, tok)
	if err != nil {
		return ProviderIdentity{}, fmt.Errorf("failed to fetch %s profile: %w", p.name, err)
	}

	identity, err := p.mapProfile(profile)
	if err != nil {
		return ProviderIdentity{}, fmt.Errorf("failed to map %s profile: %w", p.name, err)
	}
	identity.Provider = p.name
	identity.Profile = profile
	return identity, nil
}

func (p *OAuth2Provider) fetchProfile(ctx context.Context, tok *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch failed with status %d", resp.StatusCode)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var profile map[string]any
	if err := dec.Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}
	return profile, nil
}

// randomState はOAuthのstateに使う乱数文字列を生成する。
func randomState() string {
	b := make([]byte, 32)
	// rand.Read never returns an error
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// stringField はプロフィールのフィールドを文字列として取り出す。
// 数値IDはjson.Numberのまま文字列化する。
func stringField(m map[string]any, keys ...string) string {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[k]
	}
	switch v := cur.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// compile-time interface check
var _ Provider = (*OAuth2Provider)(nil)
