package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/boardman/internal/apiclient"
	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
)

// --- モック定義 ---

// mockUserAPI はバックエンドAPIのモック。呼び出された操作を順に記録する。
type mockUserAPI struct {
	mu    sync.Mutex
	calls []string

	loginFn           func(ctx context.Context, form model.LoginForm) (*model.Envelope[model.User], error)
	loginWithFn       func(ctx context.Context, providerAccountID string) (*model.Envelope[model.User], error)
	createOAuthUserFn func(ctx context.Context, identity model.OAuthIdentity) (*model.Envelope[model.User], error)
	createUserFn      func(ctx context.Context, form model.UserForm) (*model.Envelope[model.User], error)
	uploadFilesFn     func(ctx context.Context, files []apiclient.FileUpload) (*model.Envelope[[]model.FileRecord], error)
	refreshFn         func(ctx context.Context, refreshToken string) (*model.RefreshResponse, error)
}

func (m *mockUserAPI) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
}

func (m *mockUserAPI) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (m *mockUserAPI) Login(ctx context.Context, form model.LoginForm) (*model.Envelope[model.User], error) {
	m.record(apiclient.OpLogin)
	if m.loginFn != nil {
		return m.loginFn(ctx, form)
	}
	return &model.Envelope[model.User]{Ok: 0, Status: 403}, nil
}

func (m *mockUserAPI) LoginWith(ctx context.Context, providerAccountID string) (*model.Envelope[model.User], error) {
	m.record(apiclient.OpLoginWith)
	if m.loginWithFn != nil {
		return m.loginWithFn(ctx, providerAccountID)
	}
	return &model.Envelope[model.User]{Ok: 0, Status: 404}, nil
}

func (m *mockUserAPI) CreateOAuthUser(ctx context.Context, identity model.OAuthIdentity) (*model.Envelope[model.User], error) {
	m.record(apiclient.OpCreateOAuthUser)
	if m.createOAuthUserFn != nil {
		return m.createOAuthUserFn(ctx, identity)
	}
	return &model.Envelope[model.User]{Ok: 0, Status: 422}, nil
}

func (m *mockUserAPI) CreateUser(ctx context.Context, form model.UserForm) (*model.Envelope[model.User], error) {
	m.record(apiclient.OpCreateUser)
	if m.createUserFn != nil {
		return m.createUserFn(ctx, form)
	}
	return &model.Envelope[model.User]{Ok: 0, Status: 422}, nil
}

func (m *mockUserAPI) UploadFiles(ctx context.Context, files []apiclient.FileUpload) (*model.Envelope[[]model.FileRecord], error) {
	m.record(apiclient.OpUploadFiles)
	if m.uploadFilesFn != nil {
		return m.uploadFilesFn(ctx, files)
	}
	return &model.Envelope[[]model.FileRecord]{Ok: 0, Status: 422}, nil
}

func (m *mockUserAPI) RefreshAccessToken(ctx context.Context, refreshToken string) (*model.RefreshResponse, error) {
	m.record(apiclient.OpRefreshToken)
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return &model.RefreshResponse{Ok: 0, Status: 401}, nil
}

// memSessionRepo はメモリ上のセッションリポジトリ。
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	updates  int

	createFn func(ctx context.Context, session *model.Session) error
	findFn   func(ctx context.Context, id string) (*model.Session, error)
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]model.Session)}
}

func (r *memSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if r.createFn != nil {
		return r.createFn(ctx, session)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *memSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if r.findFn != nil {
		return r.findFn(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *memSessionRepo) UpdateUser(_ context.Context, id string, user model.SessionUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.User = user
	r.sessions[id] = s
	r.updates++
	return nil
}

func (r *memSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func (r *memSessionRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// fakeProvider はテスト用のOAuthプロバイダー。
type fakeProvider struct {
	name       model.LoginType
	exchangeFn func(ctx context.Context, code, verifier string) (ProviderIdentity, error)
}

func (p *fakeProvider) Name() model.LoginType { return p.name }

func (p *fakeProvider) AuthCodeURL(state, verifier string) string {
	return "https://idp.example.com/authorize?state=" + state + "&verifier=" + verifier
}

func (p *fakeProvider) Exchange(ctx context.Context, code, verifier string) (ProviderIdentity, error) {
	if p.exchangeFn != nil {
		return p.exchangeFn(ctx, code, verifier)
	}
	return ProviderIdentity{Provider: p.name, ProviderAccountID: "acc-" + code}, nil
}

// compile-time interface check
var (
	_ CredentialAPI                = (*mockUserAPI)(nil)
	_ OAuthAPI                     = (*mockUserAPI)(nil)
	_ SignupAPI                    = (*mockUserAPI)(nil)
	_ TokenRefresher               = (*mockUserAPI)(nil)
	_ repository.SessionRepository = (*memSessionRepo)(nil)
	_ Provider                     = (*fakeProvider)(nil)
)

// --- テストヘルパー ---

const testSecret = "test-session-secret"

// accessToken はexpを持つバックエンド風のアクセストークンを生成する。
func accessToken(exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"_id": "u1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("backend-secret"))
	if err != nil {
		panic(err)
	}
	return s
}

// authedUser はトークン付きのユーザーを返す。
func authedUser(id model.ID, loginType model.LoginType) model.User {
	return model.User{
		ID:        id,
		Name:      "Kim",
		Email:     "kim@x.com",
		Type:      model.UserTypeUser,
		LoginType: loginType,
		Image:     "/files/kim.png",
		Token: &model.TokenPair{
			AccessToken:  accessToken(time.Now().Add(time.Hour)),
			RefreshToken: "refresh-" + id.String(),
		},
	}
}

func okUser(u model.User) *model.Envelope[model.User] {
	return &model.Envelope[model.User]{Ok: 1, Item: u, Status: 200}
}

type testEnv struct {
	api       *mockUserAPI
	sessions  *memSessionRepo
	tokens    *TokenSigner
	providers *Providers
	orch      *Orchestrator
}

func newTestEnv() *testEnv {
	api := &mockUserAPI{}
	sessions := newMemSessionRepo()
	tokens := NewTokenSigner(testSecret)
	providers := NewProviders()
	orch := NewOrchestrator(
		NewCredentialVerifier(api),
		NewOAuthBridge(api, nil, nil),
		providers,
		sessions,
		tokens,
		api,
		OrchestratorConfig{SessionMaxAge: time.Hour},
		nil,
		nil,
	)
	return &testEnv{api: api, sessions: sessions, tokens: tokens, providers: providers, orch: orch}
}
