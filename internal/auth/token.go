package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// sessionAudience はセッションCookieのトークンに付与するaud。
	sessionAudience = "boardman-session"
	// stateAudience はOAuth stateのトークンに付与するaud。
	stateAudience = "boardman-oauth-state"
)

// ErrInvalidToken は署名・有効期限・用途のいずれかが不正なトークンを表す。
var ErrInvalidToken = errors.New("invalid token")

// sessionClaims はセッションCookieに格納するクレーム。
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// OAuthState はプロバイダーへのリダイレクトからコールバックまでの間に保持する値。
type OAuthState struct {
	Provider string
	State    string
	Verifier string // PKCEのcode_verifier
	Redirect string // ログイン後の遷移先
}

// stateClaims はOAuthStateを封入するクレーム。
type stateClaims struct {
	jwt.RegisteredClaims
	Provider string `json:"prv"`
	State    string `json:"st"`
	Verifier string `json:"cv"`
	Redirect string `json:"rd,omitempty"`
}

// TokenSigner はセッションCookieとOAuth stateのトークンをHS256で署名・検証する。
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner はTokenSignerを生成する。
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), now: time.Now}
}

// SignSession はセッションIDを署名済みトークンにする。
func (s *TokenSigner) SignSession(sessionID string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
		SessionID: sessionID,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseSession はトークンを検証してセッションIDを返す。
func (s *TokenSigner) ParseSession(tokenString string) (string, error) {
	claims := &sessionClaims{}
	if err := s.parse(tokenString, claims, sessionAudience); err != nil {
		return "", err
	}
	if claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}

// SealState はOAuthStateを有効期限付きのトークンに封入する。
func (s *TokenSigner) SealState(st OAuthState, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{stateAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Provider: st.Provider,
		State:    st.State,
		Verifier: st.Verifier,
		Redirect: st.Redirect,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to seal oauth state: %w", err)
	}
	return signed, nil
}

// OpenState は封入されたOAuthStateを検証して取り出す。
func (s *TokenSigner) OpenState(tokenString string) (*OAuthState, error) {
	claims := &stateClaims{}
	if err := s.parse(tokenString, claims, stateAudience); err != nil {
		return nil, err
	}
	if claims.State == "" || claims.Verifier == "" {
		return nil, ErrInvalidToken
	}
	return &OAuthState{
		Provider: claims.Provider,
		State:    claims.State,
		Verifier: claims.Verifier,
		Redirect: claims.Redirect,
	}, nil
}

func (s *TokenSigner) parse(tokenString string, claims jwt.Claims, audience string) error {
	if tokenString == "" {
		return ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// AccessTokenExpired はバックエンドのアクセストークンが期限切れかを判定する。
// 署名は検証せず、expクレームだけを見る。expを読めない場合は期限切れとしない。
func AccessTokenExpired(accessToken string, now time.Time, leeway time.Duration) bool {
	if accessToken == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Add(leeway).Before(exp.Time)
}
