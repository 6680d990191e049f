// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/boardman/internal/auth"
	"github.com/hitoshi/boardman/internal/model"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "boardman_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	sessionContextKey = contextKey("session")
	csrfContextKey    = contextKey("csrf_token")
)

// SessionResolver はCookieのトークンからセッションを解決する。
// auth.Orchestratorが実装する。
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*model.Session, auth.State)
}

// NewSessionMiddleware はCookieのセッショントークンを解決し、
// 認証済みの場合はセッションをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証のリクエストもそのまま通す。トークンが無効、またはセッションが存在しない場合のみCookieを削除する。
// ストアやバックエンドに一時的に到達できない場合はCookieを残し、その要求だけ匿名として扱う。
func NewSessionMiddleware(resolver SessionResolver, cookies CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, state := resolver.Resolve(r.Context(), cookie.Value)
			if state != auth.StateAuthenticated || session == nil {
				if state == auth.StateAnonymous {
					ClearCookie(w, cookies, SessionCookieName)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// RequireSession は認証済みでないリクエストに401を返すミドルウェア。
// JSONを返すエンドポイントで使用する。
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*model.Session)
	return s, ok && s != nil
}

// ContextWithSession はコンテキストにセッションを注入する。
func ContextWithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	s, ok := SessionFromContext(ctx)
	if !ok || s.User.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return s.User.ID.String(), nil
}
