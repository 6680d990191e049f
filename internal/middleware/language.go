package middleware

import (
	"net/http"

	"github.com/hitoshi/boardman/internal/i18n"
	"golang.org/x/text/language"
)

// NewLanguageMiddleware はリクエストの表示言語を解決し、Localizerをコンテキストに注入する。
// クエリで言語が指定された場合はCookieに保存する。
func NewLanguageMiddleware(fallback language.Tag) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag, persist := i18n.ResolveTag(r, fallback)
			if persist {
				i18n.SetLanguageCookie(w, tag)
			}
			ctx := i18n.WithLocalizer(r.Context(), i18n.NewLocalizer(tag))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
