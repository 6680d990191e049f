package middleware

import (
	"net/http"
	"time"
)

// CookieConfig はアプリケーションが発行するCookieの共通設定。
type CookieConfig struct {
	Secure bool
	Domain string
}

// SetCookie はHttpOnlyかつSameSite=LaxのCookieを設定する。
func SetCookie(w http.ResponseWriter, cfg CookieConfig, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie はCookieを削除する。
func ClearCookie(w http.ResponseWriter, cfg CookieConfig, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
