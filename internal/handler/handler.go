// Package handler はHTTPハンドラーを提供する。
// ページはサーバーでレンダリングし、認証とセッションの操作はauth.Orchestratorに委ねる。
package handler

import (
	"net/http"

	"github.com/hitoshi/boardman/internal/i18n"
	"github.com/hitoshi/boardman/internal/middleware"
	"github.com/hitoshi/boardman/internal/view"
)

// ImageValidator は表示する画像URLを検証する。security.SSRFGuardServiceが実装する。
type ImageValidator interface {
	ValidateImageURL(rawURL string) error
}

// Renderer はページを描画する。view.Rendererが実装する。
type Renderer interface {
	Render(w http.ResponseWriter, status int, page string, data view.PageData)
}

// pages はページ描画に共通するリクエスト由来のデータを組み立てる。
type pages struct {
	renderer Renderer
	images   ImageValidator
}

// data はリクエストから共通のテンプレートデータを作る。
func (p *pages) data(r *http.Request, title string, content any) view.PageData {
	d := view.PageData{
		L:         i18n.FromContext(r.Context()),
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Content:   content,
	}
	if s, ok := middleware.SessionFromContext(r.Context()); ok {
		info := &view.LoginInfo{Name: s.User.Name, Image: s.User.Image}
		if info.Image != "" && p.images.ValidateImageURL(info.Image) != nil {
			info.Image = ""
		}
		d.User = info
	}
	return d
}

// render はページを描画する。
func (p *pages) render(w http.ResponseWriter, r *http.Request, status int, page, title string, content any) {
	p.renderer.Render(w, status, page, p.data(r, title, content))
}

// renderError はエラーページを描画する。
func (p *pages) renderError(w http.ResponseWriter, r *http.Request, status int, messageKey string) {
	l := i18n.FromContext(r.Context())
	p.render(w, r, status, view.PageError, http.StatusText(status), view.ErrorContent{
		Status:  status,
		Message: l.T(messageKey),
	})
}

// NotFound は404ページを返す。
func (p *pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusNotFound, "error.not_found")
}
