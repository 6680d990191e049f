// Package view はサーバーレンダリングするHTMLページを提供する。
// テンプレートはバイナリに埋め込まれ、起動時に一度だけ解析される。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/boardman/internal/board"
	"github.com/hitoshi/boardman/internal/i18n"
	"github.com/hitoshi/boardman/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページ名。templates/<name>.html に対応する。
const (
	PageBoard  = "board"
	PageLogin  = "login"
	PageSignup = "signup"
	PageError  = "error"
)

var pageNames = []string{PageBoard, PageLogin, PageSignup, PageError}

// LoginInfo はヘッダーに表示するログイン中ユーザーの情報。
type LoginInfo struct {
	Name  string
	Image string
}

// PageData は全ページ共通のテンプレートデータ。
type PageData struct {
	L         *i18n.Localizer
	Title     string
	Meta      *board.Metadata
	CSRFToken string
	User      *LoginInfo
	Content   any
}

// BoardContent は掲示板一覧ページの内容。
type BoardContent struct {
	Page *board.Page
}

// ProviderLink はOAuthログインボタン1件。
type ProviderLink struct {
	Name  string
	Label string
	URL   string
}

// LoginContent はログインページの内容。
type LoginContent struct {
	Email       string
	Redirect    string
	Rejection   *model.ErrorEnvelope
	OAuthFailed bool
	Providers   []ProviderLink
}

// SignupContent は会員登録ページの内容。
type SignupContent struct {
	Type      model.UserType
	Name      string
	Email     string
	Rejection *model.ErrorEnvelope
}

// ErrorContent はエラーページの内容。
type ErrorContent struct {
	Status  int
	Message string
}

// Renderer は解析済みのページテンプレートを保持する。
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer は埋め込みテンプレートを解析してRendererを生成する。
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		pages:  make(map[string]*template.Template, len(pageNames)),
		logger: logger,
	}
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render はページを描画してレスポンスに書き込む。
// 描画に失敗した場合は途中までの出力を送らず500を返す。
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) {
	tmpl, ok := r.pages[page]
	if !ok {
		r.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if data.L == nil {
		data.L = i18n.Default()
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
