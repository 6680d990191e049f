// Package i18n は画面表示メッセージのロケール解決と翻訳を提供する。
// 韓国語を既定とし、英語を併せてサポートする。
package i18n

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	// LangParam は言語を切り替えるクエリパラメータ。
	LangParam = "lang"
	// LangCookieName はユーザーの言語設定を保持するCookie名。
	LangCookieName = "boardman_lang"
)

var supported = []language.Tag{language.Korean, language.English}

var matcher = language.NewMatcher(supported)

// messageCatalog は全ロケールのメッセージを保持する。
var messageCatalog = mustBuildCatalog()

func mustBuildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Korean))
	for tag, msgs := range map[language.Tag]map[string]string{
		language.Korean:  koMessages,
		language.English: enMessages,
	} {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic("i18n: invalid message " + key + ": " + err.Error())
			}
		}
	}
	return b
}

// Supported はサポートする言語タグを返す。
func Supported() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// ParseTag は文字列をサポート対象の言語タグに解決する。
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Und, false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Und, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.Und, false
	}
	return supported[idx], true
}

// ResolveTag はリクエストから表示言語を決定する。
// クエリパラメータ、Cookie、Accept-Languageの順に評価する。
// 戻り値のboolはクエリで指定された言語をCookieに保存すべきかを示す。
func ResolveTag(r *http.Request, fallback language.Tag) (language.Tag, bool) {
	if tag, ok := ParseTag(r.URL.Query().Get(LangParam)); ok {
		return tag, true
	}
	if c, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := ParseTag(c.Value); ok {
			return tag, false
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			if _, idx, conf := matcher.Match(tags...); conf != language.No {
				return supported[idx], false
			}
		}
	}
	return fallback, false
}

// SetLanguageCookie は選択された言語をCookieに保存する。
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Localizer は1つの言語でメッセージを整形する。
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLocalizer は指定言語のLocalizerを生成する。
func NewLocalizer(tag language.Tag) *Localizer {
	return &Localizer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(messageCatalog)),
	}
}

// T はキーに対応するメッセージを返す。未登録のキーはそのまま返す。
func (l *Localizer) T(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}

// Lang はhtml要素のlang属性に使う言語コードを返す。
func (l *Localizer) Lang() string {
	base, _ := l.tag.Base()
	return base.String()
}

// Tag は言語タグを返す。
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

type contextKey struct{}

// WithLocalizer はLocalizerをコンテキストに格納する。
func WithLocalizer(ctx context.Context, l *Localizer) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// Default は韓国語のLocalizerを返す。
func Default() *Localizer {
	return NewLocalizer(language.Korean)
}

// FromContext はコンテキストからLocalizerを取得する。
// 未設定の場合はDefaultを返す。
func FromContext(ctx context.Context) *Localizer {
	if l, ok := ctx.Value(contextKey{}).(*Localizer); ok && l != nil {
		return l
	}
	return Default()
}
