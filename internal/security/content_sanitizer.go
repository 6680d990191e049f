package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は掲示板の投稿本文やユーザー名をサニタイズする。
type ContentSanitizerService interface {
	// Sanitize は投稿本文のHTMLを許可リストのタグだけに絞る。
	// script, iframe, styleおよびon*属性は除去される。
	Sanitize(rawHTML string) string
	// StripTags はタグをすべて除去したプレーンテキストを返す。
	// タイトルや投稿者名のようにHTMLを含んではならない値に使う。
	StripTags(s string) string
	// Excerpt は本文をプレーンテキストにして、最大maxRunes文字に切り詰める。
	Excerpt(rawHTML string, maxRunes int) string
}

// contentSanitizer はbluemondayのポリシーを保持する。ポリシーはスレッドセーフ。
type contentSanitizer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, h1-h3, img
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
//   - imgのsrc: https またはバックエンドのファイルパス（相対URL）
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "h1", "h2", "h3",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("https", "http")
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")

	return &contentSanitizer{
		policy: p,
		strict: bluemonday.StrictPolicy(),
	}
}

// Sanitize は投稿本文のHTMLをサニタイズする。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

// StripTags はタグを除去し、エンティティを戻したテキストを返す。
// 出力はテンプレート側で再度エスケープされる。
func (s *contentSanitizer) StripTags(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(v)))
}

// Excerpt は本文の先頭をプレーンテキストで返す。
func (s *contentSanitizer) Excerpt(rawHTML string, maxRunes int) string {
	text := strings.Join(strings.Fields(s.StripTags(rawHTML)), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
