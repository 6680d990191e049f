package security

import (
	"strings"
	"testing"
)

func TestSanitize_AllowedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{"段落", "<p>안녕하세요</p>", []string{"<p>안녕하세요</p>"}},
		{"改行", "첫 줄<br>둘째 줄", []string{"<br>", "첫 줄", "둘째 줄"}},
		{"リスト", "<ul><li>하나</li><li>둘</li></ul>", []string{"<ul>", "<li>하나</li>", "</ul>"}},
		{"引用", "<blockquote>인용</blockquote>", []string{"<blockquote>인용</blockquote>"}},
		{"コード", "<pre><code>fmt.Println()</code></pre>", []string{"<pre><code>fmt.Println()</code></pre>"}},
		{"強調", "<strong>굵게</strong> <em>기울임</em>", []string{"<strong>굵게</strong>", "<em>기울임</em>"}},
		{"見出し", "<h2>공지</h2>", []string{"<h2>공지</h2>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, want to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

func TestSanitize_ForbiddenContent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name       string
		input      string
		notContain []string
	}{
		{"script", `<p>글</p><script>alert("xss")</script>`, []string{"<script", "alert"}},
		{"iframe", `<iframe src="https://evil.example.com"></iframe>`, []string{"<iframe"}},
		{"style", `<style>body{display:none}</style><p>x</p>`, []string{"<style", "display:none"}},
		{"onclick", `<p onclick="alert(1)">클릭</p>`, []string{"onclick"}},
		{"onerror", `<img src="https://example.com/a.png" onerror="alert(1)">`, []string{"onerror"}},
		{"javascriptリンク", `<a href="javascript:alert(1)">링크</a>`, []string{"javascript:"}},
		{"data画像", `<img src="data:image/png;base64,AAAA">`, []string{"data:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, bad := range tt.notContain {
				if strings.Contains(got, bad) {
					t.Errorf("Sanitize(%q) = %q, must not contain %q", tt.input, got, bad)
				}
			}
		})
	}
}

// TestSanitize_ExternalLink は外部リンクに target と rel が付与されることを検証する。
func TestSanitize_ExternalLink(t *testing.T) {
	got := NewContentSanitizer().Sanitize(`<a href="https://example.com">외부</a>`)

	for _, want := range []string{`href="https://example.com"`, `target="_blank"`, "noreferrer"} {
		if !strings.Contains(got, want) {
			t.Errorf("Sanitize() = %q, want to contain %q", got, want)
		}
	}
}

func TestSanitize_RelativeImage(t *testing.T) {
	got := NewContentSanitizer().Sanitize(`<img src="/files/sample/dog.webp" alt="강아지">`)

	if !strings.Contains(got, `src="/files/sample/dog.webp"`) {
		t.Errorf("relative image src should be kept, got %q", got)
	}
	if !strings.Contains(got, `alt="강아지"`) {
		t.Errorf("alt should be kept, got %q", got)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()
	input := `<p>본문 <a href="https://example.com">링크</a></p><script>x()</script>`

	once := sanitizer.Sanitize(input)
	twice := sanitizer.Sanitize(once)
	if once != twice {
		t.Errorf("Sanitize is not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestStripTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキスト", "자유게시판 첫 글", "자유게시판 첫 글"},
		{"タグ除去", "<b>홍길동</b>", "홍길동"},
		{"script除去", "<script>alert(1)</script>제목", "제목"},
		{"エンティティ", "Tom &amp; Jerry", "Tom & Jerry"},
		{"前後の空白", "  이름  ", "이름"},
		{"空文字", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.StripTags(tt.input); got != tt.want {
				t.Errorf("StripTags(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"短い本文", "<p>짧은 글</p>", 10, "짧은 글"},
		{"切り詰め", "<p>가나다라마</p>", 3, "가나다…"},
		{"空白の正規化", "<p>a</p>\n<p>b</p>", 10, "a b"},
		{"上限なし", "<p>가나다라마</p>", 0, "가나다라마"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Excerpt(tt.input, tt.maxRunes); got != tt.want {
				t.Errorf("Excerpt(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestContentSanitizerInterface(t *testing.T) {
	var _ ContentSanitizerService = NewContentSanitizer()
}
