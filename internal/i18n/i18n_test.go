package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/text/language"
)

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range koMessages {
		if _, ok := enMessages[key]; !ok {
			t.Errorf("key %q missing in en catalog", key)
		}
	}
	for key := range enMessages {
		if _, ok := koMessages[key]; !ok {
			t.Errorf("key %q missing in ko catalog", key)
		}
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		value  string
		want   language.Tag
		wantOK bool
	}{
		{"ko", language.Korean, true},
		{"ko-KR", language.Korean, true},
		{"en", language.English, true},
		{"en-US", language.English, true},
		{"", language.Und, false},
		{"not a tag!", language.Und, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := ParseTag(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("ParseTag(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseTag(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestResolveTag_Priority(t *testing.T) {
	t.Run("クエリが最優先で保存対象になる", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/free?lang=en", nil)
		r.AddCookie(&http.Cookie{Name: LangCookieName, Value: "ko"})
		tag, persist := ResolveTag(r, language.Korean)
		if tag != language.English || !persist {
			t.Errorf("got (%v, %v), want (en, true)", tag, persist)
		}
	})

	t.Run("Cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/free", nil)
		r.AddCookie(&http.Cookie{Name: LangCookieName, Value: "en"})
		r.Header.Set("Accept-Language", "ko")
		tag, persist := ResolveTag(r, language.Korean)
		if tag != language.English || persist {
			t.Errorf("got (%v, %v), want (en, false)", tag, persist)
		}
	})

	t.Run("Accept-Language", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/free", nil)
		r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
		tag, _ := ResolveTag(r, language.Korean)
		if tag != language.English {
			t.Errorf("got %v, want en", tag)
		}
	})

	t.Run("フォールバック", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/free", nil)
		tag, _ := ResolveTag(r, language.Korean)
		if tag != language.Korean {
			t.Errorf("got %v, want ko", tag)
		}
	})
}

func TestSetLanguageCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetLanguageCookie(rec, language.English)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].Name != LangCookieName || cookies[0].Value != "en" {
		t.Errorf("unexpected cookie: %s=%s", cookies[0].Name, cookies[0].Value)
	}
}

func TestLocalizer_T(t *testing.T) {
	ko := NewLocalizer(language.Korean)
	if got := ko.T("board.description", "free"); got != "free 게시판입니다." {
		t.Errorf("ko board.description = %q", got)
	}
	if got := ko.T("nav.greeting", "홍길동"); got != "홍길동님 :)" {
		t.Errorf("ko nav.greeting = %q", got)
	}

	en := NewLocalizer(language.English)
	if got := en.T("nav.signout"); got != "Log out" {
		t.Errorf("en nav.signout = %q", got)
	}
	if en.Lang() != "en" || ko.Lang() != "ko" {
		t.Errorf("Lang() = %q / %q", en.Lang(), ko.Lang())
	}
}

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	if l.Tag() != language.Korean {
		t.Errorf("default localizer tag = %v, want ko", l.Tag())
	}

	ctx := WithLocalizer(context.Background(), NewLocalizer(language.English))
	if FromContext(ctx).Tag() != language.English {
		t.Error("expected localizer from context")
	}
}
