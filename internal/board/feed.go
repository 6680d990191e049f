package board

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/boardman/internal/model"
)

// ErrFeedUnavailable はバックエンドから投稿を取得できずフィードを生成できないことを表す。
var ErrFeedUnavailable = errors.New("board feed unavailable")

// backendTimeLayout はバックエンドが返す日時の書式。タイムゾーンはKST。
const backendTimeLayout = "2006.01.02 15:04:05"

var kst = time.FixedZone("KST", 9*60*60)

// excerptLength はフィードのdescriptionに載せる本文の最大文字数。
const excerptLength = 200

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Feed は掲示板の1ページ目をRSS 2.0で返す。
// baseURLはリンクを絶対URLにするために使う。
func (s *Service) Feed(ctx context.Context, boardType, baseURL string) ([]byte, error) {
	if !ValidBoardType(boardType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBoard, boardType)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	env, err := s.api.ListPosts(ctx, model.PostQuery{Type: boardType, Page: 1, Limit: s.perPage})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	if !env.IsSuccess() {
		return nil, fmt.Errorf("%w: backend rejected: %s", ErrFeedUnavailable, env.Message)
	}

	meta := NewMetadata(boardType)
	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       meta.Title,
			Link:        baseURL + meta.URL,
			Description: meta.Description,
			Language:    "ko",
			Items:       make([]rssItem, 0, len(env.Item)),
		},
	}
	for _, post := range env.Item {
		row := s.toRow(boardType, post, 0)
		link := baseURL + row.URL
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       row.Title,
			Link:        link,
			Description: s.sanitizer.Excerpt(post.Content, excerptLength),
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			PubDate:     rssDate(post.CreatedAt),
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// rssDate はバックエンドの日時をRFC 1123形式に変換する。解釈できない場合は空文字を返す。
func rssDate(s string) string {
	t, err := time.ParseInLocation(backendTimeLayout, s, kst)
	if err != nil {
		return ""
	}
	return t.Format(time.RFC1123Z)
}
