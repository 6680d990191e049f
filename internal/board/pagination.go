package board

import (
	"net/url"
	"strconv"
)

// windowSize はページ番号リンクの最大表示数。
const windowSize = 10

// PageLink はページ番号リンク1件。
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

// PageWindow は一覧下部に表示するページ送り。
// 現在ページを含む10件単位のブロックを表示し、前後のブロックへのリンクを持つ。
type PageWindow struct {
	Current    int
	TotalPages int
	Links      []PageLink
	PrevURL    string // 前のブロックがない場合は空
	NextURL    string // 次のブロックがない場合は空
}

// NewPageWindow は現在ページと総ページ数からページ送りを組み立てる。
// basePathに ?page=N を付けたURLを生成し、extraのクエリは維持する。
func NewPageWindow(basePath string, current, totalPages int, extra url.Values) PageWindow {
	if totalPages < 1 {
		totalPages = 1
	}
	if current < 1 {
		current = 1
	}
	if current > totalPages {
		current = totalPages
	}

	start := ((current-1)/windowSize)*windowSize + 1
	end := start + windowSize - 1
	if end > totalPages {
		end = totalPages
	}

	w := PageWindow{
		Current:    current,
		TotalPages: totalPages,
		Links:      make([]PageLink, 0, end-start+1),
	}
	for n := start; n <= end; n++ {
		w.Links = append(w.Links, PageLink{
			Number:  n,
			URL:     pageURL(basePath, n, extra),
			Current: n == current,
		})
	}
	if start > 1 {
		w.PrevURL = pageURL(basePath, start-1, extra)
	}
	if end < totalPages {
		w.NextURL = pageURL(basePath, end+1, extra)
	}
	return w
}

func pageURL(basePath string, page int, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		if k == "page" {
			continue
		}
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return basePath + "?" + q.Encode()
}

// ParsePage はクエリのページ番号を解釈する。不正な値は1ページ目とみなす。
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
