package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/boardman/internal/model"
)

// ListPosts は掲示板の投稿一覧をページ単位で取得する。
// GET /posts?type=xxx&page=n&limit=m
func (c *Client) ListPosts(ctx context.Context, q model.PostQuery) (*model.Envelope[[]model.Post], error) {
	query := url.Values{}
	if q.Type != "" {
		query.Set("type", q.Type)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	return send[[]model.Post](ctx, c, &request{
		op:     OpListPosts,
		method: http.MethodGet,
		path:   "/posts",
		query:  query,
	})
}
