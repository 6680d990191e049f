package board

import (
	"context"

	"github.com/hitoshi/boardman/internal/model"
)

// mockPostsAPI はPostsAPIのモック。
type mockPostsAPI struct {
	listFn  func(ctx context.Context, q model.PostQuery) (*model.Envelope[[]model.Post], error)
	queries []model.PostQuery
}

func (m *mockPostsAPI) ListPosts(ctx context.Context, q model.PostQuery) (*model.Envelope[[]model.Post], error) {
	m.queries = append(m.queries, q)
	return m.listFn(ctx, q)
}

var _ PostsAPI = (*mockPostsAPI)(nil)

func samplePosts() []model.Post {
	return []model.Post{
		{
			ID:           "3",
			Type:         "info",
			Title:        "<b>세 번째</b> 글",
			Content:      "<p>본문 <script>alert(1)</script>입니다</p>",
			User:         model.PostUser{ID: "7", Name: "홍길동", Image: "/files/sample/user.webp"},
			Views:        12,
			RepliesCount: 2,
			CreatedAt:    "2024.05.01 10:20:30",
		},
		{
			ID:        "2",
			Type:      "info",
			Title:     "두 번째 글",
			Content:   "둘",
			User:      model.PostUser{ID: "8", Name: "무지", Image: "http://192.168.0.1/a.png"},
			CreatedAt: "invalid",
		},
	}
}

func okPosts(posts []model.Post, p *model.Pagination) func(context.Context, model.PostQuery) (*model.Envelope[[]model.Post], error) {
	return func(context.Context, model.PostQuery) (*model.Envelope[[]model.Post], error) {
		return &model.Envelope[[]model.Post]{Ok: 1, Item: posts, Pagination: p, Status: 200}, nil
	}
}
