// Package board は掲示板の一覧表示を提供する。
// 投稿データはバックエンドAPIから取得し、表示用にサニタイズした行へ変換する。
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hitoshi/boardman/internal/apiclient"
	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/security"
)

const (
	// DefaultPerPage は1ページあたりの既定の投稿数。
	DefaultPerPage = 10
	// ogImagePath はOpen Graphの既定画像。
	ogImagePath = "/images/fesp.webp"
	// maxBoardTypeLen は掲示板種別の最大長。
	maxBoardTypeLen = 32
)

// ErrInvalidBoard は掲示板種別として使えない値が指定されたことを表す。
var ErrInvalidBoard = errors.New("invalid board type")

// PostsAPI はバックエンドの投稿一覧APIを表す。
type PostsAPI interface {
	ListPosts(ctx context.Context, query model.PostQuery) (*model.Envelope[[]model.Post], error)
}

// Metadata はページの<head>に出力するメタ情報。
type Metadata struct {
	Title       string
	Description string
	URL         string
	Image       string
}

// NewMetadata は掲示板ページのメタ情報を生成する。
func NewMetadata(boardType string) Metadata {
	return Metadata{
		Title:       boardType,
		Description: fmt.Sprintf("%s 게시판입니다.", boardType),
		URL:         "/" + boardType,
		Image:       ogImagePath,
	}
}

// PostRow は一覧の1行。表示用に整形済み。
type PostRow struct {
	Number      int
	ID          string
	Title       string
	Author      string
	AuthorImage string
	Views       int
	Replies     int
	CreatedAt   string
	URL         string
}

// Page は掲示板一覧ページの表示データ。
// 取得に失敗した場合はFailureに汎用メッセージが入り、Postsは空になる。
type Page struct {
	Board   string
	Meta    Metadata
	Posts   []PostRow
	Window  PageWindow
	Total   int
	Failure *model.ErrorEnvelope
}

// Service は掲示板一覧のビジネスロジックを提供する。
type Service struct {
	api       PostsAPI
	sanitizer security.ContentSanitizerService
	guard     security.SSRFGuardService
	logger    *slog.Logger
	perPage   int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(api PostsAPI, sanitizer security.ContentSanitizerService, guard security.SSRFGuardService, perPage int, logger *slog.Logger) *Service {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:       api,
		sanitizer: sanitizer,
		guard:     guard,
		logger:    logger,
		perPage:   perPage,
	}
}

// ValidBoardType は掲示板種別が英小文字・数字・ハイフンのみで構成されているかを返す。
func ValidBoardType(boardType string) bool {
	if boardType == "" || len(boardType) > maxBoardTypeLen {
		return false
	}
	for _, r := range boardType {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}

// List は指定された掲示板の1ページ分を取得する。
// バックエンドの拒否や通信失敗はerrorではなくPage.Failureで表す。
func (s *Service) List(ctx context.Context, boardType string, page int, extra url.Values) (*Page, error) {
	if !ValidBoardType(boardType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBoard, boardType)
	}
	if page < 1 {
		page = 1
	}

	result := &Page{
		Board: boardType,
		Meta:  NewMetadata(boardType),
	}
	basePath := "/" + boardType

	env, err := s.api.ListPosts(ctx, model.PostQuery{Type: boardType, Page: page, Limit: s.perPage})
	if err != nil {
		s.logger.Error("failed to list posts",
			slog.String("board", boardType),
			slog.Int("page", page),
			slog.Bool("transport", apiclient.IsTransportError(err)),
			slog.String("error", err.Error()),
		)
		result.Failure = model.NewGenericRejection()
		result.Window = NewPageWindow(basePath, 1, 1, extra)
		return result, nil
	}
	if !env.IsSuccess() {
		result.Failure = env.Rejection()
		result.Window = NewPageWindow(basePath, 1, 1, extra)
		return result, nil
	}

	total, totalPages, limit := len(env.Item), 1, s.perPage
	if p := env.Pagination; p != nil {
		total = p.Total
		if p.TotalPages > 0 {
			totalPages = p.TotalPages
		}
		if p.Limit > 0 {
			limit = p.Limit
		}
	}

	result.Total = total
	result.Window = NewPageWindow(basePath, page, totalPages, extra)
	result.Posts = make([]PostRow, 0, len(env.Item))
	// 番号はページ送りと同じく総ページ数に収めたページで数える
	for i, post := range env.Item {
		result.Posts = append(result.Posts, s.toRow(boardType, post, rowNumber(total, result.Window.Current, limit, i)))
	}
	return result, nil
}

// rowNumber は新しい順に振る表示番号を返す。範囲外は0。
func rowNumber(total, page, limit, i int) int {
	if total < 1 || page < 1 || limit < 1 {
		return 0
	}
	if page-1 > (total-1)/limit {
		return 0
	}
	return total - (page-1)*limit - i
}

func (s *Service) toRow(boardType string, post model.Post, number int) PostRow {
	image := post.User.Image
	if image != "" && s.guard.ValidateImageURL(image) != nil {
		image = ""
	}
	if number < 1 {
		number = 0
	}
	return PostRow{
		Number:      number,
		ID:          post.ID.String(),
		Title:       s.sanitizer.StripTags(post.Title),
		Author:      s.sanitizer.StripTags(post.User.Name),
		AuthorImage: image,
		Views:       post.Views,
		Replies:     post.RepliesCount,
		CreatedAt:   displayDate(post.CreatedAt),
		URL:         "/" + boardType + "/" + url.PathEscape(post.ID.String()),
	}
}

// displayDate はバックエンドの日時文字列（"2006.01.02 15:04:05"）から日付部分を取り出す。
func displayDate(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}
