package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/boardman/internal/board"
	"github.com/hitoshi/boardman/internal/view"
)

// BoardLister は掲示板一覧とフィードを提供する。board.Serviceが実装する。
type BoardLister interface {
	List(ctx context.Context, boardType string, page int, extra url.Values) (*board.Page, error)
	Feed(ctx context.Context, boardType, baseURL string) ([]byte, error)
}

// BoardHandler は掲示板ページのHTTPハンドラー。
type BoardHandler struct {
	*pages
	boards       BoardLister
	defaultBoard string
	baseURL      string
	logger       *slog.Logger
}

// NewBoardHandler はBoardHandlerを生成する。
// baseURLはフィードの絶対リンクに使う。空の場合はリクエストのHostから組み立てる。
func NewBoardHandler(boards BoardLister, renderer Renderer, images ImageValidator, defaultBoard, baseURL string, logger *slog.Logger) *BoardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BoardHandler{
		pages:        &pages{renderer: renderer, images: images},
		boards:       boards,
		defaultBoard: defaultBoard,
		baseURL:      baseURL,
		logger:       logger,
	}
}

// Home は既定の掲示板へリダイレクトする。
// GET /
func (h *BoardHandler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+h.defaultBoard, http.StatusFound)
}

// List は掲示板の一覧ページを表示する。
// 投稿の取得に失敗してもページは200で描画し、本文にメッセージを出す。
// GET /{type}?page=2
func (h *BoardHandler) List(w http.ResponseWriter, r *http.Request) {
	boardType := chi.URLParam(r, "type")
	page, err := h.boards.List(r.Context(), boardType, board.ParsePage(r.URL.Query().Get("page")), nil)
	if err != nil {
		if errors.Is(err, board.ErrInvalidBoard) {
			h.NotFound(w, r)
			return
		}
		h.logger.Error("failed to build board page", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "error.generic")
		return
	}

	data := h.data(r, page.Meta.Title, view.BoardContent{Page: page})
	meta := page.Meta
	data.Meta = &meta
	h.renderer.Render(w, http.StatusOK, view.PageBoard, data)
}

// Feed は掲示板の新着をRSSで返す。
// GET /{type}/feed.xml
func (h *BoardHandler) Feed(w http.ResponseWriter, r *http.Request) {
	boardType := chi.URLParam(r, "type")
	body, err := h.boards.Feed(r.Context(), boardType, h.origin(r))
	if err != nil {
		switch {
		case errors.Is(err, board.ErrInvalidBoard):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, board.ErrFeedUnavailable):
			h.logger.Warn("feed unavailable",
				slog.String("board", boardType),
				slog.String("error", err.Error()),
			)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			h.logger.Error("failed to build feed", slog.String("error", err.Error()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *BoardHandler) origin(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
