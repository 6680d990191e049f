// Package apiclient はバックエンドAPIのクライアントを提供する。
// 1つのバックエンド機能につき1メソッドを持ち、レスポンスのエンベロープをそのまま返す。
// リトライやキャッシュは行わない。失敗時の判断は呼び出し元に委ねる。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/boardman/internal/metrics"
	"github.com/hitoshi/boardman/internal/model"
)

const (
	// clientIDHeader は全リクエストに付与するクライアント識別ヘッダー。
	clientIDHeader = "client-id"
	// maxResponseSize はレスポンスボディの読み取り上限（10MB）。
	maxResponseSize = 10 << 20
	// defaultTimeout はConfig.Timeout未指定時のタイムアウト。
	defaultTimeout = 10 * time.Second
)

// Config はバックエンドAPIクライアントの設定。
// プロセス全体の設定はグローバル変数から読まず、この構造体で注入する。
type Config struct {
	BaseURL  string
	ClientID string
	Timeout  time.Duration
}

// TransportError はリクエストが完了しなかったことを表す。
// ネットワーク障害、5xx応答、デコードできないボディが該当する。
// バックエンドが処理を拒否した場合（エラーエンベロープ）とは区別される。
type TransportError struct {
	Op     string
	Status int // 応答を受け取れた場合のHTTPステータス
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s failed with status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError はerrがTransportErrorを含む場合にtrueを返す。
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientがnilの場合はConfig.Timeoutを設定したクライアントを使う。
func NewClient(config Config, httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector) *Client {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		httpClient: httpClient,
		config:     config,
		logger:     logger,
		metrics:    collector,
	}
}

// request は1回のバックエンド呼び出しの内容。
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	bearer      string
}

// jsonRequest はJSONボディ付きのrequestを組み立てる。
func jsonRequest(op, method, path string, payload any) (*request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
	}
	return &request{
		op:          op,
		method:      method,
		path:        path,
		body:        bytes.NewReader(b),
		contentType: "application/json",
	}, nil
}

// do はリクエストを1回だけ送信し、ステータスとボディを返す。
// ネットワーク障害と5xx応答はTransportErrorとして返す。
func (c *Client) do(ctx context.Context, r *request) (int, []byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordBackendLatency(r.op, time.Since(start))
	}()

	reqURL := c.config.BaseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, r.body)
	if err != nil {
		return 0, nil, &TransportError{Op: r.op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set(clientIDHeader, c.config.ClientID)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			slog.String("op", r.op),
			slog.String("error", err.Error()),
		)
		return 0, nil, &TransportError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("failed to read backend response",
			slog.String("op", r.op),
			slog.String("error", err.Error()),
		)
		return resp.StatusCode, nil, &TransportError{Op: r.op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("backend returned server error",
			slog.String("op", r.op),
			slog.Int("http_status", resp.StatusCode),
		)
		return resp.StatusCode, body, &TransportError{
			Op:     r.op,
			Status: resp.StatusCode,
			Err:    errors.New("server error"),
		}
	}

	return resp.StatusCode, body, nil
}

// send はリクエストを送信し、レスポンスをエンベロープとしてデコードする。
// 4xx応答でもエラーエンベロープとしてデコードできればerrorはnilになる。
func send[T any](ctx context.Context, c *Client, r *request) (*model.Envelope[T], error) {
	status, body, err := c.do(ctx, r)
	if err != nil {
		c.metrics.RecordBackendCall(r.op, metrics.OutcomeTransport)
		return nil, err
	}

	var env model.Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Error("failed to decode backend envelope",
			slog.String("op", r.op),
			slog.Int("http_status", status),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordBackendCall(r.op, metrics.OutcomeTransport)
		return nil, &TransportError{Op: r.op, Status: status, Err: fmt.Errorf("invalid envelope: %w", err)}
	}
	env.Status = status
	// 4xx応答はボディのokに関わらず拒否として扱う
	if status >= http.StatusBadRequest {
		env.Ok = 0
	}

	if env.IsSuccess() {
		c.metrics.RecordBackendCall(r.op, metrics.OutcomeSuccess)
	} else {
		c.logger.Info("backend rejected request",
			slog.String("op", r.op),
			slog.Int("http_status", status),
			slog.String("message", env.Message),
		)
		c.metrics.RecordBackendCall(r.op, metrics.OutcomeRejected)
	}

	return &env, nil
}
