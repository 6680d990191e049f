package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/boardman/internal/metrics"
	"github.com/hitoshi/boardman/internal/model"
)

// RefreshAccessToken はリフレッシュトークンでアクセストークンを再発行する。
// GET /auth/refresh（Authorization: Bearer <refreshToken>）
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*model.RefreshResponse, error) {
	status, body, err := c.do(ctx, &request{
		op:     OpRefreshToken,
		method: http.MethodGet,
		path:   "/auth/refresh",
		bearer: refreshToken,
	})
	if err != nil {
		c.metrics.RecordBackendCall(OpRefreshToken, metrics.OutcomeTransport)
		return nil, err
	}

	var res model.RefreshResponse
	if err := json.Unmarshal(body, &res); err != nil {
		c.logger.Error("failed to decode refresh response",
			slog.Int("http_status", status),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordBackendCall(OpRefreshToken, metrics.OutcomeTransport)
		return nil, &TransportError{Op: OpRefreshToken, Status: status, Err: fmt.Errorf("invalid refresh response: %w", err)}
	}
	res.Status = status
	if status >= http.StatusBadRequest || res.AccessToken == "" {
		res.Ok = 0
	}

	if res.Ok == 1 {
		c.metrics.RecordBackendCall(OpRefreshToken, metrics.OutcomeSuccess)
	} else {
		c.metrics.RecordBackendCall(OpRefreshToken, metrics.OutcomeRejected)
	}
	return &res, nil
}
