package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	"github.com/dmitrijs2005/healthkeeper/internal/common"
)

const (
	pathLogin         = "/users/login/"
	pathTokenRefresh  = "/users/token/refresh/"
	pathHealthReports = "/data_collection/health-reports/"
	pathWorkerReports = "/data_collection/aasha_worker_reports/"
	pathHealth        = "/health/"
)

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, &request{
		method:    http.MethodPost,
		path:      pathLogin,
		body:      LoginRequest{Email: email, Password: password},
		out:       &resp,
		noRefresh: true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshToken exchanges a refresh token for a new access token. It is sent
// without the bearer header and never triggers a refresh itself.
func (c *HTTPClient) RefreshToken(ctx context.Context, refresh string) (*RefreshResponse, error) {
	var resp RefreshResponse
	err := c.do(ctx, &request{
		method:    http.MethodPost,
		path:      pathTokenRefresh,
		body:      RefreshRequest{Refresh: refresh},
		out:       &resp,
		timeout:   c.opts.RefreshTimeout,
		noRefresh: true,
		noAuth:    true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateReport posts a serialized report. The idempotency key is sent with
// every attempt for the same outbox entry.
func (c *HTTPClient) CreateReport(ctx context.Context, payload []byte, idempotencyKey string) (*models.HealthReport, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: report is not valid JSON", common.ErrIncorrectPayload)
	}

	h := http.Header{}
	if idempotencyKey != "" {
		h.Set(common.IdempotencyKeyHeaderName, idempotencyKey)
	}

	var created models.HealthReport
	err := c.do(ctx, &request{
		method: http.MethodPost,
		path:   pathHealthReports,
		body:   json.RawMessage(payload),
		header: h,
		out:    &created,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListWorkerReports returns every report filed by the given worker.
func (c *HTTPClient) ListWorkerReports(ctx context.Context, userID int64) ([]models.HealthReport, error) {
	var raw json.RawMessage
	err := c.do(ctx, &request{
		method: http.MethodGet,
		path:   pathWorkerReports,
		query: url.Values{
			"asha_worker_id": {strconv.FormatInt(userID, 10)},
			"reportPeriod":   {"total"},
		},
		out: &raw,
	})
	if err != nil {
		return nil, err
	}
	return decodeReportList(raw)
}

// decodeReportList accepts a bare array or an object wrapping it under
// "reports" or "results".
func decodeReportList(raw json.RawMessage) ([]models.HealthReport, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []models.HealthReport{}, nil
	}

	if raw[0] == '[' {
		var list []models.HealthReport
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("failed to decode reports: %w", err)
		}
		return list, nil
	}

	var wrapped struct {
		Reports []models.HealthReport `json:"reports"`
		Results []models.HealthReport `json:"results"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	if wrapped.Reports != nil {
		return wrapped.Reports, nil
	}
	if wrapped.Results != nil {
		return wrapped.Results, nil
	}
	return []models.HealthReport{}, nil
}

// HealthCheck reports whether the API answers 200 on its health endpoint.
// Failures are not counted as request errors.
func (c *HTTPClient) HealthCheck(ctx context.Context) bool {
	resp, err := c.send(ctx, &request{
		method:  http.MethodGet,
		path:    pathHealth,
		timeout: c.opts.HealthTimeout,
	}, nil, "")
	if err != nil {
		c.log.Debug(ctx, "health check failed", "error", err)
		return false
	}
	return resp.status == http.StatusOK
}
