package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/healthkeeper/internal/common"
	"github.com/dmitrijs2005/healthkeeper/internal/logging"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRequestTimeout      = 15 * time.Second
	DefaultRefreshTimeout      = 10 * time.Second
	DefaultHealthTimeout       = 5 * time.Second
	DefaultSessionExpiredDelay = 100 * time.Millisecond
)

type Options struct {
	BaseURL string

	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	HealthTimeout  time.Duration

	// SessionExpiredDelay postpones the session-expired hook after a failed
	// refresh.
	SessionExpiredDelay time.Duration

	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

type HTTPClient struct {
	baseURL string
	hc      *http.Client
	tokens  TokenStore
	log     logging.Logger
	metrics *metrics.Metrics
	opts    Options

	refreshGroup singleflight.Group

	mu        sync.Mutex
	onExpired func()
	// refreshGen counts finished refreshes and lastRefresh holds the outcome
	// of the latest one. A 401 for a request sent before a refresh finished
	// reuses that outcome instead of starting another refresh.
	refreshGen  uint64
	lastRefresh refreshResult
}

type refreshResult struct {
	token string
	err   error
}

func NewHTTPClient(opts Options, tokens TokenStore, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", opts.BaseURL)
	}

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	if opts.SessionExpiredDelay <= 0 {
		opts.SessionExpiredDelay = DefaultSessionExpiredDelay
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		hc:      opts.HTTPClient,
		tokens:  tokens,
		log:     log,
		metrics: opts.Metrics,
		opts:    opts,
	}, nil
}

// OnSessionExpired registers the hook run after a refresh failure wiped the
// credentials.
func (c *HTTPClient) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	header  http.Header
	out     any
	timeout time.Duration

	// noRefresh disables refresh-on-401, for the auth endpoints themselves.
	noRefresh bool
	noAuth    bool
}

type response struct {
	status int
	body   []byte
}

func (c *HTTPClient) do(ctx context.Context, r *request) error {
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = b
	}

	gen := c.refreshGeneration()

	var token string
	if !r.noAuth {
		token, _ = c.tokens.AccessToken(ctx)
	}

	resp, err := c.send(ctx, r, payload, token)
	if err != nil {
		return c.transportError(ctx, err)
	}

	if resp.status == http.StatusUnauthorized && !r.noRefresh {
		token, err = c.tokenAfterUnauthorized(ctx, token, gen)
		if err != nil {
			return err
		}
		c.log.Debug(ctx, "retrying with refreshed token", "path", r.path)

		resp, err = c.send(ctx, r, payload, token)
		if err != nil {
			return c.transportError(ctx, err)
		}
	}

	if resp.status < 200 || resp.status > 299 {
		apiErr := statusError(resp.status, resp.body)
		c.metrics.RequestErrors.WithLabelValues(errorClass(apiErr.Err)).Inc()
		c.log.Warn(ctx, "api request failed", "method", r.method, "path", r.path, "status", resp.status)
		return apiErr
	}

	if r.out != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, r.out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, r *request, payload []byte, token string) (*response, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.opts.RequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug(ctx, "api request", "method", r.method, "path", r.path, "status", resp.StatusCode, "elapsed", time.Since(start))

	return &response{status: resp.StatusCode, body: b}, nil
}

// transportError maps a failure without a response. Cancellation by the
// caller is returned as is.
func (c *HTTPClient) transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled: %w", context.Canceled)
	}

	apiErr := &APIError{Message: "connection error", Err: ErrConnection, Cause: err}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		apiErr.Message = "request timeout"
		apiErr.Err = ErrTimeout
	}

	c.metrics.RequestErrors.WithLabelValues(errorClass(apiErr.Err)).Inc()
	c.log.Warn(ctx, "api request failed", "error", err)
	return apiErr
}

func (c *HTTPClient) refreshGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshGen
}

// tokenAfterUnauthorized returns the token to retry with for a request that
// was sent with rejected while the refresh generation was gen. A refresh is
// started only if none finished since then and the stored token is still the
// rejected one.
func (c *HTTPClient) tokenAfterUnauthorized(ctx context.Context, rejected string, gen uint64) (string, error) {
	cur, ok := c.tokens.AccessToken(ctx)
	if !ok {
		cur = ""
	}

	c.mu.Lock()
	if c.refreshGen != gen {
		last := c.lastRefresh
		c.mu.Unlock()
		return last.token, last.err
	}
	switch {
	case cur != "" && cur != rejected:
		c.mu.Unlock()
		return cur, nil
	case cur == "" && rejected != "":
		// credentials were cleared after the request went out
		c.mu.Unlock()
		return "", sessionExpiredError(ErrUnauthorized)
	}
	// DoChan does not block, so registering under mu is safe. doRefresh bumps
	// the generation before the key is released.
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx))
	})
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("request canceled: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *HTTPClient) finishRefresh(token string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshGen++
	c.lastRefresh = refreshResult{token: token, err: err}
}

func sessionExpiredError(cause error) *APIError {
	return &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "session expired",
		Err:        ErrSessionExpired,
		Cause:      cause,
	}
}

func (c *HTTPClient) doRefresh(ctx context.Context) (string, error) {
	c.metrics.RefreshAttempts.Inc()

	access, err := c.exchangeRefreshToken(ctx)
	if err != nil {
		c.metrics.RefreshFailures.Inc()
		c.log.Warn(ctx, "token refresh failed, ending session", "error", err)
		c.tokens.ClearAll(ctx)
		expired := sessionExpiredError(err)
		c.finishRefresh("", expired)
		c.scheduleSessionExpired()
		return "", expired
	}

	if err := c.tokens.SetAccessToken(ctx, access); err != nil {
		c.log.Warn(ctx, "failed to persist refreshed access token", "error", err)
	}
	c.finishRefresh(access, nil)
	c.log.Info(ctx, "access token refreshed")
	return access, nil
}

func (c *HTTPClient) exchangeRefreshToken(ctx context.Context) (string, error) {
	refresh, ok := c.tokens.RefreshToken(ctx)
	if !ok || refresh == "" {
		return "", common.ErrNoRefreshToken
	}

	resp, err := c.RefreshToken(ctx, refresh)
	if err != nil {
		return "", err
	}
	if resp.Access == "" {
		return "", fmt.Errorf("%w: no access token in refresh response", common.ErrInvalidToken)
	}
	return resp.Access, nil
}

func (c *HTTPClient) scheduleSessionExpired() {
	c.mu.Lock()
	fn := c.onExpired
	c.mu.Unlock()

	if fn != nil {
		time.AfterFunc(c.opts.SessionExpiredDelay, fn)
	}
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, ErrConnection):
		return metrics.ClassConnection
	case errors.Is(err, ErrTimeout):
		return metrics.ClassTimeout
	case errors.Is(err, ErrServer):
		return metrics.ClassServer
	case errors.Is(err, ErrUnauthorized):
		return metrics.ClassAuth
	default:
		return metrics.ClassClient
	}
}
