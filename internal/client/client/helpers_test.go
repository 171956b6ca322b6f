package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/healthkeeper/internal/logging"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

// memTokens is an in-memory TokenStore.
type memTokens struct {
	mu      sync.Mutex
	values  map[string]string
	cleared int
}

func newMemTokens(access, refresh string) *memTokens {
	m := &memTokens{values: map[string]string{}}
	if access != "" {
		m.values["access"] = access
	}
	if refresh != "" {
		m.values["refresh"] = refresh
	}
	return m
}

func (m *memTokens) get(k string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[k]
	return v, ok
}

func (m *memTokens) AccessToken(context.Context) (string, bool)  { return m.get("access") }
func (m *memTokens) RefreshToken(context.Context) (string, bool) { return m.get("refresh") }

func (m *memTokens) SetAccessToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values["access"] = token
	return nil
}

func (m *memTokens) ClearAll(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = map[string]string{}
	m.cleared++
}

func (m *memTokens) clearedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleared
}

func newTestClient(t *testing.T, router *mux.Router, tokens TokenStore, opts Options) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL + "/api"
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	c, err := NewHTTPClient(opts, tokens, logging.NewNop())
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// waitN blocks until n values were received on ch or the timeout elapsed.
func waitN(ch <-chan struct{}, n int, timeout time.Duration) {
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-deadline:
			return
		}
	}
}
