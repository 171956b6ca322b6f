package services

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/healthkeeper/internal/client/client"
	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
)

// ---- credential store ----

type memStore struct {
	mu     sync.Mutex
	values map[string]string
	user   *models.UserProfile
	setErr error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) get(k string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[k]
	return v, ok
}

func (m *memStore) set(k, v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[k] = v
	return nil
}

func (m *memStore) AccessToken(context.Context) (string, bool)  { return m.get("access") }
func (m *memStore) RefreshToken(context.Context) (string, bool) { return m.get("refresh") }
func (m *memStore) SetAccessToken(_ context.Context, t string) error {
	return m.set("access", t)
}
func (m *memStore) SetRefreshToken(_ context.Context, t string) error {
	return m.set("refresh", t)
}

func (m *memStore) CurrentUser(context.Context) (*models.UserProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, false
	}
	u := *m.user
	return &u, true
}

func (m *memStore) SetCurrentUser(_ context.Context, u *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	c := *u
	m.user = &c
	return nil
}

func (m *memStore) ClearAll(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = map[string]string{}
	m.user = nil
}

// ---- login API ----

type fakeLoginAPI struct {
	// gate, when set, blocks Login until closed.
	gate    chan struct{}
	entered chan struct{}
	resp    *client.LoginResponse
	err     error
}

func (f *fakeLoginAPI) Login(ctx context.Context, email, password string) (*client.LoginResponse, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	r := *f.resp
	return &r, nil
}

func ashaLogin() *client.LoginResponse {
	return &client.LoginResponse{
		User: models.UserProfile{
			UserID: 7, Name: "Asha", Email: "a@x.com", Role: models.RoleAshaWorker,
			State: "Assam", District: "Jorhat", Village: "Majuli",
		},
		Access:  "A",
		Refresh: "R",
	}
}

// ---- navigator ----

type fakeNav struct {
	mu       sync.Mutex
	current  Route
	calls    []Route
	failures int
	block    chan struct{}
	routes   chan Route
}

func newFakeNav(current Route) *fakeNav {
	return &fakeNav{current: current, routes: make(chan Route, 32)}
}

var errNavNotReady = errors.New("navigator not ready")

func (n *fakeNav) Navigate(ctx context.Context, r Route) error {
	n.mu.Lock()
	n.calls = append(n.calls, r)
	block := n.block
	fail := n.failures > 0
	if fail {
		n.failures--
	}
	n.mu.Unlock()

	if block != nil {
		<-block
	}
	if fail {
		return errNavNotReady
	}

	n.mu.Lock()
	n.current = r
	n.mu.Unlock()
	n.routes <- r
	return nil
}

func (n *fakeNav) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *fakeNav) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}
