package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	"github.com/dmitrijs2005/healthkeeper/internal/client/services"
	"github.com/dmitrijs2005/healthkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	state    services.SessionState
	loginErr error
	email    string
	password string
	logouts  int
}

func (f *fakeSession) Login(ctx context.Context, email, password string) error {
	f.email, f.password = email, password
	if f.loginErr != nil {
		return f.loginErr
	}
	f.state = services.SessionState{User: worker(), IsAuthenticated: true}
	return nil
}

func (f *fakeSession) Logout(ctx context.Context, skipNavigation bool) {
	f.logouts++
	f.state = services.SessionState{}
}

func (f *fakeSession) State() services.SessionState { return f.state }

type fakeSyncer struct {
	pushed, pulled int
	err            error
	pushes         int
	onReload       func(ctx context.Context)
}

func (f *fakeSyncer) SyncPendingReports(ctx context.Context) (int, error) {
	f.pushes++
	return f.pushed, f.err
}

func (f *fakeSyncer) SyncAll(ctx context.Context) (int, int, error) {
	return f.pushed, f.pulled, f.err
}

func (f *fakeSyncer) ReloadCache(ctx context.Context) (int, error) {
	if f.onReload != nil {
		f.onReload(ctx)
	}
	return f.pulled, f.err
}

type fakeCache struct {
	queued  []any
	cached  []models.HealthReport
	pending []models.OutboxEntry
	err     error
}

func (f *fakeCache) EnqueueOutbox(ctx context.Context, payload any) (*models.OutboxEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queued = append(f.queued, payload)
	b, _ := json.Marshal(payload)
	e := models.OutboxEntry{LocalID: int64(len(f.queued)), Payload: b, CreatedAt: time.Now()}
	f.pending = append(f.pending, e)
	return &e, nil
}

func (f *fakeCache) ReadCache(ctx context.Context) ([]models.HealthReport, error) {
	return f.cached, f.err
}

func (f *fakeCache) ListPendingOutbox(ctx context.Context) ([]models.OutboxEntry, error) {
	return f.pending, f.err
}

type staticConn bool

func (c staticConn) Online() bool { return bool(c) }

func worker() *models.UserProfile {
	return &models.UserProfile{UserID: 7, Name: "Asha", Email: "asha@example.org", Role: models.RoleAshaWorker,
		State: "Assam", District: "Jorhat", Village: "Majuli"}
}

type harness struct {
	app     *App
	out     *bytes.Buffer
	session *fakeSession
	sync    *fakeSyncer
	cache   *fakeCache
}

func newHarness(t *testing.T, input string, online bool) *harness {
	t.Helper()
	stubTerminal(t, false, nil)

	h := &harness{out: &bytes.Buffer{}, session: &fakeSession{}, sync: &fakeSyncer{}, cache: &fakeCache{}}
	h.app = NewApp(Deps{
		Session: h.session,
		Sync:    h.sync,
		Cache:   h.cache,
		Conn:    staticConn(online),
		Router:  NewRouter(&bytes.Buffer{}),
		Log:     logging.NewNop(),
	}, strings.NewReader(input), h.out)
	h.app.now = func() time.Time { return time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

func (h *harness) login() {
	h.session.state = services.SessionState{User: worker(), IsAuthenticated: true}
}

func TestLogin(t *testing.T) {
	h := newHarness(t, "asha@example.org\npw\n", true)

	require.NoError(t, h.app.Login(context.Background()))
	assert.Equal(t, "asha@example.org", h.session.email)
	assert.Equal(t, "pw", h.session.password)
	assert.Contains(t, h.out.String(), "Logged in as Asha <asha@example.org> (asha_worker)")
	assert.True(t, h.app.isLoggedIn())
}

func TestLogin_ShowsServerMessage(t *testing.T) {
	h := newHarness(t, "a@b\nwrong\n", true)
	h.session.loginErr = &services.LoginError{Message: "Invalid credentials", Err: errors.New("401")}

	require.Error(t, h.app.Login(context.Background()))
	assert.Contains(t, h.out.String(), "Login unsuccessful: Invalid credentials")
	assert.False(t, h.app.isLoggedIn())
}

func TestLogin_AlreadyLoggedIn(t *testing.T) {
	h := newHarness(t, "", true)
	h.login()

	require.NoError(t, h.app.Login(context.Background()))
	assert.Empty(t, h.session.email)
}

func TestLogout(t *testing.T) {
	h := newHarness(t, "", true)
	require.NoError(t, h.app.Logout(context.Background()))
	assert.Zero(t, h.session.logouts)

	h.login()
	require.NoError(t, h.app.Logout(context.Background()))
	assert.Equal(t, 1, h.session.logouts)
	assert.False(t, h.app.isLoggedIn())
}

const reportInput = "Ravi\n9\nM\ndiarrhoea\n\nwell\nORS\n\n"

func TestSubmit_Offline(t *testing.T) {
	h := newHarness(t, reportInput, false)
	h.login()

	require.NoError(t, h.app.Submit(context.Background()))
	require.Len(t, h.cache.queued, 1)
	r := h.cache.queued[0].(models.Report)
	assert.Equal(t, models.Report{
		PatientName: "Ravi", Age: 9, Gender: "M", Symptoms: "diarrhoea", Severity: "mild",
		WaterSource: "well", TreatmentGiven: "ORS", State: "Assam", District: "Jorhat", Village: "Majuli",
		AshaWorkerID: 7, DateOfReporting: "2026-06-01",
	}, r)
	assert.Zero(t, h.sync.pushes)
	assert.Contains(t, h.out.String(), "Saved offline")
}

func TestSubmit_OnlinePushesRightAway(t *testing.T) {
	h := newHarness(t, reportInput, true)
	h.login()
	h.sync.pushed = 1

	require.NoError(t, h.app.Submit(context.Background()))
	assert.Equal(t, 1, h.sync.pushes)
	assert.Contains(t, h.out.String(), "Submitted (1 sent)")
}

func TestSubmit_PushFailureKeepsReport(t *testing.T) {
	h := newHarness(t, reportInput, true)
	h.login()
	h.sync.err = errors.New("server error")

	require.NoError(t, h.app.Submit(context.Background()))
	assert.Len(t, h.cache.queued, 1)
	assert.Contains(t, h.out.String(), "sending failed: server error")
}

func TestSubmit_Rejections(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		h := newHarness(t, reportInput, true)
		require.ErrorIs(t, h.app.Submit(context.Background()), errNotLoggedIn)
		assert.Empty(t, h.cache.queued)
	})

	t.Run("bad age", func(t *testing.T) {
		h := newHarness(t, "Ravi\nnine\n", true)
		h.login()
		require.Error(t, h.app.Submit(context.Background()))
		assert.Empty(t, h.cache.queued)
	})

	t.Run("missing name", func(t *testing.T) {
		h := newHarness(t, "\n9\nM\nfever\n\nwell\n\n\n", true)
		h.login()
		require.Error(t, h.app.Submit(context.Background()))
		assert.Empty(t, h.cache.queued)
		assert.Contains(t, h.out.String(), "patient_name")
	})
}

func TestReportsAndPending(t *testing.T) {
	h := newHarness(t, "", true)
	ctx := context.Background()

	require.NoError(t, h.app.Reports(ctx))
	require.NoError(t, h.app.Pending(ctx))
	assert.Contains(t, h.out.String(), "No reports cached")
	assert.Contains(t, h.out.String(), "Nothing pending")

	h.out.Reset()
	h.cache.cached = []models.HealthReport{{ID: 11, Report: models.Report{PatientName: "Mina", Age: 30, DateOfReporting: "2026-05-30", Village: "Majuli"}}}
	_, err := h.cache.EnqueueOutbox(ctx, models.Report{PatientName: "Ravi"})
	require.NoError(t, err)

	require.NoError(t, h.app.Reports(ctx))
	require.NoError(t, h.app.Pending(ctx))
	s := h.out.String()
	assert.Contains(t, s, "PATIENT")
	assert.Contains(t, s, "Mina")
	assert.Contains(t, s, "Ravi")
}

func TestStatus(t *testing.T) {
	h := newHarness(t, "", false)
	h.login()

	require.NoError(t, h.app.Status(context.Background()))
	s := h.out.String()
	assert.Contains(t, s, "User:    Asha")
	assert.Contains(t, s, "Mode:    offline")
	assert.Contains(t, s, "Screen:  welcome")
	assert.Contains(t, s, "Pending: 0")
	assert.Equal(t, "(asha@example.org offline)", h.app.getStatus())
}

func TestSyncAndReload(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		h := newHarness(t, "", true)
		h.sync.pushed, h.sync.pulled = 2, 3
		require.NoError(t, h.app.Sync(ctx))
		require.NoError(t, h.app.Reload(ctx))
		assert.Contains(t, h.out.String(), "Sync finished (2 sent, 3 received)")
		assert.Contains(t, h.out.String(), "Cache reloaded (3 reports)")
	})

	t.Run("skipped", func(t *testing.T) {
		h := newHarness(t, "", false)
		h.sync.err = services.ErrOffline
		require.NoError(t, h.app.Sync(ctx))
		require.NoError(t, h.app.Reload(ctx))
		assert.Contains(t, h.out.String(), "Sync skipped: device is offline")
		assert.Contains(t, h.out.String(), "Reload skipped")
	})

	t.Run("failed", func(t *testing.T) {
		h := newHarness(t, "", true)
		h.sync.pushed = 1
		h.sync.err = errors.New("boom")
		require.Error(t, h.app.Sync(ctx))
		require.Error(t, h.app.Reload(ctx))
		assert.Contains(t, h.out.String(), "Sync finished with errors (1 sent, 0 received)")
	})
}

func TestReload_ScopeReleasedAndCancelledByLogout(t *testing.T) {
	h := newHarness(t, "", true)
	h.session.state = services.SessionState{User: worker(), IsAuthenticated: true}

	var seen context.Context
	h.sync.onReload = func(ctx context.Context) {
		seen = ctx
		require.NoError(t, ctx.Err())
		require.NoError(t, h.app.Logout(context.Background()))
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	}
	require.NoError(t, h.app.Reload(context.Background()))
	require.NotNil(t, seen)

	h.sync.onReload = func(ctx context.Context) { seen = ctx }
	require.NoError(t, h.app.Reload(context.Background()))
	assert.ErrorIs(t, seen.Err(), context.Canceled)
	assert.Equal(t, 1, h.session.logouts)
}

func TestRun(t *testing.T) {
	h := newHarness(t, "status\nexit\n", true)
	h.app.Run(context.Background())

	s := h.out.String()
	assert.Contains(t, s, "Welcome to healthkeeper")
	assert.Contains(t, s, "Mode:    online")
	assert.Contains(t, s, "Bye!")
}
