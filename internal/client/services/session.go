package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/client/client"
	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	"github.com/dmitrijs2005/healthkeeper/internal/logging"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
)

var (
	ErrLoginInProgress  = errors.New("login already in progress")
	ErrLogoutInProgress = errors.New("logout in progress")
	ErrClosed           = errors.New("session closed")
)

// LoginError is a failed login with the message to show.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

type LoginAPI interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
}

// CredentialStore is the persisted side of the session.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	SetAccessToken(ctx context.Context, token string) error
	SetRefreshToken(ctx context.Context, token string) error
	CurrentUser(ctx context.Context) (*models.UserProfile, bool)
	SetCurrentUser(ctx context.Context, u *models.UserProfile) error
	ClearAll(ctx context.Context)
}

// SessionState is a snapshot of the authentication state.
type SessionState struct {
	User            *models.UserProfile
	IsAuthenticated bool
	IsLoading       bool
}

type SessionOptions struct {
	// LogoutSettleDelay keeps the logout guard held after a logout so that a
	// late state update cannot resurrect the session.
	LogoutSettleDelay time.Duration

	// RedirectDelay lets pending UI interactions settle before the
	// role redirect navigates.
	RedirectDelay time.Duration

	// RedirectDebounce keeps the redirect guard held after a redirect.
	RedirectDebounce time.Duration

	NavigationAttempts int
	NavigationBackoff  time.Duration

	Now func() time.Time
}

func (o *SessionOptions) setDefaults() {
	if o.LogoutSettleDelay <= 0 {
		o.LogoutSettleDelay = 100 * time.Millisecond
	}
	if o.RedirectDelay <= 0 {
		o.RedirectDelay = 100 * time.Millisecond
	}
	if o.RedirectDebounce <= 0 {
		o.RedirectDebounce = 100 * time.Millisecond
	}
	if o.NavigationAttempts <= 0 {
		o.NavigationAttempts = 3
	}
	if o.NavigationBackoff <= 0 {
		o.NavigationBackoff = 100 * time.Millisecond
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type SessionService struct {
	api   LoginAPI
	store CredentialStore
	nav   Navigator
	log   logging.Logger
	opts  SessionOptions

	// lifetime is cancelled by Close; delayed continuations check it.
	lifetime context.Context
	cancel   context.CancelFunc

	mu            sync.Mutex
	user          *models.UserProfile
	authenticated bool
	loading       bool
	// epoch changes whenever the in-memory session is cleared, so a login
	// that started before a logout can tell it must not commit.
	epoch       uint64
	subscribers []func(SessionState)

	loginSem    *semaphore.Weighted
	logoutSem   *semaphore.Weighted
	loggingOut  atomic.Bool
	redirecting atomic.Bool
}

func NewSessionService(api LoginAPI, store CredentialStore, nav Navigator, log logging.Logger, opts SessionOptions) *SessionService {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionService{
		api:       api,
		store:     store,
		nav:       nav,
		log:       log,
		opts:      opts,
		lifetime:  ctx,
		cancel:    cancel,
		loading:   true,
		loginSem:  semaphore.NewWeighted(1),
		logoutSem: semaphore.NewWeighted(1),
	}
}

// Close tears the service down. Pending delayed work becomes a no-op and
// further logins fail with ErrClosed.
func (s *SessionService) Close() {
	s.cancel()
}

func (s *SessionService) closed() bool {
	return s.lifetime.Err() != nil
}

// bound returns ctx cancelled also when the service is closed.
func (s *SessionService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// after runs fn after d unless the service was closed meanwhile.
func (s *SessionService) after(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		if s.closed() {
			return
		}
		fn()
	})
}

// Subscribe registers fn to receive every new state.
func (s *SessionService) Subscribe(fn func(SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *SessionService) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *SessionService) stateLocked() SessionState {
	return SessionState{User: s.user, IsAuthenticated: s.authenticated, IsLoading: s.loading}
}

// CurrentUser returns the signed-in user, or nil.
func (s *SessionService) CurrentUser() *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return nil
	}
	return s.user
}

// update applies fn under the state lock and notifies subscribers if fn
// reports a change.
func (s *SessionService) update(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	st := s.stateLocked()
	subs := append([]func(SessionState){}, s.subscribers...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(st)
	}
}

// LoadSession restores the cached user without a network call. Loading is
// always cleared when it returns.
func (s *SessionService) LoadSession(ctx context.Context) {
	u, ok := s.store.CurrentUser(ctx)
	if s.closed() {
		return
	}

	s.update(func() bool {
		if ok {
			s.user = u
			s.authenticated = true
		}
		s.loading = false
		return true
	})

	if ok {
		s.log.Info(ctx, "session restored", "user_id", u.UserID, "role", u.Role)
		s.maybeRedirect(ctx)
	}
}

// Login authenticates against the API and persists the session. A failure
// leaves the state untouched.
func (s *SessionService) Login(ctx context.Context, email, password string) error {
	if s.closed() {
		return ErrClosed
	}
	if !s.loginSem.TryAcquire(1) {
		return ErrLoginInProgress
	}
	defer s.loginSem.Release(1)

	if s.logoutActive() {
		return ErrLogoutInProgress
	}

	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	ctx, cancel := s.bound(ctx)
	defer cancel()

	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		if s.closed() {
			return ErrClosed
		}
		if client.IsCanceled(err) {
			return err
		}
		s.log.Warn(ctx, "login failed", "error", err)
		return &LoginError{Message: loginMessage(err), Err: err}
	}
	if s.closed() {
		return ErrClosed
	}

	user := resp.User
	if err := s.persist(ctx, resp); err != nil {
		s.log.Error(ctx, "failed to persist session", "error", err)
		s.store.ClearAll(ctx)
		return &LoginError{Message: "login failed", Err: err}
	}

	committed := false
	s.update(func() bool {
		if s.epoch != epoch || s.closed() || s.logoutActive() {
			return false
		}
		s.user = &user
		s.authenticated = true
		s.loading = false
		committed = true
		return true
	})

	if !committed {
		// a logout ran meanwhile and may already have cleared the store
		s.store.ClearAll(ctx)
		if s.closed() {
			return ErrClosed
		}
		return ErrLogoutInProgress
	}

	s.log.Info(ctx, "logged in", "user_id", user.UserID, "role", user.Role)
	s.maybeRedirect(ctx)
	return nil
}

func (s *SessionService) persist(ctx context.Context, resp *client.LoginResponse) error {
	if err := s.store.SetCurrentUser(ctx, &resp.User); err != nil {
		return err
	}
	if resp.Access != "" {
		if err := s.store.SetAccessToken(ctx, resp.Access); err != nil {
			return err
		}
	}
	if resp.Refresh != "" {
		if err := s.store.SetRefreshToken(ctx, resp.Refresh); err != nil {
			return err
		}
	}
	return nil
}

func loginMessage(err error) string {
	if msg, ok := client.ServerDetail(err); ok {
		return msg
	}
	return "login failed"
}

func (s *SessionService) logoutActive() bool {
	return s.loggingOut.Load()
}

// Logout ends the session. In-memory state is cleared first, then the
// persisted credentials, then the landing page is shown unless
// skipNavigation is set. Calls made while a logout is in progress are
// ignored.
func (s *SessionService) Logout(ctx context.Context, skipNavigation bool) {
	if !s.logoutSem.TryAcquire(1) {
		s.log.Debug(ctx, "logout already in progress")
		return
	}
	s.loggingOut.Store(true)
	defer time.AfterFunc(s.opts.LogoutSettleDelay, func() {
		s.loggingOut.Store(false)
		s.logoutSem.Release(1)
	})

	s.reset()
	s.store.ClearAll(ctx)
	s.log.Info(ctx, "logged out")

	if skipNavigation || s.closed() {
		return
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.navigate(ctx, RouteLanding); err != nil {
		s.log.Warn(ctx, "navigation after logout failed", "error", err)
	}
}

func (s *SessionService) reset() {
	s.update(func() bool {
		s.user = nil
		s.authenticated = false
		s.loading = false
		s.epoch++
		return true
	})
}

// ValidateSession drops a session whose access token is missing, malformed,
// or expired with no refresh token to renew it. Navigation is left alone.
func (s *SessionService) ValidateSession(ctx context.Context) {
	access, ok := s.store.AccessToken(ctx)
	if !ok || access == "" {
		s.log.Info(ctx, "no access token, ending session")
		s.Logout(ctx, true)
		return
	}

	exp, err := client.TokenExpiry(access)
	if err != nil {
		s.log.Warn(ctx, "stored access token is invalid, ending session", "error", err)
		s.Logout(ctx, true)
		return
	}

	if !s.opts.Now().Before(exp) {
		if refresh, ok := s.store.RefreshToken(ctx); !ok || refresh == "" {
			s.log.Info(ctx, "access token expired and cannot be refreshed, ending session")
			s.Logout(ctx, true)
		}
	}
}

// HandleSessionExpired is run by the HTTP client after a failed token
// refresh wiped the credentials.
func (s *SessionService) HandleSessionExpired(ctx context.Context) {
	if s.closed() {
		return
	}
	s.log.Warn(ctx, "session expired")
	s.reset()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.navigate(ctx, RouteLanding); err != nil {
		s.log.Warn(ctx, "navigation after session expiry failed", "error", err)
	}
}

// NotifyRouteChanged re-evaluates the redirect after the navigation surface
// moved on its own.
func (s *SessionService) NotifyRouteChanged(ctx context.Context) {
	s.maybeRedirect(ctx)
}

// maybeRedirect sends an authenticated user away from a signed-out surface
// to the home of their role, once UI interactions settled.
func (s *SessionService) maybeRedirect(ctx context.Context) {
	if s.closed() || s.logoutActive() {
		return
	}

	st := s.State()
	if st.IsLoading || !st.IsAuthenticated || st.User == nil {
		return
	}
	if !s.nav.Current().UnauthenticatedOnly() {
		return
	}
	if !s.redirecting.CompareAndSwap(false, true) {
		return
	}

	ctx = context.WithoutCancel(ctx)
	time.AfterFunc(s.opts.RedirectDelay, func() {
		defer time.AfterFunc(s.opts.RedirectDebounce, func() { s.redirecting.Store(false) })

		if s.closed() || s.logoutActive() {
			return
		}
		// the session may have changed while waiting
		st := s.State()
		if !st.IsAuthenticated || st.User == nil {
			return
		}

		target := RouteForRole(st.User.Role)
		ctx, cancel := s.bound(ctx)
		defer cancel()
		if err := s.navigate(ctx, target); err != nil {
			s.log.Warn(ctx, "redirect failed", "route", target, "error", err)
		}
	})
}

// navigate calls the navigator with linearly growing pauses between
// attempts.
func (s *SessionService) navigate(ctx context.Context, r Route) error {
	var n int64
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * s.opts.NavigationBackoff, false
	})

	return retry.Do(ctx, retry.WithMaxRetries(uint64(s.opts.NavigationAttempts-1), backoff), func(ctx context.Context) error {
		if err := s.nav.Navigate(ctx, r); err != nil {
			s.log.Debug(ctx, "navigation attempt failed", "route", r, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
