package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/client/client"
	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	"github.com/dmitrijs2005/healthkeeper/internal/client/services"
	"github.com/dmitrijs2005/healthkeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Session interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context, skipNavigation bool)
	State() services.SessionState
}

type Syncer interface {
	SyncPendingReports(ctx context.Context) (int, error)
	SyncAll(ctx context.Context) (pushed, pulled int, err error)
	ReloadCache(ctx context.Context) (int, error)
}

type Cache interface {
	EnqueueOutbox(ctx context.Context, payload any) (*models.OutboxEntry, error)
	ReadCache(ctx context.Context) ([]models.HealthReport, error)
	ListPendingOutbox(ctx context.Context) ([]models.OutboxEntry, error)
}

type Connectivity interface {
	Online() bool
}

// Deps are the components the terminal client drives.
type Deps struct {
	Session Session
	Sync    Syncer
	Cache   Cache
	Conn    Connectivity
	Router  *Router
	Log     logging.Logger
}

type App struct {
	session Session
	sync    Syncer
	cache   Cache
	conn    Connectivity
	router  *Router
	log     logging.Logger

	// fetches holds the network-bound command in flight; logout cancels it.
	fetches client.RequestScope

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
}

func NewApp(d Deps, in io.Reader, out io.Writer) *App {
	return &App{
		session: d.Session,
		sync:    d.Sync,
		cache:   d.Cache,
		conn:    d.Conn,
		router:  d.Router,
		log:     d.Log,
		reader:  bufio.NewReader(in),
		out:     out,
		now:     time.Now,
	}
}

// Run starts the REPL and blocks until the user exits, input ends or ctx
// is done.
func (a *App) Run(ctx context.Context) {
	a.println("Welcome to healthkeeper (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) mode() Mode {
	if a.conn.Online() {
		return ModeOnline
	}
	return ModeOffline
}

func (a *App) user() *models.UserProfile {
	st := a.session.State()
	if !st.IsAuthenticated {
		return nil
	}
	return st.User
}

func (a *App) isLoggedIn() bool {
	return a.user() != nil
}

func (a *App) getStatus() string {
	s := string(a.mode())
	if u := a.user(); u != nil {
		s = u.Email + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
