package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/client/cache"
	"github.com/dmitrijs2005/healthkeeper/internal/client/client"
	"github.com/dmitrijs2005/healthkeeper/internal/client/config"
	"github.com/dmitrijs2005/healthkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/healthkeeper/internal/client/metrics"
	credrepo "github.com/dmitrijs2005/healthkeeper/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/healthkeeper/internal/client/services"
	"github.com/dmitrijs2005/healthkeeper/internal/client/store"
	"github.com/dmitrijs2005/healthkeeper/internal/filex"
	"github.com/dmitrijs2005/healthkeeper/internal/logging"
	"github.com/dmitrijs2005/healthkeeper/internal/netx"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Client is a fully wired terminal client.
type Client struct {
	App *App

	cfg      *config.Config
	log      logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	session  *services.SessionService
	sync     *services.SyncService
	monitor  *netx.Monitor
}

// Start opens the local database and wires every component of the client.
func Start(ctx context.Context, cfg *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*Client, error) {
	if _, err := filex.EnsureParentDir(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("error preparing database directory: %w", err)
	}
	db, err := store.InitDatabase(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	creds := credentials.New(credrepo.NewSQLiteRepository(db), []byte(cfg.DeviceSecret), log.With("component", "credentials"))

	api, err := client.NewHTTPClient(client.Options{
		BaseURL:        cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		RefreshTimeout: cfg.RefreshTimeout,
		HealthTimeout:  cfg.HealthTimeout,
		Metrics:        m,
	}, creds, log.With("component", "http"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	router := NewRouter(out)
	session := services.NewSessionService(api, creds, router, log.With("component", "session"), services.SessionOptions{
		LogoutSettleDelay: cfg.LogoutSettleDelay,
		RedirectDelay:     cfg.RedirectDelay,
	})
	api.OnSessionExpired(func() {
		session.HandleSessionExpired(context.Background())
	})
	router.OnChange(func(ctx context.Context, _ services.Route) {
		session.NotifyRouteChanged(ctx)
	})
	session.Subscribe(trackSignedIn(m.SignedIn))

	lc := cache.New(db)
	monitor := netx.NewMonitor(api, cfg.OnlineCheckInterval, cfg.HealthTimeout, log.With("component", "netx"), m.Online)
	syncer := services.NewSyncService(api, lc, session, monitor, log.With("component", "sync"), m)

	app := NewApp(Deps{
		Session: session,
		Sync:    syncer,
		Cache:   lc,
		Conn:    monitor,
		Router:  router,
		Log:     log,
	}, in, out)

	return &Client{
		App:      app,
		cfg:      cfg,
		log:      log,
		db:       db,
		registry: registry,
		metrics:  m,
		session:  session,
		sync:     syncer,
		monitor:  monitor,
	}, nil
}

// Run restores the session, starts the background workers and blocks in
// the REPL. Workers stop when the REPL returns.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.session.LoadSession(ctx)
	if c.session.State().IsAuthenticated {
		c.session.ValidateSession(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)

	c.monitor.Start(gctx)
	g.Go(func() error {
		err := c.sync.Run(gctx, c.monitor.Events())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if c.cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: c.cfg.MetricsAddr, Handler: metrics.Handler(c.registry), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			c.log.Info(gctx, "serving metrics", "addr", c.cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	c.App.Run(gctx)

	cancel()
	if err := c.monitor.Stop(); err != nil {
		c.log.Warn(ctx, "connectivity monitor stopped with error", "error", err)
	}
	return g.Wait()
}

// trackSignedIn mirrors the session state into g.
func trackSignedIn(g prometheus.Gauge) func(services.SessionState) {
	return func(st services.SessionState) {
		if st.IsAuthenticated {
			g.Set(1)
			return
		}
		g.Set(0)
	}
}

// Close releases the session timers and the database.
func (c *Client) Close() error {
	c.session.Close()
	return c.db.Close()
}
