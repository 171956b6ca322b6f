package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/healthkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	"github.com/dmitrijs2005/healthkeeper/internal/logging"
	"golang.org/x/sync/semaphore"
)

// Reasons a sync run was skipped.
var (
	ErrOffline          = errors.New("device is offline")
	ErrSyncInProgress   = errors.New("sync already in progress")
	ErrNotAuthenticated = errors.New("no authenticated user")
)

// IsSkipped reports whether err only says that a sync run did not start.
func IsSkipped(err error) bool {
	return errors.Is(err, ErrOffline) || errors.Is(err, ErrSyncInProgress) || errors.Is(err, ErrNotAuthenticated)
}

type ReportsAPI interface {
	CreateReport(ctx context.Context, payload []byte, idempotencyKey string) (*models.HealthReport, error)
	ListWorkerReports(ctx context.Context, userID int64) ([]models.HealthReport, error)
}

type SyncCache interface {
	ListPendingOutbox(ctx context.Context) ([]models.OutboxEntry, error)
	AcknowledgeOutbox(ctx context.Context, localID, remoteID int64) error
	PurgeSyncedOutbox(ctx context.Context) (int, error)
	MergeCache(ctx context.Context, records []models.HealthReport) (int, error)
	UpsertCacheBatch(ctx context.Context, records []models.HealthReport) error
}

type UserProvider interface {
	CurrentUser() *models.UserProfile
}

type Connectivity interface {
	Online() bool
}

type SyncService struct {
	api     ReportsAPI
	cache   SyncCache
	users   UserProvider
	conn    Connectivity
	log     logging.Logger
	metrics *metrics.Metrics

	// guard admits one push, pull or reload at a time.
	guard *semaphore.Weighted
}

func NewSyncService(api ReportsAPI, cache SyncCache, users UserProvider, conn Connectivity, log logging.Logger, m *metrics.Metrics) *SyncService {
	if m == nil {
		m = metrics.New(nil)
	}
	return &SyncService{
		api:     api,
		cache:   cache,
		users:   users,
		conn:    conn,
		log:     log,
		metrics: m,
		guard:   semaphore.NewWeighted(1),
	}
}

func (s *SyncService) acquire() error {
	if !s.conn.Online() {
		return ErrOffline
	}
	if !s.guard.TryAcquire(1) {
		return ErrSyncInProgress
	}
	return nil
}

// SyncPendingReports pushes outbox entries one at a time, oldest first, and
// removes each one the server acknowledged. The first failure ends the run;
// entries already pushed stay removed and the next run resumes with the
// first one still pending.
func (s *SyncService) SyncPendingReports(ctx context.Context) (int, error) {
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.guard.Release(1)

	if n, err := s.cache.PurgeSyncedOutbox(ctx); err != nil {
		s.log.Warn(ctx, "failed to purge acknowledged outbox entries", "error", err)
	} else if n > 0 {
		s.log.Debug(ctx, "purged acknowledged outbox entries", "count", n)
	}

	pending, err := s.cache.ListPendingOutbox(ctx)
	if err != nil {
		s.metrics.SyncFailures.WithLabelValues(metrics.FlowPush).Inc()
		return 0, fmt.Errorf("failed to list outbox: %w", err)
	}
	if len(pending) == 0 {
		s.log.Debug(ctx, "no pending reports")
		return 0, nil
	}

	pushed := 0
	for _, e := range pending {
		if err := s.pushOne(ctx, e); err != nil {
			s.metrics.SyncFailures.WithLabelValues(metrics.FlowPush).Inc()
			s.log.Warn(ctx, "push stopped", "local_id", e.LocalID, "pushed", pushed, "left", len(pending)-pushed, "error", err)
			return pushed, err
		}
		pushed++
		s.metrics.ReportsPushed.Inc()
	}

	s.log.Info(ctx, "outbox drained", "pushed", pushed)
	return pushed, nil
}

func (s *SyncService) pushOne(ctx context.Context, e models.OutboxEntry) error {
	payload, err := e.StrippedPayload()
	if err != nil {
		return fmt.Errorf("outbox entry %d: %w", e.LocalID, err)
	}

	created, err := s.api.CreateReport(ctx, payload, e.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("outbox entry %d: %w", e.LocalID, err)
	}

	if err := s.cache.AcknowledgeOutbox(ctx, e.LocalID, created.ID); err != nil {
		// if not even marked, the next run resends under the same key
		return fmt.Errorf("outbox entry %d acknowledged as %d but not removed: %w", e.LocalID, created.ID, err)
	}
	s.log.Debug(ctx, "report pushed", "local_id", e.LocalID, "remote_id", created.ID)
	return nil
}

// PullLatestReports fetches the reports of the signed-in user and caches
// the ones not cached yet. Repeating it against an unchanged server list
// inserts nothing.
func (s *SyncService) PullLatestReports(ctx context.Context) (int, error) {
	user := s.users.CurrentUser()
	if user == nil {
		return 0, ErrNotAuthenticated
	}
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.guard.Release(1)

	remote, err := s.fetch(ctx, user)
	if err != nil {
		return 0, err
	}

	inserted, err := s.cache.MergeCache(ctx, remote)
	if err != nil {
		s.metrics.SyncFailures.WithLabelValues(metrics.FlowPull).Inc()
		return 0, fmt.Errorf("failed to merge reports: %w", err)
	}

	s.metrics.ReportsPulled.Add(float64(inserted))
	if inserted > 0 {
		s.log.Info(ctx, "pulled new reports", "inserted", inserted, "remote", len(remote))
	}
	return inserted, nil
}

// ReloadCache replaces the read cache with the server list.
func (s *SyncService) ReloadCache(ctx context.Context) (int, error) {
	user := s.users.CurrentUser()
	if user == nil {
		return 0, ErrNotAuthenticated
	}
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.guard.Release(1)

	remote, err := s.fetch(ctx, user)
	if err != nil {
		return 0, err
	}

	// the replace is keyed by remote id; drop rows the server sent without one
	keep := remote[:0]
	seen := make(map[int64]struct{}, len(remote))
	for _, r := range remote {
		if _, dup := seen[r.ID]; r.ID == 0 || dup {
			continue
		}
		seen[r.ID] = struct{}{}
		keep = append(keep, r)
	}

	if err := s.cache.UpsertCacheBatch(ctx, keep); err != nil {
		s.metrics.SyncFailures.WithLabelValues(metrics.FlowPull).Inc()
		return 0, fmt.Errorf("failed to replace cache: %w", err)
	}
	s.log.Info(ctx, "cache reloaded", "reports", len(keep))
	return len(keep), nil
}

func (s *SyncService) fetch(ctx context.Context, user *models.UserProfile) ([]models.HealthReport, error) {
	remote, err := s.api.ListWorkerReports(ctx, user.UserID)
	if err != nil {
		s.metrics.SyncFailures.WithLabelValues(metrics.FlowPull).Inc()
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}
	for i := range remote {
		remote[i].FillFromUser(user)
	}
	return remote, nil
}

// SyncAll pushes the outbox, then pulls. The pull runs even if the push
// failed.
func (s *SyncService) SyncAll(ctx context.Context) (pushed, pulled int, err error) {
	pushed, pushErr := s.SyncPendingReports(ctx)
	pulled, pullErr := s.PullLatestReports(ctx)
	return pushed, pulled, errors.Join(pushErr, pullErr)
}

// Run syncs on every transition to connected until ctx is done or events is
// closed. Failures are logged and left for the next transition.
func (s *SyncService) Run(ctx context.Context, events <-chan bool) error {
	online := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up, ok := <-events:
			if !ok {
				return nil
			}
			was := online
			online = up
			if !up || was {
				continue
			}

			s.log.Info(ctx, "connection detected, syncing")
			pushed, err := s.SyncPendingReports(ctx)
			s.logRun(ctx, metrics.FlowPush, pushed, err)
			pulled, err := s.PullLatestReports(ctx)
			s.logRun(ctx, metrics.FlowPull, pulled, err)
		}
	}
}

func (s *SyncService) logRun(ctx context.Context, flow string, n int, err error) {
	switch {
	case err == nil:
		s.log.Info(ctx, "sync finished", "flow", flow, "records", n)
	case IsSkipped(err):
		s.log.Debug(ctx, "sync skipped", "flow", flow, "reason", err)
	default:
		s.log.Warn(ctx, "sync failed", "flow", flow, "records", n, "error", err)
	}
}
