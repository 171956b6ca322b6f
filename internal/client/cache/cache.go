package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	"github.com/dmitrijs2005/healthkeeper/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/healthkeeper/internal/client/repositories/reports"
	"github.com/dmitrijs2005/healthkeeper/internal/dbx"
	"github.com/google/uuid"
)

// ReportsFactory and OutboxFactory bind a repository to a connection or a
// transaction.
type ReportsFactory func(db dbx.DBTX) reports.Repository
type OutboxFactory func(db dbx.DBTX) outbox.Repository

type LocalCache struct {
	db         *sql.DB
	newReports ReportsFactory
	newOutbox  OutboxFactory
	newKey     func() string
}

type Option func(*LocalCache)

// WithKeyGenerator overrides the idempotency key generator.
func WithKeyGenerator(fn func() string) Option {
	return func(c *LocalCache) { c.newKey = fn }
}

// WithOutboxFactory overrides how outbox repositories are built.
func WithOutboxFactory(fn OutboxFactory) Option {
	return func(c *LocalCache) { c.newOutbox = fn }
}

func New(db *sql.DB, opts ...Option) *LocalCache {
	c := &LocalCache{
		db: db,
		newReports: func(db dbx.DBTX) reports.Repository {
			return reports.NewSQLiteRepository(db)
		},
		newOutbox: func(db dbx.DBTX) outbox.Repository {
			return outbox.NewSQLiteRepository(db)
		},
		newKey: uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UpsertCacheBatch replaces the whole read cache with records.
func (c *LocalCache) UpsertCacheBatch(ctx context.Context, records []models.HealthReport) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := c.newReports(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		for i := range records {
			if err := repo.Insert(ctx, &records[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// MergeCache inserts the records whose remote id is not cached yet and
// returns how many were inserted. Records without a remote id are skipped.
func (c *LocalCache) MergeCache(ctx context.Context, records []models.HealthReport) (int, error) {
	return dbx.WithTxResult(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) (int, error) {
		repo := c.newReports(tx)
		known, err := repo.RemoteIDs(ctx)
		if err != nil {
			return 0, err
		}

		inserted := 0
		for i := range records {
			id := records[i].ID
			if id == 0 {
				continue
			}
			if _, ok := known[id]; ok {
				continue
			}
			if err := repo.Insert(ctx, &records[i]); err != nil {
				return 0, err
			}
			known[id] = struct{}{}
			inserted++
		}
		return inserted, nil
	})
}

// ReadCache returns a snapshot of the read cache, most recent first.
func (c *LocalCache) ReadCache(ctx context.Context) ([]models.HealthReport, error) {
	return c.newReports(c.db).GetAll(ctx)
}

func (c *LocalCache) RemoteIDs(ctx context.Context) (map[int64]struct{}, error) {
	return c.newReports(c.db).RemoteIDs(ctx)
}

func (c *LocalCache) CountCache(ctx context.Context) (int, error) {
	return c.newReports(c.db).Count(ctx)
}

// EnqueueOutbox serializes payload and appends it to the outbox under a new
// idempotency key.
func (c *LocalCache) EnqueueOutbox(ctx context.Context, payload any) (*models.OutboxEntry, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize outbox payload: %w", err)
	}

	e := &models.OutboxEntry{
		IdempotencyKey: c.newKey(),
		Payload:        b,
	}
	if _, err := c.newOutbox(c.db).Insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *LocalCache) ListPendingOutbox(ctx context.Context) ([]models.OutboxEntry, error) {
	return c.newOutbox(c.db).ListPending(ctx)
}

// DequeueOutbox removes an acknowledged entry.
func (c *LocalCache) DequeueOutbox(ctx context.Context, localID int64) error {
	return c.newOutbox(c.db).Delete(ctx, localID)
}

// AcknowledgeOutbox records that the server accepted an entry as remoteID
// and removes it. Once marked, the entry is no longer pending even if the
// removal fails; PurgeSyncedOutbox removes it later.
func (c *LocalCache) AcknowledgeOutbox(ctx context.Context, localID, remoteID int64) error {
	repo := c.newOutbox(c.db)
	if err := repo.MarkSynced(ctx, localID, remoteID); err != nil {
		return err
	}
	return repo.Delete(ctx, localID)
}

// PurgeSyncedOutbox removes acknowledged entries left behind by a failed
// removal.
func (c *LocalCache) PurgeSyncedOutbox(ctx context.Context) (int, error) {
	return c.newOutbox(c.db).DeleteSynced(ctx)
}

func (c *LocalCache) CountPendingOutbox(ctx context.Context) (int, error) {
	return c.newOutbox(c.db).CountPending(ctx)
}
