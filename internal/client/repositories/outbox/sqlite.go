package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	"github.com/dmitrijs2005/healthkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.OutboxEntry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox (idempotency_key, payload, is_synced, created_at) VALUES (?, ?, 0, ?)`,
		e.IdempotencyKey, string(e.Payload), e.CreatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to insert outbox entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get outbox entry id: %w", err)
	}
	e.LocalID = id
	return id, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]models.OutboxEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, idempotency_key, payload, is_synced, remote_id, created_at
		FROM outbox WHERE is_synced = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending outbox entries: %w", err)
	}
	defer rows.Close()

	pending := make([]models.OutboxEntry, 0)
	for rows.Next() {
		var (
			e         models.OutboxEntry
			payload   string
			remoteID  sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(&e.LocalID, &e.IdempotencyKey, &payload, &e.IsSynced, &remoteID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		e.Payload = []byte(payload)
		if remoteID.Valid {
			id := remoteID.Int64
			e.RemoteID = &id
		}
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		pending = append(pending, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox rows: %w", err)
	}
	return pending, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, localID int64, remoteID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE outbox SET is_synced = 1, remote_id = ? WHERE id = ?`, remoteID, localID)
	if err != nil {
		return fmt.Errorf("failed to mark outbox entry %d synced: %w", localID, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, localID); err != nil {
		return fmt.Errorf("failed to delete outbox entry %d: %w", localID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSynced(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE is_synced = 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete synced outbox entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE is_synced = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending outbox entries: %w", err)
	}
	return n, nil
}
