package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (*Secret, error) {
	var s Secret
	err := r.db.QueryRowContext(ctx, `SELECT value, nonce FROM credentials WHERE key = ?`, key).Scan(&s.Value, &s.Nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential[%s]: %w", key, err)
	}
	return &s, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, key string, s Secret) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (key, value, nonce, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, nonce = excluded.nonce, updated_at = excluded.updated_at
	`, key, s.Value, s.Nonce, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to put credential[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete credential[%s]: %w", key, err)
	}
	return nil
}
