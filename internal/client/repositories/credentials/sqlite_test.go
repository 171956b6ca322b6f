package credentials

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE credentials (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  nonce BLOB,
  updated_at INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)
	return db
}

func TestPutGetOverwrite(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	got, err := r.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.Put(ctx, "accessToken", Secret{Value: []byte("v1"), Nonce: []byte("n1")}))
	require.NoError(t, r.Put(ctx, "accessToken", Secret{Value: []byte("v2"), Nonce: []byte("n2")}))

	got, err = r.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("v2"), got.Value)
	assert.Equal(t, []byte("n2"), got.Nonce)
}

func TestPut_NilNonceRoundTrips(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "salt", Secret{Value: []byte{1, 2, 3}}))
	got, err := r.Get(ctx, "salt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte{1, 2, 3}, got.Value)
	assert.Nil(t, got.Nonce)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, r.Put(ctx, k, Secret{Value: []byte(k)}))
	}
	require.NoError(t, r.Delete(ctx, "b"))
	require.NoError(t, r.Delete(ctx, "missing"))

	for k, present := range map[string]bool{"a": true, "b": false, "c": true} {
		got, err := r.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, present, got != nil, k)
	}
}

func TestErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT value, nonce FROM credentials").WillReturnError(boom)
	mock.ExpectExec("INSERT INTO credentials").WillReturnError(boom)

	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err = r.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "failed to get credential[k]")

	err = r.Put(ctx, "k", Secret{Value: []byte("x")})
	require.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
