package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/routinebuzz/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUoW(t *testing.T) *db.SQLiteUnitOfWork {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return db.NewSQLiteUnitOfWork(database)
}

func putEntry(ctx context.Context, tx db.DBTX, key, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, '2025-01-01T00:00:00Z')`, key, value)
	return err
}

func readEntry(t *testing.T, uow *db.SQLiteUnitOfWork, key string) (string, bool) {
	t.Helper()
	var val string
	var found bool
	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := tx.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&val); err != nil {
			return nil
		}
		found = true
		return nil
	})
	require.NoError(t, err)
	return val, found
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	uow := newUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		return putEntry(ctx, tx, "routinebuzz_session_id", "abc")
	})
	require.NoError(t, err)

	val, found := readEntry(t, uow, "routinebuzz_session_id")
	assert.True(t, found)
	assert.Equal(t, "abc", val)
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	uow := newUoW(t)
	sentinel := errors.New("deliberate failure")

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := putEntry(ctx, tx, "k2", "v2"); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	_, found := readEntry(t, uow, "k2")
	assert.False(t, found, "row should not exist after rollback")
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	uow := newUoW(t)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = putEntry(ctx, tx, "k3", "v3")
			panic("boom")
		})
	})

	_, found := readEntry(t, uow, "k3")
	assert.False(t, found, "row should not exist after panic rollback")
}
