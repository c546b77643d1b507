package testutil

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/alexanderramin/routinebuzz/internal/db"
)

// FailOnNthExecUoW runs the callback in a real transaction but makes the
// FailOn-th write return Err. Reads are never counted, so tests can break
// a catalog import partway through and check that it rolled back.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	var writes atomic.Int32
	return db.NewSQLiteUnitOfWork(u.DB).WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, execHook{DBTX: tx, before: func() error {
			if writes.Add(1) == u.FailOn {
				return u.Err
			}
			return nil
		}})
	})
}

type execHook struct {
	db.DBTX
	before func() error
}

func (h execHook) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := h.before(); err != nil {
		return nil, err
	}
	return h.DBTX.ExecContext(ctx, query, args...)
}
