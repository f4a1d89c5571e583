// Package dbx holds the small database plumbing the vault repositories share:
// the DBTX interface that lets a repository run against either the pool or an
// open transaction, a transactional helper, and PostgreSQL error inspection.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql the vault repositories need. Both
// *sql.DB and *sql.Tx satisfy it, so a service can hand a repository either
// handle without the repository knowing which.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
// Master-key rotation and quota-guarded inserts rely on this to keep
// multi-record writes all-or-nothing.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if err := repos.Projects(tx).UpdateWrappedPasscode(ctx, id, enc, iv, tag); err != nil {
//	        return err
//	    }
//	    return repos.Users(tx).UpdateMasterKey(ctx, userID, hash, salt)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
