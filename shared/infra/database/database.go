// Package database abstracts the handful of sqlx operations the rest of the
// system needs behind a narrow interface, so repositories can be tested
// against a mock rather than a live Postgres connection.
package database

import (
	"context"
	"database/sql"
)

// Rows is the subset of *sql.Rows callers need.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is the subset of *sql.Row callers need.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result mirrors sql.Result.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Transaction is a unit of work over Database. Commit/Rollback end the unit;
// the Order Processor (component C) drains its pending side effects only
// after Commit returns nil (spec §4.5, §9 "Deferred post-commit publication").
type Transaction interface {
	Queryer
	Commit() error
	Rollback() error
}

// Queryer is the read/write surface shared by Database and Transaction.
type Queryer interface {
	Query(query string, args ...interface{}) (Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRow(query string, args ...interface{}) Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) Row
	Exec(query string, args ...interface{}) (Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
}

// Database is the full connection-level abstraction: the Queryer surface
// plus transaction lifecycle and health.
type Database interface {
	Queryer
	Begin() (Transaction, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Transaction, error)
	Ping() error
	Close() error
}
