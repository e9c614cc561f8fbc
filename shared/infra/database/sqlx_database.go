package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// SqlxDatabase implements Database over a *sqlx.DB, the concrete driver used
// in production (Postgres via lib/pq).
type SqlxDatabase struct {
	db *sqlx.DB
}

// NewSqlxDatabase opens a Postgres connection pool via sqlx.
func NewSqlxDatabase(driverName, dataSourceName string) (*SqlxDatabase, error) {
	db, err := sqlx.Connect(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	return &SqlxDatabase{db: db}, nil
}

func (d *SqlxDatabase) Query(query string, args ...interface{}) (Rows, error) {
	return d.db.Query(query, args...)
}

func (d *SqlxDatabase) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

func (d *SqlxDatabase) QueryRow(query string, args ...interface{}) Row {
	return d.db.QueryRow(query, args...)
}

func (d *SqlxDatabase) QueryRowContext(ctx context.Context, query string, args ...interface{}) Row {
	return d.db.QueryRowContext(ctx, query, args...)
}

func (d *SqlxDatabase) Exec(query string, args ...interface{}) (Result, error) {
	return d.db.Exec(query, args...)
}

func (d *SqlxDatabase) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return d.db.ExecContext(ctx, query, args...)
}

func (d *SqlxDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return d.db.Get(dest, query, args...)
}

func (d *SqlxDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return d.db.Select(dest, query, args...)
}

func (d *SqlxDatabase) Begin() (Transaction, error) {
	tx, err := d.db.Beginx()
	if err != nil {
		return nil, err
	}
	return &sqlxTransaction{tx: tx}, nil
}

func (d *SqlxDatabase) BeginTx(ctx context.Context, opts *sql.TxOptions) (Transaction, error) {
	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlxTransaction{tx: tx}, nil
}

func (d *SqlxDatabase) Ping() error {
	return d.db.Ping()
}

func (d *SqlxDatabase) Close() error {
	return d.db.Close()
}

type sqlxTransaction struct {
	tx *sqlx.Tx
}

func (t *sqlxTransaction) Query(query string, args ...interface{}) (Rows, error) {
	return t.tx.Query(query, args...)
}

func (t *sqlxTransaction) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *sqlxTransaction) QueryRow(query string, args ...interface{}) Row {
	return t.tx.QueryRow(query, args...)
}

func (t *sqlxTransaction) QueryRowContext(ctx context.Context, query string, args ...interface{}) Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *sqlxTransaction) Exec(query string, args ...interface{}) (Result, error) {
	return t.tx.Exec(query, args...)
}

func (t *sqlxTransaction) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *sqlxTransaction) Get(dest interface{}, query string, args ...interface{}) error {
	return t.tx.Get(dest, query, args...)
}

func (t *sqlxTransaction) Select(dest interface{}, query string, args ...interface{}) error {
	return t.tx.Select(dest, query, args...)
}

func (t *sqlxTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqlxTransaction) Rollback() error {
	return t.tx.Rollback()
}
