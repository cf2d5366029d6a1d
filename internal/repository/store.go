// Package repository implements SQL storage for the points and inventory
// ledger. Statements use $n placeholders, understood by both lib/pq and
// modernc.org/sqlite.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Proton-105/rewards-bot/internal/database"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries groups every ledger statement over one connection or transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx rebinds the queries to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Store owns the database handle and opens transactions for multi-step
// ledger operations.
type Store struct {
	*Queries
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{Queries: New(db), db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn inside one serializable transaction. op names the
// operation in persistence errors.
func (s *Store) WithTx(ctx context.Context, op string, fn func(q *Queries) error) error {
	return database.RunInTx(ctx, s.db, op, func(tx *sql.Tx) error {
		return fn(s.Queries.WithTx(tx))
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
