package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
)

// RunInTx runs fn inside a serializable transaction and commits it. Errors
// produced by fn that are already AppErrors pass through untouched and end
// the attempt; raw driver errors are classified and transient conflicts
// retry the whole transaction with backoff.
func RunInTx(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) error {
	return apperrors.WithRetry(ctx, func() error {
		return runOnce(ctx, db, op, fn)
	})
}

func runOnce(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return Classify(op+": begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return Classify(op, err)
	}

	if err = tx.Commit(); err != nil {
		return Classify(op+": commit", err)
	}
	return nil
}

// Classify wraps a driver error into a persistence AppError, flagging
// serialization conflicts and lock contention as retryable.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewPersistenceError(op, err, false)
	}

	return apperrors.NewPersistenceError(op, fmt.Errorf("%w", err), IsTransient(err))
}

// IsTransient reports whether err is a conflict that succeeds on retry.
func IsTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return true
		}
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}

	return false
}
