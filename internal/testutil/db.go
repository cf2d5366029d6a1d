// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/internal/database"
	"github.com/Proton-105/rewards-bot/pkg/config"
)

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewSQLite opens a fresh migrated SQLite database under t.TempDir and
// closes it when the test ends.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: string(database.DialectSQLite),
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
	}

	ctx := context.Background()
	db, dialect, err := database.Open(ctx, cfg, DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator, err := database.NewMigrator(db, dialect, DiscardLogger())
	require.NoError(t, err)
	require.NoError(t, migrator.Up(ctx))

	return db
}
