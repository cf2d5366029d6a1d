package database_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/internal/database"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/testutil"
	"github.com/Proton-105/rewards-bot/pkg/config"
)

func TestMigrator_UpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "m.db")}

	db, dialect, err := database.Open(ctx, cfg, testutil.DiscardLogger())
	require.NoError(t, err)
	defer db.Close()

	m, err := database.NewMigrator(db, dialect, testutil.DiscardLogger())
	require.NoError(t, err)

	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Up(ctx))

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	paths := m.ListMigrations()
	require.Len(t, paths, 2)
	assert.Equal(t, "00001_init.sql", filepath.Base(paths[0]))
	assert.Equal(t, "00002_support.sql", filepath.Base(paths[1]))
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, _, err := database.Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, nil)
	require.Error(t, err)
}

func TestRunInTx_CommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLite(t)

	err := database.RunInTx(ctx, db, "insert", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO config (key, value) VALUES ($1, $2)`, "a", "1")
		return err
	})
	require.NoError(t, err)

	sentinel := apperrors.NewPrecondition("E299", "abort", "")
	err = database.RunInTx(ctx, db, "insert", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO config (key, value) VALUES ($1, $2)`, "b", "2"); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM config`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRunInTx_ClassifiesDriverErrors(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLite(t)

	err := database.RunInTx(ctx, db, "bad query", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO missing_table VALUES (1)`)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, database.IsTransient(&pq.Error{Code: "40001"}))
	assert.True(t, database.IsTransient(&pq.Error{Code: "40P01"}))
	assert.False(t, database.IsTransient(&pq.Error{Code: "23505"}))
	assert.False(t, database.IsTransient(errors.New("plain")))
}
