package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator applies the embedded goose migrations for one dialect.
type Migrator struct {
	provider *goose.Provider
	log      *slog.Logger
}

func NewMigrator(db *sql.DB, dialect Dialect, log *slog.Logger) (*Migrator, error) {
	if log == nil {
		log = slog.Default()
	}

	var gooseDialect goose.Dialect
	switch dialect {
	case DialectPostgres:
		gooseDialect = goose.DialectPostgres
	case DialectSQLite:
		gooseDialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}

	fsys, err := fs.Sub(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return nil, fmt.Errorf("migrations for %s: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gooseDialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	return &Migrator{
		provider: provider,
		log:      log.With(slog.String("component", "migrator"), slog.String("dialect", string(dialect))),
	}, nil
}

// Up applies every pending migration in version order.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		m.log.Info("migration applied",
			slog.Int64("version", res.Source.Version),
			slog.String("file", res.Source.Path),
			slog.Duration("duration", res.Duration),
		)
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if len(results) == 0 {
		m.log.Info("schema up to date")
	}
	return nil
}

// Version reports the highest applied migration.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// ListMigrations returns the embedded migration file paths in apply order.
func (m *Migrator) ListMigrations() []string {
	sources := m.provider.ListSources()
	paths := make([]string, 0, len(sources))
	for _, src := range sources {
		paths = append(paths, src.Path)
	}
	return paths
}
