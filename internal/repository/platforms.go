package repository

import (
	"context"
	"fmt"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

const platformSelect = `
	SELECT p.id, p.name, p.price, p.kind,
	       (SELECT COUNT(*) FROM stock_items s WHERE s.platform_id = p.id)
	FROM platforms p`

func scanPlatform(row scanner) (*domain.Platform, error) {
	var (
		p    domain.Platform
		kind string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &kind, &p.Stock); err != nil {
		return nil, err
	}
	p.Kind = domain.PlatformKind(kind)
	return &p, nil
}

// GetPlatform looks a platform up by name. Missing platforms yield nil.
func (q *Queries) GetPlatform(ctx context.Context, name string) (*domain.Platform, error) {
	p, err := scanPlatform(q.db.QueryRowContext(ctx, platformSelect+` WHERE p.name = $1`, name))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select platform %q: %w", name, err)
	}
	return p, nil
}

func (q *Queries) ListPlatforms(ctx context.Context) ([]domain.Platform, error) {
	rows, err := q.db.QueryContext(ctx, platformSelect+` ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	var platforms []domain.Platform
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		platforms = append(platforms, *p)
	}
	return platforms, rows.Err()
}

// CreatePlatform returns false when a platform with that name exists.
func (q *Queries) CreatePlatform(ctx context.Context, name string, kind domain.PlatformKind, price int64) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx,
		`INSERT INTO platforms (name, price, kind) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		name, price, string(kind)))
	if err != nil {
		return false, fmt.Errorf("insert platform %q: %w", name, err)
	}
	return ok, nil
}

// DeletePlatform removes the platform and, through the foreign key, its stock.
func (q *Queries) DeletePlatform(ctx context.Context, name string) (bool, error) {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM stock_items WHERE platform_id IN (SELECT id FROM platforms WHERE name = $1)`, name); err != nil {
		return false, fmt.Errorf("delete stock of %q: %w", name, err)
	}
	ok, err := affected(q.db.ExecContext(ctx, `DELETE FROM platforms WHERE name = $1`, name))
	if err != nil {
		return false, fmt.Errorf("delete platform %q: %w", name, err)
	}
	return ok, nil
}

func (q *Queries) RenamePlatform(ctx context.Context, oldName, newName string) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx, `UPDATE platforms SET name = $1 WHERE name = $2`, newName, oldName))
	if err != nil {
		return false, fmt.Errorf("rename platform %q: %w", oldName, err)
	}
	return ok, nil
}

func (q *Queries) SetPrice(ctx context.Context, name string, price int64) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx, `UPDATE platforms SET price = $1 WHERE name = $2`, price, name))
	if err != nil {
		return false, fmt.Errorf("set price %q: %w", name, err)
	}
	return ok, nil
}
