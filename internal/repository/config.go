package repository

import (
	"context"
	"fmt"
)

// GetConfig returns the stored value and whether the key exists.
func (q *Queries) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&value)
	if noRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select config %q: %w", key, err)
	}
	return value, true, nil
}

func (q *Queries) SetConfig(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("upsert config %q: %w", key, err)
	}
	return nil
}
