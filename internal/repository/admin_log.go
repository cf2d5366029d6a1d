package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

func (q *Queries) InsertAdminLog(ctx context.Context, adminID, action string, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO admin_logs (admin_id, action, created_at) VALUES ($1, $2, $3)`, adminID, action, at.UTC())
	if err != nil {
		return fmt.Errorf("insert admin log: %w", err)
	}
	return nil
}

// ListAdminLog returns the most recent entries first.
func (q *Queries) ListAdminLog(ctx context.Context, limit int) ([]domain.AdminLogEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, admin_id, action, created_at FROM admin_logs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list admin log: %w", err)
	}
	defer rows.Close()

	var entries []domain.AdminLogEntry
	for rows.Next() {
		var e domain.AdminLogEntry
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
