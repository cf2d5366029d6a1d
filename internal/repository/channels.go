package repository

import (
	"context"
	"fmt"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

func (q *Queries) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, link FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var c domain.Channel
		if err := rows.Scan(&c.ID, &c.Link); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (q *Queries) AddChannel(ctx context.Context, link string) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx,
		`INSERT INTO channels (link) VALUES ($1) ON CONFLICT (link) DO NOTHING`, link))
	if err != nil {
		return false, fmt.Errorf("insert channel: %w", err)
	}
	return ok, nil
}

func (q *Queries) RemoveChannel(ctx context.Context, link string) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx, `DELETE FROM channels WHERE link = $1`, link))
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	return ok, nil
}
