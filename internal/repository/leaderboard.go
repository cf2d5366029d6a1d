package repository

import (
	"context"
	"fmt"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

func (q *Queries) TopByPoints(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return q.leaderboard(ctx,
		`SELECT id, name, points FROM users WHERE banned = FALSE ORDER BY points DESC, id LIMIT $1`, limit)
}

// TopByReferrals counts recorded referrals per referrer.
func (q *Queries) TopByReferrals(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return q.leaderboard(ctx, `
		SELECT u.id, u.name, COUNT(r.referred_id) AS total
		FROM users u
		LEFT JOIN referrals r ON r.referrer_id = u.id
		WHERE u.banned = FALSE
		GROUP BY u.id, u.name
		HAVING COUNT(r.referred_id) > 0
		ORDER BY total DESC, u.id
		LIMIT $1`, limit)
}

func (q *Queries) leaderboard(ctx context.Context, query string, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Metric); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
