package repository

import (
	"context"
	"fmt"
	"time"
)

// InsertReferral records the pair unless referredID already has a
// referral. The unique index on referred_id makes this race free.
func (q *Queries) InsertReferral(ctx context.Context, referrerID, referredID string, at time.Time) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx,
		`INSERT INTO referrals (referrer_id, referred_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (referred_id) DO NOTHING`,
		referrerID, referredID, at.UTC()))
	if err != nil {
		return false, fmt.Errorf("insert referral: %w", err)
	}
	return ok, nil
}

func (q *Queries) CountReferrals(ctx context.Context, referrerID string) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`, referrerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}
	return n, nil
}
