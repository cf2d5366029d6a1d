package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

func (q *Queries) GetKey(ctx context.Context, code string) (*domain.RedemptionKey, error) {
	var (
		k         domain.RedemptionKey
		kind      string
		claimedBy sql.NullString
		claimedAt sql.NullTime
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT code, kind, points, claimed, claimed_by, claimed_at, created_at FROM redemption_keys WHERE code = $1`,
		code,
	).Scan(&k.Code, &kind, &k.Points, &k.Claimed, &claimedBy, &claimedAt, &k.CreatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select key: %w", err)
	}

	k.Kind = domain.KeyKind(kind)
	k.ClaimedBy = claimedBy.String
	if claimedAt.Valid {
		at := claimedAt.Time
		k.ClaimedAt = &at
	}
	return &k, nil
}

// InsertKey stores a new unclaimed key. It reports false on a code clash.
func (q *Queries) InsertKey(ctx context.Context, code string, kind domain.KeyKind, points int64, at time.Time) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx,
		`INSERT INTO redemption_keys (code, kind, points, claimed, created_at) VALUES ($1, $2, $3, FALSE, $4)
		 ON CONFLICT (code) DO NOTHING`,
		code, string(kind), points, at.UTC()))
	if err != nil {
		return false, fmt.Errorf("insert key: %w", err)
	}
	return ok, nil
}

// ClaimKey flips the claimed flag only if it is still unset, so at most one
// caller ever sees true for a given code.
func (q *Queries) ClaimKey(ctx context.Context, code, userID string, at time.Time) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx,
		`UPDATE redemption_keys SET claimed = TRUE, claimed_by = $1, claimed_at = $2 WHERE code = $3 AND claimed = FALSE`,
		userID, at.UTC(), code))
	if err != nil {
		return false, fmt.Errorf("claim key: %w", err)
	}
	return ok, nil
}

// CountKeys returns the number of issued and claimed keys.
func (q *Queries) CountKeys(ctx context.Context) (total, claimed int64, err error) {
	err = q.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN claimed THEN 1 ELSE 0 END), 0) FROM redemption_keys`,
	).Scan(&total, &claimed)
	if err != nil {
		return 0, 0, fmt.Errorf("count keys: %w", err)
	}
	return total, claimed, nil
}
