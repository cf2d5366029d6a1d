package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

func (q *Queries) InsertReview(ctx context.Context, userID, body string, at time.Time) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO reviews (user_id, body, created_at) VALUES ($1, $2, $3) RETURNING id`,
		userID, body, at.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert review: %w", err)
	}
	return id, nil
}

func (q *Queries) InsertReport(ctx context.Context, userID, body string, at time.Time) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO reports (user_id, body, status, claimed, created_at) VALUES ($1, $2, 'open', FALSE, $3) RETURNING id`,
		userID, body, at.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}
	return id, nil
}

func (q *Queries) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	var (
		r         domain.Report
		status    string
		claimedBy sql.NullString
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, body, status, claimed, claimed_by, created_at FROM reports WHERE id = $1`, id,
	).Scan(&r.ID, &r.UserID, &r.Body, &status, &r.Claimed, &claimedBy, &r.CreatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select report %d: %w", id, err)
	}
	r.Status = domain.ReportStatus(status)
	r.ClaimedBy = claimedBy.String
	return &r, nil
}

// ClaimReport assigns an open, unclaimed report to adminID.
func (q *Queries) ClaimReport(ctx context.Context, id int64, adminID string) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx,
		`UPDATE reports SET claimed = TRUE, claimed_by = $1 WHERE id = $2 AND claimed = FALSE AND status = 'open'`,
		adminID, id))
	if err != nil {
		return false, fmt.Errorf("claim report %d: %w", id, err)
	}
	return ok, nil
}

func (q *Queries) CloseReport(ctx context.Context, id int64) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx,
		`UPDATE reports SET status = 'closed' WHERE id = $1 AND status = 'open'`, id))
	if err != nil {
		return false, fmt.Errorf("close report %d: %w", id, err)
	}
	return ok, nil
}
