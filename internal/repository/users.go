package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

const userColumns = `id, name, join_date, points, referrals, banned, pending_referrer, verified`

func scanUser(row scanner) (*domain.User, error) {
	var (
		u       domain.User
		pending sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.JoinDate, &u.Points, &u.Referrals, &u.Banned, &pending, &u.Verified); err != nil {
		return nil, err
	}
	u.PendingReferrer = pending.String
	return &u, nil
}

// GetUser returns nil without error when the user does not exist.
func (q *Queries) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user %s: %w", id, err)
	}
	return u, nil
}

type CreateUserParams struct {
	ID              string
	Name            string
	JoinDate        time.Time
	Points          int64
	PendingReferrer string
}

// CreateUser inserts the user unless it exists and returns the stored row,
// so repeated calls leave the first record unchanged.
func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (*domain.User, bool, error) {
	const query = `
		INSERT INTO users (id, name, join_date, points, referrals, banned, pending_referrer, verified)
		VALUES ($1, $2, $3, $4, 0, FALSE, $5, FALSE)
		ON CONFLICT (id) DO NOTHING`

	created, err := affected(q.db.ExecContext(ctx, query, p.ID, p.Name, p.JoinDate.UTC(), p.Points, nullString(p.PendingReferrer)))
	if err != nil {
		return nil, false, fmt.Errorf("insert user %s: %w", p.ID, err)
	}

	u, err := q.GetUser(ctx, p.ID)
	if err != nil {
		return nil, false, err
	}
	if u == nil {
		return nil, false, fmt.Errorf("user %s vanished after insert", p.ID)
	}
	return u, created, nil
}

// SetPoints overwrites the balance. Reports false when the user is missing.
func (q *Queries) SetPoints(ctx context.Context, id string, value int64) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx, `UPDATE users SET points = $1 WHERE id = $2`, value, id))
	if err != nil {
		return false, fmt.Errorf("set points %s: %w", id, err)
	}
	return ok, nil
}

// AddPoints increments the balance and returns the new value. It returns
// sql.ErrNoRows when the user is missing.
func (q *Queries) AddPoints(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64
	err := q.db.QueryRowContext(ctx,
		`UPDATE users SET points = points + $1 WHERE id = $2 RETURNING points`, delta, id,
	).Scan(&balance)
	if noRows(err) {
		return 0, sql.ErrNoRows
	}
	if err != nil {
		return 0, fmt.Errorf("add points %s: %w", id, err)
	}
	return balance, nil
}

// DebitPoints subtracts amount only if the balance covers it. ok is false
// when the user is missing or short of funds.
func (q *Queries) DebitPoints(ctx context.Context, id string, amount int64) (balance int64, ok bool, err error) {
	err = q.db.QueryRowContext(ctx,
		`UPDATE users SET points = points - $1 WHERE id = $2 AND points >= $1 RETURNING points`, amount, id,
	).Scan(&balance)
	if noRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("debit points %s: %w", id, err)
	}
	return balance, true, nil
}

// CreditReferral adds bonus and bumps the referral counter in one statement.
func (q *Queries) CreditReferral(ctx context.Context, id string, bonus int64) (int64, error) {
	var balance int64
	err := q.db.QueryRowContext(ctx,
		`UPDATE users SET points = points + $1, referrals = referrals + 1 WHERE id = $2 RETURNING points`, bonus, id,
	).Scan(&balance)
	if noRows(err) {
		return 0, sql.ErrNoRows
	}
	if err != nil {
		return 0, fmt.Errorf("credit referral %s: %w", id, err)
	}
	return balance, nil
}

func (q *Queries) SetBanned(ctx context.Context, id string, banned bool) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx, `UPDATE users SET banned = $1 WHERE id = $2`, banned, id))
	if err != nil {
		return false, fmt.Errorf("set banned %s: %w", id, err)
	}
	return ok, nil
}

// CompleteVerification marks the user verified and clears the pending
// referrer.
func (q *Queries) CompleteVerification(ctx context.Context, id string) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx,
		`UPDATE users SET verified = TRUE, pending_referrer = NULL WHERE id = $1`, id))
	if err != nil {
		return false, fmt.Errorf("complete verification %s: %w", id, err)
	}
	return ok, nil
}

func (q *Queries) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY join_date, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// ListActiveUserIDs returns ids of users who are not banned.
func (q *Queries) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM users WHERE banned = FALSE ORDER BY join_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
