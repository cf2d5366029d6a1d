package repository

import (
	"context"
	"fmt"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

func (q *Queries) GetAdmin(ctx context.Context, userID string) (*domain.Admin, error) {
	var a domain.Admin
	err := q.db.QueryRowContext(ctx,
		`SELECT user_id, name, role, banned FROM admins WHERE user_id = $1`, userID,
	).Scan(&a.UserID, &a.Name, &a.Role, &a.Banned)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select admin: %w", err)
	}
	return &a, nil
}

// UpsertAdmin inserts the admin or replaces name and role of an existing
// one, lifting any ban.
func (q *Queries) UpsertAdmin(ctx context.Context, a domain.Admin) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO admins (user_id, name, role, banned) VALUES ($1, $2, $3, FALSE)
		 ON CONFLICT (user_id) DO UPDATE SET name = excluded.name, role = excluded.role, banned = FALSE`,
		a.UserID, a.Name, a.Role)
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}

func (q *Queries) DeleteAdmin(ctx context.Context, userID string) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = $1`, userID))
	if err != nil {
		return false, fmt.Errorf("delete admin: %w", err)
	}
	return ok, nil
}

func (q *Queries) SetAdminBanned(ctx context.Context, userID string, banned bool) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx, `UPDATE admins SET banned = $1 WHERE user_id = $2`, banned, userID))
	if err != nil {
		return false, fmt.Errorf("set admin banned: %w", err)
	}
	return ok, nil
}

func (q *Queries) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT user_id, name, role, banned FROM admins ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []domain.Admin
	for rows.Next() {
		var a domain.Admin
		if err := rows.Scan(&a.UserID, &a.Name, &a.Role, &a.Banned); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}
