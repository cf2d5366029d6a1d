package repository

import (
	"context"
	"fmt"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

// ListStock returns the platform's unclaimed items in insertion order.
func (q *Queries) ListStock(ctx context.Context, platformID int64) ([]domain.StockItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, platform_id, kind, cookie_type, payload FROM stock_items WHERE platform_id = $1 ORDER BY id`,
		platformID)
	if err != nil {
		return nil, fmt.Errorf("list stock %d: %w", platformID, err)
	}
	defer rows.Close()

	var items []domain.StockItem
	for rows.Next() {
		var (
			item domain.StockItem
			kind string
		)
		if err := rows.Scan(&item.ID, &item.PlatformID, &kind, &item.CookieType, &item.Payload); err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		item.Kind = domain.ItemKind(kind)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (q *Queries) CountStock(ctx context.Context, platformID int64) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock_items WHERE platform_id = $1`, platformID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stock %d: %w", platformID, err)
	}
	return n, nil
}

// AppendStock inserts items at the end of the platform's stock.
func (q *Queries) AppendStock(ctx context.Context, platformID int64, items []domain.StockItem) (int, error) {
	const query = `INSERT INTO stock_items (platform_id, kind, cookie_type, payload) VALUES ($1, $2, $3, $4)`

	for i, item := range items {
		kind := item.Kind
		if kind == "" {
			kind = domain.ItemPlain
		}
		if _, err := q.db.ExecContext(ctx, query, platformID, string(kind), item.CookieType, item.Payload); err != nil {
			return i, fmt.Errorf("insert stock item %d: %w", i, err)
		}
	}
	return len(items), nil
}

func (q *Queries) ClearStock(ctx context.Context, platformID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM stock_items WHERE platform_id = $1`, platformID)
	if err != nil {
		return 0, fmt.Errorf("clear stock %d: %w", platformID, err)
	}
	return res.RowsAffected()
}

// DeleteStockItem removes one item. It reports false when the row was
// already gone.
func (q *Queries) DeleteStockItem(ctx context.Context, id int64) (bool, error) {
	ok, err := affected(q.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = $1`, id))
	if err != nil {
		return false, fmt.Errorf("delete stock item %d: %w", id, err)
	}
	return ok, nil
}
