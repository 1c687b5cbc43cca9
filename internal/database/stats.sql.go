package database

import (
	"context"
	"time"
)

type MenuStatsParams struct {
	Floor string    `json:"floor"`
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

const listPendingByMenuItem = `-- name: ListPendingByMenuItem :many
SELECT m.id, m.name, SUM(oi.qty - oi.prepared_qty)::bigint AS pending
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN menu_items m ON m.id = oi.menu_item_id
WHERE o.floor = $1
  AND o.status = 'PREPARING'
  AND o.created_at >= $2 AND o.created_at < $3
GROUP BY m.id, m.name
HAVING SUM(oi.qty - oi.prepared_qty) > 0
ORDER BY pending DESC, m.name`

type ListPendingByMenuItemRow struct {
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	Pending    int64  `json:"pending"`
}

func (q *Queries) ListPendingByMenuItem(ctx context.Context, arg MenuStatsParams) ([]ListPendingByMenuItemRow, error) {
	rows, err := q.db.Query(ctx, listPendingByMenuItem, arg.Floor, arg.Since, arg.Until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListPendingByMenuItemRow{}
	for rows.Next() {
		var i ListPendingByMenuItemRow
		if err := rows.Scan(&i.MenuItemID, &i.Name, &i.Pending); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listSoldByMenuItem = `-- name: ListSoldByMenuItem :many
SELECT m.id, m.name,
       SUM(oi.qty)::bigint AS qty,
       COALESCE(SUM(oi.qty::bigint * oi.unit_price), 0)::bigint AS amount
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN menu_items m ON m.id = oi.menu_item_id
WHERE o.floor = $1
  AND o.status IN ('PREPARING', 'READY')
  AND o.created_at >= $2 AND o.created_at < $3
GROUP BY m.id, m.name
ORDER BY qty DESC, m.name`

type ListSoldByMenuItemRow struct {
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	Qty        int64  `json:"qty"`
	Amount     int64  `json:"amount"`
}

func (q *Queries) ListSoldByMenuItem(ctx context.Context, arg MenuStatsParams) ([]ListSoldByMenuItemRow, error) {
	rows, err := q.db.Query(ctx, listSoldByMenuItem, arg.Floor, arg.Since, arg.Until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListSoldByMenuItemRow{}
	for rows.Next() {
		var i ListSoldByMenuItemRow
		if err := rows.Scan(&i.MenuItemID, &i.Name, &i.Qty, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
