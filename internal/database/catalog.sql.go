package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, price, is_active, visible_counter, visible_booth, visible_kitchen,
	sku, sort_index, created_at, updated_at`

func scanMenuItem(row rowScanner, i *MenuItem) error {
	return row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.IsActive,
		&i.VisibleCounter,
		&i.VisibleBooth,
		&i.VisibleKitchen,
		&i.Sku,
		&i.SortIndex,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

func collectMenuItems(rows pgx.Rows) ([]MenuItem, error) {
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		var i MenuItem
		if err := scanMenuItem(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listMenuItemsByChannel = `-- name: ListMenuItemsByChannel :many
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE is_active
  AND CASE $1::text
        WHEN 'KITCHEN' THEN visible_kitchen
        WHEN 'BOOTH' THEN visible_booth
        ELSE visible_counter
      END
ORDER BY sort_index, name`

func (q *Queries) ListMenuItemsByChannel(ctx context.Context, channel string) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItemsByChannel, channel)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}

const getActiveMenuItemsByIDs = `-- name: GetActiveMenuItemsByIDs :many
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE id = ANY($1::bigint[]) AND is_active`

func (q *Queries) GetActiveMenuItemsByIDs(ctx context.Context, ids []int64) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, getActiveMenuItemsByIDs, ids)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (name, price, is_active, visible_counter, visible_booth, visible_kitchen, sku, sort_index)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name           string      `json:"name"`
	Price          int64       `json:"price"`
	IsActive       bool        `json:"is_active"`
	VisibleCounter bool        `json:"visible_counter"`
	VisibleBooth   bool        `json:"visible_booth"`
	VisibleKitchen bool        `json:"visible_kitchen"`
	Sku            pgtype.Text `json:"sku"`
	SortIndex      int32       `json:"sort_index"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.Name,
		arg.Price,
		arg.IsActive,
		arg.VisibleCounter,
		arg.VisibleBooth,
		arg.VisibleKitchen,
		arg.Sku,
		arg.SortIndex,
	)
	var i MenuItem
	err := scanMenuItem(row, &i)
	return i, err
}

const deleteMenuItem = `-- name: DeleteMenuItem :exec
DELETE FROM menu_items WHERE id = $1`

// DeleteMenuItem returns pgx.ErrNoRows when nothing was deleted. Referenced
// menu items fail with a foreign key violation (23503).
func (q *Queries) DeleteMenuItem(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, deleteMenuItem, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const listActiveTables = `-- name: ListActiveTables :many
SELECT id, number, name, is_active, sort_index
FROM tables
WHERE is_active
ORDER BY sort_index, number`

func (q *Queries) ListActiveTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listActiveTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Table{}
	for rows.Next() {
		var i Table
		if err := rows.Scan(&i.ID, &i.Number, &i.Name, &i.IsActive, &i.SortIndex); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getActiveTableByNumber = `-- name: GetActiveTableByNumber :one
SELECT id, number, name, is_active, sort_index
FROM tables
WHERE number = $1 AND is_active`

func (q *Queries) GetActiveTableByNumber(ctx context.Context, number int32) (Table, error) {
	row := q.db.QueryRow(ctx, getActiveTableByNumber, number)
	var i Table
	err := row.Scan(&i.ID, &i.Number, &i.Name, &i.IsActive, &i.SortIndex)
	return i, err
}

const createTable = `-- name: CreateTable :one
INSERT INTO tables (number, name, is_active, sort_index)
VALUES ($1, $2, $3, $4)
RETURNING id, number, name, is_active, sort_index`

type CreateTableParams struct {
	Number    int32  `json:"number"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	SortIndex int32  `json:"sort_index"`
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, createTable, arg.Number, arg.Name, arg.IsActive, arg.SortIndex)
	var i Table
	err := row.Scan(&i.ID, &i.Number, &i.Name, &i.IsActive, &i.SortIndex)
	return i, err
}

const deleteTable = `-- name: DeleteTable :exec
DELETE FROM tables WHERE id = $1`

// DeleteTable returns pgx.ErrNoRows when nothing was deleted. Tables referenced
// by orders fail with a foreign key violation (23503).
func (q *Queries) DeleteTable(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, deleteTable, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
