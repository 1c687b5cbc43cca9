package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `o.id, o.floor, o.order_type, o.status, o.source, o.order_no, o.order_date,
	o.table_id, o.is_takeout, o.payment_method, o.received_amount, o.received_cash_amount,
	o.received_ticket_amount, o.total_price, o.note, o.created_at, o.updated_at`

func scanOrder(row rowScanner, o *Order, extra ...interface{}) error {
	dest := []interface{}{
		&o.ID,
		&o.Floor,
		&o.OrderType,
		&o.Status,
		&o.Source,
		&o.OrderNo,
		&o.OrderDate,
		&o.TableID,
		&o.IsTakeout,
		&o.PaymentMethod,
		&o.ReceivedAmount,
		&o.ReceivedCashAmount,
		&o.ReceivedTicketAmount,
		&o.TotalPrice,
		&o.Note,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders AS o (
    floor, order_type, status, source, table_id, is_takeout, payment_method,
    received_amount, received_cash_amount, received_ticket_amount, note
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	Floor                string      `json:"floor"`
	OrderType            string      `json:"order_type"`
	Status               string      `json:"status"`
	Source               string      `json:"source"`
	TableID              pgtype.Int8 `json:"table_id"`
	IsTakeout            bool        `json:"is_takeout"`
	PaymentMethod        string      `json:"payment_method"`
	ReceivedAmount       pgtype.Int8 `json:"received_amount"`
	ReceivedCashAmount   pgtype.Int8 `json:"received_cash_amount"`
	ReceivedTicketAmount pgtype.Int8 `json:"received_ticket_amount"`
	Note                 string      `json:"note"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.Floor,
		arg.OrderType,
		arg.Status,
		arg.Source,
		arg.TableID,
		arg.IsTakeout,
		arg.PaymentMethod,
		arg.ReceivedAmount,
		arg.ReceivedCashAmount,
		arg.ReceivedTicketAmount,
		arg.Note,
	)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders o
WHERE o.id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + `
FROM orders o
WHERE o.id = $1
FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const getOrderView = `-- name: GetOrderView :one
SELECT ` + orderColumns + `, t.number, t.name
FROM orders o
LEFT JOIN tables t ON t.id = o.table_id
WHERE o.id = $1`

func (q *Queries) GetOrderView(ctx context.Context, id int64) (OrderView, error) {
	row := q.db.QueryRow(ctx, getOrderView, id)
	var i OrderView
	err := scanOrder(row, &i.Order, &i.TableNumber, &i.TableName)
	return i, err
}

const listOrderViews = `-- name: ListOrderViews :many
SELECT ` + orderColumns + `, t.number, t.name
FROM orders o
LEFT JOIN tables t ON t.id = o.table_id
WHERE ($1::text IS NULL OR o.floor = $1::text)
  AND ($2::text IS NULL OR o.status = $2::text)
  AND (COALESCE(cardinality($3::text[]), 0) = 0 OR o.order_type = ANY($3::text[]))
ORDER BY o.created_at DESC, o.id DESC
LIMIT $4`

type ListOrdersParams struct {
	Floor  pgtype.Text `json:"floor"`
	Status pgtype.Text `json:"status"`
	Types  []string    `json:"types"`
	Limit  int32       `json:"limit"`
}

func (q *Queries) ListOrderViews(ctx context.Context, arg ListOrdersParams) ([]OrderView, error) {
	rows, err := q.db.Query(ctx, listOrderViews, arg.Floor, arg.Status, arg.Types, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderView{}
	for rows.Next() {
		var i OrderView
		if err := scanOrder(rows, &i.Order, &i.TableNumber, &i.TableName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders AS o
SET status = $2, updated_at = now()
WHERE o.id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const updateOrderTotal = `-- name: UpdateOrderTotal :one
UPDATE orders AS o
SET total_price = COALESCE((
        SELECT SUM(oi.qty::bigint * oi.unit_price)
        FROM order_items oi
        WHERE oi.order_id = o.id
    ), 0),
    updated_at = now()
WHERE o.id = $1
RETURNING ` + orderColumns

// UpdateOrderTotal recomputes total_price from the order's current items.
func (q *Queries) UpdateOrderTotal(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderTotal, id)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const assignOrderNumber = `-- name: AssignOrderNumber :exec
UPDATE orders
SET order_no = $2, order_date = $3, updated_at = now()
WHERE id = $1`

type AssignOrderNumberParams struct {
	ID        int64       `json:"id"`
	OrderNo   int32       `json:"order_no"`
	OrderDate pgtype.Date `json:"order_date"`
}

// AssignOrderNumber returns pgx.ErrNoRows when the order does not exist.
func (q *Queries) AssignOrderNumber(ctx context.Context, arg AssignOrderNumberParams) error {
	tag, err := q.db.Exec(ctx, assignOrderNumber, arg.ID, arg.OrderNo, arg.OrderDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
