package database

import (
	"context"
)

const orderItemColumns = `oi.id, oi.order_id, oi.menu_item_id, oi.qty, oi.unit_price, oi.service_mode, oi.prepared_qty`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrderItem(row rowScanner, i *OrderItem, extra ...interface{}) error {
	dest := []interface{}{
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.Qty,
		&i.UnitPrice,
		&i.ServiceMode,
		&i.PreparedQty,
	}
	return row.Scan(append(dest, extra...)...)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items AS oi (order_id, menu_item_id, qty, unit_price, service_mode)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID     int64  `json:"order_id"`
	MenuItemID  int64  `json:"menu_item_id"`
	Qty         int32  `json:"qty"`
	UnitPrice   int64  `json:"unit_price"`
	ServiceMode string `json:"service_mode"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.Qty,
		arg.UnitPrice,
		arg.ServiceMode,
	)
	var i OrderItem
	err := scanOrderItem(row, &i)
	return i, err
}

const getOrderItemForUpdate = `-- name: GetOrderItemForUpdate :one
SELECT ` + orderItemColumns + `
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE oi.id = $1
FOR UPDATE OF oi, o`

// GetOrderItemForUpdate locks the item row together with its parent order row
// so concurrent progress updates on sibling items serialize on the order.
func (q *Queries) GetOrderItemForUpdate(ctx context.Context, id int64) (OrderItem, error) {
	row := q.db.QueryRow(ctx, getOrderItemForUpdate, id)
	var i OrderItem
	err := scanOrderItem(row, &i)
	return i, err
}

const updateOrderItemPreparedQty = `-- name: UpdateOrderItemPreparedQty :one
UPDATE order_items AS oi
SET prepared_qty = $2
WHERE oi.id = $1
RETURNING ` + orderItemColumns

type UpdateOrderItemPreparedQtyParams struct {
	ID          int64 `json:"id"`
	PreparedQty int32 `json:"prepared_qty"`
}

func (q *Queries) UpdateOrderItemPreparedQty(ctx context.Context, arg UpdateOrderItemPreparedQtyParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItemPreparedQty, arg.ID, arg.PreparedQty)
	var i OrderItem
	err := scanOrderItem(row, &i)
	return i, err
}

const updateOrderItemQty = `-- name: UpdateOrderItemQty :one
UPDATE order_items AS oi
SET qty = $2
WHERE oi.id = $1
RETURNING ` + orderItemColumns

type UpdateOrderItemQtyParams struct {
	ID  int64 `json:"id"`
	Qty int32 `json:"qty"`
}

func (q *Queries) UpdateOrderItemQty(ctx context.Context, arg UpdateOrderItemQtyParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItemQty, arg.ID, arg.Qty)
	var i OrderItem
	err := scanOrderItem(row, &i)
	return i, err
}

const deleteOrderItem = `-- name: DeleteOrderItem :exec
DELETE FROM order_items WHERE id = $1`

func (q *Queries) DeleteOrderItem(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, deleteOrderItem, id)
	return err
}

const listOrderItems = `-- name: ListOrderItems :many
SELECT ` + orderItemColumns + `
FROM order_items oi
WHERE oi.order_id = $1
ORDER BY oi.id`

func (q *Queries) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := scanOrderItem(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrderItemViews = `-- name: ListOrderItemViews :many
SELECT ` + orderItemColumns + `, m.name
FROM order_items oi
JOIN menu_items m ON m.id = oi.menu_item_id
WHERE oi.order_id = ANY($1::bigint[])
ORDER BY oi.order_id, oi.id`

// ListOrderItemViews hydrates the items of several orders in one round trip.
func (q *Queries) ListOrderItemViews(ctx context.Context, orderIDs []int64) ([]OrderItemView, error) {
	rows, err := q.db.Query(ctx, listOrderItemViews, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItemView{}
	for rows.Next() {
		var i OrderItemView
		if err := scanOrderItem(rows, &i.OrderItem, &i.MenuItemName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
