package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/enum"
	"github.com/bazaar-kiosk/api/internal/events"
	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/jackc/pgx/v5"
)

// ProgressRequest sets an item's prepared quantity. PreparedQty wins over
// Done; Done=true means fully prepared and Done=false means nothing prepared.
type ProgressRequest struct {
	PreparedQty *int32
	Done        *bool
}

// SetStatus writes an explicit status. Writing the current status is a no-op.
func (s *OrderService) SetStatus(ctx context.Context, orderID int64, status string) (*OrderView, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !enum.IsOrderStatus(status) {
		return nil, ordering.State("invalid status %q", status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockOrder(ctx, store, orderID)
	if err != nil {
		return nil, err
	}
	if err := ordering.CheckStatusChange(order.Status, status); err != nil {
		return nil, err
	}

	changed := order.Status != status
	if changed {
		if _, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: orderID, Status: status}); err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}
	}

	view, err := s.loadView(ctx, store, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if changed {
		s.notify(ctx, events.TypeStatusChanged, view)
	}
	return view, nil
}

// SetItemProgress updates prepared_qty on one item and re-derives the order
// status. The item and its order stay locked until commit so concurrent
// stations working on the same order serialize.
func (s *OrderService) SetItemProgress(ctx context.Context, itemID int64, req ProgressRequest) (*OrderView, error) {
	if req.PreparedQty == nil && req.Done == nil {
		return nil, ErrProgressRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, order, err := s.lockItem(ctx, store, itemID)
	if err != nil {
		return nil, err
	}

	var target int32
	switch {
	case req.PreparedQty != nil:
		target = *req.PreparedQty
	case *req.Done:
		target = item.Qty
	}
	if err := ordering.CheckPreparedQty(target, item.Qty); err != nil {
		return nil, err
	}

	changed := target != item.PreparedQty
	if changed {
		if _, err := store.UpdateOrderItemPreparedQty(ctx, database.UpdateOrderItemPreparedQtyParams{
			ID:          itemID,
			PreparedQty: target,
		}); err != nil {
			return nil, fmt.Errorf("update prepared qty: %w", err)
		}
	}

	statusChanged, err := s.syncStatus(ctx, store, order)
	if err != nil {
		return nil, err
	}

	view, err := s.loadView(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if changed {
		s.notify(ctx, events.TypeItemProgress, view)
	}
	if statusChanged {
		s.notify(ctx, events.TypeStatusChanged, view)
	}
	return view, nil
}

// AddItem appends a line to an open order.
func (s *OrderService) AddItem(ctx context.Context, orderID int64, req CreateOrderItemRequest) (*OrderView, error) {
	if req.MenuItemID <= 0 {
		return nil, ErrInvalidMenuItemID
	}
	if req.Qty < 1 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockOrder(ctx, store, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enum.OrderStatusCancelled {
		return nil, ErrOrderCancelled
	}

	mode, err := lineMode(req.Mode, order.OrderType)
	if err != nil {
		return nil, err
	}

	menu, err := s.menuItems(ctx, store, []CreateOrderItemRequest{req})
	if err != nil {
		return nil, err
	}
	m, ok := menu[req.MenuItemID]
	if !ok || !ordering.Visible(ordering.ChannelFor(order.Floor, order.OrderType), m.VisibleCounter, m.VisibleBooth, m.VisibleKitchen) {
		return nil, fmt.Errorf("menu item %d: %w", req.MenuItemID, ErrMenuItemUnavailable)
	}

	if _, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
		OrderID:     orderID,
		MenuItemID:  req.MenuItemID,
		Qty:         req.Qty,
		UnitPrice:   m.Price,
		ServiceMode: mode,
	}); err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}

	return s.finishItemEdit(ctx, tx, store, order)
}

// UpdateItemQty changes a line quantity. It may not drop below prepared_qty.
func (s *OrderService) UpdateItemQty(ctx context.Context, itemID int64, qty int32) (*OrderView, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, order, err := s.lockItem(ctx, store, itemID)
	if err != nil {
		return nil, err
	}
	if err := ordering.CheckQty(qty, item.PreparedQty); err != nil {
		return nil, err
	}

	if qty != item.Qty {
		if _, err := store.UpdateOrderItemQty(ctx, database.UpdateOrderItemQtyParams{ID: itemID, Qty: qty}); err != nil {
			return nil, fmt.Errorf("update item qty: %w", err)
		}
	}

	return s.finishItemEdit(ctx, tx, store, order)
}

// RemoveItem deletes a line. An order keeps at least one line.
func (s *OrderService) RemoveItem(ctx context.Context, itemID int64) (*OrderView, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	_, order, err := s.lockItem(ctx, store, itemID)
	if err != nil {
		return nil, err
	}

	items, err := store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	if len(items) <= 1 {
		return nil, ErrLastItem
	}

	if err := store.DeleteOrderItem(ctx, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("delete order item: %w", err)
	}

	return s.finishItemEdit(ctx, tx, store, order)
}

// finishItemEdit recalculates the total, re-derives the status, commits and
// publishes.
func (s *OrderService) finishItemEdit(ctx context.Context, tx pgx.Tx, store OrderStore, order database.Order) (*OrderView, error) {
	if _, err := s.recalcTotal(ctx, store, order.ID); err != nil {
		return nil, err
	}

	statusChanged, err := s.syncStatus(ctx, store, order)
	if err != nil {
		return nil, err
	}

	view, err := s.loadView(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.notify(ctx, events.TypeItemsChanged, view)
	if statusChanged {
		s.notify(ctx, events.TypeStatusChanged, view)
	}
	return view, nil
}

// syncStatus applies DeriveStatus to the order's current items and writes the
// result only when it differs.
func (s *OrderService) syncStatus(ctx context.Context, store OrderStore, order database.Order) (bool, error) {
	items, err := store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return false, fmt.Errorf("list order items: %w", err)
	}

	lines := make([]ordering.Line, len(items))
	for i, it := range items {
		lines[i] = ordering.Line{Qty: it.Qty, UnitPrice: it.UnitPrice, PreparedQty: it.PreparedQty}
	}

	desired := ordering.DeriveStatus(order.Status, lines)
	if desired == order.Status {
		return false, nil
	}
	if _, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: order.ID, Status: desired}); err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return true, nil
}

func (s *OrderService) lockOrder(ctx context.Context, store OrderStore, orderID int64) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// lockItem locks an item together with its order and rejects cancelled orders.
func (s *OrderService) lockItem(ctx context.Context, store OrderStore, itemID int64) (database.OrderItem, database.Order, error) {
	item, err := store.GetOrderItemForUpdate(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, database.Order{}, ErrItemNotFound
		}
		return database.OrderItem{}, database.Order{}, fmt.Errorf("get order item: %w", err)
	}

	order, err := s.lockOrder(ctx, store, item.OrderID)
	if err != nil {
		return database.OrderItem{}, database.Order{}, err
	}
	if order.Status == enum.OrderStatusCancelled {
		return database.OrderItem{}, database.Order{}, ErrOrderCancelled
	}
	return item, order, nil
}
