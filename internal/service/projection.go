package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/enum"
	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// OrderView is the hydrated read model of an order.
type OrderView struct {
	ID                   int64           `json:"id"`
	Floor                string          `json:"floor"`
	OrderType            string          `json:"order_type"`
	Status               string          `json:"status"`
	Source               string          `json:"source"`
	OrderNo              *int32          `json:"order_no"`
	OrderDate            *string         `json:"order_date"`
	TableNumber          *int32          `json:"table_number"`
	TableName            *string         `json:"table_name"`
	IsTakeout            bool            `json:"is_takeout"`
	PaymentMethod        string          `json:"payment_method"`
	ReceivedAmount       *int64          `json:"received_amount"`
	ReceivedCashAmount   int64           `json:"received_cash_amount"`
	ReceivedTicketAmount int64           `json:"received_ticket_amount"`
	DueAfterTicket       int64           `json:"due_after_ticket"`
	ChangeAmount         int64           `json:"change_amount"`
	TotalPrice           int64           `json:"total_price"`
	Note                 string          `json:"note"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Items                []OrderItemView `json:"items"`
}

// OrderItemView is a line with its derived fields.
type OrderItemView struct {
	ID           int64  `json:"id"`
	MenuItemID   int64  `json:"menu_item_id"`
	MenuItemName string `json:"menu_item_name"`
	Qty          int32  `json:"qty"`
	UnitPrice    int64  `json:"unit_price"`
	ServiceMode  string `json:"service_mode"`
	PreparedQty  int32  `json:"prepared_qty"`
	LineTotal    int64  `json:"line_total"`
	RemainingQty int32  `json:"remaining_qty"`
	IsPrepared   bool   `json:"is_prepared"`
}

// ListOrdersRequest filters the order list. Empty fields do not filter; a
// nil Limit means the default size.
type ListOrdersRequest struct {
	Floor  string
	Status string
	Types  []string
	Limit  *int
}

// GetOrder returns one hydrated order.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*OrderView, error) {
	return s.loadView(ctx, s.newStore(s.pool), id)
}

// ListOrders returns the newest orders first, id breaking ties.
func (s *OrderService) ListOrders(ctx context.Context, req ListOrdersRequest) ([]OrderView, error) {
	params := database.ListOrdersParams{Limit: int32(ClampLimit(req.Limit))}

	if f := strings.ToUpper(strings.TrimSpace(req.Floor)); f != "" {
		if !enum.IsFloor(f) {
			return nil, fmt.Errorf("floor %q: %w", req.Floor, ErrInvalidFilter)
		}
		params.Floor = pgtype.Text{String: f, Valid: true}
	}
	if st := strings.ToUpper(strings.TrimSpace(req.Status)); st != "" {
		if !enum.IsOrderStatus(st) {
			return nil, fmt.Errorf("status %q: %w", req.Status, ErrInvalidFilter)
		}
		params.Status = pgtype.Text{String: st, Valid: true}
	}
	for _, t := range req.Types {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !enum.IsOrderType(t) {
			return nil, fmt.Errorf("type %q: %w", t, ErrInvalidFilter)
		}
		params.Types = append(params.Types, t)
	}

	store := s.newStore(s.pool)
	orders, err := store.ListOrderViews(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.hydrate(ctx, store, orders)
}

// ClampLimit applies the default when limit is nil and otherwise keeps it
// within [1, MaxListLimit].
func ClampLimit(limit *int) int {
	switch {
	case limit == nil:
		return DefaultListLimit
	case *limit < 1:
		return 1
	case *limit > MaxListLimit:
		return MaxListLimit
	}
	return *limit
}

func (s *OrderService) loadView(ctx context.Context, store OrderStore, id int64) (*OrderView, error) {
	order, err := store.GetOrderView(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	views, err := s.hydrate(ctx, store, []database.OrderView{order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *OrderService) hydrate(ctx context.Context, store OrderStore, orders []database.OrderView) ([]OrderView, error) {
	views := make([]OrderView, 0, len(orders))
	if len(orders) == 0 {
		return views, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := store.ListOrderItemViews(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	byOrder := make(map[int64][]OrderItemView, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], itemView(it))
	}

	for _, o := range orders {
		v := orderView(o)
		v.Items = byOrder[o.ID]
		if v.Items == nil {
			v.Items = []OrderItemView{}
		}
		views = append(views, v)
	}
	return views, nil
}

func orderView(o database.OrderView) OrderView {
	settlement := ordering.Settle(o.TotalPrice, o.PaymentMethod,
		o.ReceivedAmount.Int64, o.ReceivedCashAmount.Int64, o.ReceivedTicketAmount.Int64)

	v := OrderView{
		ID:                   o.ID,
		Floor:                o.Floor,
		OrderType:            o.OrderType,
		Status:               o.Status,
		Source:               o.Source,
		IsTakeout:            o.IsTakeout,
		PaymentMethod:        o.PaymentMethod,
		ReceivedCashAmount:   settlement.Cash,
		ReceivedTicketAmount: settlement.Ticket,
		DueAfterTicket:       settlement.DueAfterTicket,
		ChangeAmount:         settlement.Change,
		TotalPrice:           o.TotalPrice,
		Note:                 o.Note,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	if o.OrderNo.Valid {
		n := o.OrderNo.Int32
		v.OrderNo = &n
	}
	if o.OrderDate.Valid {
		d := o.OrderDate.Time.Format(time.DateOnly)
		v.OrderDate = &d
	}
	if o.TableNumber.Valid {
		n := o.TableNumber.Int32
		v.TableNumber = &n
	}
	if o.TableName.Valid {
		name := o.TableName.String
		v.TableName = &name
	}
	if o.ReceivedAmount.Valid {
		a := o.ReceivedAmount.Int64
		v.ReceivedAmount = &a
	}
	return v
}

func itemView(it database.OrderItemView) OrderItemView {
	return OrderItemView{
		ID:           it.ID,
		MenuItemID:   it.MenuItemID,
		MenuItemName: it.MenuItemName,
		Qty:          it.Qty,
		UnitPrice:    it.UnitPrice,
		ServiceMode:  it.ServiceMode,
		PreparedQty:  it.PreparedQty,
		LineTotal:    ordering.LineTotal(it.Qty, it.UnitPrice),
		RemainingQty: ordering.Remaining(it.Qty, it.PreparedQty),
		IsPrepared:   ordering.IsPrepared(it.Qty, it.PreparedQty),
	}
}
