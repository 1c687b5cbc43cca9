package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/enum"
	"github.com/bazaar-kiosk/api/internal/events"
	"github.com/bazaar-kiosk/api/internal/numbering"
	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const maxNoteLength = 200

// Error kinds. Every error below matches exactly one of them.
var (
	ErrValidation = ordering.ErrValidation
	ErrNotFound   = ordering.ErrNotFound
	ErrState      = ordering.ErrState
	ErrAllocation = ordering.ErrAllocation
)

// Errors returned by the order service.
var (
	ErrEmptyItems          = ordering.Validation("items are required")
	ErrInvalidFloor        = ordering.Validation("invalid floor")
	ErrInvalidOrderType    = ordering.Validation("invalid order_type")
	ErrInvalidMode         = ordering.Validation("invalid mode")
	ErrInvalidQuantity     = ordering.Validation("quantity must be >= 1")
	ErrInvalidMenuItemID   = ordering.Validation("invalid menu_item_id")
	ErrMenuItemUnavailable = ordering.Validation("menu item is not available")
	ErrTableUnavailable    = ordering.Validation("table not found or inactive")
	ErrNoteTooLong         = ordering.Validation("note must be at most 200 characters")
	ErrProgressRequired    = ordering.Validation("prepared_qty or done is required")
	ErrLastItem            = ordering.Validation("cannot remove the last item of an order")
	ErrInvalidFilter       = ordering.Validation("invalid filter")
	ErrOrderNotFound       = ordering.NotFound("order not found")
	ErrItemNotFound        = ordering.NotFound("order item not found")
	ErrOrderCancelled      = ordering.State("order is cancelled")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool is a connection pool: transactions for writes, plain queries for reads.
// Satisfied by *pgxpool.Pool.
type Pool interface {
	TxBeginner
	database.DBTX
}

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
	GetOrderView(ctx context.Context, id int64) (database.OrderView, error)
	ListOrderViews(ctx context.Context, arg database.ListOrdersParams) ([]database.OrderView, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderTotal(ctx context.Context, id int64) (database.Order, error)
	GetOrderItemForUpdate(ctx context.Context, id int64) (database.OrderItem, error)
	UpdateOrderItemPreparedQty(ctx context.Context, arg database.UpdateOrderItemPreparedQtyParams) (database.OrderItem, error)
	UpdateOrderItemQty(ctx context.Context, arg database.UpdateOrderItemQtyParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, id int64) error
	ListOrderItems(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	ListOrderItemViews(ctx context.Context, orderIDs []int64) ([]database.OrderItemView, error)
	GetActiveMenuItemsByIDs(ctx context.Context, ids []int64) ([]database.MenuItem, error)
	GetActiveTableByNumber(ctx context.Context, number int32) (database.Table, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// Options configures an OrderService.
type Options struct {
	TablePolicy ordering.TablePolicy
	// Floors that accept orders. The first one is the default.
	Floors   []string
	Notifier events.Notifier
	Now      func() time.Time
}

// OrderService owns the order aggregate: creation, lifecycle and projection.
type OrderService struct {
	pool      Pool
	newStore  NewOrderStore
	allocator numbering.Allocator
	tables    ordering.TablePolicy
	floors    []string
	notifier  events.Notifier
	now       func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool Pool, newStore NewOrderStore, allocator numbering.Allocator, opts Options) *OrderService {
	s := &OrderService{
		pool:      pool,
		newStore:  newStore,
		allocator: allocator,
		tables:    opts.TablePolicy,
		floors:    opts.Floors,
		notifier:  opts.Notifier,
		now:       opts.Now,
	}
	if len(s.floors) == 0 {
		s.floors = []string{enum.FloorB1}
	}
	if s.notifier == nil {
		s.notifier = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateOrderRequest is the input for creating an order. Amounts are raw
// strings so "6,000" and "6000+4000" can be parsed here.
type CreateOrderRequest struct {
	Floor                string
	OrderType            string
	Source               string
	IsTakeout            bool
	TableNumber          *int32
	PaymentMethod        string
	ReceivedAmount       string
	ReceivedCashAmount   string
	ReceivedTicketAmount string
	Note                 string
	Items                []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line. Mode defaults to the order type.
type CreateOrderItemRequest struct {
	MenuItemID int64
	Qty        int32
	Mode       string
}

// validatedOrder is a CreateOrderRequest after all checks that need no DB.
type validatedOrder struct {
	floor       string
	orderType   string
	source      string
	isTakeout   bool
	tableNumber *int32
	needsTable  bool
	tender      ordering.Tender
	note        string
	items       []CreateOrderItemRequest
}

func (s *OrderService) validateCreate(req CreateOrderRequest) (*validatedOrder, error) {
	v := &validatedOrder{}

	v.floor = strings.ToUpper(strings.TrimSpace(req.Floor))
	if v.floor == "" {
		v.floor = s.floors[0]
	}
	if !s.floorEnabled(v.floor) {
		return nil, ErrInvalidFloor
	}

	v.orderType = strings.ToUpper(strings.TrimSpace(req.OrderType))
	if !enum.IsOrderType(v.orderType) {
		return nil, ErrInvalidOrderType
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	v.items = make([]CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		if item.MenuItemID <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}
		if item.Qty < 1 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		mode, err := lineMode(item.Mode, v.orderType)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		v.items[i] = CreateOrderItemRequest{MenuItemID: item.MenuItemID, Qty: item.Qty, Mode: mode}
	}

	tender, err := ordering.ParseTender(req.PaymentMethod, req.ReceivedAmount, req.ReceivedCashAmount, req.ReceivedTicketAmount)
	if err != nil {
		return nil, err
	}
	v.tender = tender

	v.isTakeout = req.IsTakeout || v.orderType == enum.OrderTypeTakeout
	v.tableNumber = req.TableNumber
	if v.needsTable, err = s.tables.Check(v.floor, v.orderType, v.isTakeout, req.TableNumber); err != nil {
		return nil, err
	}

	v.note = strings.TrimSpace(req.Note)
	if utf8.RuneCountInString(v.note) > maxNoteLength {
		return nil, ErrNoteTooLong
	}

	v.source = enum.NormalizeSource(req.Source)
	return v, nil
}

// CreateOrder validates and persists an order with its items, assigns the
// floor's next order number and caches the total, all in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderView, error) {
	v, err := s.validateCreate(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Resolve table ---
	tableID := pgtype.Int8{}
	if v.needsTable {
		table, err := store.GetActiveTableByNumber(ctx, *v.tableNumber)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("table %d: %w", *v.tableNumber, ErrTableUnavailable)
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
		tableID = pgtype.Int8{Int64: table.ID, Valid: true}
	}

	// --- Resolve menu items for the creating channel ---
	channel := ordering.ChannelFor(v.floor, v.orderType)
	menu, err := s.menuItems(ctx, store, v.items)
	if err != nil {
		return nil, err
	}
	for i, item := range v.items {
		m, ok := menu[item.MenuItemID]
		if !ok || !ordering.Visible(channel, m.VisibleCounter, m.VisibleBooth, m.VisibleKitchen) {
			return nil, fmt.Errorf("item[%d]: menu item %d: %w", i, item.MenuItemID, ErrMenuItemUnavailable)
		}
	}

	// --- Persist order and lines ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		Floor:                v.floor,
		OrderType:            v.orderType,
		Status:               enum.OrderStatusPreparing,
		Source:               v.source,
		TableID:              tableID,
		IsTakeout:            v.isTakeout,
		PaymentMethod:        v.tender.Method,
		ReceivedAmount:       amount(v.tender.Received()),
		ReceivedCashAmount:   amount(v.tender.Cash),
		ReceivedTicketAmount: amount(v.tender.Ticket),
		Note:                 v.note,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for i, item := range v.items {
		if _, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:     order.ID,
			MenuItemID:  item.MenuItemID,
			Qty:         item.Qty,
			UnitPrice:   menu[item.MenuItemID].Price,
			ServiceMode: item.Mode,
		}); err != nil {
			return nil, fmt.Errorf("item[%d]: create order item: %w", i, err)
		}
	}

	// --- Number and total ---
	if _, err := s.allocator.Allocate(ctx, tx, order.ID, v.floor, s.now()); err != nil {
		return nil, fmt.Errorf("allocate order number: %w", err)
	}

	if _, err := s.recalcTotal(ctx, store, order.ID); err != nil {
		return nil, err
	}

	view, err := s.loadView(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.notify(ctx, events.TypeCreated, view)
	return view, nil
}

// recalcTotal stores SUM(qty * unit_price) on the order row.
func (s *OrderService) recalcTotal(ctx context.Context, store OrderStore, orderID int64) (database.Order, error) {
	order, err := store.UpdateOrderTotal(ctx, orderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("recalc total: %w", err)
	}
	return order, nil
}

// menuItems loads the active menu items referenced by items, keyed by id.
func (s *OrderService) menuItems(ctx context.Context, store OrderStore, items []CreateOrderItemRequest) (map[int64]database.MenuItem, error) {
	seen := make(map[int64]bool, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if !seen[item.MenuItemID] {
			seen[item.MenuItemID] = true
			ids = append(ids, item.MenuItemID)
		}
	}

	rows, err := store.GetActiveMenuItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get menu items: %w", err)
	}
	menu := make(map[int64]database.MenuItem, len(rows))
	for _, m := range rows {
		menu[m.ID] = m
	}
	return menu, nil
}

func (s *OrderService) floorEnabled(floor string) bool {
	for _, f := range s.floors {
		if f == floor {
			return true
		}
	}
	return false
}

// notify publishes after commit. Failures are logged, never returned.
func (s *OrderService) notify(ctx context.Context, typ string, view *OrderView) {
	ev := events.NewOrderEvent(typ, view.Floor, view.ID, view.OrderNo, view.Status, s.now())
	if err := s.notifier.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Printf("WARN: publish %s event for order %d: %v", typ, view.ID, err)
	}
}

func lineMode(mode, orderType string) (string, error) {
	mode = strings.ToUpper(strings.TrimSpace(mode))
	if mode == "" {
		return orderType, nil
	}
	if !enum.IsOrderType(mode) {
		return "", ErrInvalidMode
	}
	return mode, nil
}

// amount stores zero as NULL.
func amount(v int64) pgtype.Int8 {
	if v == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: v, Valid: true}
}
