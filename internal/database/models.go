package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Table struct {
	ID        int64  `json:"id"`
	Number    int32  `json:"number"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	SortIndex int32  `json:"sort_index"`
}

type MenuItem struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Price          int64       `json:"price"`
	IsActive       bool        `json:"is_active"`
	VisibleCounter bool        `json:"visible_counter"`
	VisibleBooth   bool        `json:"visible_booth"`
	VisibleKitchen bool        `json:"visible_kitchen"`
	Sku            pgtype.Text `json:"sku"`
	SortIndex      int32       `json:"sort_index"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type Order struct {
	ID                   int64       `json:"id"`
	Floor                string      `json:"floor"`
	OrderType            string      `json:"order_type"`
	Status               string      `json:"status"`
	Source               string      `json:"source"`
	OrderNo              pgtype.Int4 `json:"order_no"`
	OrderDate            pgtype.Date `json:"order_date"`
	TableID              pgtype.Int8 `json:"table_id"`
	IsTakeout            bool        `json:"is_takeout"`
	PaymentMethod        string      `json:"payment_method"`
	ReceivedAmount       pgtype.Int8 `json:"received_amount"`
	ReceivedCashAmount   pgtype.Int8 `json:"received_cash_amount"`
	ReceivedTicketAmount pgtype.Int8 `json:"received_ticket_amount"`
	TotalPrice           int64       `json:"total_price"`
	Note                 string      `json:"note"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	MenuItemID  int64  `json:"menu_item_id"`
	Qty         int32  `json:"qty"`
	UnitPrice   int64  `json:"unit_price"`
	ServiceMode string `json:"service_mode"`
	PreparedQty int32  `json:"prepared_qty"`
}

type FloorOrderCounter struct {
	Date   pgtype.Date `json:"date"`
	Floor  string      `json:"floor"`
	LastNo int32       `json:"last_no"`
}

// OrderView is an order row joined with its table.
type OrderView struct {
	Order
	TableNumber pgtype.Int4 `json:"table_number"`
	TableName   pgtype.Text `json:"table_name"`
}

// OrderItemView is an order item row joined with its menu item name.
type OrderItemView struct {
	OrderItem
	MenuItemName string `json:"menu_item_name"`
}
