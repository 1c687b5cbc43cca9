package enum

import "strings"

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCancelled = "CANCELLED"
)

const (
	OrderTypeDineIn  = "DINE_IN"
	OrderTypeTakeout = "TAKEOUT"
	OrderTypeBooth   = "BOOTH"
)

const (
	PaymentMethodCash       = "CASH"
	PaymentMethodTicket     = "TICKET"
	PaymentMethodCashTicket = "CASH_TICKET"
)

// ── Group B: Partitions ──

const (
	FloorB1 = "B1" // basement: kitchen + tables
	FloorF1 = "F1" // ground floor: counter + booth
)

// ── Group C: Configurable labels (no DB constraint) ──

const (
	SourceOrder     = "ORDER"
	SourceB1Counter = "B1_COUNTER"
	SourceF1Counter = "F1_COUNTER"
	SourceKitchen   = "KITCHEN"
	SourceF1Booth   = "F1_BOOTH"
)

const (
	RoleOrder          = "ORDER"
	RoleB1Counter      = "B1_COUNTER"
	RoleKitchen        = "KITCHEN"
	RoleKitchenHall    = "KITCHEN_HALL"
	RoleKitchenTakeout = "KITCHEN_TAKEOUT"
)

// Channels select which menu visibility flag applies.
const (
	ChannelCounter = "COUNTER"
	ChannelBooth   = "BOOTH"
	ChannelKitchen = "KITCHEN"
)

func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPreparing, OrderStatusReady, OrderStatusCancelled:
		return true
	}
	return false
}

func IsOrderType(s string) bool {
	switch s {
	case OrderTypeDineIn, OrderTypeTakeout, OrderTypeBooth:
		return true
	}
	return false
}

func IsPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodTicket, PaymentMethodCashTicket:
		return true
	}
	return false
}

func IsFloor(s string) bool {
	return s == FloorB1 || s == FloorF1
}

func IsSource(s string) bool {
	switch s {
	case SourceOrder, SourceB1Counter, SourceF1Counter, SourceKitchen, SourceF1Booth:
		return true
	}
	return false
}

func IsRole(s string) bool {
	switch s {
	case RoleOrder, RoleB1Counter, RoleKitchen, RoleKitchenHall, RoleKitchenTakeout:
		return true
	}
	return false
}

// NormalizeSource upper-cases s and falls back to the basement counter for
// empty or unknown values.
func NormalizeSource(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !IsSource(s) {
		return SourceB1Counter
	}
	return s
}

// ChannelForScope maps a menu listing scope to a visibility channel.
func ChannelForScope(scope string) string {
	switch strings.ToUpper(strings.TrimSpace(scope)) {
	case "KITCHEN", FloorB1:
		return ChannelKitchen
	case "BOOTH", SourceF1Booth:
		return ChannelBooth
	}
	return ChannelCounter
}
