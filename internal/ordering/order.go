package ordering

import (
	"github.com/bazaar-kiosk/api/internal/enum"
)

// Line is the part of an order item the rules care about.
type Line struct {
	Qty         int32
	UnitPrice   int64
	PreparedQty int32
}

func LineTotal(qty int32, unitPrice int64) int64 {
	return int64(qty) * unitPrice
}

// Remaining is qty - prepared, never below zero.
func Remaining(qty, prepared int32) int32 {
	if prepared >= qty {
		return 0
	}
	return qty - prepared
}

func IsPrepared(qty, prepared int32) bool {
	return Remaining(qty, prepared) == 0
}

// Total sums qty * unit_price over lines.
func Total(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += LineTotal(l.Qty, l.UnitPrice)
	}
	return total
}

// DeriveStatus is the single place an order's status is computed from its
// items. Cancelled orders keep their status. An order with anything left to
// prepare is PREPARING, otherwise READY.
func DeriveStatus(current string, lines []Line) string {
	if current == enum.OrderStatusCancelled {
		return current
	}
	for _, l := range lines {
		if l.PreparedQty < l.Qty {
			return enum.OrderStatusPreparing
		}
	}
	return enum.OrderStatusReady
}

// CheckStatusChange validates an explicit status write. Only PREPARING,
// READY and CANCELLED are accepted and a cancelled order cannot be reopened.
func CheckStatusChange(current, next string) error {
	if !enum.IsOrderStatus(next) {
		return State("invalid status %q", next)
	}
	if current == enum.OrderStatusCancelled && next != enum.OrderStatusCancelled {
		return State("cancelled orders cannot be reopened")
	}
	return nil
}

// CheckPreparedQty validates a progress value against the line quantity.
func CheckPreparedQty(prepared, qty int32) error {
	if prepared < 0 || prepared > qty {
		return Validation("prepared_qty must be between 0 and %d", qty)
	}
	return nil
}

// CheckQty validates a line quantity, which may not drop below what the
// kitchen already prepared.
func CheckQty(qty, prepared int32) error {
	if qty < 1 {
		return Validation("quantity must be >= 1")
	}
	if qty < prepared {
		return Validation("quantity must be >= prepared_qty (%d)", prepared)
	}
	return nil
}
