package ordering

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bazaar-kiosk/api/internal/enum"
)

// Table policy modes.
const (
	PolicyDineIn              = "dine-in"
	PolicyDineInExceptTakeout = "dine-in-except-takeout"
	PolicyTakeoutPickup       = "takeout-pickup-number"
)

func IsTablePolicy(mode string) bool {
	switch mode {
	case PolicyDineIn, PolicyDineInExceptTakeout, PolicyTakeoutPickup:
		return true
	}
	return false
}

// TablePolicy decides which orders carry a table reference.
type TablePolicy struct {
	Mode        string
	TableFloors []string
	PickupMin   int32
	PickupMax   int32
}

func (p TablePolicy) usesTables(floor string) bool {
	for _, f := range p.TableFloors {
		if f == floor {
			return true
		}
	}
	return false
}

// Requires reports whether an order with these attributes must reference a
// table. Orders that do not require one must not carry one.
func (p TablePolicy) Requires(floor, orderType string, isTakeout bool) bool {
	switch p.Mode {
	case PolicyDineInExceptTakeout:
		return orderType == enum.OrderTypeDineIn && !isTakeout && p.usesTables(floor)
	case PolicyTakeoutPickup:
		if orderType == enum.OrderTypeTakeout {
			return true
		}
		return orderType == enum.OrderTypeDineIn && p.usesTables(floor)
	default:
		return orderType == enum.OrderTypeDineIn && p.usesTables(floor)
	}
}

// Check validates the supplied table number. It reports whether a table
// lookup is needed.
func (p TablePolicy) Check(floor, orderType string, isTakeout bool, tableNumber *int32) (bool, error) {
	if !p.Requires(floor, orderType, isTakeout) {
		if tableNumber != nil {
			return false, Validation("table_number is not allowed for %s orders on floor %s", orderType, floor)
		}
		return false, nil
	}
	if tableNumber == nil {
		if p.Mode == PolicyTakeoutPickup && orderType == enum.OrderTypeTakeout {
			return false, Validation("table_number between %d and %d is required for TAKEOUT orders", p.PickupMin, p.PickupMax)
		}
		return false, Validation("table_number is required for %s orders on floor %s", orderType, floor)
	}
	if p.Mode == PolicyTakeoutPickup && orderType == enum.OrderTypeTakeout {
		if *tableNumber < p.PickupMin || *tableNumber > p.PickupMax {
			return false, Validation("table_number for TAKEOUT must be between %d and %d", p.PickupMin, p.PickupMax)
		}
	}
	return true, nil
}

// ParseRange parses "101-120".
func ParseRange(s string) (int32, int32, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("range %q: expected MIN-MAX", s)
	}
	from, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	to, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	if from < 1 || to < from {
		return 0, 0, fmt.Errorf("range %q: invalid bounds", s)
	}
	return int32(from), int32(to), nil
}
