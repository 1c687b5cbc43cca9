package ordering

import (
	"strings"

	"github.com/bazaar-kiosk/api/internal/enum"
	"github.com/shopspring/decimal"
)

// MaxAmount bounds a single tender amount in currency units.
var MaxAmount = decimal.NewFromInt(1_000_000_000_000)

// Tender is what the customer handed over, split by payment channel.
type Tender struct {
	Method string
	Cash   int64
	Ticket int64
}

// Received is the total amount handed over.
func (t Tender) Received() int64 {
	return t.Cash + t.Ticket
}

// ParseAmount parses a tender amount such as "6000", "6,000" or "6000.00".
// An empty string is zero. Negative and fractional amounts are rejected.
func ParseAmount(raw string) (int64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, Validation("invalid amount %q", raw)
	}
	if d.IsNegative() {
		return 0, Validation("amount must not be negative")
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, Validation("amount must be a whole number")
	}
	if d.GreaterThan(MaxAmount) {
		return 0, Validation("amount is too large")
	}
	return d.IntPart(), nil
}

// ParseTender validates the payment fields of a new order. For CASH and
// TICKET the channel specific field wins over received. For CASH_TICKET both
// parts are required and must be positive; when either is missing they are
// both taken from received in the form "6000+4000".
func ParseTender(method, received, cash, ticket string) (Tender, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = enum.PaymentMethodCash
	}
	if !enum.IsPaymentMethod(method) {
		return Tender{}, Validation("invalid payment_method %q", method)
	}

	t := Tender{Method: method}
	var err error
	switch method {
	case enum.PaymentMethodCash:
		t.Cash, err = ParseAmount(firstNonEmpty(cash, received))
	case enum.PaymentMethodTicket:
		t.Ticket, err = ParseAmount(firstNonEmpty(ticket, received))
	case enum.PaymentMethodCashTicket:
		if (strings.TrimSpace(cash) == "" || strings.TrimSpace(ticket) == "") && strings.Contains(received, "+") {
			cash, ticket, _ = strings.Cut(received, "+")
		}
		if t.Cash, err = ParseAmount(cash); err != nil {
			return Tender{}, err
		}
		if t.Ticket, err = ParseAmount(ticket); err != nil {
			return Tender{}, err
		}
		if t.Cash <= 0 || t.Ticket <= 0 {
			return Tender{}, Validation("CASH_TICKET requires both a cash and a ticket amount greater than 0")
		}
	}
	if err != nil {
		return Tender{}, err
	}
	return t, nil
}

// Settlement is the computed outcome of a tender against a total.
type Settlement struct {
	Cash           int64 `json:"received_cash_amount"`
	Ticket         int64 `json:"received_ticket_amount"`
	DueAfterTicket int64 `json:"due_after_ticket"`
	Change         int64 `json:"change_amount"`
}

// Settle nets the tender against total. Tickets are applied first and
// change is only ever given on cash. Orders that stored a single received
// amount count it toward their own method.
func Settle(total int64, method string, received, cash, ticket int64) Settlement {
	if cash == 0 && method == enum.PaymentMethodCash {
		cash = received
	}
	if ticket == 0 && method == enum.PaymentMethodTicket {
		ticket = received
	}
	due := max(0, total-ticket)
	return Settlement{
		Cash:           cash,
		Ticket:         ticket,
		DueAfterTicket: due,
		Change:         max(0, cash-due),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
