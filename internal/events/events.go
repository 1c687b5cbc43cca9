// Package events describes order changes for observers outside the request
// path: the websocket hub and, when configured, a RabbitMQ topic exchange.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeCreated       = "created"
	TypeStatusChanged = "status_changed"
	TypeItemProgress  = "item_progress"
	TypeItemsChanged  = "items_changed"
)

// OrderEvent is published after a mutation of an order has been committed.
type OrderEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Floor      string    `json:"floor"`
	OrderID    int64     `json:"order_id"`
	OrderNo    *int32    `json:"order_no"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOrderEvent stamps an event with a fresh ID and the given time.
func NewOrderEvent(typ, floor string, orderID int64, orderNo *int32, status string, at time.Time) OrderEvent {
	return OrderEvent{
		ID:         uuid.New(),
		Type:       typ,
		Floor:      floor,
		OrderID:    orderID,
		OrderNo:    orderNo,
		Status:     status,
		OccurredAt: at.UTC(),
	}
}

// Notifier receives committed order events.
type Notifier interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }

// Multi fans an event out to every notifier. A failing notifier does not
// stop the others; all failures are joined.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, ev OrderEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
