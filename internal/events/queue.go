package events

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrQueueFull is returned by Queue.Publish when the buffer has no room.
var ErrQueueFull = errors.New("event queue full")

// deliverTimeout bounds one delivery to the wrapped notifier.
const deliverTimeout = 10 * time.Second

// Queue hands events to a wrapped Notifier on a background goroutine so
// publishing never waits on a slow observer. Events are delivered one at a
// time in the order they were queued.
type Queue struct {
	next   Notifier
	events chan OrderEvent
	done   chan struct{}
}

// NewQueue creates a Queue buffering up to size events for next.
func NewQueue(next Notifier, size int) *Queue {
	return &Queue{
		next:   next,
		events: make(chan OrderEvent, size),
		done:   make(chan struct{}),
	}
}

// Publish queues ev without blocking.
func (q *Queue) Publish(_ context.Context, ev OrderEvent) error {
	select {
	case q.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is done, then delivers what is still
// buffered and returns. Call it as a goroutine: go queue.Run(ctx)
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case ev := <-q.events:
			q.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-q.events:
					q.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) deliver(ev OrderEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := q.next.Publish(ctx, ev); err != nil {
		log.Printf("WARN: deliver %s event for order %d: %v", ev.Type, ev.OrderID, err)
	}
}
