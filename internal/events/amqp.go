package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	confirmBuffer  = 64
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes order events to a topic exchange with routing key
// orders.<floor>.<type> and waits for the broker confirm.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       channel
	acks     <-chan amqp.Confirmation
	exchange string

	mu sync.Mutex
	// tag is the delivery tag of the last accepted publish. The broker numbers
	// publishes on a confirm channel 1, 2, 3, ...; confirms of earlier,
	// abandoned publishes are skipped by comparing against it.
	tag uint64
}

// DialAMQP connects, declares the exchange and enables publisher confirms.
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))

	p := newAMQPPublisher(ch, acks, exchange)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch channel, acks <-chan amqp.Confirmation, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, acks: acks, exchange: exchange}
}

// RoutingKey is orders.<floor>.<type>, floor lower-cased.
func RoutingKey(ev OrderEvent) string {
	return "orders." + strings.ToLower(ev.Floor) + "." + ev.Type
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID.String(),
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKey(ev), err)
	}
	p.tag++
	want := p.tag

	for {
		select {
		case conf, ok := <-p.acks:
			if !ok {
				return errors.New("amqp channel closed before confirm")
			}
			if conf.DeliveryTag < want {
				// late confirm of a publish that already timed out
				continue
			}
			if conf.DeliveryTag > want {
				return fmt.Errorf("confirm for delivery %d skipped past %d", conf.DeliveryTag, want)
			}
			if !conf.Ack {
				return fmt.Errorf("publish %s NACKed by broker", RoutingKey(ev))
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
