package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bazaar-kiosk/api/internal/events"
)

// Event is the envelope written to websocket clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// floorEvent routes an event to one floor's room.
type floorEvent struct {
	Floor string
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by floor
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *floorEvent

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *floorEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.floor] == nil {
				h.rooms[client.floor] = make(map[*Client]bool)
			}
			h.rooms[client.floor][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Floor] {
				select {
				case client.send <- message:
				default:
					// slow client
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops a client and its empty room. Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.floor]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.floor)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.remove(client)
		}
	}
}

// BroadcastToFloor sends an event to all clients watching floor.
func (h *Hub) BroadcastToFloor(ctx context.Context, floor string, event Event) error {
	select {
	case h.broadcast <- &floorEvent{Floor: floor, Event: event}:
		return nil
	case <-h.done:
		return errors.New("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish implements events.Notifier.
func (h *Hub) Publish(ctx context.Context, ev events.OrderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return h.BroadcastToFloor(ctx, ev.Floor, Event{
		Type:    "order." + ev.Type,
		Payload: payload,
	})
}
