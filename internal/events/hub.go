package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Event is a live notification published to currently connected listeners.
// Delivery is at-most-once with no persistence or replay.
type Event struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Publisher is the narrow interface services publish through.
type Publisher interface {
	Publish(event Event)
}

// Hub is an in-process fan-out bus with an explicit subscriber lifecycle.
// Subscribers that fall behind have events dropped rather than blocking
// publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Event)}
}

const subscriberBuffer = 64

// Subscribe registers a listener and returns its channel. The subscription
// is removed and the channel closed when ctx is cancelled.
func (h *Hub) Subscribe(ctx context.Context) <-chan Event {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish delivers the event to all current subscribers. Fire and forget:
// a full subscriber buffer means that subscriber misses the event.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of connected listeners.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
