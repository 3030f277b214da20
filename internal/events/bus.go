package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Publisher emits domain events after a state change has committed.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Handler receives a domain event. Payload is the JSON-encoded payload
// struct for the event type.
type Handler func(ctx context.Context, eventType string, payload []byte)

// Subscriber registers handlers for pushed change notifications.
type Subscriber interface {
	// Subscribe registers a handler and returns an unsubscribe func.
	Subscribe(handler Handler) func()
}

// Bus is an in-process publish/subscribe fan-out. It backs single-process
// deployments and tests; cross-process deployments use JetStream instead.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewBus creates an empty in-process bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Publish encodes the payload and delivers it to every subscriber.
// Delivery is synchronous; handlers must not block on the bus.
func (b *Bus) Publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	log.Debug().Str("event_type", eventType).Int("subscribers", len(handlers)).Msg("publishing event")
	for _, h := range handlers {
		h(ctx, eventType, data)
	}
	return nil
}

// Subscribe registers a handler for all events.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}
