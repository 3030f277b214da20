package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/areyouamarjeet/med-melody-quiz/internal/events"
)

// EventConsumer bridges the domain event bus onto WebSocket broadcasts.
type EventConsumer struct {
	connectionManager *ConnectionManager
	bus               events.Subscriber
	unsubscribe       func()
}

// NewEventConsumer creates a consumer that forwards every domain event to
// all connected clients.
func NewEventConsumer(cm *ConnectionManager, bus events.Subscriber) *EventConsumer {
	return &EventConsumer{connectionManager: cm, bus: bus}
}

// Start attaches the consumer to the bus.
func (ec *EventConsumer) Start(ctx context.Context) {
	ec.unsubscribe = ec.bus.Subscribe(func(_ context.Context, eventType string, payload []byte) {
		ec.connectionManager.Broadcast(&GameEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      json.RawMessage(payload),
		})
	})
}

// Stop detaches the consumer from the bus.
func (ec *EventConsumer) Stop() {
	if ec.unsubscribe != nil {
		ec.unsubscribe()
	}
}
