package events

import (
	"context"
	"encoding/json"
	"testing"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var first, second []string
	bus.Subscribe(func(ctx context.Context, eventType string, payload []byte) {
		first = append(first, eventType)
	})
	bus.Subscribe(func(ctx context.Context, eventType string, payload []byte) {
		second = append(second, eventType)
	})

	if err := bus.Publish(context.Background(), TypeQuestionStarted, QuestionStartedPayload{QuestionIndex: 0}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Errorf("deliveries = %d and %d, want 1 each", len(first), len(second))
	}
}

func TestBusPayloadRoundTrip(t *testing.T) {
	bus := NewBus()

	var got QuestionStartedPayload
	bus.Subscribe(func(ctx context.Context, eventType string, payload []byte) {
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Errorf("Unmarshal() error = %v", err)
		}
	})

	want := QuestionStartedPayload{
		QuestionIndex: 4,
		QuestionText:  "Song 5 Diagnosis?",
		StartMs:       1_700_000_000_000,
		DurationSec:   60,
	}
	if err := bus.Publish(context.Background(), TypeQuestionStarted, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	var count int
	unsubscribe := bus.Subscribe(func(ctx context.Context, eventType string, payload []byte) {
		count++
	})

	if err := bus.Publish(context.Background(), TypeGameReset, GameResetPayload{}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	unsubscribe()
	if err := bus.Publish(context.Background(), TypeGameReset, GameResetPayload{}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if count != 1 {
		t.Errorf("deliveries = %d, want 1 after unsubscribe", count)
	}
}
