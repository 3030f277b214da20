package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRemaining(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	duration := 60 * time.Second

	tests := []struct {
		name    string
		now     time.Time
		startMs int64
		want    time.Duration
	}{
		{
			name:    "mid question",
			now:     start.Add(45 * time.Second),
			startMs: start.UnixMilli(),
			want:    15 * time.Second,
		},
		{
			name:    "past deadline clamps to zero",
			now:     start.Add(70 * time.Second),
			startMs: start.UnixMilli(),
			want:    0,
		},
		{
			name:    "exactly at deadline",
			now:     start.Add(60 * time.Second),
			startMs: start.UnixMilli(),
			want:    0,
		},
		{
			name:    "no start instant reports full window",
			now:     start,
			startMs: 0,
			want:    60 * time.Second,
		},
		{
			name:    "fractional seconds preserved",
			now:     start.Add(45*time.Second + 500*time.Millisecond),
			startMs: start.UnixMilli(),
			want:    14*time.Second + 500*time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remaining(tt.now, tt.startMs, duration)
			if got != tt.want {
				t.Errorf("Remaining() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRemainingSeconds(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	got := RemainingSeconds(start.Add(45*time.Second), start.UnixMilli(), 60*time.Second)
	if got != 15.0 {
		t.Errorf("RemainingSeconds() = %v, want 15.0", got)
	}
}

func TestCountdownRunStopsAtZero(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	startMs := fake.Now().UnixMilli()
	countdown := NewCountdown(fake)

	var mu sync.Mutex
	var ticks []time.Duration

	done := make(chan struct{})
	go func() {
		defer close(done)
		countdown.Run(context.Background(), startMs, time.Second, func(remaining time.Duration) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		})
	}()

	// Each advance of one tick interval releases exactly one tick.
	for i := 0; i < 10; i++ {
		fake.BlockUntilContext(context.Background(), 1)
		fake.Advance(TickInterval)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("countdown did not stop after window closed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) == 0 {
		t.Fatal("no ticks observed")
	}
	if last := ticks[len(ticks)-1]; last != 0 {
		t.Errorf("final tick = %v, want 0", last)
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] > ticks[i-1] {
			t.Errorf("remaining time increased between ticks: %v -> %v", ticks[i-1], ticks[i])
		}
	}
}

func TestCountdownRunHonorsContext(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	countdown := NewCountdown(fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		countdown.Run(ctx, fake.Now().UnixMilli(), time.Minute, func(time.Duration) {})
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("countdown did not stop on cancellation")
	}
}
