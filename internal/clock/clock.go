// Package clock derives countdown values from the shared absolute question
// start instant. Every participant computes the same remaining time from its
// own wall clock; nothing here owns state.
package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// TickInterval is the local redraw cadence of a countdown (~10Hz).
const TickInterval = 100 * time.Millisecond

// Remaining returns how much of the question window is left at now.
// A zero start instant means no question is running and the full window is
// reported as the idle display value. Never negative.
func Remaining(now time.Time, startMs int64, duration time.Duration) time.Duration {
	if startMs <= 0 {
		return duration
	}
	elapsed := now.Sub(time.UnixMilli(startMs))
	if elapsed >= duration {
		return 0
	}
	return duration - elapsed
}

// RemainingSeconds is Remaining as fractional seconds. Display truncation is
// the caller's concern.
func RemainingSeconds(now time.Time, startMs int64, duration time.Duration) float64 {
	return Remaining(now, startMs, duration).Seconds()
}

// Countdown drives a periodic local tick against a shared start instant.
// In production use clockwork.NewRealClock(); tests inject a FakeClock.
type Countdown struct {
	clock clockwork.Clock
}

// NewCountdown creates a countdown bound to the given clock.
func NewCountdown(clock clockwork.Clock) *Countdown {
	return &Countdown{clock: clock}
}

// Now exposes the underlying clock's current time.
func (c *Countdown) Now() time.Time {
	return c.clock.Now()
}

// Run ticks onTick roughly ten times a second with the remaining window
// until the window closes or the context is cancelled. The final tick always
// reports zero so callers observe expiry exactly once.
func (c *Countdown) Run(ctx context.Context, startMs int64, duration time.Duration, onTick func(remaining time.Duration)) {
	ticker := c.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			remaining := Remaining(c.clock.Now(), startMs, duration)
			onTick(remaining)
			if remaining == 0 {
				return
			}
		}
	}
}
