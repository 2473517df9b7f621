package timectrl

import (
	"context"
	"math"
	"sync"
	"time"
)

// SimulationClock is a monotonic simulation time value. It only moves
// when Advance is called by the tick function, by realDelta scaled by the
// speed multiplier, and never while paused.
type SimulationClock struct {
	mu      sync.RWMutex
	simTime float64
	paused  bool
}

// NewSimulationClock constructs a clock starting at start seconds.
func NewSimulationClock(start float64) *SimulationClock {
	return &SimulationClock{simTime: start}
}

// Now returns the current simulation time in seconds.
func (c *SimulationClock) Now() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.simTime
}

// Paused reports whether advancement is frozen.
func (c *SimulationClock) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Advance moves simulation time forward by realDelta × speedMultiplier and
// returns the new time. Negative deltas, multipliers that are not positive
// and finite, and steps that would overflow leave the clock untouched.
func (c *SimulationClock) Advance(realDelta time.Duration, speedMultiplier float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || realDelta <= 0 || !(speedMultiplier > 0) || math.IsInf(speedMultiplier, 1) {
		return c.simTime
	}
	next := c.simTime + realDelta.Seconds()*speedMultiplier
	if math.IsInf(next, 0) {
		return c.simTime
	}
	c.simTime = next
	return c.simTime
}

// SetTime jumps the clock to t seconds. Non-finite times are ignored.
func (c *SimulationClock) SetTime(t float64) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simTime = t
}

// Pause freezes simulation time.
func (c *SimulationClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume continues simulation time from where it was paused.
func (c *SimulationClock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

// TogglePause flips the pause state and returns the new value.
func (c *SimulationClock) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = !c.paused
	return c.paused
}

// FrameListener is invoked once per frame with the real time elapsed since
// the previous frame.
type FrameListener func(now time.Time, realDelta time.Duration)

// FrameLoop drives registered listeners once per Interval on a single
// goroutine, standing in for a display-refresh callback.
type FrameLoop struct {
	Interval time.Duration

	listeners []FrameListener
}

// NewFrameLoop constructs a loop ticking every interval.
func NewFrameLoop(interval time.Duration) *FrameLoop {
	return &FrameLoop{Interval: interval}
}

// AddListener registers a callback invoked on every frame, in registration
// order.
func (l *FrameLoop) AddListener(fn FrameListener) {
	l.listeners = append(l.listeners, fn)
}

// Start runs the loop in a separate goroutine until duration elapses (0
// means forever) or ctx is cancelled. It returns a channel closed when
// the loop finishes.
func (l *FrameLoop) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(l.Interval)
		defer ticker.Stop()

		start := time.Now()
		last := start
		for {
			if duration > 0 && last.Sub(start) >= duration {
				return
			}

			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				delta := now.Sub(last)
				last = now
				for _, fn := range l.listeners {
					fn(now, delta)
				}
			}
		}
	}()
	return done
}
