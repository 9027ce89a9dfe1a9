package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock is read access to simulation time.
type Clock interface {
	Now() time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime advances one Tick per wall-clock Tick.
	RealTime Mode = iota
	// Manual advances only when Step is called.
	Manual
)

// TimeController drives simulation time and notifies registered listeners.
type TimeController struct {
	mu      sync.RWMutex
	start   time.Time
	tick    time.Duration
	mode    Mode
	current time.Time

	listeners []func(now time.Time, dt time.Duration)
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		start:   start,
		tick:    tick,
		mode:    mode,
		current: start,
	}
}

// Now returns the current simulation time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.current
}

// SetTime jumps simulation time without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	tc.current = t
	tc.mu.Unlock()
}

// Tick returns the step size.
func (tc *TimeController) Tick() time.Duration { return tc.tick }

// Elapsed returns simulation time since start.
func (tc *TimeController) Elapsed() time.Duration {
	return tc.Now().Sub(tc.start)
}

// AddListener registers a callback invoked on every step with the new time
// and the step size.
func (tc *TimeController) AddListener(fn func(now time.Time, dt time.Duration)) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Step advances simulation time by one tick and notifies listeners in
// registration order.
func (tc *TimeController) Step() time.Time {
	tc.mu.Lock()
	tc.current = tc.current.Add(tc.tick)
	now := tc.current
	listeners := append(([]func(time.Time, time.Duration))(nil), tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(now, tc.tick)
	}
	return now
}

// Run advances time until ctx is done. In Manual mode it only waits, leaving
// Step to the caller.
func (tc *TimeController) Run(ctx context.Context) error {
	if tc.mode == Manual || tc.tick <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(tc.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tc.Step()
		}
	}
}
