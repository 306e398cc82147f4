package mock

import (
	"sync"
	"time"
)

// Time is a settable clock injected into the dispatcher so scenarios can
// place follow-ups in the past or future deterministically.
type Time struct {
	mu      sync.Mutex
	current time.Time
}

// NewTime creates a clock frozen at a fixed instant.
func NewTime() *Time {
	return &Time{
		current: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

// Now returns the frozen instant.
func (t *Time) Now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Set moves the clock to the given instant.
func (t *Time) Set(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = now
}

// Advance moves the clock forward by d.
func (t *Time) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = t.current.Add(d)
}
