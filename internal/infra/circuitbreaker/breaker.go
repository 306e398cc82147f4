// Package circuitbreaker provides a minimal circuit breaker for flaky
// external collaborators. It replaces the "globally unavailable until some
// timestamp" pattern with an explicit closed/open/half-open state machine
// driven by an injectable clock, so behavior is testable without timers.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	// StateClosed lets calls through and counts consecutive failures.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single probe call through.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Do when the breaker rejects the call.
var ErrOpen = errors.New("circuit breaker open")

// Clock supplies the current time.
type Clock func() time.Time

// Breaker is a consecutive-failure circuit breaker. The zero value is not
// usable; construct with New.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	failureThreshold int
	cooldown         time.Duration
	openedAt         time.Time
	now              Clock
}

// New creates a breaker that opens after failureThreshold consecutive
// failures and probes again after cooldown. A nil clock uses time.Now.
func New(failureThreshold int, cooldown time.Duration, clock Clock) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if clock == nil {
		clock = time.Now
	}
	return &Breaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              clock,
	}
}

// Allow reports whether a call may proceed, transitioning open -> half-open
// once the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		// One probe at a time; concurrent callers wait for its verdict.
		return false
	default:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.state = StateHalfOpen
			return true
		}
		return false
	}
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
}

// RecordFailure counts a failure, opening the breaker when the threshold is
// reached or a half-open probe fails.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = b.now()
		return
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn through the breaker, returning ErrOpen when rejected.
func (b *Breaker) Do(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}
