// Package circuitbreaker keeps a repeatedly failing upstream from being
// hammered by every request. The Bitcoin fallback explorers sit behind one
// breaker each.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

// State is the breaker state.
type State int

const (
	StateClosed   State = iota // normal operation
	StateOpen                  // failing, rejecting calls
	StateHalfOpen              // probing for recovery
)

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

// Breaker opens after FailureThreshold consecutive failures, stays open for
// OpenTimeout, then lets a single probe through; the probe's outcome decides
// between closing and re-opening.
type Breaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	threshold     int
	openTimeout   time.Duration
	lastFailureAt time.Time
	nowFn         func() time.Time
}

// New creates a breaker. Non-positive arguments fall back to 5 failures and
// a 30s open timeout.
func New(failureThreshold int, openTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	return &Breaker{
		state:       StateClosed,
		threshold:   failureThreshold,
		openTimeout: openTimeout,
		nowFn:       time.Now,
	}
}

// SetClock replaces the time source for tests.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nowFn = now
}

// Allow reports whether a call may proceed. An open breaker transitions to
// half-open once the open timeout has elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.nowFn().Sub(b.lastFailureAt) > b.openTimeout {
			b.state = StateHalfOpen
			return nil
		}
		return ErrOpen
	}
	return nil
}

// RecordSuccess notes a successful call, closing a half-open breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.state = StateClosed
	}
}

// RecordFailure notes a failed call, opening the breaker when the threshold
// is reached or when a half-open probe fails.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureAt = b.nowFn()
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.state = StateOpen
	}
}

// CurrentState returns the breaker state without side effects.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
