// Package circuitbreaker tracks per-provider health for the fallback loop.
// An open breaker makes the pipeline skip that provider's catalog entries
// until the open timeout elapses, so a hard-down back-end stops eating its
// share of request latency.
//
// State transitions:
//
//	Closed → Open      when consecutive failures ≥ failureThreshold
//	Open → HalfOpen    after the open timeout elapses
//	HalfOpen → Closed  when consecutive successes ≥ successThreshold
//	HalfOpen → Open    on any failure
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/lytix-labs/optimodel/internal/metrics"
	"github.com/lytix-labs/optimodel/providers"
)

// State is a breaker's position in the transition diagram above.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is the per-candidate error recorded when a provider is skipped
// because its breaker is open.
var ErrOpen = errors.New("provider circuit open")

// Breaker guards one provider.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	openUntil        time.Time
}

func newBreaker(cfg Config) *Breaker {
	return &Breaker{
		state:            StateClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.OpenTimeout,
	}
}

// resolveState must be called with b.mu held.
func (b *Breaker) resolveState() State {
	if b.state == StateOpen && time.Now().After(b.openUntil) {
		b.state = StateHalfOpen
		b.successCount = 0
	}
	return b.state
}

// Allow reports whether a call to the provider should proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveState() != StateOpen
}

// RecordSuccess notifies the breaker that a provider call succeeded.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
		}
	case StateClosed:
		b.failureCount = 0
	}
}

// RecordFailure notifies the breaker that a provider call failed.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.state = StateOpen
			b.openUntil = time.Now().Add(b.timeout)
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.openUntil = time.Now().Add(b.timeout)
		b.successCount = 0
	}
}

// State returns the breaker's current state, applying the Open→HalfOpen
// timeout transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveState()
}

// Config tunes every breaker in a Set. Zero or negative values take the
// defaults: 5 failures to open, 1 success to close, 30s open timeout.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// Set lazily maintains one Breaker per provider.
type Set struct {
	mu       sync.Mutex
	cfg      Config
	breakers map[providers.ID]*Breaker
}

// NewSet creates a breaker set with shared config.
func NewSet(cfg Config) *Set {
	return &Set{
		cfg:      cfg.withDefaults(),
		breakers: make(map[providers.ID]*Breaker),
	}
}

// For returns the breaker for a provider, creating it on first use.
func (s *Set) For(provider providers.ID) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[provider]
	if !ok {
		b = newBreaker(s.cfg)
		s.breakers[provider] = b
	}
	return b
}

// Allow reports whether the provider should be attempted, and exports the
// resolved state as a gauge.
func (s *Set) Allow(provider providers.ID) bool {
	b := s.For(provider)
	state := b.State()
	metrics.CircuitBreakerState.WithLabelValues(string(provider)).Set(float64(state))
	return state != StateOpen
}

// RecordSuccess records a successful call against the provider's breaker.
func (s *Set) RecordSuccess(provider providers.ID) {
	s.For(provider).RecordSuccess()
}

// RecordFailure records a failed call against the provider's breaker.
func (s *Set) RecordFailure(provider providers.ID) {
	s.For(provider).RecordFailure()
}
