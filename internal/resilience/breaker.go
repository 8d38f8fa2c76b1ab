// Package resilience provides the circuit breaker that guards verdex's
// remote dependencies.
//
// The statute source is a public website with no availability guarantees.
// When it starts failing consistently, hammering it with one timed-out
// request per reference makes every verification slow and helps nobody; the
// breaker fails those resolutions fast (the gateway then falls back to stale
// cache entries) and probes the source again after a cool-down.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] when the breaker is open and the
// cool-down has not yet elapsed.
var ErrOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	// Closed is the normal state — calls pass through.
	Closed State = iota

	// Open means the breaker tripped; calls fail immediately with [ErrOpen]
	// until the cool-down elapses.
	Open

	// HalfOpen allows a single probe call after the cool-down. Success
	// closes the breaker, failure re-opens it.
	HalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds tuning knobs for a [Breaker].
type Config struct {
	// Name is a human-readable label used in log messages.
	Name string

	// Threshold is the number of consecutive failures that trips the
	// breaker. Default: 5.
	Threshold int

	// Cooldown is how long the breaker stays open before allowing a probe.
	// Default: 30s.
	Cooldown time.Duration
}

// Breaker is a three-state (closed → open → half-open) circuit breaker with
// a single-probe half-open policy.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a [Breaker]; zero-value config fields get defaults.
func NewBreaker(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		name:      cfg.Name,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
	}
}

// Do runs fn if the breaker allows it. In the open state it returns [ErrOpen]
// without calling fn; in the half-open state only one probe call is admitted
// at a time.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case Open:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = HalfOpen
		slog.Info("circuit breaker half-open", "name", b.name)
		fallthrough
	case HalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	probe := b.state == HalfOpen
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}

	if err != nil {
		b.failures++
		if probe || b.failures >= b.threshold {
			if b.state != Open {
				slog.Warn("circuit breaker opened",
					"name", b.name,
					"consecutive_failures", b.failures)
			}
			b.state = Open
			b.openedAt = time.Now()
		}
		return err
	}

	if b.state != Closed {
		slog.Info("circuit breaker closed", "name", b.name)
	}
	b.state = Closed
	b.failures = 0
	return nil
}

// State returns the breaker's current state. An open breaker whose cool-down
// has elapsed reports [HalfOpen]; the actual transition happens on the next
// [Breaker.Do].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && time.Since(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}
