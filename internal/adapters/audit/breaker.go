package audit

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a publish.
var ErrCircuitOpen = errors.New("audit circuit breaker open")

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed lets every publish through.
	StateClosed State = iota

	// StateOpen rejects publishes until the timeout elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probes through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
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

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures int

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// HalfOpenLimit is both the number of concurrent probes and the number of
	// consecutive probe successes that close the circuit.
	HalfOpenLimit int
}

// Breaker guards the audit sink so that a failing table does not add its
// timeout to every committed revision.
//
// State transitions:
//   - Closed → Open: after MaxFailures consecutive failures
//   - Open → HalfOpen: once Timeout has passed
//   - HalfOpen → Closed: after HalfOpenLimit consecutive successes
//   - HalfOpen → Open: on any failure
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
	cfg         BreakerConfig

	onStateChange func(from, to State)
	now           func() time.Time
}

// NewBreaker creates a closed breaker. Zero config values fall back to 5 failures,
// 30 seconds and 1 probe.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.HalfOpenLimit <= 0 {
		cfg.HalfOpenLimit = 1
	}

	return &Breaker{
		state: StateClosed,
		cfg:   cfg,
		now:   time.Now,
	}
}

// OnStateChange registers a callback invoked synchronously after each transition.
// The callback must not call back into the breaker.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.onStateChange = fn
}

// Do runs fn if the breaker allows it and records the outcome.
// It returns ErrCircuitOpen without calling fn when the circuit is open.
func (b *Breaker) Do(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		b.record(false)

		return err
	}

	b.record(true)

	return nil
}

// State returns the current state, moving Open to HalfOpen if the timeout has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cfg.Timeout {
		b.transitionTo(StateHalfOpen)
	}

	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.cfg.Timeout {
			return false
		}

		b.transitionTo(StateHalfOpen)
		b.probes = 1

		return true
	case StateHalfOpen:
		if b.probes >= b.cfg.HalfOpenLimit {
			return false
		}

		b.probes++

		return true
	default:
		return false
	}
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !success {
		b.lastFailure = b.now()
	}

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0

			return
		}

		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			b.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}

		if !success {
			b.transitionTo(StateOpen)

			return
		}

		b.successes++
		if b.successes >= b.cfg.HalfOpenLimit {
			b.transitionTo(StateClosed)
		}
	case StateOpen:
		// A result arriving after the circuit re-opened only refreshes lastFailure.
	}
}

// transitionTo must be called with mu held.
func (b *Breaker) transitionTo(next State) {
	if b.state == next {
		return
	}

	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0

	if next != StateHalfOpen {
		b.probes = 0
	}

	if b.onStateChange != nil {
		b.onStateChange(prev, next)
	}
}
