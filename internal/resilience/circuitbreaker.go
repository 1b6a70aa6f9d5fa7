// Package resilience provides circuit breaker and provider failover primitives.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops hammering a provider that keeps failing. [FallbackGroup] is an ordered
// list of interchangeable providers, each behind its own breaker, where the
// first success wins. [TranslationFallback], [STTFallback] and [TTSFallback]
// expose a group as the respective provider interface.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota
	// StateOpen rejects calls until the reset timeout has passed.
	StateOpen
	// StateHalfOpen lets a bounded number of probe calls through.
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero values select the
// defaults noted per field.
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs, usually "<kind>/<provider>".
	Name string

	// MaxFailures is the run of consecutive failures that opens the
	// breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes needed to close again,
	// and the cap on concurrent probes. Default: 3.
	HalfOpenMax int

	// Neutral reports errors that say nothing about the provider's health,
	// such as a language the provider does not offer. Context cancellation
	// is always neutral.
	Neutral func(error) bool

	// OnStateChange, if set, is called after every transition.
	OnStateChange func(name string, from, to State)

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// CircuitBreaker guards calls to one provider.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int // consecutive failures while closed
	openedAt time.Time
	probes   int // probes in flight or settled in the current half-open round
	passed   int // successful probes in the current half-open round
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// IsNeutral reports whether err is ignored by the breaker's accounting.
func (cb *CircuitBreaker) IsNeutral(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return cb.cfg.Neutral != nil && cb.cfg.Neutral(err)
}

// Execute runs fn unless the breaker rejects the call with [ErrCircuitOpen].
// fn's error is returned unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.settle(probe, err)
	return err
}

// admit decides whether a call may run and whether it counts as a probe.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	var fire func()
	defer func() {
		cb.mu.Unlock()
		if fire != nil {
			fire()
		}
	}()

	if cb.state == StateOpen {
		if cb.cfg.Now().Sub(cb.openedAt) < cb.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		fire = cb.moveTo(StateHalfOpen)
	}
	if cb.state != StateHalfOpen {
		return false, nil
	}
	if cb.probes >= cb.cfg.HalfOpenMax {
		return false, ErrCircuitOpen
	}
	cb.probes++
	return true, nil
}

// settle accounts the outcome of an admitted call.
func (cb *CircuitBreaker) settle(probe bool, err error) {
	cb.mu.Lock()
	var fire func()
	defer func() {
		cb.mu.Unlock()
		if fire != nil {
			fire()
		}
	}()

	neutral := err != nil && cb.IsNeutral(err)
	if probe && cb.state != StateHalfOpen {
		// A concurrent probe already decided the round.
		return
	}
	switch {
	case neutral:
		if probe {
			cb.probes--
		}
	case err == nil && probe:
		cb.passed++
		if cb.passed >= cb.cfg.HalfOpenMax {
			fire = cb.moveTo(StateClosed)
		}
	case err == nil:
		cb.failures = 0
	case probe:
		fire = cb.moveTo(StateOpen)
	default:
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			fire = cb.moveTo(StateOpen)
		}
	}
}

// moveTo switches state and resets the counters of the new state. The
// returned func runs the OnStateChange hook and must be called without
// cb.mu held. Must be called with cb.mu held.
func (cb *CircuitBreaker) moveTo(to State) func() {
	from := cb.state
	cb.state = to
	cb.probes, cb.passed = 0, 0
	switch to {
	case StateOpen:
		cb.openedAt = cb.cfg.Now()
		slog.Warn("circuit breaker opened", "name", cb.cfg.Name, "from", from.String(), "failures", cb.failures)
	case StateClosed:
		cb.failures = 0
		slog.Info("circuit breaker closed", "name", cb.cfg.Name, "from", from.String())
	default:
		slog.Debug("circuit breaker probing", "name", cb.cfg.Name)
	}
	hook, name := cb.cfg.OnStateChange, cb.cfg.Name
	return func() {
		if hook != nil && from != to {
			hook(name, from, to)
		}
	}
}

// State returns the breaker's state. An open breaker whose reset timeout has
// passed reports [StateHalfOpen]; the transition itself happens on the next
// call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	fire := cb.moveTo(StateClosed)
	cb.mu.Unlock()
	fire()
}
