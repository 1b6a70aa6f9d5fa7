package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails, is
// skipped, or has an open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures a [FallbackGroup] and the circuit breaker created
// for each of its entries.
type FallbackConfig struct {
	// Kind labels the group in logs and metrics ("translation", "stt", "tts").
	Kind string

	CircuitBreaker CircuitBreakerConfig

	// OnAttempt, if set, is called after every provider attempt with the
	// attempt's latency and error. Entries skipped because of an open breaker
	// are not reported.
	OnAttempt func(ctx context.Context, kind, provider string, d time.Duration, err error)

	// OnFallback, if set, is called when an entry other than the first one
	// produced the result.
	OnFallback func(ctx context.Context, kind, provider string)

	// OnBreakerChange, if set, is called when the breaker of an entry
	// changes state.
	OnBreakerChange func(kind, provider string, from, to State)
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup is an ordered list of interchangeable providers. Calls try
// each entry exactly once, in registration order, until one succeeds.
// Providers are never retried within a call.
//
// Entries must be registered before the group is used concurrently.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates an empty [FallbackGroup]. Entries are registered
// with [FallbackGroup.Add].
func NewFallbackGroup[T any](cfg FallbackConfig) *FallbackGroup[T] {
	return &FallbackGroup[T]{cfg: cfg}
}

// Add appends a provider. Providers are tried in the order they are added.
func (fg *FallbackGroup[T]) Add(name string, value T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = fg.cfg.Kind + "/" + name
	if hook := fg.cfg.OnBreakerChange; hook != nil {
		kind := fg.cfg.Kind
		cbCfg.OnStateChange = func(_ string, from, to State) { hook(kind, name, from, to) }
	}
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Names returns the registered provider names in order.
func (fg *FallbackGroup[T]) Names() []string {
	names := make([]string, len(fg.entries))
	for i, e := range fg.entries {
		names[i] = e.name
	}
	return names
}

// Len returns the number of registered providers.
func (fg *FallbackGroup[T]) Len() int { return len(fg.entries) }

// Execute tries fn against each entry in order until one succeeds.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(context.Context, T) error) error {
	_, err := ExecuteWithResult(ctx, fg, func(ctx context.Context, v T) (struct{}, error) {
		return struct{}{}, fn(ctx, v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry of fg until one succeeds and
// returns its result. Entries with an open breaker are skipped. If every entry
// fails, the returned error wraps [ErrAllFailed] and the last provider error.
// A cancelled ctx stops the walk and returns ctx.Err().
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(context.Context, T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	if len(fg.entries) == 0 {
		return zero, fmt.Errorf("%w: no %s providers configured", ErrAllFailed, fg.cfg.Kind)
	}
	for i := range fg.entries {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		entry := &fg.entries[i]
		var result R
		start := time.Now()
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(ctx, entry.value)
			return innerErr
		})
		if err == nil {
			fg.reportAttempt(ctx, entry.name, time.Since(start), nil)
			if i > 0 && fg.cfg.OnFallback != nil {
				fg.cfg.OnFallback(ctx, fg.cfg.Kind, entry.name)
			}
			return result, nil
		}
		lastErr = err
		switch {
		case errors.Is(err, ErrCircuitOpen):
			slog.Debug("skipping provider (circuit open)",
				"kind", fg.cfg.Kind, "provider", entry.name)
		case entry.breaker.IsNeutral(err):
			slog.Debug("provider skipped request",
				"kind", fg.cfg.Kind, "provider", entry.name, "reason", err)
		default:
			fg.reportAttempt(ctx, entry.name, time.Since(start), err)
			slog.Warn("provider failed, trying next",
				"kind", fg.cfg.Kind, "provider", entry.name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}

func (fg *FallbackGroup[T]) reportAttempt(ctx context.Context, name string, d time.Duration, err error) {
	if fg.cfg.OnAttempt != nil {
		fg.cfg.OnAttempt(ctx, fg.cfg.Kind, name, d, err)
	}
}
