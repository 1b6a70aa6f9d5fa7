// Package lazy provides load-once caches for expensive handles such as local
// speech models and per-language synthesis clients.
//
// Concurrent first use blocks on a single initialisation instead of racing to
// build duplicates. A failed initialisation is not cached; the next caller
// tries again.
package lazy

import (
	"context"
	"errors"
	"sync"
)

// Value holds a handle that is built on first use.
type Value[T any] struct {
	init func(context.Context) (T, error)

	mu     sync.Mutex
	val    T
	loaded bool
}

// New returns a [Value] that builds its handle with init.
func New[T any](init func(context.Context) (T, error)) *Value[T] {
	return &Value[T]{init: init}
}

// Get returns the cached handle, building it first if needed. Callers that
// arrive while another goroutine is building wait for that result.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loaded {
		return v.val, nil
	}
	val, err := v.init(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	v.val, v.loaded = val, true
	return v.val, nil
}

// Loaded reports whether the handle has been built.
func (v *Value[T]) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Close releases the handle with release, if one was built, and resets the
// value so the next Get builds a fresh one.
func (v *Value[T]) Close(release func(T) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.loaded {
		return nil
	}
	var zero T
	val := v.val
	v.val, v.loaded = zero, false
	if release == nil {
		return nil
	}
	return release(val)
}

// Map holds one lazily built handle per key. Different keys initialise
// independently.
type Map[K comparable, V any] struct {
	init func(context.Context, K) (V, error)

	mu      sync.Mutex
	entries map[K]*Value[V]
}

// NewMap returns a [Map] that builds the handle for a key with init.
func NewMap[K comparable, V any](init func(context.Context, K) (V, error)) *Map[K, V] {
	return &Map[K, V]{init: init, entries: make(map[K]*Value[V])}
}

// Get returns the handle for key, building it first if needed.
func (m *Map[K, V]) Get(ctx context.Context, key K) (V, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = New(func(ctx context.Context) (V, error) { return m.init(ctx, key) })
		m.entries[key] = e
	}
	m.mu.Unlock()
	return e.Get(ctx)
}

// Len returns the number of built handles.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Loaded() {
			n++
		}
	}
	return n
}

// Close releases every built handle and empties the map.
func (m *Map[K, V]) Close(release func(V) error) error {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[K]*Value[V])
	m.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.Close(release); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
