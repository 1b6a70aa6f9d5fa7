// Package workpool runs blocking jobs on a fixed number of goroutines.
//
// Translation, transcription and synthesis all share one [Pool] so that
// slow provider calls and local model inference never run on the goroutines
// that serve chat and HTTP traffic, and so that the number of concurrent
// model invocations stays bounded. Jobs start in submission order; there are
// no priority classes, so a long transcription can delay a translation queued
// behind it.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/lingvox/internal/observe"
)

// DefaultSize is the number of workers used when New is given size <= 0.
const DefaultSize = 4

// queueSize bounds the number of jobs waiting for a worker. Submitters block
// once it is full.
const queueSize = 256

// ErrClosed is returned when submitting to a closed pool.
var ErrClosed = errors.New("workpool: pool is closed")

type job struct {
	run      func()
	enqueued time.Time
}

// Pool is a fixed-size FIFO worker pool. It is safe for concurrent use.
type Pool struct {
	size    int
	jobs    chan job
	metrics *observe.Metrics
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Option configures a [Pool].
type Option func(*Pool)

// WithMetrics records queue wait and busy workers on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// New starts a pool with size workers.
func New(size int, opts ...Option) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	p := &Pool{
		size: size,
		jobs: make(chan job, queueSize),
	}
	for _, o := range opts {
		o(p)
	}
	p.wg.Add(size)
	for range size {
		go p.worker()
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		if p.metrics != nil {
			ctx := context.Background()
			p.metrics.QueueWait.Record(ctx, time.Since(j.enqueued).Seconds())
			p.metrics.BusyWorkers.Add(ctx, 1)
		}
		j.run()
		if p.metrics != nil {
			p.metrics.BusyWorkers.Add(context.Background(), -1)
		}
	}
}

// Submit queues fn. It blocks while the queue is full and returns ctx.Err()
// if ctx ends first.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- job{run: fn, enqueued: time.Now()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, lets queued jobs finish and waits for the
// workers to exit. Calling Close more than once is a no-op.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

type result[T any] struct {
	val T
	err error
}

// Do runs fn on the pool and waits for its result. If ctx ends while the job
// is still queued, the job is dropped when it reaches a worker. If ctx ends
// while the job runs, Do returns ctx.Err() immediately and fn keeps the
// worker until it observes the cancellation itself. A panic in fn is
// recovered and returned as an error.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	return DoDiscard(ctx, p, fn, nil)
}

// DoDiscard is [Do] for results that own resources. A successful result fn
// produces after Do already returned ctx.Err() is passed to discard instead
// of being dropped.
func DoDiscard[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error), discard func(T)) (T, error) {
	var (
		zero      T
		mu        sync.Mutex
		abandoned bool
	)
	done := make(chan result[T], 1)
	deliver := func(r result[T]) {
		mu.Lock()
		defer mu.Unlock()
		if !abandoned {
			done <- r
			return
		}
		if r.err == nil && discard != nil {
			discard(r.val)
		}
	}
	err := p.Submit(ctx, func() {
		if err := ctx.Err(); err != nil {
			deliver(result[T]{err: err})
			return
		}
		defer func() {
			if r := recover(); r != nil {
				slog.Error("workpool: job panicked", "panic", r)
				deliver(result[T]{err: fmt.Errorf("workpool: job panicked: %v", r)})
			}
		}()
		v, err := fn(ctx)
		deliver(result[T]{val: v, err: err})
	})
	if err != nil {
		return zero, err
	}
	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
	}

	mu.Lock()
	abandoned = true
	mu.Unlock()
	// The job may have delivered just before it was abandoned.
	select {
	case r := <-done:
		if r.err == nil && discard != nil {
			discard(r.val)
		}
	default:
	}
	return zero, ctx.Err()
}
