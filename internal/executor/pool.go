// Package executor runs blocking work on a bounded set of workers and hands
// results back through futures.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned for work submitted after Close.
var ErrPoolClosed = errors.New("executor: pool closed")

// Pool bounds how many blocking tasks run at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool with the given number of workers (minimum 1).
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the worker bound.
func (p *Pool) Size() int {
	return p.size
}

// Close stops accepting work and waits for in-flight tasks.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the task finishes or ctx ends. An abandoned task keeps
// running to completion.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) resolve(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Submit schedules fn on the pool. fn receives a context that carries ctx's
// values but not its cancellation, so work started for a caller finishes
// even if that caller goes away.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		var zero T
		f.resolve(zero, ErrPoolClosed)
		return f
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	taskCtx := context.WithoutCancel(ctx)

	go func() {
		defer p.wg.Done()

		// Background acquire: queued work is not abandoned either.
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			var zero T
			f.resolve(zero, err)
			return
		}
		defer p.sem.Release(1)

		f.resolve(safeRun(taskCtx, fn))
	}()

	return f
}

// Run submits fn and awaits it with the caller's context.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	return Submit(ctx, p, fn).Await(ctx)
}

func safeRun[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (val T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("executor task panicked")
			var zero T
			val = zero
			err = fmt.Errorf("executor: task panicked: %v", rec)
		}
	}()
	return fn(ctx)
}
