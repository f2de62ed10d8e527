package promise

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/semaphore"
)

// PoolEventListener can be attached to a promise pool to listen for
// fulfillment and rejection events of the promises created and tracked by
// the pool. This can be used for logging or collecting values.
type PoolEventListener[T any] struct {
	// OnFulfilled is called on each promise fulfillment.
	OnFulfilled func(val T)

	// OnRejected is called on each promise rejection.
	OnRejected func(err error)
}

// PoolOptions configure the behavior of a promise pool.
type PoolOptions struct {
	// ContinueOnError keeps the pool running when one of its promises
	// rejects instead of rejecting the pool promise with the first error
	// encountered. Rejections are still dispatched to event listeners.
	ContinueOnError bool
}

// A Pool creates promises from a stream of promise factory funcs and
// supervises their resolution. It ensures that only a configurable number
// of promises will be resolved concurrently.
type Pool[T any] struct {
	mu        sync.Mutex
	size      int64
	sem       *semaphore.Weighted
	done      chan struct{}
	result    chan Resolution[T]
	fns       <-chan func() *Promise[T]
	options   PoolOptions
	listeners []*PoolEventListener[T]
	promise   *Promise[T]
}

// NewPool creates a new promise pool with given concurrency and channel
// which provides promise factory funcs. Negative concurrency values will
// cause a panic. Nil funcs or nil promises returned by the funcs from the
// channel will also cause panics when Run is called on the pool.
func NewPool[T any](concurrency int64, fns <-chan func() *Promise[T], options ...PoolOptions) *Pool[T] {
	if concurrency <= 0 {
		panic("concurrency must be greater than 0")
	}

	pool := &Pool[T]{
		fns:    fns,
		size:   concurrency,
		sem:    semaphore.NewWeighted(concurrency),
		done:   make(chan struct{}),
		result: make(chan Resolution[T]),
	}

	if len(options) > 0 {
		pool.options = options[0]
	}

	return pool
}

// Run starts the pool. This will consume the funcs from the channel
// provided to NewPool with the configured concurrency. It returns a promise
// which fulfills once the channel providing the promise factory funcs is
// closed. The promise rejects upon the first error encountered or if ctx is
// cancelled. Run must only be called once. Subsequent calls to it will
// panic.
func (p *Pool[T]) Run(ctx context.Context) *Promise[T] {
	if p.promise != nil {
		panic("promise pool cannot be started twice")
	}

	p.promise = New(func(resolve ResolveFunc[T], reject RejectFunc) {
		defer func() {
			p.mu.Lock()
			p.listeners = nil
			close(p.done)
			p.mu.Unlock()
		}()

		select {
		case res := <-p.result:
			if res.Rejected() {
				reject(res.Err())
				return
			}

			resolve(res.Value())
		case <-ctx.Done():
			reject(ctx.Err())
		}
	})

	go p.run(ctx)

	return p.promise
}

func (p *Pool[T]) run(ctx context.Context) {
	// Stop waiting for semaphore slots as soon as the pool promise settled,
	// either because one of the in-flight promises rejected or because ctx
	// was cancelled.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-p.done
		cancel()
	}()

	for {
		fn, ok := <-p.fns
		if !ok {
			// Fns channel was closed, we need to stop. By acquiring the full
			// semaphore weight we make sure that all promises that are
			// currently in flight resolved before we send the final result.
			if err := p.sem.Acquire(runCtx, p.size); err != nil {
				return
			}

			var zero T
			p.send(OfValue(zero))
			return
		}

		// Wait for a semaphore slot before executing the promise factory
		// func. Acquire fails once the pool promise settled, in which case
		// there is no point in continuing.
		if err := p.sem.Acquire(runCtx, 1); err != nil {
			return
		}

		p.execute(fn)
	}
}

// send hands a result to the pool promise without blocking forever in case
// the promise already settled and nobody receives anymore.
func (p *Pool[T]) send(res Resolution[T]) {
	select {
	case p.result <- res:
	case <-p.done:
	}
}

func (p *Pool[T]) execute(fn func() *Promise[T]) {
	fn().cell.pipe(func(res Resolution[T]) {
		defer p.sem.Release(1)

		if res.Rejected() {
			// The pool assumes responsibility for the failure: it either
			// rejects its own promise with this error or discards it because
			// an earlier error already did or ContinueOnError is set.
			res.markConsumed()
			p.dispatchRejection(res.Err())

			if p.options.ContinueOnError {
				return
			}

			// Use a select with default to prevent blocking in the case
			// where a result was already sent by another rejection handler.
			// We would discard it anyways as the first error by any promise
			// immediately rejects the pool promise. Also, we avoid leaking a
			// goroutine by that.
			select {
			case p.result <- res:
			default:
			}

			return
		}

		p.dispatchFulfillment(res.Value())
	})
}

func (p *Pool[T]) dispatchFulfillment(val T) {
	p.mu.Lock()
	listeners := p.listeners
	p.mu.Unlock()

	for _, l := range listeners {
		if l.OnFulfilled != nil {
			l.OnFulfilled(val)
		}
	}
}

func (p *Pool[T]) dispatchRejection(err error) {
	p.mu.Lock()
	listeners := p.listeners
	p.mu.Unlock()

	for _, l := range listeners {
		if l.OnRejected != nil {
			l.OnRejected(err)
		}
	}
}

// AddEventListener adds listener to the pool. Will not add it again if
// listener is already present. A nil listener causes a panic.
func (p *Pool[T]) AddEventListener(listener *PoolEventListener[T]) {
	if listener == nil {
		panic("listener must not be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !slices.Contains(p.listeners, listener) {
		p.listeners = append(p.listeners, listener)
	}
}

// RemoveEventListener removes listener from the pool if it was present.
func (p *Pool[T]) RemoveEventListener(listener *PoolEventListener[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.Index(p.listeners, listener); i >= 0 {
		p.listeners = slices.Delete(p.listeners, i, i+1)
	}
}
