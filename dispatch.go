package promise

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// An ExecutionContext runs continuation jobs. Submit must not block the
// submitter; the job runs at an unspecified later point. No ordering is
// guaranteed between jobs submitted to different contexts.
type ExecutionContext interface {
	Submit(job func())
}

// goContext runs every job on its own goroutine.
type goContext struct{}

func (goContext) Submit(job func()) { go job() }

// inlineContext runs jobs synchronously on the submitting goroutine. It is
// used internally wherever a dispatch hop must not be introduced.
type inlineContext struct{}

func (inlineContext) Submit(job func()) { job() }

// Inline returns the execution context that runs jobs synchronously on the
// submitting goroutine. Handlers dispatched inline run on whatever
// goroutine settles the promise, so they must not block and must not rely
// on running off the resolver's call stack.
func Inline() ExecutionContext { return inlineContext{} }

var defaultContext struct {
	mu   sync.Mutex
	ec   ExecutionContext
	used bool
}

// Default returns the process-wide default execution context. Unless
// replaced via SetDefault it runs every job on its own goroutine.
func Default() ExecutionContext {
	defaultContext.mu.Lock()
	defer defaultContext.mu.Unlock()

	if defaultContext.ec == nil {
		defaultContext.ec = goContext{}
	}
	defaultContext.used = true

	return defaultContext.ec
}

// SetDefault replaces the process-wide default execution context. It must
// be called once at process start, before any promise is created; it panics
// if the default context was already handed out.
func SetDefault(ec ExecutionContext) {
	if ec == nil {
		panic("promise: nil execution context")
	}

	defaultContext.mu.Lock()
	defer defaultContext.mu.Unlock()

	if defaultContext.used {
		panic("promise: default execution context already in use")
	}

	defaultContext.ec = ec
}

// boundedContext runs at most a fixed number of jobs concurrently.
type boundedContext struct {
	sem *semaphore.Weighted
}

// NewBounded returns an ExecutionContext that runs at most concurrency jobs
// at the same time. Submit never blocks; jobs wait for a slot on their own
// goroutine. Negative or zero concurrency values will cause a panic.
func NewBounded(concurrency int64) ExecutionContext {
	if concurrency <= 0 {
		panic("concurrency must be greater than 0")
	}

	return &boundedContext{sem: semaphore.NewWeighted(concurrency)}
}

func (c *boundedContext) Submit(job func()) {
	go func() {
		// Acquire cannot fail with a background context.
		_ = c.sem.Acquire(context.Background(), 1)
		defer c.sem.Release(1)
		job()
	}()
}
