// Package promise provides a generic promise implementation for composing
// the eventual results of asynchronous operations. A promise is a handle on
// a value that may not exist yet: it is pending until it is either fulfilled
// with a value or rejected with an error, and it settles exactly once.
// Continuations are attached with Then, Done, Catch, Recover, Ensure and
// Tap, and multiple promises are combined with All, AllSettled, Any and
// Race. Continuations run on an ExecutionContext; unless an explicit context
// is named they are dispatched onto the process-wide default context.
package promise

// Void is the payload type of promises that carry no value.
type Void = struct{}

// ResolveFunc fulfills the paired promise with the provided value. It is
// safe to call from any goroutine; calls after the promise settled are
// no-ops.
type ResolveFunc[T any] func(val T)

// RejectFunc rejects the paired promise with the provided error. It is safe
// to call from any goroutine; calls after the promise settled are no-ops.
type RejectFunc func(err error)

// ExecutorFunc is passed to New in order to expose a ResolveFunc and a
// RejectFunc to the application logic that decides about fulfillment or
// rejection of a promise. At least one of the two must be called to settle
// the promise. Not calling any of them leaves the promise pending forever.
type ExecutorFunc[T any] func(resolve ResolveFunc[T], reject RejectFunc)

// A Promise represents the eventual completion (or failure) of an
// asynchronous operation, and its resulting value. The zero value is not
// usable; promises are created through New, Resolve, Reject, Deferred or
// one of the combinators.
type Promise[T any] struct {
	cell *cell[T]
}

func newPending[T any]() *Promise[T] {
	return &Promise[T]{cell: newCell[T]()}
}

// New creates a pending promise and dispatches executor onto the default
// execution context. Panics inside the executor reject the promise. A nil
// executor leaves the promise pending until it is resolved through other
// means, for example by welding.
func New[T any](executor ExecutorFunc[T]) *Promise[T] {
	p, resolve, reject := Deferred[T]()

	if executor != nil {
		Default().Submit(func() {
			defer func() {
				if v := recover(); v != nil {
					reject(panicError(v))
				}
			}()
			executor(resolve, reject)
		})
	}

	return p
}

// Resolve returns a promise that is already fulfilled with val.
func Resolve[T any](val T) *Promise[T] {
	return &Promise[T]{cell: newSealedCell(OfValue(val))}
}

// Reject returns a promise that is already rejected with err.
func Reject[T any](err error) *Promise[T] {
	return &Promise[T]{cell: newSealedCell(OfError[T](err))}
}

// Promise implements the Thenable interface.
func (p *Promise[T]) Promise() *Promise[T] { return p }

// State returns a snapshot of the promise state without blocking.
func (p *Promise[T]) State() State {
	res, ok := p.cell.get()
	if !ok {
		return Pending
	}
	return res.state
}

// Value returns the fulfillment value and true if the promise is fulfilled.
// It never blocks.
func (p *Promise[T]) Value() (T, bool) {
	res, ok := p.cell.get()
	if !ok || res.state != Fulfilled {
		var zero T
		return zero, false
	}
	return res.value, true
}

// Err returns the rejection error if the promise is rejected, and nil while
// it is pending or if it is fulfilled. It never blocks.
func (p *Promise[T]) Err() error {
	res, ok := p.cell.get()
	if !ok {
		return nil
	}
	return res.err
}

// Resolution returns a snapshot of the promise resolution and true if the
// promise has settled. It never blocks.
func (p *Promise[T]) Resolution() (Resolution[T], bool) {
	return p.cell.get()
}

// IsPending reports whether the promise has not settled yet.
func (p *Promise[T]) IsPending() bool { return p.State() == Pending }

// IsFulfilled reports whether the promise was fulfilled.
func (p *Promise[T]) IsFulfilled() bool { return p.State() == Fulfilled }

// IsRejected reports whether the promise was rejected.
func (p *Promise[T]) IsRejected() bool { return p.State() == Rejected }

// Await blocks until the promise settles and returns the fulfillment value
// or the rejection error. Awaiting a rejected promise marks its error as
// handled.
func (p *Promise[T]) Await() (T, error) {
	done := make(chan Resolution[T], 1)
	p.cell.pipe(func(res Resolution[T]) {
		done <- res
	})

	res := <-done
	if res.state == Rejected {
		res.markConsumed()
		var zero T
		return zero, res.err
	}

	return res.value, nil
}
