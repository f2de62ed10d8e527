package promise

import "github.com/pkg/errors"

const nilCallbackPanicMsg = "promise: nil callback"

func panicError(v interface{}) error {
	return errors.Errorf("panic while resolving promise: %v", v)
}

// adopt resolves next with the outcome of a resolution handler. A handler
// may return any Thenable; if it returns a promise, next adopts that
// promise's eventual resolution, collapsing one level of nesting. Returning
// the promise the handler chains from or into rejects next with
// ErrCircularResolutionChain instead of waiting on a resolution that can
// never happen.
func adopt[T any](next, prev *Promise[T], t Thenable[T]) {
	if t == nil {
		next.cell.resolve(OfError[T](ErrNilResult))
		return
	}

	rp := t.Promise()
	if rp == nil {
		next.cell.resolve(OfError[T](ErrNilResult))
		return
	}

	if rp.cell == next.cell || rp.cell == prev.cell {
		next.cell.resolve(OfError[T](ErrCircularResolutionChain))
		return
	}

	rp.cell.pipe(func(res Resolution[T]) {
		next.cell.resolve(res)
	})
}

// Then registers fn to run with the fulfillment value on the default
// execution context and returns a promise for its outcome. A rejection
// skips fn and propagates to the returned promise untouched.
func (p *Promise[T]) Then(fn func(val T) Thenable[T]) *Promise[T] {
	return p.ThenOn(Default(), fn)
}

// ThenOn is Then with an explicit execution context for fn.
func (p *Promise[T]) ThenOn(ec ExecutionContext, fn func(val T) Thenable[T]) *Promise[T] {
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	next := newPending[T]()

	p.cell.pipe(func(res Resolution[T]) {
		if res.state == Rejected {
			next.cell.resolve(res)
			return
		}

		ec.Submit(func() {
			defer rejectOnPanic(next.cell)
			adopt(next, p, fn(res.value))
		})
	})

	return next
}

// Done registers fn as the terminal consumer of the fulfillment value and
// returns a void promise that fulfills once fn returned. A rejection skips
// fn and propagates to the returned promise.
func (p *Promise[T]) Done(fn func(val T)) *Promise[Void] {
	return p.DoneOn(Default(), fn)
}

// DoneOn is Done with an explicit execution context for fn.
func (p *Promise[T]) DoneOn(ec ExecutionContext, fn func(val T)) *Promise[Void] {
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	next := newPending[Void]()

	p.cell.pipe(func(res Resolution[T]) {
		if res.state == Rejected {
			next.cell.resolve(rejectedWith[Void](res.err, res.flag))
			return
		}

		ec.Submit(func() {
			defer rejectOnPanic(next.cell)
			fn(res.value)
			next.cell.resolve(OfValue(Void{}))
		})
	})

	return next
}

// Catch registers fn to run with the rejection error on the default
// execution context and returns the receiver unchanged, so further Ensure
// or Catch calls can continue the chain. Under the default policy fn is not
// invoked for cancellation errors; pass CatchAllErrors to receive those
// too. Invoking fn marks the error as handled.
func (p *Promise[T]) Catch(fn func(err error), policy ...CatchPolicy) *Promise[T] {
	return p.CatchOn(Default(), fn, policy...)
}

// CatchOn is Catch with an explicit execution context for fn.
func (p *Promise[T]) CatchOn(ec ExecutionContext, fn func(err error), policy ...CatchPolicy) *Promise[T] {
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	pol := catchPolicyOf(policy)

	p.cell.pipe(func(res Resolution[T]) {
		if res.state != Rejected {
			return
		}

		if pol != CatchAllErrors && IsCancelled(res.err) {
			return
		}

		// Mark the error as handled before dispatching, so that the
		// rejection cannot be reported as unhandled while fn is still
		// queued.
		res.markConsumed()

		ec.Submit(func() {
			fn(res.err)
		})
	})

	return p
}

// Recover registers fn to run with the rejection error on the default
// execution context and returns a promise for its outcome, allowing a
// rejected chain to continue with a replacement value or a new rejection.
// A fulfillment skips fn and propagates to the returned promise untouched,
// as does a cancellation error under the default policy. Invoking fn marks
// the error as handled.
func (p *Promise[T]) Recover(fn func(err error) Thenable[T], policy ...CatchPolicy) *Promise[T] {
	return p.RecoverOn(Default(), fn, policy...)
}

// RecoverOn is Recover with an explicit execution context for fn.
func (p *Promise[T]) RecoverOn(ec ExecutionContext, fn func(err error) Thenable[T], policy ...CatchPolicy) *Promise[T] {
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	pol := catchPolicyOf(policy)
	next := newPending[T]()

	p.cell.pipe(func(res Resolution[T]) {
		if res.state != Rejected {
			next.cell.resolve(res)
			return
		}

		if pol != CatchAllErrors && IsCancelled(res.err) {
			next.cell.resolve(res)
			return
		}

		res.markConsumed()

		ec.Submit(func() {
			defer rejectOnPanic(next.cell)
			adopt(next, p, fn(res.err))
		})
	})

	return next
}

// RecoverVoid is the void-producing overload of Recover for promises that
// carry no value: fn is run for its side effects only and the returned
// promise fulfills afterwards.
func RecoverVoid(p *Promise[Void], fn func(err error), policy ...CatchPolicy) *Promise[Void] {
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	return p.Recover(func(err error) Thenable[Void] {
		fn(err)
		return Resolve(Void{})
	}, policy...)
}

// Ensure registers fn to run on the default execution context regardless of
// the outcome and returns a promise that forwards the original resolution
// untouched once fn returned.
func (p *Promise[T]) Ensure(fn func()) *Promise[T] {
	return p.EnsureOn(Default(), fn)
}

// EnsureOn is Ensure with an explicit execution context for fn.
func (p *Promise[T]) EnsureOn(ec ExecutionContext, fn func()) *Promise[T] {
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	next := newPending[T]()

	p.cell.pipe(func(res Resolution[T]) {
		ec.Submit(func() {
			defer rejectOnPanic(next.cell)
			fn()
			next.cell.resolve(res)
		})
	})

	return next
}

// Tap is Ensure with read-only visibility into the resolution: fn receives
// a snapshot of the outcome and the returned promise forwards the original
// resolution untouched. Inspecting the resolution does not mark a rejection
// as handled.
func (p *Promise[T]) Tap(fn func(res Resolution[T])) *Promise[T] {
	return p.TapOn(Default(), fn)
}

// TapOn is Tap with an explicit execution context for fn.
func (p *Promise[T]) TapOn(ec ExecutionContext, fn func(res Resolution[T])) *Promise[T] {
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	next := newPending[T]()

	p.cell.pipe(func(res Resolution[T]) {
		ec.Submit(func() {
			defer rejectOnPanic(next.cell)
			fn(res)
			next.cell.resolve(res)
		})
	})

	return next
}

// rejectOnPanic converts a panic inside a resolution handler into a
// rejection of the promise the handler resolves into. It must be invoked
// through defer.
func rejectOnPanic[T any](c *cell[T]) {
	if v := recover(); v != nil {
		c.resolve(OfError[T](panicError(v)))
	}
}
