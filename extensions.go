package promise

import (
	"fmt"
	"strings"
	"sync"
)

// tracker serializes the bookkeeping shared by the aggregate combinators:
// the remaining-input counter and the per-index results buffer. The
// aggregate's own cell acts as the resolve-once latch, so racing inputs can
// attempt to settle the aggregate without further coordination.
type tracker[R any] struct {
	mu        sync.Mutex
	remaining int
	results   []R
}

func newTracker[R any](n int) *tracker[R] {
	return &tracker[R]{remaining: n, results: make([]R, n)}
}

// complete records the result for input i and reports whether it was the
// last outstanding one. The counter never drops below zero, so inputs that
// settle after the aggregate already did are counted but harmless.
func (t *tracker[R]) complete(i int, res R) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.results[i] = res
	if t.remaining > 0 {
		t.remaining--
	}
	return t.remaining == 0
}

// All returns a single promise that fulfills when all of the passed
// thenables have been fulfilled, or immediately when none were passed. The
// fulfillment value preserves input order regardless of completion order.
// It rejects with the error of the first input that rejects; errors of
// inputs rejecting later are marked as handled, since the aggregate already
// assumed responsibility for reporting a failure.
func All[T any](thenables ...Thenable[T]) *Promise[[]T] {
	if len(thenables) == 0 {
		return Resolve([]T{})
	}

	next := newPending[[]T]()
	progress := newTracker[T](len(thenables))

	for i, t := range thenables {
		i := i

		t.Promise().cell.pipe(func(res Resolution[T]) {
			if res.state == Rejected {
				if !next.cell.resolve(rejectedWith[[]T](res.err, res.flag)) {
					res.markConsumed()
				}
				return
			}

			if progress.complete(i, res.value) {
				next.cell.resolve(OfValue(progress.results))
			}
		})
	}

	return next
}

// AllSettled returns a promise that always fulfills once every passed
// thenable has settled, carrying the ordered resolutions of all inputs,
// fulfilled and rejected alike. It never rejects; an empty input fulfills
// immediately with an empty slice. Input rejections are marked as handled,
// since their errors are delivered to the caller as values.
func AllSettled[T any](thenables ...Thenable[T]) *Promise[[]Resolution[T]] {
	if len(thenables) == 0 {
		return Resolve([]Resolution[T]{})
	}

	next := newPending[[]Resolution[T]]()
	progress := newTracker[Resolution[T]](len(thenables))

	for i, t := range thenables {
		i := i

		t.Promise().cell.pipe(func(res Resolution[T]) {
			res.markConsumed()

			if progress.complete(i, res) {
				next.cell.resolve(OfValue(progress.results))
			}
		})
	}

	return next
}

// Join is AllSettled under the name established by other promise libraries:
// it waits for every input and reports a vector of individual outcomes.
func Join[T any](thenables ...Thenable[T]) *Promise[[]Resolution[T]] {
	return AllSettled(thenables...)
}

// Race returns a promise that settles as soon as one of the passed
// thenables settles, with the value or error from that input. Errors of
// inputs losing the race are marked as handled. An empty input fulfills
// with the zero value.
func Race[T any](thenables ...Thenable[T]) *Promise[T] {
	if len(thenables) == 0 {
		var zero T
		return Resolve(zero)
	}

	next := newPending[T]()

	for _, t := range thenables {
		t.Promise().cell.pipe(func(res Resolution[T]) {
			if !next.cell.resolve(res) && res.state == Rejected {
				res.markConsumed()
			}
		})
	}

	return next
}

// AggregateError is a collection of errors that are aggregated in a single
// error.
type AggregateError []error

// Error implements the error interface. It aggregates the messages of
// multiple errors into a single error string.
func (e AggregateError) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	errStrings := make([]string, len(e))
	for i, err := range e {
		errStrings[i] = fmt.Sprintf("* %s", err)
	}

	return fmt.Sprintf(
		"%d promises rejected due to errors:\n%s",
		len(e), strings.Join(errStrings, "\n"))
}

// Any returns a promise that fulfills as soon as one of the passed
// thenables fulfills, with the value from that input. If every input
// rejects, the returned promise rejects with an AggregateError holding all
// rejection reasons in input order. Essentially, this func does the
// opposite of All. An empty input fulfills with the zero value.
func Any[T any](thenables ...Thenable[T]) *Promise[T] {
	if len(thenables) == 0 {
		var zero T
		return Resolve(zero)
	}

	next := newPending[T]()
	progress := newTracker[error](len(thenables))

	for i, t := range thenables {
		i := i

		t.Promise().cell.pipe(func(res Resolution[T]) {
			if res.state == Fulfilled {
				next.cell.resolve(res)
				return
			}

			res.markConsumed()

			if progress.complete(i, res.err) {
				next.cell.resolve(OfError[T](AggregateError(progress.results)))
			}
		})
	}

	return next
}

// Tuple2 groups the fulfillment values of two promises with differing
// payload types.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

// Tuple3 groups the fulfillment values of three promises with differing
// payload types.
type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// All2 is the fixed-arity form of All for two promises with differing
// payload types.
func All2[A, B any](ta Thenable[A], tb Thenable[B]) *Promise[Tuple2[A, B]] {
	next := newPending[Tuple2[A, B]]()

	All[any](AsAny(ta.Promise()), AsAny(tb.Promise())).cell.pipe(func(res Resolution[[]any]) {
		if res.state == Rejected {
			next.cell.resolve(rejectedWith[Tuple2[A, B]](res.err, res.flag))
			return
		}

		next.cell.resolve(OfValue(Tuple2[A, B]{
			First:  res.value[0].(A),
			Second: res.value[1].(B),
		}))
	})

	return next
}

// All3 is the fixed-arity form of All for three promises with differing
// payload types.
func All3[A, B, C any](ta Thenable[A], tb Thenable[B], tc Thenable[C]) *Promise[Tuple3[A, B, C]] {
	next := newPending[Tuple3[A, B, C]]()

	All[any](AsAny(ta.Promise()), AsAny(tb.Promise()), AsAny(tc.Promise())).cell.pipe(func(res Resolution[[]any]) {
		if res.state == Rejected {
			next.cell.resolve(rejectedWith[Tuple3[A, B, C]](res.err, res.flag))
			return
		}

		next.cell.resolve(OfValue(Tuple3[A, B, C]{
			First:  res.value[0].(A),
			Second: res.value[1].(B),
			Third:  res.value[2].(C),
		}))
	})

	return next
}
