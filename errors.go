package promise

import (
	"context"
	"errors"
)

var (
	// ErrCircularResolutionChain is the error that a promise is rejected
	// with if a circular resolution dependency is detected, that is: an
	// attempt to resolve a promise with itself, either by returning it from
	// its own resolution handler or by welding it onto its own joint.
	ErrCircularResolutionChain = errors.New("circular promise resolution chain detected")

	// ErrNilResult is the error that a promise is rejected with if a
	// resolution handler returned a nil Thenable.
	ErrNilResult = errors.New("resolution handler returned nil result")

	// ErrNilValue is the error that a promise coerced from a nil pointer is
	// rejected with.
	ErrNilValue = errors.New("cannot coerce nil value into promise")

	// ErrCancelled marks a rejection as a cancellation. Cancellation is not
	// a separate resolution outcome but a distinguished error kind flowing
	// through the normal rejection path.
	ErrCancelled = errors.New("promise cancelled")
)

// IsCancelled reports whether err is a cancellation-kind error. Both
// ErrCancelled and context cancellation errors qualify.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// CatchPolicy controls which rejection errors are delivered to Catch and
// Recover handlers.
type CatchPolicy int

const (
	// CatchAllErrorsExceptCancellation skips the handler for
	// cancellation-kind errors. This is the default.
	CatchAllErrorsExceptCancellation CatchPolicy = iota

	// CatchAllErrors delivers every rejection error to the handler,
	// including cancellations.
	CatchAllErrors
)

func catchPolicyOf(policy []CatchPolicy) CatchPolicy {
	if len(policy) > 0 {
		return policy[0]
	}
	return CatchAllErrorsExceptCancellation
}
