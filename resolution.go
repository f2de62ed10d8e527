package promise

import "sync/atomic"

// State describes the resolution state of a promise.
type State int

const (
	Pending State = iota
	Fulfilled
	Rejected
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

const (
	flagOpen int32 = iota
	flagConsumed
	flagReported
)

// consumptionFlag tracks whether a rejection error was ever observed by a
// Catch or Recover handler, an Await call or an aggregate. It is shared by
// every cell a rejection propagates through and is used solely for
// unhandled-rejection reporting.
type consumptionFlag struct {
	v atomic.Int32
}

func (f *consumptionFlag) consume() {
	f.v.CompareAndSwap(flagOpen, flagConsumed)
}

func (f *consumptionFlag) consumed() bool {
	return f.v.Load() != flagOpen
}

// tryReport latches the flag into the reported state. It returns true for
// exactly one caller per flag, and only if the rejection was never consumed.
func (f *consumptionFlag) tryReport() bool {
	return f.v.CompareAndSwap(flagOpen, flagReported)
}

// Resolution is the immutable outcome of a promise: either a fulfillment
// value or a rejection error. The zero value represents a pending outcome,
// which callers never observe through the public API.
type Resolution[T any] struct {
	state State
	value T
	err   error
	flag  *consumptionFlag
}

// OfValue returns a fulfilled resolution holding val.
func OfValue[T any](val T) Resolution[T] {
	return Resolution[T]{state: Fulfilled, value: val}
}

// OfError returns a rejected resolution holding err.
func OfError[T any](err error) Resolution[T] {
	return Resolution[T]{state: Rejected, err: err, flag: new(consumptionFlag)}
}

// rejectedWith builds a rejection that shares the consumption flag of the
// rejection it was derived from, so that consuming the error anywhere in a
// chain or aggregate suppresses the unhandled-rejection report for all of
// them.
func rejectedWith[T any](err error, flag *consumptionFlag) Resolution[T] {
	if flag == nil {
		flag = new(consumptionFlag)
	}
	return Resolution[T]{state: Rejected, err: err, flag: flag}
}

// State returns the state of the resolution.
func (r Resolution[T]) State() State { return r.state }

// Value returns the fulfillment value, or the zero value if the resolution
// is not fulfilled.
func (r Resolution[T]) Value() T { return r.value }

// Err returns the rejection error, or nil if the resolution is not rejected.
func (r Resolution[T]) Err() error { return r.err }

// Fulfilled reports whether the resolution holds a fulfillment value.
func (r Resolution[T]) Fulfilled() bool { return r.state == Fulfilled }

// Rejected reports whether the resolution holds a rejection error.
func (r Resolution[T]) Rejected() bool { return r.state == Rejected }

func (r Resolution[T]) markConsumed() {
	if r.flag != nil {
		r.flag.consume()
	}
}
