package promise

// A Thenable is anything that can be coerced into a promise. It is returned
// by resolution handlers, allowing them to continue a chain with an
// immediate value (Resolve), a rejection (Reject) or another asynchronous
// operation, and it is accepted by the aggregate combinators. Promise
// implements Thenable itself.
type Thenable[T any] interface {
	Promise() *Promise[T]
}

// FromPtr coerces a pointer into a promise for the pointed-to value. A nil
// pointer yields a promise rejected with ErrNilValue rather than a panic,
// so optional inputs can flow through chains and aggregates like any other
// rejection.
func FromPtr[T any](ptr *T) *Promise[T] {
	if ptr == nil {
		return Reject[T](ErrNilValue)
	}
	return Resolve(*ptr)
}

// FromFunc dispatches fn onto the default execution context and returns a
// promise for its result. A panic inside fn rejects the promise.
func FromFunc[T any](fn func() (T, error)) *Promise[T] {
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	return New(func(resolve ResolveFunc[T], reject RejectFunc) {
		val, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(val)
	})
}
