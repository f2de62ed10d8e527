package promise

// AsVoid returns a promise that fulfills with no value once p fulfills and
// forwards rejections unchanged. The conversion introduces no dispatch hop.
func AsVoid[T any](p *Promise[T]) *Promise[Void] {
	next := newPending[Void]()

	p.cell.pipe(func(res Resolution[T]) {
		if res.state == Rejected {
			next.cell.resolve(rejectedWith[Void](res.err, res.flag))
			return
		}
		next.cell.resolve(OfValue(Void{}))
	})

	return next
}

// AsAny returns a type-erased view of p, boxing the fulfillment value into
// an interface. It bridges typed promises into code that handles
// heterogeneous payloads, such as the fixed-arity aggregate forms. The
// erased promise is a thin adapter, not a separate promise abstraction: it
// shares p's outcome and rejection identity. The conversion introduces no
// dispatch hop.
func AsAny[T any](p *Promise[T]) *Promise[any] {
	next := newPending[any]()

	p.cell.pipe(func(res Resolution[T]) {
		if res.state == Rejected {
			next.cell.resolve(rejectedWith[any](res.err, res.flag))
			return
		}
		next.cell.resolve(OfValue[any](res.value))
	})

	return next
}
