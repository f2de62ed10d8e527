package promise

// Deferred creates a pending promise together with the exclusive capability
// to settle it later. The returned resolve and reject funcs are the only
// path to the promise's resolution; they are safe to call from any
// goroutine and calls after the first settle are no-ops. Deferred decouples
// promise creation from resolution, which is useful for delegate-style
// bridging where the settling code runs far away from the code handing out
// the promise.
func Deferred[T any]() (*Promise[T], ResolveFunc[T], RejectFunc) {
	p := newPending[T]()

	resolve := func(val T) {
		p.cell.resolve(OfValue(val))
	}
	reject := func(err error) {
		p.cell.resolve(OfError[T](err))
	}

	return p, resolve, reject
}

// A Joint is a pre-created resolver slot awaiting a later weld. It allows
// constructing a promise before the promise that will eventually feed it
// exists, without ever closing over a still-uninitialized promise inside
// its own resolver.
type Joint[T any] struct {
	cell *cell[T]
}

// PendingJoint creates a pending promise together with the joint that
// settles it. The promise stays pending until a promise is welded onto the
// joint.
func PendingJoint[T any]() (*Promise[T], *Joint[T]) {
	p := newPending[T]()
	return p, &Joint[T]{cell: p.cell}
}

// Weld pipes p's eventual resolution into the joint, making the joint's
// promise settle with whatever p settles with. Welding a promise that
// already settled fires the joint immediately. Welding a promise onto its
// own joint rejects the joint with ErrCircularResolutionChain. Welding a
// second promise onto the same joint has no effect once the first one
// settled the joint.
func (j *Joint[T]) Weld(p *Promise[T]) {
	if p.cell == j.cell {
		j.cell.resolve(OfError[T](ErrCircularResolutionChain))
		return
	}

	p.cell.pipe(func(res Resolution[T]) {
		j.cell.resolve(res)
	})
}
