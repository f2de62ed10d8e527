package promise

import "sync"

// cell is the resolution holder shared by one or more promise handles. While
// unsealed it queues continuations in registration order; sealing it drains
// the queue exactly once. Multiple handles may share a single cell, for
// example after welding a promise onto a joint.
type cell[T any] struct {
	mu sync.Mutex

	// res is nil while the cell is unsealed and immutable once set.
	res *Resolution[T]

	// subs holds the continuations registered before sealing. The slice is
	// drained under mu and never consulted again afterwards.
	subs []func(Resolution[T])
}

func newCell[T any]() *cell[T] {
	return &cell[T]{}
}

func newSealedCell[T any](res Resolution[T]) *cell[T] {
	c := &cell[T]{res: &res}
	if res.state == Rejected {
		armUnhandledReport(c)
	}
	return c
}

// get returns a snapshot of the current resolution without blocking. The
// second return value is false while the cell is unsealed.
func (c *cell[T]) get() (Resolution[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.res == nil {
		return Resolution[T]{}, false
	}

	return *c.res, true
}

// pipe registers fn to run with the eventual resolution of the cell. If the
// cell is already sealed, fn is invoked immediately on the calling
// goroutine. Continuations registered on an unsealed cell are invoked in
// registration order when the cell seals.
func (c *cell[T]) pipe(fn func(Resolution[T])) {
	c.mu.Lock()

	if c.res != nil {
		res := *c.res
		c.mu.Unlock()
		fn(res)
		return
	}

	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// resolve seals the cell with res. Exactly one resolve call wins; later
// calls are silent no-ops and leave the recorded resolution untouched. The
// continuation queue is swapped out under the lock but invoked only after
// the lock was released, so a continuation may safely pipe into or resolve
// this or any other cell. It returns true if this call sealed the cell.
func (c *cell[T]) resolve(res Resolution[T]) bool {
	c.mu.Lock()

	if c.res != nil {
		c.mu.Unlock()
		return false
	}

	c.res = &res
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	if res.state == Rejected {
		armUnhandledReport(c)
	}

	for _, fn := range subs {
		fn(res)
	}

	return true
}
