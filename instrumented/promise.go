package instrumented

import (
	"time"

	"github.com/google/uuid"
	promise "github.com/martinohmann/promise/v2"
)

// Promise wraps a promise to report invocations of its resolution handlers.
// Unlike its generic delegate, the wrapper adds no behavior of its own:
// every combinator forwards to the delegate and wraps the resulting promise
// with the same instrumentation.
type Promise[T any] struct {
	delegate *promise.Promise[T]
	inst     *Instrumentation
	uuid     string
}

// Wrap instruments an existing promise. A nil inst selects the default
// instrumentation. Wrapping is cheap: if the instrumentation has no
// handlers registered, invocations are not reported and the only overhead
// is a nil check per handler call.
func Wrap[T any](inst *Instrumentation, delegate *promise.Promise[T]) *Promise[T] {
	if inst == nil {
		inst = defaultInstrumentation
	}

	return &Promise[T]{
		delegate: delegate,
		inst:     inst,
		uuid:     uuid.New().String(),
	}
}

// Unwrap returns the wrapped promise.
func (p *Promise[T]) Unwrap() *promise.Promise[T] { return p.delegate }

// UUID returns the unique id assigned to this wrapped promise.
func (p *Promise[T]) UUID() string { return p.uuid }

func (p *Promise[T]) handle(startTime time.Time, callerInfo CallerInfo, subjectInfo SubjectInfo) {
	handlers := p.inst.Handlers()
	if len(handlers) == 0 {
		return
	}

	invocation := &Invocation{
		StartTime:   startTime,
		EndTime:     time.Now(),
		UUID:        p.uuid,
		Promise:     p.delegate,
		SubjectInfo: subjectInfo,
		CallerInfo:  callerInfo,
	}

	for _, handler := range handlers {
		handler(invocation)
	}
}

// derive wraps a promise returned by a delegate combinator. Combinators
// that return their receiver, like Catch, keep the existing wrapper so the
// UUID stays stable.
func (p *Promise[T]) derive(candidate *promise.Promise[T]) *Promise[T] {
	if candidate == p.delegate {
		return p
	}

	return Wrap(p.inst, candidate)
}

// Then wraps the Then method of the delegate promise.
func (p *Promise[T]) Then(fn func(val T) promise.Thenable[T]) *Promise[T] {
	callerInfo := getCallerInfo(2)

	return p.derive(p.delegate.Then(func(val T) (res promise.Thenable[T]) {
		defer func(startTime time.Time) {
			p.handle(startTime, callerInfo, SubjectInfo{
				Subject:      "onFulfilled",
				Arguments:    val,
				ReturnValues: res,
			})
		}(time.Now())
		res = fn(val)
		return
	}))
}

// Done wraps the Done method of the delegate promise.
func (p *Promise[T]) Done(fn func(val T)) *Promise[promise.Void] {
	callerInfo := getCallerInfo(2)

	return Wrap(p.inst, p.delegate.Done(func(val T) {
		defer func(startTime time.Time) {
			p.handle(startTime, callerInfo, SubjectInfo{
				Subject:   "onDone",
				Arguments: val,
			})
		}(time.Now())
		fn(val)
	}))
}

// Catch wraps the Catch method of the delegate promise.
func (p *Promise[T]) Catch(fn func(err error), policy ...promise.CatchPolicy) *Promise[T] {
	callerInfo := getCallerInfo(2)

	return p.derive(p.delegate.Catch(func(err error) {
		defer func(startTime time.Time) {
			p.handle(startTime, callerInfo, SubjectInfo{
				Subject:   "onRejected",
				Arguments: err,
			})
		}(time.Now())
		fn(err)
	}, policy...))
}

// Recover wraps the Recover method of the delegate promise.
func (p *Promise[T]) Recover(fn func(err error) promise.Thenable[T], policy ...promise.CatchPolicy) *Promise[T] {
	callerInfo := getCallerInfo(2)

	return p.derive(p.delegate.Recover(func(err error) (res promise.Thenable[T]) {
		defer func(startTime time.Time) {
			p.handle(startTime, callerInfo, SubjectInfo{
				Subject:      "onRecover",
				Arguments:    err,
				ReturnValues: res,
			})
		}(time.Now())
		res = fn(err)
		return
	}, policy...))
}

// Ensure wraps the Ensure method of the delegate promise.
func (p *Promise[T]) Ensure(fn func()) *Promise[T] {
	callerInfo := getCallerInfo(2)

	return p.derive(p.delegate.Ensure(func() {
		defer func(startTime time.Time) {
			p.handle(startTime, callerInfo, SubjectInfo{
				Subject: "onEnsure",
			})
		}(time.Now())
		fn()
	}))
}

// Await wraps the Await method of the delegate promise.
func (p *Promise[T]) Await() (val T, err error) {
	defer func(startTime time.Time, callerInfo CallerInfo) {
		p.handle(startTime, callerInfo, SubjectInfo{
			Subject:      "Await",
			ReturnValues: []interface{}{val, err},
		})
	}(time.Now(), getCallerInfo(2))
	val, err = p.delegate.Await()
	return
}
