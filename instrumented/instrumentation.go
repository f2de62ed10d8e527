// Package instrumented wraps promises to report invocations of their
// resolution handlers for debugging, tracing and logging. Wrapped promises
// behave exactly like their delegates; every handler invocation and Await
// call is additionally reported to the instrumentation handlers together
// with caller information and timings.
package instrumented

import (
	"runtime"
	"sync"
	"time"

	promise "github.com/martinohmann/promise/v2"
)

// InstrumentationHandlerFunc is the signature of a func that can be used as
// a promise invocation handler. It is called with an invocation info every
// time an onFulfilled, onDone, onRejected, onRecover or onEnsure handler or
// Await is called on a wrapped promise.
type InstrumentationHandlerFunc func(invocation *Invocation)

// Invocation is a container for information relevant to a given promise
// handler invocation.
type Invocation struct {
	// UUID is a unique string that is automatically generated for every
	// promise that is instrumented to keep track of it.
	UUID string

	// Promise holds the wrapped promise. It is strongly advised against
	// manipulating the promise (e.g. calling Then or Await) inside an
	// invocation handler as this may cause weird side effects, panics or
	// even deadlocks. This is only exposed to be able to inspect the
	// promise for debugging or tracing.
	Promise interface{}

	// SubjectInfo contains information about the subject of the
	// invocation. This is usually a promise resolution handler like
	// onFulfilled or the Await method of a promise.
	SubjectInfo SubjectInfo

	// CallerInfo contains info about the callsite of the subject. In case
	// of resolution handlers this contains the file, line and func where
	// the handler was passed to Then, Catch, Recover, Done or Ensure and
	// not the direct caller as this would point to internals of the promise
	// implementation which is generally not useful to the user.
	CallerInfo CallerInfo

	// StartTime holds the time the subject was called at.
	StartTime time.Time

	// EndTime holds the time at which the execution of the subject was
	// finished.
	EndTime time.Time
}

// SubjectInfo contains information about the subject on which an
// instrumentation handler is invoked.
type SubjectInfo struct {
	// Subject is the subject of the invocation, that is: a function name
	// (e.g. Await) or a handler type (e.g. onFulfilled).
	Subject string

	// Arguments hold the argument values that the subject was called with.
	Arguments interface{}

	// ReturnValues hold the values returned by the subject.
	ReturnValues interface{}
}

// CallerInfo contains information about a call site.
type CallerInfo struct {
	// File in which the call happened.
	File string

	// Func contains the name of the the func surrounding the call site.
	Func string

	// Line number of the call site.
	Line int
}

func getCallerInfo(skipFrames int) CallerInfo {
	pc, file, line, _ := runtime.Caller(skipFrames)

	return CallerInfo{
		File: file,
		Func: runtime.FuncForPC(pc).Name(),
		Line: line,
	}
}

var defaultInstrumentation = NewInstrumentation()

// Instrumentation is a registry of invocation handlers that are attached to
// every promise wrapped with it. It is useful as a drop-in replacement for
// calls to promise.New, promise.Resolve and promise.Reject.
type Instrumentation struct {
	sync.RWMutex
	handlers []InstrumentationHandlerFunc
}

// NewInstrumentation creates a new instrumentation with given handler
// funcs. If no handler funcs are provided, wrapped promises do not report
// anything until handlers are added.
func NewInstrumentation(handlers ...InstrumentationHandlerFunc) *Instrumentation {
	return &Instrumentation{
		handlers: handlers,
	}
}

// AddHandlers adds handler funcs to the instrumentation. Newly added
// handlers are also attached to promises previously wrapped with this
// instrumentation.
func (i *Instrumentation) AddHandlers(handlers ...InstrumentationHandlerFunc) {
	i.Lock()
	defer i.Unlock()

	i.handlers = append(i.handlers, handlers...)
}

// RemoveHandlers removes all handlers from the instrumentation. After
// calling this function, promises wrapped with this instrumentation stop
// reporting invocations. This can be used to conditionally disable
// instrumentation without altering the code using the promises.
func (i *Instrumentation) RemoveHandlers() {
	i.Lock()
	defer i.Unlock()

	i.handlers = nil
}

// Handlers returns the handlers configured for i. This method is
// thread-safe.
func (i *Instrumentation) Handlers() []InstrumentationHandlerFunc {
	i.RLock()
	defer i.RUnlock()

	handlers := i.handlers
	return handlers
}

// DefaultInstrumentation returns the process-wide default instrumentation
// used by Wrap, New, Resolve and Reject when called with a nil
// instrumentation.
func DefaultInstrumentation() *Instrumentation {
	return defaultInstrumentation
}

// AddInstrumentationHandlers adds handlers to the default instrumentation.
func AddInstrumentationHandlers(handlers ...InstrumentationHandlerFunc) {
	defaultInstrumentation.AddHandlers(handlers...)
}

// RemoveInstrumentationHandlers removes all handlers from the default
// instrumentation. After calling this function, promises wrapped by this
// package stop reporting invocations.
func RemoveInstrumentationHandlers() {
	defaultInstrumentation.RemoveHandlers()
}

// New creates a new instrumented promise by calling promise.New(fn) and
// wrapping the result. A nil inst selects the default instrumentation.
func New[T any](inst *Instrumentation, fn promise.ExecutorFunc[T]) *Promise[T] {
	return Wrap(inst, promise.New(fn))
}

// Resolve returns a new instrumented promise that is fulfilled with the
// given value. A nil inst selects the default instrumentation.
func Resolve[T any](inst *Instrumentation, val T) *Promise[T] {
	return Wrap(inst, promise.Resolve(val))
}

// Reject returns a new instrumented promise that is rejected with the given
// error reason. A nil inst selects the default instrumentation.
func Reject[T any](inst *Instrumentation, err error) *Promise[T] {
	return Wrap[T](inst, promise.Reject[T](err))
}
