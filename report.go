package promise

import (
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// UnhandledRejectionHandler receives rejection errors that reached the end
// of their chain without ever being observed by a Catch or Recover handler,
// an Await call or an aggregate. The handler is advisory only: it must not
// assume anything about the goroutine it runs on and it cannot alter
// program flow.
type UnhandledRejectionHandler func(err error)

var unhandled struct {
	mu      sync.RWMutex
	handler UnhandledRejectionHandler
}

// SetUnhandledRejectionHandler replaces the diagnostic hook invoked for
// unhandled rejections. Passing nil restores the default handler, which
// logs a warning.
func SetUnhandledRejectionHandler(fn UnhandledRejectionHandler) {
	unhandled.mu.Lock()
	defer unhandled.mu.Unlock()
	unhandled.handler = fn
}

func reportUnhandled(err error) {
	unhandled.mu.RLock()
	handler := unhandled.handler
	unhandled.mu.RUnlock()

	if handler == nil {
		handler = defaultUnhandledRejectionHandler
	}

	handler(err)
}

var reportLogger = struct {
	once sync.Once
	l    *zap.Logger
}{}

func defaultUnhandledRejectionHandler(err error) {
	reportLogger.once.Do(func() {
		l, lerr := zap.NewProduction()
		if lerr != nil {
			l = zap.NewNop()
		}
		reportLogger.l = l
	})

	if IsCancelled(err) {
		reportLogger.l.Debug("promise cancelled without handler", zap.Error(err))
		return
	}

	reportLogger.l.Warn("unhandled promise rejection", zap.Error(err))
}

// armUnhandledReport registers a finalizer that fires once the last handle
// on a rejected cell is gone. The consumption flag is shared across every
// cell a rejection propagated through, so at most one report happens per
// rejection no matter how many cells carried it.
func armUnhandledReport[T any](c *cell[T]) {
	if c.res == nil || c.res.flag == nil {
		return
	}
	runtime.SetFinalizer(c, finalizeCell[T])
}

func finalizeCell[T any](c *cell[T]) {
	if c.res.flag.tryReport() {
		reportUnhandled(c.res.err)
	}
}
