package promise

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(ErrCancelled))
	assert.True(t, IsCancelled(fmt.Errorf("wrapped: %w", ErrCancelled)))
	assert.True(t, IsCancelled(context.Canceled))
	assert.False(t, IsCancelled(errors.New("foo")))
}

func TestCatch_SkipsCancellationByDefault(t *testing.T) {
	invoked := make(chan error, 1)

	Reject[int](ErrCancelled).Catch(func(err error) {
		invoked <- err
	})

	select {
	case err := <-invoked:
		t.Fatalf("expected Catch handler to be skipped for cancellation, got %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCatch_AllErrorsPolicyIncludesCancellation(t *testing.T) {
	invoked := make(chan error, 1)

	Reject[int](ErrCancelled).Catch(func(err error) {
		invoked <- err
	}, CatchAllErrors)

	select {
	case err := <-invoked:
		require.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("expected Catch handler to run under CatchAllErrors")
	}
}

func TestRecover_SkipsCancellationByDefault(t *testing.T) {
	p := Reject[int](ErrCancelled).Recover(func(err error) Thenable[int] {
		return Resolve(1)
	})

	_, err := awaitWithTimeout(t, p, time.Second)
	require.ErrorIs(t, err, ErrCancelled, "cancellation must propagate past Recover under the default policy")
}

func TestRecover_AllErrorsPolicyIncludesCancellation(t *testing.T) {
	p := Reject[int](ErrCancelled).Recover(func(err error) Thenable[int] {
		return Resolve(1)
	}, CatchAllErrors)

	val, err := awaitWithTimeout(t, p, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, val)
}

func TestConsumptionFlag(t *testing.T) {
	flag := new(consumptionFlag)

	require.False(t, flag.consumed())
	require.True(t, flag.tryReport(), "an unconsumed flag must be reportable exactly once")
	require.False(t, flag.tryReport(), "a reported flag must not be reportable again")

	flag = new(consumptionFlag)
	flag.consume()

	require.True(t, flag.consumed())
	require.False(t, flag.tryReport(), "a consumed flag must never be reported")
}

func TestCatch_MarksRejectionConsumed(t *testing.T) {
	p := Reject[int](errors.New("foo"))

	p.Catch(func(error) {})

	// Catch marks the error as handled while the rejection is piped, before
	// the handler itself runs
	res, ok := p.Resolution()
	require.True(t, ok)
	assert.True(t, res.flag.consumed())
}

func TestUnhandledRejectionHandler(t *testing.T) {
	var (
		mu       sync.Mutex
		reported []error
	)

	SetUnhandledRejectionHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	})
	defer SetUnhandledRejectionHandler(nil)

	expectedErr := errors.New("nobody caught me")

	func() {
		_ = Reject[int](expectedErr)
	}()

	require.Eventually(t, func() bool {
		runtime.GC()

		mu.Lock()
		defer mu.Unlock()
		for _, err := range reported {
			if errors.Is(err, expectedErr) {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond, "expected the dropped rejection to be reported")
}

func TestUnhandledRejectionHandler_NotInvokedForHandledErrors(t *testing.T) {
	var (
		mu       sync.Mutex
		reported []error
	)

	SetUnhandledRejectionHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	})
	defer SetUnhandledRejectionHandler(nil)

	handledErr := errors.New("handled")

	func() {
		p := Reject[int](handledErr)
		_, _ = p.Await()
	}()

	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, err := range reported {
		assert.NotErrorIs(t, err, handledErr, "a handled rejection must not be reported")
	}
}
