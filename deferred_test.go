package promise

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferred(t *testing.T) {
	p, resolve, _ := Deferred[int]()

	require.True(t, p.IsPending())

	resolve(42)

	val, err := p.Await()
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	// later calls are no-ops
	resolve(43)

	val, ok := p.Value()
	require.True(t, ok)
	assert.Equal(t, 42, val)
}

func TestDeferred_Reject(t *testing.T) {
	expectedErr := errors.New("nope")

	p, resolve, reject := Deferred[int]()

	reject(expectedErr)
	resolve(1)

	_, err := p.Await()
	require.ErrorIs(t, err, expectedErr)
	assert.True(t, p.IsRejected())
}

func TestJoint_WeldBeforeResolution(t *testing.T) {
	p, joint := PendingJoint[string]()
	source, resolve, _ := Deferred[string]()

	joint.Weld(source)
	require.True(t, p.IsPending())

	resolve("welded")

	val, err := awaitWithTimeout(t, p, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "welded", val)
}

func TestJoint_WeldAfterResolution(t *testing.T) {
	p, joint := PendingJoint[string]()

	// the source has long settled before it is welded on
	joint.Weld(Resolve("late weld"))

	val, err := awaitWithTimeout(t, p, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "late weld", val)
}

func TestJoint_WeldSelf(t *testing.T) {
	p, joint := PendingJoint[string]()

	joint.Weld(p)

	_, err := awaitWithTimeout(t, p, time.Second)
	require.ErrorIs(t, err, ErrCircularResolutionChain)
}

func TestJoint_SecondWeldIsNoOp(t *testing.T) {
	p, joint := PendingJoint[int]()

	joint.Weld(Resolve(1))
	joint.Weld(Resolve(2))

	val, err := awaitWithTimeout(t, p, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, val)
}

func TestJoint_SharedCellVisibleThroughAllHandles(t *testing.T) {
	p, joint := PendingJoint[int]()

	source, resolve, _ := Deferred[int]()
	joint.Weld(source)

	resolve(7)

	_, err := awaitWithTimeout(t, p, time.Second)
	require.NoError(t, err)

	// both handles observe the same sealed cell
	val, ok := p.Value()
	require.True(t, ok)
	assert.Equal(t, 7, val)

	val, ok = source.Value()
	require.True(t, ok)
	assert.Equal(t, 7, val)
}
