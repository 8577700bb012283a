package input

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	requests int
	exits    int
	err      error
}

func (f *fakeLocker) RequestPointerLock() error {
	f.requests++
	return f.err
}

func (f *fakeLocker) ExitPointerLock() {
	f.exits++
}

func move(ox, oy, mx, my int32) PointerMove {
	return PointerMove{OffsetX: ox, OffsetY: oy, MovementX: mx, MovementY: my}
}

func TestLockedTrackerSumsDeltas(t *testing.T) {
	d := NewDispatcher()
	locker := &fakeLocker{}

	tr, err := NewMovementTracker(d, locker, TrackerLocked)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.requests)

	d.Dispatch(move(100, 100, 3, -2))
	d.Dispatch(move(0, 0, 4, 5))
	d.Dispatch(PointerMove{MovementX: -1, Modifiers: Modifiers{Shift: true}})

	x, y := tr.Movement()
	assert.Equal(t, int32(6), x)
	assert.Equal(t, int32(3), y)
	assert.True(t, tr.Modifiers().Shift)
}

func TestFreeTrackerIsOriginRelative(t *testing.T) {
	d := NewDispatcher()
	tr, err := NewMovementTracker(d, nil, TrackerFree)
	require.NoError(t, err)

	// first event: origin = (50-5, 40-2) = (45, 38), movement = raw delta
	d.Dispatch(move(50, 40, 5, 2))
	x, y := tr.Movement()
	assert.Equal(t, int32(5), x)
	assert.Equal(t, int32(2), y)

	// later events ignore the delta and report offset - origin
	d.Dispatch(move(60, 30, 100, 100))
	x, y = tr.Movement()
	assert.Equal(t, int32(15), x)
	assert.Equal(t, int32(-8), y)
}

func TestTrackerCloseReleasesExactlyOnce(t *testing.T) {
	d := NewDispatcher()
	locker := &fakeLocker{}

	tr, err := NewMovementTracker(d, locker, TrackerLocked)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Subscribers())

	tr.Close()
	tr.Close()

	assert.Equal(t, 0, d.Subscribers())
	assert.Equal(t, 1, locker.exits)

	d.Dispatch(move(0, 0, 10, 10))
	x, y := tr.Movement()
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestFreeTrackerNeverTouchesPointerLock(t *testing.T) {
	d := NewDispatcher()
	locker := &fakeLocker{}

	tr, err := NewMovementTracker(d, locker, TrackerFree)
	require.NoError(t, err)
	tr.Close()

	assert.Zero(t, locker.requests)
	assert.Zero(t, locker.exits)
}

func TestLockRefusalCancelsSubscription(t *testing.T) {
	d := NewDispatcher()
	locker := &fakeLocker{err: errors.New("denied")}

	tr, err := NewMovementTracker(d, locker, TrackerLocked)
	assert.Error(t, err)
	assert.Nil(t, tr)
	assert.Zero(t, d.Subscribers())
	assert.Zero(t, locker.exits)
}

func TestDispatcherCancelIsIdempotent(t *testing.T) {
	d := NewDispatcher()
	var a, b int
	cancelA := d.SubscribeMoves(func(PointerMove) { a++ })
	d.SubscribeMoves(func(PointerMove) { b++ })

	d.Dispatch(PointerMove{})
	cancelA()
	cancelA()
	d.Dispatch(PointerMove{})

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, d.Subscribers())
}
