package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fullWindow has no platform window and a task queue with no free slot.
func fullWindow() *engineWindow {
	w := &engineWindow{tasks: make(chan func(), 2)}
	w.tasks <- func() {}
	w.tasks <- func() {}
	return w
}

func TestPointerUnlockAppliesWithFullTaskQueue(t *testing.T) {
	w := fullWindow()
	var applied []bool
	apply := func(locked bool) { applied = append(applied, locked) }

	w.pointerLock.Store(true)
	w.syncPointerLock(apply)

	w.ExitPointerLock()
	w.syncPointerLock(apply)
	w.syncPointerLock(apply)

	assert.Equal(t, []bool{true, false}, applied)
	assert.Len(t, w.tasks, 2)
}

func TestLatestPointerLockRequestWins(t *testing.T) {
	w := fullWindow()
	var applied []bool
	apply := func(locked bool) { applied = append(applied, locked) }

	// lock then unlock before the main thread runs: nothing to apply
	w.pointerLock.Store(true)
	w.ExitPointerLock()
	w.syncPointerLock(apply)
	assert.Empty(t, applied)
}

func TestRequestsOnClosedWindow(t *testing.T) {
	w := fullWindow()

	assert.ErrorIs(t, w.RequestPointerLock(), ErrWindowClosed)
	assert.False(t, w.pointerLock.Load())

	w.RequestClose()
	assert.True(t, w.closeRequested.Load())
	assert.False(t, w.IsRunning())

	// applying requests without a platform window is a no-op
	w.applyRequests()
}
