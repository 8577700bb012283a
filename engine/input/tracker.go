package input

import (
	"fmt"
	"sync"
)

// TrackerMode selects how a MovementTracker interprets pointer-move events.
type TrackerMode int

const (
	// TrackerFree reports movement as the absolute offset relative to an origin inferred from the first event.
	TrackerFree TrackerMode = iota
	// TrackerLocked captures the pointer and sums raw deltas.
	TrackerLocked
)

// MovementTracker accumulates pointer movement from a MoveSource while it is open.
// A tracker is a scoped acquisition: Close must be called on every exit path and releases
// the subscription and, in locked mode, the pointer lock exactly once.
type MovementTracker struct {
	mode TrackerMode

	movementX, movementY int32
	originX, originY     int32
	seen                 bool
	modifiers            Modifiers

	cancel    func()
	locker    PointerLocker
	locked    bool
	closeOnce sync.Once
}

// NewMovementTracker subscribes to source and, in locked mode, requests pointer lock from locker.
// When the lock request fails the subscription is cancelled before returning.
//
// Parameters:
//   - source: the pointer-move event source
//   - locker: the pointer lock host; only used in TrackerLocked mode
//   - mode: the acquisition mode
//
// Returns:
//   - *MovementTracker: the open tracker
//   - error: an error if the pointer lock could not be acquired
func NewMovementTracker(source MoveSource, locker PointerLocker, mode TrackerMode) (*MovementTracker, error) {
	t := &MovementTracker{mode: mode, locker: locker}

	switch mode {
	case TrackerLocked:
		if locker == nil {
			return nil, fmt.Errorf("locked movement tracker requires a pointer locker")
		}
		t.cancel = source.SubscribeMoves(t.onLockedMove)
		if err := locker.RequestPointerLock(); err != nil {
			t.cancel()
			return nil, fmt.Errorf("failed to acquire pointer lock: %w", err)
		}
		t.locked = true
	default:
		t.cancel = source.SubscribeMoves(t.onFreeMove)
	}

	return t, nil
}

func (t *MovementTracker) onFreeMove(m PointerMove) {
	if !t.seen {
		t.originX = m.OffsetX - m.MovementX
		t.originY = m.OffsetY - m.MovementY
		t.movementX = m.MovementX
		t.movementY = m.MovementY
		t.seen = true
	} else {
		t.movementX = m.OffsetX - t.originX
		t.movementY = m.OffsetY - t.originY
	}
	t.modifiers = m.Modifiers
}

func (t *MovementTracker) onLockedMove(m PointerMove) {
	t.movementX += m.MovementX
	t.movementY += m.MovementY
	t.modifiers = m.Modifiers
}

// Mode returns the tracker's acquisition mode.
//
// Returns:
//   - TrackerMode: the mode
func (t *MovementTracker) Mode() TrackerMode {
	return t.mode
}

// Movement returns the accumulated movement since the tracker opened.
//
// Returns:
//   - x, y: the movement in pixels
func (t *MovementTracker) Movement() (x, y int32) {
	return t.movementX, t.movementY
}

// Modifiers returns the modifier keys held during the most recent move event.
//
// Returns:
//   - Modifiers: the modifier snapshot
func (t *MovementTracker) Modifiers() Modifiers {
	return t.modifiers
}

// Close cancels the subscription and exits pointer lock if this tracker acquired it.
// Subsequent calls are no-ops.
func (t *MovementTracker) Close() {
	t.closeOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
		if t.locked {
			t.locker.ExitPointerLock()
			t.locked = false
		}
	})
}
