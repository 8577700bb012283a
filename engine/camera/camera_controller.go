package camera

import (
	"github.com/Carmen-Shannon/oxy-bounds/engine/input"
)

// CameraController turns pointer and wheel input into camera motion. It implements three
// mutually exclusive interactions:
//
//   - orbit: secondary button drag rotates the camera about the orbit point
//   - sidle: auxiliary (middle) button drag pans the camera and orbit point together
//   - dolly: the wheel moves the camera toward or away from the orbit point while idle
//
// The controller is a single-owner state machine. Input producers (the window callbacks) only
// send events; all state is mutated inside UpdateCamera on the goroutine that renders frames.
type CameraController interface {
	// Send queues an input event for the next UpdateCamera call. It never drops an event: once
	// the queue is full, a pointer move is merged into a preceding move and a wheel event into a
	// preceding wheel event.
	//
	// Parameters:
	//   - ev: the event to queue
	Send(ev input.Event)

	// UpdateCamera applies all queued events, recomputes the camera transform and writes the
	// position and orientation to cam. While a session is active the transform is recomputed
	// from the session's start snapshot, so repeated calls without new input are idempotent.
	// The accumulated wheel delta is consumed by every call.
	//
	// Parameters:
	//   - cam: the camera to update
	UpdateCamera(cam Camera)

	// Session returns the kind of interaction currently in progress.
	//
	// Returns:
	//   - SessionKind: SessionNone when idle
	Session() SessionKind

	// SuppressedContextMenus returns how many context-menu requests the controller has swallowed
	// so the secondary button stays free for orbiting.
	//
	// Returns:
	//   - int: the suppressed request count
	SuppressedContextMenus() int

	// Close ends any active session, releasing its pointer lock. Safe to call more than once.
	Close()
}
