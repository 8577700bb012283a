package camera

import (
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/Carmen-Shannon/oxy-bounds/engine/input"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraControllerImpl is the single implementation of CameraController.
// mu guards pending only; every field below it is owned by the goroutine calling UpdateCamera.
type cameraControllerImpl struct {
	mu      sync.Mutex
	pending []input.Event
	limit   int
	batch   []input.Event

	logger     *slog.Logger
	locker     input.PointerLocker
	dispatcher *input.Dispatcher

	current      transform
	wheelDelta   float32
	active       *session
	contextMenus int
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// noopLocker grants pointer lock without doing anything, for hosts without a pointer to capture.
type noopLocker struct{}

func (noopLocker) RequestPointerLock() error { return nil }
func (noopLocker) ExitPointerLock()          {}

// NewCameraController creates a controller seeded from cam's current position and orientation,
// with the orbit point at the world origin unless WithOrbitPoint says otherwise.
//
// Parameters:
//   - cam: the camera whose transform seeds the controller
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(cam Camera, options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		limit:      1024,
		logger:     slog.Default(),
		locker:     noopLocker{},
		dispatcher: input.NewDispatcher(),
		current: transform{
			position:    cam.Position(),
			orientation: cam.Orientation(),
			orbitPoint:  mgl32.Vec3{0, 0, 0},
		},
	}

	for _, option := range options {
		option(cc)
	}

	return cc
}

func (cc *cameraControllerImpl) Send(ev input.Event) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if n := len(cc.pending); n >= cc.limit && n > 0 {
		last := &cc.pending[n-1]
		switch {
		case ev.Type == input.EventPointerMove && last.Type == input.EventPointerMove:
			// keep the newest position; the summed movement starts where the first move did
			last.OffsetX, last.OffsetY = ev.OffsetX, ev.OffsetY
			last.MovementX += ev.MovementX
			last.MovementY += ev.MovementY
			last.Modifiers = ev.Modifiers
			return
		case ev.Type == input.EventWheel && last.Type == input.EventWheel:
			last.DeltaY += ev.DeltaY
			return
		}
	}
	cc.pending = append(cc.pending, ev)
}

func (cc *cameraControllerImpl) UpdateCamera(cam Camera) {
	// Release pointer lock on abnormal exit too; the panic continues afterwards.
	defer func() {
		if r := recover(); r != nil {
			cc.endSession(false)
			panic(r)
		}
	}()

	cc.drain()

	if cc.active != nil {
		cc.current = cc.active.currentTransform()
	} else {
		cc.current = dolly(cc.current, cc.wheelDelta)
	}
	cc.wheelDelta = 0

	cam.SetPosition(cc.current.position)
	cam.SetOrientation(cc.current.orientation)
}

func (cc *cameraControllerImpl) Session() SessionKind {
	if cc.active == nil {
		return SessionNone
	}
	return cc.active.kind
}

func (cc *cameraControllerImpl) SuppressedContextMenus() int {
	return cc.contextMenus
}

func (cc *cameraControllerImpl) Close() {
	cc.endSession(true)
}

// --- internal helpers ---

// drain applies every queued event in arrival order. Send is only blocked while the queue is
// swapped out.
func (cc *cameraControllerImpl) drain() {
	cc.mu.Lock()
	cc.batch, cc.pending = cc.pending, cc.batch[:0]
	cc.mu.Unlock()

	for _, ev := range cc.batch {
		cc.handle(ev)
	}
}

func (cc *cameraControllerImpl) handle(ev input.Event) {
	switch ev.Type {
	case input.EventPointerDown:
		cc.beginSession(ev.Button)
	case input.EventPointerUp:
		if cc.active != nil && cc.active.button == ev.Button {
			cc.endSession(true)
		}
	case input.EventPointerMove:
		cc.dispatcher.Dispatch(ev.Move())
	case input.EventWheel:
		cc.wheelDelta += ev.DeltaY
	case input.EventContextMenu:
		cc.contextMenus++
	}
}

// beginSession starts an orbit or sidle gesture for the pressed button. Presses while a
// session is active and presses of other buttons have no effect.
func (cc *cameraControllerImpl) beginSession(button input.Button) {
	if cc.active != nil {
		return
	}

	var kind SessionKind
	switch button {
	case common.MouseButtonSecondary:
		kind = SessionOrbit
	case common.MouseButtonAuxiliary:
		kind = SessionSidle
	default:
		return
	}

	tracker, err := input.NewMovementTracker(cc.dispatcher, cc.locker, input.TrackerLocked)
	if err != nil {
		cc.logger.Warn("camera session not started", "session", kind, "error", err)
		return
	}

	if kind == SessionOrbit {
		cc.active = newOrbitSession(button, tracker, cc.current)
	} else {
		cc.active = newSidleSession(button, tracker, cc.current)
	}
	cc.logger.Debug("camera session started", "session", kind)
}

// endSession tears down the active session. When commit is set, the movement received up to
// the release is folded into the transform first so no motion between frames is lost.
func (cc *cameraControllerImpl) endSession(commit bool) {
	s := cc.active
	if s == nil {
		return
	}
	cc.active = nil
	defer s.tracker.Close()

	if commit {
		cc.current = s.currentTransform()
	}
	cc.logger.Debug("camera session ended", "session", s.kind)
}
