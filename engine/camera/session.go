package camera

import (
	"math"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/Carmen-Shannon/oxy-bounds/engine/input"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// orbitPixelsPerHalfTurn is the pointer travel in pixels that rotates the camera by π.
	orbitPixelsPerHalfTurn = 400.0
	// sidlePixelsPerUnit is the pointer travel in pixels that pans the camera by one world unit.
	sidlePixelsPerUnit = 80.0
	// dollyWheelPerUnit is the accumulated wheel delta that dollies the camera by one world unit.
	dollyWheelPerUnit = 1000.0
)

// transform is the controller-internal camera state. The orbit point never leaves the controller.
type transform struct {
	position    mgl32.Vec3
	orientation mgl32.Quat
	orbitPoint  mgl32.Vec3
}

func (t transform) up() mgl32.Vec3 {
	return t.orientation.Rotate(common.AxisY)
}

func (t transform) right() mgl32.Vec3 {
	return t.orientation.Rotate(common.AxisX)
}

// SessionKind identifies the gesture an interaction session performs.
type SessionKind int

const (
	// SessionNone means no gesture is in progress.
	SessionNone SessionKind = iota
	// SessionOrbit rotates the camera about the orbit point.
	SessionOrbit
	// SessionSidle pans the camera and orbit point together in the view plane.
	SessionSidle
)

func (k SessionKind) String() string {
	switch k {
	case SessionOrbit:
		return "orbit"
	case SessionSidle:
		return "sidle"
	default:
		return "none"
	}
}

// session is one in-progress orbit or sidle gesture. Its transform is a pure function of the
// snapshot taken at session start and the tracker's accumulated movement.
type session struct {
	kind    SessionKind
	button  input.Button
	tracker movementSource
	start   transform

	// orbit only
	initialRelativePosition mgl32.Vec3

	// sidle only, captured at start and never re-derived
	up    mgl32.Vec3
	right mgl32.Vec3
}

// movementSource is the part of input.MovementTracker a session depends on.
type movementSource interface {
	Movement() (x, y int32)
	Close()
}

func newOrbitSession(button input.Button, tracker movementSource, start transform) *session {
	return &session{
		kind:                    SessionOrbit,
		button:                  button,
		tracker:                 tracker,
		start:                   start,
		initialRelativePosition: start.position.Sub(start.orbitPoint),
	}
}

func newSidleSession(button input.Button, tracker movementSource, start transform) *session {
	return &session{
		kind:    SessionSidle,
		button:  button,
		tracker: tracker,
		start:   start,
		up:      start.up(),
		right:   start.right(),
	}
}

func (s *session) currentTransform() transform {
	mx, my := s.tracker.Movement()
	switch s.kind {
	case SessionOrbit:
		return orbitTransform(s.start, s.initialRelativePosition, mx, my)
	case SessionSidle:
		return sidleTransform(s.start, s.up, s.right, mx, my)
	default:
		return s.start
	}
}

// orbitTransform yaws about world up, then pitches about the yawed right vector,
// so the composed rotation never introduces roll.
func orbitTransform(start transform, relative mgl32.Vec3, mx, my int32) transform {
	// no movement is the identity rotation; return the snapshot bit-exact
	if mx == 0 && my == 0 {
		return start
	}

	panAngle := -float32(mx) / orbitPixelsPerHalfTurn * math.Pi
	pan := common.AxisAngle(common.AxisY, panAngle)

	pannedOrientation := pan.Mul(start.orientation)
	right := pannedOrientation.Rotate(common.AxisX)

	tiltAngle := -float32(my) / orbitPixelsPerHalfTurn * math.Pi
	tilt := common.AxisAngle(right, tiltAngle)

	rotation := tilt.Mul(pan)

	return transform{
		position:    start.orbitPoint.Add(rotation.Rotate(relative)),
		orientation: rotation.Mul(start.orientation).Normalize(),
		orbitPoint:  start.orbitPoint,
	}
}

func sidleTransform(start transform, up, right mgl32.Vec3, mx, my int32) transform {
	translation := up.Mul(float32(my) / sidlePixelsPerUnit).Add(right.Mul(-float32(mx) / sidlePixelsPerUnit))

	return transform{
		position:    start.position.Add(translation),
		orientation: start.orientation,
		orbitPoint:  start.orbitPoint.Add(translation),
	}
}

// dolly moves the camera along the direction to the orbit point by wheelDelta/1000.
// Moving toward the orbit point is rejected when it would reach or pass it; moving away is never blocked.
func dolly(t transform, wheelDelta float32) transform {
	difference := t.orbitPoint.Sub(t.position)
	distance := difference.Len()
	if distance == 0 || wheelDelta == 0 {
		return t
	}

	translation := difference.Mul(1 / distance).Mul(wheelDelta / dollyWheelPerUnit)
	if translation.Len() < distance || wheelDelta < 0 {
		t.position = t.position.Add(translation)
	}
	return t
}
