package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/Carmen-Shannon/oxy-bounds/engine/input"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLocker struct {
	requests, exits int
}

func (l *countingLocker) RequestPointerLock() error {
	l.requests++
	return nil
}

func (l *countingLocker) ExitPointerLock() {
	l.exits++
}

func newTestController(t *testing.T, options ...CameraControllerOption) (Camera, *cameraControllerImpl, *countingLocker) {
	t.Helper()
	cam := NewCamera()
	locker := &countingLocker{}
	cc := NewCameraController(cam, append([]CameraControllerOption{WithPointerLocker(locker)}, options...)...)
	impl, ok := cc.(*cameraControllerImpl)
	require.True(t, ok)
	return cam, impl, locker
}

func down(button int) input.Event {
	return input.Event{Type: input.EventPointerDown, Button: input.Button(button)}
}

func up(button int) input.Event {
	return input.Event{Type: input.EventPointerUp, Button: input.Button(button)}
}

func moveBy(dx, dy int32) input.Event {
	return input.Event{Type: input.EventPointerMove, MovementX: dx, MovementY: dy}
}

func wheel(dy float32) input.Event {
	return input.Event{Type: input.EventWheel, DeltaY: dy}
}

func TestOrbitSessionIsIdempotent(t *testing.T) {
	cam, cc, _ := newTestController(t)

	cc.Send(down(common.MouseButtonSecondary))
	cc.Send(moveBy(37, -12))
	cc.Send(moveBy(5, 40))
	cc.UpdateCamera(cam)
	require.Equal(t, SessionOrbit, cc.Session())

	firstPos, firstOri := cam.Position(), cam.Orientation()
	for range 5 {
		cc.UpdateCamera(cam)
		assert.Equal(t, firstPos, cam.Position())
		assert.Equal(t, firstOri, cam.Orientation())
	}
}

func TestOrbitWithZeroMovementKeepsSnapshot(t *testing.T) {
	cam, cc, _ := newTestController(t)
	startPos, startOri := cam.Position(), cam.Orientation()

	cc.Send(down(common.MouseButtonSecondary))
	cc.Send(moveBy(20, 10))
	cc.Send(moveBy(-20, -10))
	cc.UpdateCamera(cam)

	assert.Equal(t, startPos, cam.Position())
	assert.Equal(t, startOri, cam.Orientation())
}

func TestOrbitKeepsDistanceToOrbitPoint(t *testing.T) {
	cam, cc, _ := newTestController(t, WithOrbitPoint(mgl32.Vec3{1, 0, 0}))
	before := cam.Position().Sub(cc.current.orbitPoint).Len()

	cc.Send(down(common.MouseButtonSecondary))
	cc.Send(moveBy(200, 0)) // quarter turn of yaw
	cc.UpdateCamera(cam)

	after := cam.Position().Sub(cc.current.orbitPoint).Len()
	assert.InDelta(t, before, after, 1e-4)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, cc.current.orbitPoint)

	// yaw by -π/2 about +Y maps the relative position (-1,0,5) to (-5,0,-1)
	assert.InDelta(t, -4, cam.Position().X(), 1e-4)
	assert.InDelta(t, -1, cam.Position().Z(), 1e-4)
}

func TestOrbitPitchHasNoRoll(t *testing.T) {
	cam, cc, _ := newTestController(t)

	cc.Send(down(common.MouseButtonSecondary))
	cc.Send(moveBy(90, 60))
	cc.UpdateCamera(cam)

	// camera right must stay horizontal after yaw then pitch
	right := cam.Orientation().Rotate(common.AxisX)
	assert.InDelta(t, 0, right.Y(), 1e-5)
}

func TestSidleIsOrthogonalToViewDirection(t *testing.T) {
	cases := []struct {
		name        string
		orientation mgl32.Quat
		dx, dy      int32
	}{
		{"identity", mgl32.QuatIdent(), 40, -25},
		{"yawed", common.AxisAngle(common.AxisY, 0.8), -13, 77},
		{"tilted", common.AxisAngle(mgl32.Vec3{1, 1, 0}, 1.1), 160, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cam := NewCamera(WithOrientation(tc.orientation))
			cc := NewCameraController(cam).(*cameraControllerImpl)
			forward := cam.Orientation().Rotate(mgl32.Vec3{0, 0, -1})
			startPos, startOrbit := cam.Position(), cc.current.orbitPoint

			cc.Send(down(common.MouseButtonAuxiliary))
			cc.Send(moveBy(tc.dx, tc.dy))
			cc.UpdateCamera(cam)
			require.Equal(t, SessionSidle, cc.Session())

			translation := cam.Position().Sub(startPos)
			assert.InDelta(t, 0, translation.Dot(forward), 1e-4)
			assert.Greater(t, translation.Len(), float32(0))
			assert.True(t, common.Vec3ApproxEqual(startOrbit.Add(translation), cc.current.orbitPoint, 1e-5))
			assert.Equal(t, tc.orientation.Normalize(), cam.Orientation())
		})
	}
}

func TestSidleScale(t *testing.T) {
	cam, cc, _ := newTestController(t)

	cc.Send(down(common.MouseButtonAuxiliary))
	cc.Send(moveBy(-80, 160))
	cc.UpdateCamera(cam)

	// right * (80/80) + up * (160/80)
	assert.True(t, common.Vec3ApproxEqual(mgl32.Vec3{1, 2, 5}, cam.Position(), 1e-5))
}

func TestDollyClamp(t *testing.T) {
	cam, cc, _ := newTestController(t)
	// distance to the orbit point is 5, so a wheel delta of 5000 would reach it

	cc.Send(wheel(5000))
	cc.UpdateCamera(cam)
	assert.Equal(t, mgl32.Vec3{0, 0, 5}, cam.Position())

	cc.Send(wheel(-5000))
	cc.UpdateCamera(cam)
	assert.True(t, common.Vec3ApproxEqual(mgl32.Vec3{0, 0, 10}, cam.Position(), 1e-5))

	cc.Send(wheel(1000))
	cc.UpdateCamera(cam)
	assert.True(t, common.Vec3ApproxEqual(mgl32.Vec3{0, 0, 9}, cam.Position(), 1e-5))
}

func TestWheelDeltaIsConsumedEveryUpdate(t *testing.T) {
	cam, cc, _ := newTestController(t)

	// rejected by the clamp, yet still consumed
	cc.Send(wheel(9000))
	cc.UpdateCamera(cam)
	assert.Zero(t, cc.wheelDelta)

	cc.Send(wheel(100))
	cc.Send(wheel(150))
	cc.UpdateCamera(cam)
	assert.Zero(t, cc.wheelDelta)
	assert.True(t, common.Vec3ApproxEqual(mgl32.Vec3{0, 0, 4.75}, cam.Position(), 1e-5))

	// wheel input during a gesture is discarded
	cc.Send(down(common.MouseButtonSecondary))
	cc.Send(wheel(500))
	cc.UpdateCamera(cam)
	assert.Zero(t, cc.wheelDelta)
	cc.Send(up(common.MouseButtonSecondary))
	cc.UpdateCamera(cam)
	assert.True(t, common.Vec3ApproxEqual(mgl32.Vec3{0, 0, 4.75}, cam.Position(), 1e-5))
}

func TestSessionsAreMutuallyExclusive(t *testing.T) {
	cam, cc, locker := newTestController(t)

	cc.Send(down(common.MouseButtonSecondary))
	cc.Send(down(common.MouseButtonAuxiliary))
	cc.UpdateCamera(cam)
	assert.Equal(t, SessionOrbit, cc.Session())
	assert.Equal(t, 1, locker.requests)

	// releasing a different button does not end the orbit
	cc.Send(up(common.MouseButtonAuxiliary))
	cc.UpdateCamera(cam)
	assert.Equal(t, SessionOrbit, cc.Session())

	cc.Send(up(common.MouseButtonSecondary))
	cc.UpdateCamera(cam)
	assert.Equal(t, SessionNone, cc.Session())
	assert.Equal(t, 1, locker.exits)
}

func TestPrimaryButtonStartsNothing(t *testing.T) {
	cam, cc, locker := newTestController(t)

	cc.Send(down(common.MouseButtonPrimary))
	cc.UpdateCamera(cam)

	assert.Equal(t, SessionNone, cc.Session())
	assert.Zero(t, locker.requests)
}

func TestReleaseCommitsMovementReceivedInTheSameFrame(t *testing.T) {
	cam, cc, _ := newTestController(t)

	cc.Send(down(common.MouseButtonAuxiliary))
	cc.Send(moveBy(0, 80))
	cc.Send(up(common.MouseButtonAuxiliary))
	cc.UpdateCamera(cam)

	assert.Equal(t, SessionNone, cc.Session())
	assert.True(t, common.Vec3ApproxEqual(mgl32.Vec3{0, 1, 5}, cam.Position(), 1e-5))

	// a fresh gesture starts from the committed transform
	cc.Send(down(common.MouseButtonAuxiliary))
	cc.Send(moveBy(0, 80))
	cc.UpdateCamera(cam)
	assert.True(t, common.Vec3ApproxEqual(mgl32.Vec3{0, 2, 5}, cam.Position(), 1e-5))
}

func TestCloseReleasesPointerLockOnce(t *testing.T) {
	cam, cc, locker := newTestController(t)

	cc.Send(down(common.MouseButtonAuxiliary))
	cc.UpdateCamera(cam)
	cc.Close()
	cc.Close()

	assert.Equal(t, 1, locker.exits)
	assert.Equal(t, SessionNone, cc.Session())
}

type panickingCamera struct {
	Camera
}

func (panickingCamera) SetPosition(mgl32.Vec3) {
	panic("surface lost")
}

func TestPanicDuringUpdateReleasesPointerLock(t *testing.T) {
	cam, cc, locker := newTestController(t)

	cc.Send(down(common.MouseButtonSecondary))
	cc.UpdateCamera(cam)

	assert.Panics(t, func() { cc.UpdateCamera(panickingCamera{cam}) })
	assert.Equal(t, 1, locker.exits)
	assert.Equal(t, SessionNone, cc.Session())
}

func TestContextMenuIsSuppressed(t *testing.T) {
	cam, cc, _ := newTestController(t)

	cc.Send(input.Event{Type: input.EventContextMenu})
	cc.UpdateCamera(cam)

	assert.Equal(t, 1, cc.SuppressedContextMenus())
	assert.Equal(t, SessionNone, cc.Session())
}

func TestReleaseIsQueuedWhenQueueIsFull(t *testing.T) {
	cam, cc, locker := newTestController(t, WithEventBuffer(4))
	refCam, ref, _ := newTestController(t)

	for _, c := range []*cameraControllerImpl{cc, ref} {
		c.Send(down(common.MouseButtonSecondary))
	}
	cc.UpdateCamera(cam)
	ref.UpdateCamera(refCam)
	require.Equal(t, SessionOrbit, cc.Session())
	require.Equal(t, 1, locker.requests)

	for i := range 40 {
		ev := moveBy(int32(i%7)-2, int32(i%5)-1)
		cc.Send(ev)
		ref.Send(ev)
	}
	cc.Send(up(common.MouseButtonSecondary))
	ref.Send(up(common.MouseButtonSecondary))
	assert.Len(t, cc.pending, 5)

	cc.UpdateCamera(cam)
	ref.UpdateCamera(refCam)

	assert.Equal(t, SessionNone, cc.Session())
	assert.Equal(t, 1, locker.exits)
	assert.True(t, cam.Position().ApproxEqualThreshold(refCam.Position(), 1e-5))
	assert.True(t, cam.Orientation().ApproxEqualThreshold(refCam.Orientation(), 1e-5))
}

func TestFullQueueKeepsButtonsAndMergesWheel(t *testing.T) {
	cam, cc, _ := newTestController(t, WithEventBuffer(2))

	cc.Send(wheel(1))
	cc.Send(wheel(1))
	cc.Send(wheel(1))
	cc.Send(input.Event{Type: input.EventContextMenu})
	cc.Send(input.Event{Type: input.EventContextMenu})
	require.Len(t, cc.pending, 4)
	assert.Equal(t, float32(2), cc.pending[1].DeltaY)

	cc.UpdateCamera(cam)
	assert.Equal(t, 2, cc.SuppressedContextMenus())
	assert.Empty(t, cc.pending)
}
