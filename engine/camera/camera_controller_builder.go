package camera

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-bounds/engine/input"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithOrbitPoint sets the initial pivot for orbiting and the anchor for dolly clamping.
//
// Parameters:
//   - point: world-space orbit point
//
// Returns:
//   - CameraControllerOption: functional option to set the orbit point
func WithOrbitPoint(point mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.current.orbitPoint = point
	}
}

// WithPointerLocker sets the host that grants exclusive pointer capture during a gesture.
// Without it, sessions track movement without capturing the pointer.
//
// Parameters:
//   - locker: the pointer lock host, typically the window
//
// Returns:
//   - CameraControllerOption: functional option to set the pointer locker
func WithPointerLocker(locker input.PointerLocker) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if locker != nil {
			cc.locker = locker
		}
	}
}

// WithEventBuffer sets how many events queue between updates before consecutive pointer moves
// and consecutive wheel events are merged. Button and context menu events are always queued.
//
// Parameters:
//   - size: merge threshold; values <= 0 keep the default of 1024
//
// Returns:
//   - CameraControllerOption: functional option to set the queue size
func WithEventBuffer(size int) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if size > 0 {
			cc.limit = size
		}
	}
}

// WithControllerLogger sets the logger used for session lifecycle messages.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - CameraControllerOption: functional option to set the logger
func WithControllerLogger(logger *slog.Logger) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if logger != nil {
			cc.logger = logger
		}
	}
}
