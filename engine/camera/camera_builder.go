package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CameraBuilderOption is a functional option applied to a camera during construction via NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithLens sets the camera's projection model.
//
// Parameters:
//   - lens: the lens to use
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's lens
func WithLens(lens Lens) CameraBuilderOption {
	return func(c *cameraImpl) {
		if lens != nil {
			c.lens = lens
		}
	}
}

// WithPosition sets the camera's initial world-space position.
//
// Parameters:
//   - position: the initial position
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's position
func WithPosition(position mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = position
	}
}

// WithOrientation sets the camera's initial orientation. It is normalized once all options are applied.
//
// Parameters:
//   - orientation: the initial orientation
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's orientation
func WithOrientation(orientation mgl32.Quat) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.orientation = orientation
	}
}
