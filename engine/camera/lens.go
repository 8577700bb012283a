package camera

import (
	"math"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Lens is a camera projection model producing the camera-to-clip transform.
type Lens interface {
	// CameraToClip returns the projection matrix mapping camera space into WebGPU clip space.
	//
	// Returns:
	//   - mgl32.Mat4: the column-major projection matrix
	CameraToClip() mgl32.Mat4

	// AspectRatio returns the current width / height ratio of the lens.
	//
	// Returns:
	//   - float32: the aspect ratio
	AspectRatio() float32

	// SetAspectRatio updates the width / height ratio, typically after the output surface is resized.
	//
	// Parameters:
	//   - aspect: the new aspect ratio; non-positive or non-finite values are ignored
	SetAspectRatio(aspect float32)
}

// PerspectiveLens is a symmetric right-handed perspective projection.
type PerspectiveLens struct {
	FovVertical float32 // vertical field of view in radians
	Aspect      float32 // width / height
	FrustumNear float32
	FrustumFar  float32
}

var _ Lens = &PerspectiveLens{}

// DefaultPerspectiveLens returns the default lens: 0.45π vertical field of view,
// near plane 0.01 and far plane 100.
//
// Parameters:
//   - aspect: the initial width / height ratio
//
// Returns:
//   - *PerspectiveLens: the lens
func DefaultPerspectiveLens(aspect float32) *PerspectiveLens {
	return &PerspectiveLens{
		FovVertical: 0.45 * math.Pi,
		Aspect:      aspect,
		FrustumNear: 0.01,
		FrustumFar:  100,
	}
}

func (l *PerspectiveLens) CameraToClip() mgl32.Mat4 {
	return common.PerspectiveRH(l.FovVertical, l.Aspect, l.FrustumNear, l.FrustumFar)
}

func (l *PerspectiveLens) AspectRatio() float32 {
	return l.Aspect
}

func (l *PerspectiveLens) SetAspectRatio(aspect float32) {
	if aspect <= 0 || !common.Finite(aspect) {
		return
	}
	l.Aspect = aspect
}
