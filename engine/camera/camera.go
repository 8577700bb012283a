package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	lens        Lens
	position    mgl32.Vec3
	orientation mgl32.Quat
}

// Camera holds a Lens and a rigid transform (position, orientation) and derives the
// matrices the compute and render passes consume. The orientation is kept normalized.
type Camera interface {
	// Lens returns the camera's projection model.
	//
	// Returns:
	//   - Lens: the lens
	Lens() Lens

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Orientation returns the camera's world-space orientation.
	//
	// Returns:
	//   - mgl32.Quat: the unit orientation quaternion
	Orientation() mgl32.Quat

	// SetPosition sets the camera's world-space position.
	//
	// Parameters:
	//   - position: the new position
	SetPosition(position mgl32.Vec3)

	// SetOrientation sets the camera's orientation. The quaternion is normalized before it is stored.
	//
	// Parameters:
	//   - orientation: the new orientation
	SetOrientation(orientation mgl32.Quat)

	// SetAspectRatio forwards a new output aspect ratio to the lens.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspectRatio(aspect float32)

	// CameraToWorld returns T(position) * R(orientation).
	//
	// Returns:
	//   - mgl32.Mat4: the camera-to-world matrix
	CameraToWorld() mgl32.Mat4

	// WorldToCamera returns the inverse of CameraToWorld.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	WorldToCamera() mgl32.Mat4

	// CameraToClip returns the lens projection.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	CameraToClip() mgl32.Mat4

	// ClipToCamera returns the inverse of the lens projection.
	//
	// Returns:
	//   - mgl32.Mat4: the inverse projection matrix
	ClipToCamera() mgl32.Mat4

	// WorldToClip returns CameraToClip * WorldToCamera.
	//
	// Returns:
	//   - mgl32.Mat4: the combined view-projection matrix
	WorldToClip() mgl32.Mat4

	// Matrices returns a consistent snapshot of every derived matrix under a single lock,
	// so a frame never mixes matrices from two different camera states.
	//
	// Returns:
	//   - Matrices: the snapshot
	Matrices() Matrices
}

// Matrices is a snapshot of all camera-derived transforms for one frame.
type Matrices struct {
	WorldToCamera mgl32.Mat4
	CameraToClip  mgl32.Mat4
	ClipToCamera  mgl32.Mat4
	WorldToClip   mgl32.Mat4
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera. Without options it sits at (0, 0, 5) with the identity orientation,
// looking down -Z through a DefaultPerspectiveLens with a square aspect ratio.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:          &sync.Mutex{},
		lens:        DefaultPerspectiveLens(1.0),
		position:    mgl32.Vec3{0, 0, 5},
		orientation: mgl32.QuatIdent(),
	}
	for _, option := range options {
		option(c)
	}
	c.orientation = c.orientation.Normalize()
	return c
}

func (c *cameraImpl) Lens() Lens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Orientation() mgl32.Quat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orientation
}

func (c *cameraImpl) SetPosition(position mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
}

func (c *cameraImpl) SetOrientation(orientation mgl32.Quat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orientation = orientation.Normalize()
}

func (c *cameraImpl) SetAspectRatio(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lens.SetAspectRatio(aspect)
}

func (c *cameraImpl) CameraToWorld() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.RigidTransform(c.position, c.orientation)
}

func (c *cameraImpl) WorldToCamera() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worldToCamera()
}

func (c *cameraImpl) CameraToClip() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens.CameraToClip()
}

func (c *cameraImpl) ClipToCamera() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens.CameraToClip().Inv()
}

func (c *cameraImpl) WorldToClip() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens.CameraToClip().Mul4(c.worldToCamera())
}

func (c *cameraImpl) Matrices() Matrices {
	c.mu.Lock()
	defer c.mu.Unlock()

	worldToCamera := c.worldToCamera()
	cameraToClip := c.lens.CameraToClip()
	return Matrices{
		WorldToCamera: worldToCamera,
		CameraToClip:  cameraToClip,
		ClipToCamera:  cameraToClip.Inv(),
		WorldToClip:   cameraToClip.Mul4(worldToCamera),
	}
}

// worldToCamera inverts the rigid transform analytically: R^-1 * T(-position).
// Caller must hold the mutex.
func (c *cameraImpl) worldToCamera() mgl32.Mat4 {
	inv := c.orientation.Conjugate()
	t := inv.Rotate(c.position.Mul(-1))
	return mgl32.Translate3D(t.X(), t.Y(), t.Z()).Mul4(inv.Mat4())
}
