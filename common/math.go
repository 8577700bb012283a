package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Axis constants used throughout the camera and grid code.
var (
	AxisX = mgl32.Vec3{1, 0, 0}
	AxisY = mgl32.Vec3{0, 1, 0}
	AxisZ = mgl32.Vec3{0, 0, 1}
)

// PerspectiveRH creates a right-handed perspective projection matrix mapping view-space depth
// into the WebGPU clip range [0, 1]. The camera looks down -Z.
// mgl32.Perspective targets the OpenGL [-1, 1] depth range, so it cannot be used directly.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func PerspectiveRH(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	r := far / (near - far)

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = r
	out[11] = -1.0
	out[14] = r * near
	return out
}

// RigidTransform builds the matrix T(position) * R(orientation).
//
// Parameters:
//   - position: the translation
//   - orientation: the rotation, expected to be normalized
//
// Returns:
//   - mgl32.Mat4: the column-major transform
func RigidTransform(position mgl32.Vec3, orientation mgl32.Quat) mgl32.Mat4 {
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).Mul4(orientation.Mat4())
}

// ScaleRotationTranslation builds the matrix T(position) * R(orientation) * S(scale) with a uniform scale.
//
// Parameters:
//   - scale: the uniform scale factor
//   - orientation: the rotation, expected to be normalized
//   - position: the translation
//
// Returns:
//   - mgl32.Mat4: the column-major transform
func ScaleRotationTranslation(scale float32, orientation mgl32.Quat, position mgl32.Vec3) mgl32.Mat4 {
	return RigidTransform(position, orientation).Mul4(mgl32.Scale3D(scale, scale, scale))
}

// AxisAngle returns the unit quaternion rotating by angle radians about axis.
// The axis is normalized first; a zero axis yields the identity.
//
// Parameters:
//   - axis: the rotation axis
//   - angle: the rotation angle in radians
//
// Returns:
//   - mgl32.Quat: the rotation
func AxisAngle(axis mgl32.Vec3, angle float32) mgl32.Quat {
	if axis.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatRotate(angle, axis.Normalize())
}

// MatricesToBytes serializes column-major matrices back to back into a byte buffer for GPU upload.
//
// Parameters:
//   - matrices: the matrices to serialize, in order
//
// Returns:
//   - []byte: 64 bytes per matrix
func MatricesToBytes(matrices ...mgl32.Mat4) []byte {
	buf := make([]byte, 64*len(matrices))
	for m, mat := range matrices {
		for i := range 16 {
			binary.LittleEndian.PutUint32(buf[m*64+i*4:], math.Float32bits(mat[i]))
		}
	}
	return buf
}

// Vec3ApproxEqual reports whether a and b differ by at most eps in every component.
//
// Parameters:
//   - a, b: the vectors to compare
//   - eps: the per-component tolerance
//
// Returns:
//   - bool: true if the vectors are within tolerance
func Vec3ApproxEqual(a, b mgl32.Vec3, eps float32) bool {
	return mgl32.Abs(a[0]-b[0]) <= eps && mgl32.Abs(a[1]-b[1]) <= eps && mgl32.Abs(a[2]-b[2]) <= eps
}
