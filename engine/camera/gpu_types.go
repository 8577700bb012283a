package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct read by the
// sphere compute kernels.
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUViewUniformSource is the canonical WGSL definition of the ViewUniform struct read by the grid and
// sphere render passes.
//
//go:embed assets/view_uniform.wgsl
var GPUViewUniformSource string

// GPUSkyUniformSource is the canonical WGSL definition of the SkyUniform struct read by the sky pass.
//
//go:embed assets/sky_uniform.wgsl
var GPUSkyUniformSource string

// GPUCameraUniform is the GPU-aligned camera uniform consumed by the sphere compute kernels.
// Matches the WGSL struct `CameraUniform { world_to_camera: mat4x4<f32>, camera_to_clip: mat4x4<f32> }`.
// Size: 128 bytes.
type GPUCameraUniform struct {
	WorldToCamera mgl32.Mat4 // offset  0
	CameraToClip  mgl32.Mat4 // offset 64
}

// NewGPUCameraUniform builds the compute uniform from a matrix snapshot.
//
// Parameters:
//   - m: the camera matrices for this frame
//
// Returns:
//   - GPUCameraUniform: the uniform
func NewGPUCameraUniform(m Matrices) GPUCameraUniform {
	return GPUCameraUniform{WorldToCamera: m.WorldToCamera, CameraToClip: m.CameraToClip}
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (128)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	return common.MatricesToBytes(g.WorldToCamera, g.CameraToClip)
}

// GPUViewUniform carries the combined world-to-clip transform.
// Size: 64 bytes.
type GPUViewUniform struct {
	WorldToClip mgl32.Mat4
}

// Size returns the size of the GPUViewUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUViewUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUViewUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUViewUniform) Marshal() []byte {
	return common.MatricesToBytes(g.WorldToClip)
}

// GPUSkyUniform is the sky gradient uniform. The vec3 colors each occupy a 16 byte slot in WGSL.
// Size: 96 bytes.
type GPUSkyUniform struct {
	ClipToCamera   mgl32.Mat4 // offset  0
	GradientBottom [3]float32 // offset 64
	_              float32
	GradientTop    [3]float32 // offset 80
	_              float32
}

// NewGPUSkyUniform builds the sky uniform.
//
// Parameters:
//   - clipToCamera: the inverse projection for this frame
//   - bottom: RGB color at the horizon and below
//   - top: RGB color straight up
//
// Returns:
//   - GPUSkyUniform: the uniform
func NewGPUSkyUniform(clipToCamera mgl32.Mat4, bottom, top [3]float32) GPUSkyUniform {
	return GPUSkyUniform{ClipToCamera: clipToCamera, GradientBottom: bottom, GradientTop: top}
}

// Size returns the size of the GPUSkyUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUSkyUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSkyUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUSkyUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	copy(buf, common.MatricesToBytes(g.ClipToCamera))
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.GradientBottom[i]))
		binary.LittleEndian.PutUint32(buf[80+i*4:], math.Float32bits(g.GradientTop[i]))
	}
	return buf
}
