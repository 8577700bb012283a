// package common contains the plain data types shared between the CPU and the GPU in this viewer, along with the
// byte-level helpers used to move them in and out of GPU buffers. They are not interface-wrapped structs.
package common

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// GPUSphereSource is the canonical WGSL definition of the Sphere struct.
//
//go:embed assets/sphere.wgsl
var GPUSphereSource string

// GPUSphereBoundsSource is the canonical WGSL definition of the SphereBounds struct.
//
//go:embed assets/sphere_bounds.wgsl
var GPUSphereBoundsSource string

// GPULineSource is the canonical WGSL definition of the Line struct.
//
//go:embed assets/line.wgsl
var GPULineSource string

// GPUCircleSource is the canonical WGSL definition of the Circle struct.
//
//go:embed assets/circle.wgsl
var GPUCircleSource string

// GPUSphereProjectionSource holds the WGSL functions projecting a view-space sphere into normalized
// device coordinates. It expects the CameraUniform, Sphere, SphereBounds, Line and Circle structs to
// be included alongside it.
//
//go:embed assets/sphere_projection.wgsl
var GPUSphereProjectionSource string

// Sphere is the GPU representation of a single sphere in world space.
// Matches the WGSL struct `Sphere { origin: vec3<f32>, radius: f32 }` (16 bytes).
type Sphere struct {
	Origin [3]float32 // offset  0: world-space centre
	Radius float32    // offset 12: radius in world units
}

// SphereBounds is an axis-aligned rectangle in normalized device coordinates.
// Matches the WGSL struct `SphereBounds { min: vec2<f32>, max: vec2<f32> }` (16 bytes).
type SphereBounds struct {
	Min [2]float32
	Max [2]float32
}

// Line is a 2D segment in normalized device coordinates.
// Matches the WGSL struct `Line { start: vec2<f32>, end: vec2<f32> }` (16 bytes).
type Line struct {
	Start [2]float32
	End   [2]float32
}

// Circle is a 2D circle in normalized device coordinates.
// Matches the WGSL struct `Circle { origin: vec2<f32>, radius: f32 }`, which WGSL pads to 16 bytes
// because the struct alignment follows its vec2 member.
type Circle struct {
	Origin [2]float32 // offset 0
	Radius float32    // offset 8
	_pad   float32    // offset 12: WGSL struct padding
}

// GPUElement is implemented by every fixed-size struct stored in a GPU array buffer.
type GPUElement interface {
	Sphere | SphereBounds | Line | Circle
}

// Size returns the size of the Sphere struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (s *Sphere) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the Sphere into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (s *Sphere) Marshal() []byte {
	buf := make([]byte, s.Size())
	putFloats(buf, s.Origin[0], s.Origin[1], s.Origin[2], s.Radius)
	return buf
}

// Size returns the size of the SphereBounds struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (b *SphereBounds) Size() int {
	return int(unsafe.Sizeof(*b))
}

// Marshal serializes the SphereBounds into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (b *SphereBounds) Marshal() []byte {
	buf := make([]byte, b.Size())
	putFloats(buf, b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	return buf
}

func (b SphereBounds) String() string {
	return fmt.Sprintf("SphereBounds{min: (%.4f, %.4f), max: (%.4f, %.4f)}", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}

// Size returns the size of the Line struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (l *Line) Size() int {
	return int(unsafe.Sizeof(*l))
}

// Marshal serializes the Line into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (l *Line) Marshal() []byte {
	buf := make([]byte, l.Size())
	putFloats(buf, l.Start[0], l.Start[1], l.End[0], l.End[1])
	return buf
}

func (l Line) String() string {
	return fmt.Sprintf("Line{start: (%.4f, %.4f), end: (%.4f, %.4f)}", l.Start[0], l.Start[1], l.End[0], l.End[1])
}

// Size returns the size of the Circle struct in bytes, including WGSL padding.
//
// Returns:
//   - int: the struct size in bytes (16)
func (c *Circle) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the Circle into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (c *Circle) Marshal() []byte {
	buf := make([]byte, c.Size())
	putFloats(buf, c.Origin[0], c.Origin[1], c.Radius, 0)
	return buf
}

func (c Circle) String() string {
	return fmt.Sprintf("Circle{origin: (%.4f, %.4f), radius: %.4f}", c.Origin[0], c.Origin[1], c.Radius)
}

// ElementSize returns the GPU stride in bytes of one element of type T.
//
// Returns:
//   - uint64: the element stride in bytes
func ElementSize[T GPUElement]() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}

// MarshalSpheres serializes a slice of spheres into one contiguous byte buffer.
//
// Parameters:
//   - spheres: the spheres to serialize
//
// Returns:
//   - []byte: the packed buffer, len(spheres)*16 bytes
func MarshalSpheres(spheres []Sphere) []byte {
	buf := make([]byte, 0, len(spheres)*int(ElementSize[Sphere]()))
	for i := range spheres {
		buf = append(buf, spheres[i].Marshal()...)
	}
	return buf
}

// UnmarshalSphereBounds decodes a tightly packed array of SphereBounds read back from the GPU.
// Trailing bytes that do not form a whole element are ignored.
//
// Parameters:
//   - data: the raw little-endian bytes
//
// Returns:
//   - []SphereBounds: the decoded elements
func UnmarshalSphereBounds(data []byte) []SphereBounds {
	out := make([]SphereBounds, len(data)/int(ElementSize[SphereBounds]()))
	for i := range out {
		f := readFloats(data[i*16:], 4)
		out[i] = SphereBounds{Min: [2]float32{f[0], f[1]}, Max: [2]float32{f[2], f[3]}}
	}
	return out
}

// UnmarshalLines decodes a tightly packed array of Lines read back from the GPU.
//
// Parameters:
//   - data: the raw little-endian bytes
//
// Returns:
//   - []Line: the decoded elements
func UnmarshalLines(data []byte) []Line {
	out := make([]Line, len(data)/int(ElementSize[Line]()))
	for i := range out {
		f := readFloats(data[i*16:], 4)
		out[i] = Line{Start: [2]float32{f[0], f[1]}, End: [2]float32{f[2], f[3]}}
	}
	return out
}

// UnmarshalCircles decodes a padded array of Circles read back from the GPU.
//
// Parameters:
//   - data: the raw little-endian bytes
//
// Returns:
//   - []Circle: the decoded elements
func UnmarshalCircles(data []byte) []Circle {
	out := make([]Circle, len(data)/int(ElementSize[Circle]()))
	for i := range out {
		f := readFloats(data[i*16:], 3)
		out[i] = Circle{Origin: [2]float32{f[0], f[1]}, Radius: f[2]}
	}
	return out
}

func putFloats(buf []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}

func readFloats(buf []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range n {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
