// Package scene owns the GPU-resident sphere data of the viewer: the sphere array and the
// three per-sphere output arrays the compute passes fill.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrLengthMismatch is returned when data read back from an output buffer does not hold
	// exactly one element per sphere.
	ErrLengthMismatch = errors.New("output length does not match sphere count")

	// ErrInvalidSphere is returned by SetSpheres for negative, NaN or infinite radii and origins.
	ErrInvalidSphere = errors.New("invalid sphere")

	// ErrReleased is returned by operations on a released SphereSet.
	ErrReleased = errors.New("sphere set released")
)

// BufferAllocator creates, fills and releases GPU buffers. The renderer backend implements it.
type BufferAllocator interface {
	CreateBuffer(label string, usage wgpu.BufferUsage, size uint64) (*wgpu.Buffer, error)
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error
	ReleaseBuffer(buf *wgpu.Buffer)
}

// BufferReader copies a GPU buffer into host memory and blocks until the copy is mapped.
type BufferReader interface {
	ReadBuffer(src *wgpu.Buffer, size uint64) ([]byte, error)
}

// Output identifies one of the per-sphere arrays written by a compute pass.
type Output int

const (
	// OutputBounds is the array of SphereBounds.
	OutputBounds Output = iota

	// OutputAxes is the array of long-axis Lines.
	OutputAxes

	// OutputCircles is the array of occluder Circles.
	OutputCircles
)

func (o Output) String() string {
	switch o {
	case OutputBounds:
		return "bounds"
	case OutputAxes:
		return "axes"
	case OutputCircles:
		return "circles"
	default:
		return fmt.Sprintf("Output(%d)", int(o))
	}
}

// SphereSet holds the sphere array and its index-aligned output arrays as one unit.
// Every array holds exactly Len() elements at every observation point: the arrays can only be
// resized together, by SetSpheres.
type SphereSet interface {
	// Len returns the number of spheres, which is also the length of every output array.
	//
	// Returns:
	//   - int: the element count
	Len() int

	// Spheres returns a copy of the spheres currently uploaded.
	//
	// Returns:
	//   - []common.Sphere: the spheres
	Spheres() []common.Sphere

	// SetSpheres replaces the sphere array and resizes every output array to match. Buffers are
	// reallocated only when the new count exceeds their capacity. Output contents are undefined
	// until the compute passes run again.
	//
	// Parameters:
	//   - spheres: the new spheres; may be empty
	//
	// Returns:
	//   - error: ErrInvalidSphere for a non-finite origin or a negative radius, or an allocation error
	SetSpheres(spheres []common.Sphere) error

	// Generation increases every time SetSpheres runs. Bind groups and render bundles that reference
	// the set's buffers are stale once it changes.
	//
	// Returns:
	//   - uint64: the generation counter
	Generation() uint64

	// SphereBuffer returns the storage buffer holding the spheres.
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	SphereBuffer() *wgpu.Buffer

	// OutputBuffer returns the storage buffer holding one of the output arrays.
	//
	// Parameters:
	//   - output: which array
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil for an unknown output
	OutputBuffer(output Output) *wgpu.Buffer

	// BindingSize returns the byte size to bind for any of the set's arrays: Len() elements of 16 bytes.
	//
	// Returns:
	//   - uint64: the size in bytes, zero for an empty set
	BindingSize() uint64

	// ReadBounds reads the bounds array back from the GPU.
	//
	// Parameters:
	//   - r: the reader performing the copy and map
	//
	// Returns:
	//   - []common.SphereBounds: one element per sphere
	//   - error: a read error or ErrLengthMismatch
	ReadBounds(r BufferReader) ([]common.SphereBounds, error)

	// ReadAxes reads the long-axis array back from the GPU.
	//
	// Parameters:
	//   - r: the reader performing the copy and map
	//
	// Returns:
	//   - []common.Line: one element per sphere
	//   - error: a read error or ErrLengthMismatch
	ReadAxes(r BufferReader) ([]common.Line, error)

	// ReadCircles reads the occluder circle array back from the GPU.
	//
	// Parameters:
	//   - r: the reader performing the copy and map
	//
	// Returns:
	//   - []common.Circle: one element per sphere
	//   - error: a read error or ErrLengthMismatch
	ReadCircles(r BufferReader) ([]common.Circle, error)

	// Release releases every buffer. The set is unusable afterwards.
	Release()
}

// sphereSet is the implementation of the SphereSet interface.
type sphereSet struct {
	mu     *sync.Mutex
	alloc  BufferAllocator
	label  string
	logger *slog.Logger

	spheres    []common.Sphere
	capacity   int
	generation uint64
	released   bool

	sphereBuffer  *wgpu.Buffer
	outputBuffers [3]*wgpu.Buffer
}

var _ SphereSet = &sphereSet{}

// stride is the size of every element type stored by the set.
const stride = 16

const (
	sphereUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	outputUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
)

// NewSphereSet allocates the linked buffers and uploads the initial spheres.
//
// Parameters:
//   - alloc: the allocator creating the GPU buffers
//   - options: functional options to configure the set
//
// Returns:
//   - SphereSet: the set
//   - error: an error if the initial spheres are invalid or allocation fails
func NewSphereSet(alloc BufferAllocator, options ...SphereSetBuilderOption) (SphereSet, error) {
	s := &sphereSet{
		mu:     &sync.Mutex{},
		alloc:  alloc,
		label:  "spheres",
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(s)
	}

	initial := s.spheres
	s.spheres = nil
	if err := s.SetSpheres(initial); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (s *sphereSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spheres)
}

func (s *sphereSet) Spheres() []common.Sphere {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]common.Sphere, len(s.spheres))
	copy(out, s.spheres)
	return out
}

func (s *sphereSet) SetSpheres(spheres []common.Sphere) error {
	for i, sp := range spheres {
		if err := validateSphere(sp); err != nil {
			return fmt.Errorf("sphere %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return ErrReleased
	}

	if err := s.ensureCapacity(len(spheres)); err != nil {
		return err
	}
	if len(spheres) > 0 {
		if err := s.alloc.WriteBuffer(s.sphereBuffer, 0, common.MarshalSpheres(spheres)); err != nil {
			return fmt.Errorf("failed to upload spheres: %w", err)
		}
	}

	s.spheres = append(s.spheres[:0], spheres...)
	s.generation++
	s.logger.Debug("sphere set updated", "label", s.label, "count", len(spheres), "capacity", s.capacity, "generation", s.generation)
	return nil
}

// ensureCapacity reallocates all four buffers together when n elements no longer fit.
// Capacity never drops below one element so buffers are never zero-sized.
func (s *sphereSet) ensureCapacity(n int) error {
	if s.sphereBuffer != nil && n <= s.capacity {
		return nil
	}

	capacity := max(n, 1)
	if s.capacity > 0 {
		capacity = max(capacity, s.capacity*2)
	}
	size := uint64(capacity) * stride

	sphereBuffer, err := s.alloc.CreateBuffer(s.label+" spheres", sphereUsage, size)
	if err != nil {
		return fmt.Errorf("failed to create sphere buffer: %w", err)
	}
	var outputs [3]*wgpu.Buffer
	for i := range outputs {
		outputs[i], err = s.alloc.CreateBuffer(fmt.Sprintf("%s %s", s.label, Output(i)), outputUsage, size)
		if err != nil {
			s.alloc.ReleaseBuffer(sphereBuffer)
			for _, b := range outputs[:i] {
				s.alloc.ReleaseBuffer(b)
			}
			return fmt.Errorf("failed to create %s buffer: %w", Output(i), err)
		}
	}

	s.releaseBuffers()
	s.sphereBuffer = sphereBuffer
	s.outputBuffers = outputs
	s.capacity = capacity
	return nil
}

func (s *sphereSet) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *sphereSet) SphereBuffer() *wgpu.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sphereBuffer
}

func (s *sphereSet) OutputBuffer(output Output) *wgpu.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if output < OutputBounds || output > OutputCircles {
		return nil
	}
	return s.outputBuffers[output]
}

func (s *sphereSet) BindingSize() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.spheres)) * stride
}

func (s *sphereSet) ReadBounds(r BufferReader) ([]common.SphereBounds, error) {
	data, n, err := s.read(r, OutputBounds)
	if err != nil {
		return nil, err
	}
	out := common.UnmarshalSphereBounds(data)
	if len(out) != n {
		return nil, fmt.Errorf("%s: got %d, want %d: %w", OutputBounds, len(out), n, ErrLengthMismatch)
	}
	return out, nil
}

func (s *sphereSet) ReadAxes(r BufferReader) ([]common.Line, error) {
	data, n, err := s.read(r, OutputAxes)
	if err != nil {
		return nil, err
	}
	out := common.UnmarshalLines(data)
	if len(out) != n {
		return nil, fmt.Errorf("%s: got %d, want %d: %w", OutputAxes, len(out), n, ErrLengthMismatch)
	}
	return out, nil
}

func (s *sphereSet) ReadCircles(r BufferReader) ([]common.Circle, error) {
	data, n, err := s.read(r, OutputCircles)
	if err != nil {
		return nil, err
	}
	out := common.UnmarshalCircles(data)
	if len(out) != n {
		return nil, fmt.Errorf("%s: got %d, want %d: %w", OutputCircles, len(out), n, ErrLengthMismatch)
	}
	return out, nil
}

// read copies the first Len() elements of an output buffer to the host.
func (s *sphereSet) read(r BufferReader, output Output) ([]byte, int, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil, 0, ErrReleased
	}
	n := len(s.spheres)
	buf := s.outputBuffers[output]
	s.mu.Unlock()

	if n == 0 {
		return nil, 0, nil
	}
	data, err := r.ReadBuffer(buf, uint64(n)*stride)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", output, err)
	}
	return data, n, nil
}

func (s *sphereSet) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseBuffers()
	s.released = true
}

func (s *sphereSet) releaseBuffers() {
	if s.sphereBuffer != nil {
		s.alloc.ReleaseBuffer(s.sphereBuffer)
		s.sphereBuffer = nil
	}
	for i, b := range s.outputBuffers {
		if b != nil {
			s.alloc.ReleaseBuffer(b)
			s.outputBuffers[i] = nil
		}
	}
}

func validateSphere(sp common.Sphere) error {
	if !common.Finite(sp.Origin[:]...) {
		return fmt.Errorf("%w: non-finite origin %v", ErrInvalidSphere, sp.Origin)
	}
	if !(sp.Radius >= 0) || !common.Finite(sp.Radius) {
		return fmt.Errorf("%w: radius %v", ErrInvalidSphere, sp.Radius)
	}
	return nil
}
