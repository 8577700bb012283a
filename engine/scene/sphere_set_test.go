package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAllocator hands out distinct placeholder buffers and records every call.
type fakeAllocator struct {
	sizes    map[*wgpu.Buffer]uint64
	labels   map[*wgpu.Buffer]string
	written  map[*wgpu.Buffer][]byte
	released []*wgpu.Buffer
	failOn   int
	creates  int
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{
		sizes:   make(map[*wgpu.Buffer]uint64),
		labels:  make(map[*wgpu.Buffer]string),
		written: make(map[*wgpu.Buffer][]byte),
		failOn:  -1,
	}
}

func (a *fakeAllocator) CreateBuffer(label string, _ wgpu.BufferUsage, size uint64) (*wgpu.Buffer, error) {
	if a.creates == a.failOn {
		return nil, errors.New("out of memory")
	}
	a.creates++
	b := &wgpu.Buffer{}
	a.sizes[b] = size
	a.labels[b] = label
	return b, nil
}

func (a *fakeAllocator) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	a.written[buf] = append(a.written[buf][:offset], data...)
	return nil
}

func (a *fakeAllocator) ReleaseBuffer(buf *wgpu.Buffer) {
	a.released = append(a.released, buf)
}

// fakeReader returns canned bytes per buffer.
type fakeReader struct {
	data  map[*wgpu.Buffer][]byte
	sizes []uint64
}

func (r *fakeReader) ReadBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	r.sizes = append(r.sizes, size)
	return r.data[src], nil
}

func unitSpheres(n int) []common.Sphere {
	out := make([]common.Sphere, n)
	for i := range out {
		out[i] = common.Sphere{Origin: [3]float32{float32(i), 0, 0}, Radius: 1}
	}
	return out
}

func TestNewSphereSetLinksBuffers(t *testing.T) {
	alloc := newFakeAllocator()
	set, err := NewSphereSet(alloc, WithSpheres(unitSpheres(3)...), WithLabel("test"))
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, uint64(48), set.BindingSize())
	assert.Equal(t, uint64(1), set.Generation())

	buffers := []*wgpu.Buffer{set.SphereBuffer(), set.OutputBuffer(OutputBounds), set.OutputBuffer(OutputAxes), set.OutputBuffer(OutputCircles)}
	for _, b := range buffers {
		require.NotNil(t, b)
		assert.Equal(t, uint64(48), alloc.sizes[b])
	}
	assert.Equal(t, "test bounds", alloc.labels[set.OutputBuffer(OutputBounds)])
	assert.Len(t, alloc.written[set.SphereBuffer()], 48)
	assert.Nil(t, set.OutputBuffer(Output(7)))
}

func TestEmptySphereSetKeepsNonZeroBuffers(t *testing.T) {
	alloc := newFakeAllocator()
	set, err := NewSphereSet(alloc)
	require.NoError(t, err)

	assert.Zero(t, set.Len())
	assert.Zero(t, set.BindingSize())
	assert.Equal(t, uint64(16), alloc.sizes[set.SphereBuffer()])
	assert.Empty(t, alloc.written)

	bounds, err := set.ReadBounds(&fakeReader{})
	assert.NoError(t, err)
	assert.Empty(t, bounds)
}

func TestSetSpheresResizesAllArraysTogether(t *testing.T) {
	cases := []struct {
		name         string
		counts       []int
		wantCreates  int
		wantCapacity uint64
	}{
		{"shrink reuses buffers", []int{8, 2}, 4, 128},
		{"grow within capacity", []int{4, 1, 4}, 4, 64},
		{"grow doubles", []int{4, 5}, 8, 128},
		{"grow past double", []int{2, 9}, 8, 144},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alloc := newFakeAllocator()
			set, err := NewSphereSet(alloc, WithSpheres(unitSpheres(tc.counts[0])...))
			require.NoError(t, err)

			for _, n := range tc.counts[1:] {
				require.NoError(t, set.SetSpheres(unitSpheres(n)))
				assert.Equal(t, n, set.Len())
				assert.Equal(t, uint64(n)*16, set.BindingSize())
			}

			assert.Equal(t, tc.wantCreates, alloc.creates)
			for _, out := range []Output{OutputBounds, OutputAxes, OutputCircles} {
				assert.Equal(t, tc.wantCapacity, alloc.sizes[set.OutputBuffer(out)])
			}
			assert.Equal(t, tc.wantCapacity, alloc.sizes[set.SphereBuffer()])
			assert.Equal(t, uint64(len(tc.counts)), set.Generation())
		})
	}
}

func TestSetSpheresRejectsInvalidSpheres(t *testing.T) {
	nan := float32(math.NaN())
	cases := []struct {
		name   string
		sphere common.Sphere
	}{
		{"negative radius", common.Sphere{Radius: -1}},
		{"nan radius", common.Sphere{Radius: nan}},
		{"infinite origin", common.Sphere{Origin: [3]float32{float32(math.Inf(1)), 0, 0}, Radius: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set, err := NewSphereSet(newFakeAllocator(), WithSpheres(unitSpheres(2)...))
			require.NoError(t, err)

			err = set.SetSpheres([]common.Sphere{{Radius: 1}, tc.sphere})
			assert.ErrorIs(t, err, ErrInvalidSphere)
			assert.Equal(t, 2, set.Len())
			assert.Equal(t, uint64(1), set.Generation())
		})
	}
}

func TestAllocationFailureReleasesPartialBuffers(t *testing.T) {
	alloc := newFakeAllocator()
	set, err := NewSphereSet(alloc, WithSpheres(unitSpheres(1)...))
	require.NoError(t, err)
	before := set.SphereBuffer()

	alloc.failOn = alloc.creates + 2
	err = set.SetSpheres(unitSpheres(10))
	assert.Error(t, err)

	// the old buffers stay bound and the set keeps its old length
	assert.Equal(t, before, set.SphereBuffer())
	assert.Equal(t, 1, set.Len())
	assert.Len(t, alloc.released, 2)
}

func TestReadOutputs(t *testing.T) {
	set, err := NewSphereSet(newFakeAllocator(), WithSpheres(unitSpheres(2)...))
	require.NoError(t, err)

	b0 := common.SphereBounds{Min: [2]float32{-0.5, -0.25}, Max: [2]float32{0.5, 0.25}}
	b1 := common.SphereBounds{Min: [2]float32{0, 0}, Max: [2]float32{1, 1}}
	l0 := common.Line{Start: [2]float32{-1, 0}, End: [2]float32{1, 0}}
	c0 := common.Circle{Origin: [2]float32{0.1, 0.2}, Radius: 0.3}

	reader := &fakeReader{data: map[*wgpu.Buffer][]byte{
		set.OutputBuffer(OutputBounds):  append(b0.Marshal(), b1.Marshal()...),
		set.OutputBuffer(OutputAxes):    append(l0.Marshal(), l0.Marshal()...),
		set.OutputBuffer(OutputCircles): append(c0.Marshal(), c0.Marshal()...),
	}}

	bounds, err := set.ReadBounds(reader)
	require.NoError(t, err)
	assert.Equal(t, []common.SphereBounds{b0, b1}, bounds)

	axes, err := set.ReadAxes(reader)
	require.NoError(t, err)
	assert.Equal(t, []common.Line{l0, l0}, axes)

	circles, err := set.ReadCircles(reader)
	require.NoError(t, err)
	assert.Equal(t, []common.Circle{c0, c0}, circles)

	assert.Equal(t, []uint64{32, 32, 32}, reader.sizes)
}

func TestReadDetectsLengthMismatch(t *testing.T) {
	set, err := NewSphereSet(newFakeAllocator(), WithSpheres(unitSpheres(2)...))
	require.NoError(t, err)

	one := common.Line{}
	reader := &fakeReader{data: map[*wgpu.Buffer][]byte{
		set.OutputBuffer(OutputAxes): one.Marshal(),
	}}

	_, err = set.ReadAxes(reader)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestReleaseIsFinal(t *testing.T) {
	alloc := newFakeAllocator()
	set, err := NewSphereSet(alloc, WithSpheres(unitSpheres(1)...))
	require.NoError(t, err)

	set.Release()

	assert.Len(t, alloc.released, 4)
	assert.Nil(t, set.SphereBuffer())
	assert.ErrorIs(t, set.SetSpheres(unitSpheres(1)), ErrReleased)
	_, err = set.ReadBounds(&fakeReader{})
	assert.ErrorIs(t, err, ErrReleased)
}
