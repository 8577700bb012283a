package passes

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResources struct {
	created []string
	writes  int
}

func (f *fakeResources) CreateBuffer(label string, _ wgpu.BufferUsage, _ uint64) (*wgpu.Buffer, error) {
	f.created = append(f.created, label)
	return &wgpu.Buffer{}, nil
}

func (f *fakeResources) WriteBuffer(*wgpu.Buffer, uint64, []byte) error {
	f.writes++
	return nil
}

func (f *fakeResources) ReleaseBuffer(*wgpu.Buffer) {}

func (f *fakeResources) CreateBindGroup(*wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	return nil, errors.New("no device")
}

func (f *fakeResources) CreateRenderBundleEncoder(*wgpu.RenderBundleEncoderDescriptor) (*wgpu.RenderBundleEncoder, error) {
	return nil, errors.New("no device")
}

func TestGridMeshCounts(t *testing.T) {
	cases := []struct {
		name          string
		grids         []Grid
		vertices      int
		indices       int
		lastIndexBase uint16
	}{
		{"default", []Grid{DefaultGrid()}, 441, 84, 0},
		{"single cell", []Grid{{Scale: 1, Width: 1, Height: 1}}, 4, 8, 0},
		{"rectangular", []Grid{{Scale: 1, Width: 3, Height: 1}}, 8, 12, 0},
		{"two grids", []Grid{{Scale: 1, Width: 1, Height: 1}, {Scale: 2, Width: 2, Height: 2}}, 13, 20, 4},
		{"none", nil, 0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vertices, indices, err := GridMesh(tc.grids)
			require.NoError(t, err)
			assert.Len(t, vertices, tc.vertices)
			assert.Len(t, indices, tc.indices)
			for _, i := range indices {
				assert.Less(t, int(i), len(vertices))
			}
			if len(tc.grids) > 0 {
				last := indices[len(indices)-tc.grids[len(tc.grids)-1].IndexCount():]
				assert.Equal(t, tc.lastIndexBase, last[0])
			}
		})
	}
}

func TestGridMeshLattice(t *testing.T) {
	vertices, indices, err := GridMesh([]Grid{{Scale: 2, Width: 1, Height: 1, Position: mgl32.Vec3{0, 0, -1}}})
	require.NoError(t, err)

	want := []mgl32.Vec3{{-1, -1, -1}, {1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}
	for i, v := range vertices {
		assert.True(t, common.Vec3ApproxEqual(want[i], v, 1e-6), "vertex %d: %v", i, v)
	}
	// columns first, then rows
	assert.Equal(t, []uint16{0, 2, 1, 3, 0, 1, 2, 3}, indices)
}

func TestGridMeshIndexesOnlyBoundary(t *testing.T) {
	vertices, indices, err := GridMesh([]Grid{{Scale: 1, Width: 2, Height: 2}})
	require.NoError(t, err)

	// the centre of a 2x2 lattice is uploaded but never drawn
	require.Len(t, vertices, 9)
	assert.NotContains(t, indices, uint16(4))
	for _, i := range []uint16{0, 1, 2, 3, 5, 6, 7, 8} {
		assert.Contains(t, indices, i)
	}
}

func TestDefaultGridLiesOnFloor(t *testing.T) {
	vertices, _, err := GridMesh([]Grid{DefaultGrid()})
	require.NoError(t, err)
	for _, v := range vertices {
		assert.InDelta(t, 0, v.Y(), 1e-5)
	}
}

func TestGridMeshTooLarge(t *testing.T) {
	_, _, err := GridMesh([]Grid{{Scale: 1, Width: 300, Height: 300}})
	assert.ErrorIs(t, err, ErrGridTooLarge)
}

func TestIcosphere(t *testing.T) {
	cases := []struct {
		level    int
		vertices int
		indices  int
	}{
		{0, 12, 60},
		{1, 42, 240},
		{2, 162, 960},
		{3, 642, 3840},
	}

	for _, tc := range cases {
		vertices, indices := Icosphere(tc.level)
		assert.Len(t, vertices, tc.vertices, "level %d", tc.level)
		assert.Len(t, indices, tc.indices, "level %d", tc.level)
		for _, v := range vertices {
			assert.InDelta(t, 1, v.Len(), 1e-5)
		}
		for _, i := range indices {
			assert.Less(t, int(i), len(vertices))
		}
	}
}

func TestCircleFan(t *testing.T) {
	vertices, indices := CircleFan(4)
	require.Len(t, vertices, 5)
	assert.Equal(t, [2]float32{0, 0}, vertices[0])
	assert.InDelta(t, 1, vertices[1][0], 1e-6)
	assert.InDelta(t, 1, vertices[2][1], 1e-6)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4, 0, 4, 1}, indices)

	vertices, indices = CircleFan(1)
	assert.Len(t, vertices, 4)
	assert.Len(t, indices, 9)
}

func TestIndexBytesArePadded(t *testing.T) {
	assert.Len(t, uint16Bytes([]uint16{1, 2, 3}), 8)
	assert.Len(t, uint16Bytes([]uint16{1, 2}), 4)
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, uint32Bytes([]uint32{1, 2}))
}

func newTestPasses(t *testing.T) *FramePasses {
	t.Helper()
	fp, err := NewFramePasses(&fakeResources{}, DefaultSettings())
	require.NoError(t, err)
	return fp
}

func TestFramePassOrder(t *testing.T) {
	var names []string
	for _, p := range newTestPasses(t).Ordered() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"grid", "sky", "spheres", "bounding-rects", "long-axes", "occluder-circles"}, names)
	assert.Len(t, newTestPasses(t).Pipelines(), 6)
}

func TestDrawPlans(t *testing.T) {
	fp := newTestPasses(t)
	byName := map[string]Pass{}
	for _, p := range fp.Ordered() {
		byName[p.Name()] = p
	}

	instanced := []struct {
		name    string
		indices uint32
	}{
		{"spheres", 3840},
		{"bounding-rects", 5},
		{"long-axes", 2},
		{"occluder-circles", 3 * DefaultCircleSubdivisions},
	}
	for _, tc := range instanced {
		p := byName[tc.name]
		_, ok := p.Plan(0)
		assert.False(t, ok, tc.name)

		plan, ok := p.Plan(7)
		require.True(t, ok, tc.name)
		assert.Equal(t, DrawPlan{IndexCount: tc.indices, InstanceCount: 7}, plan, tc.name)
	}

	plan, ok := fp.Grid.Plan(0)
	assert.True(t, ok)
	assert.Equal(t, DrawPlan{IndexCount: 84, InstanceCount: 1}, plan)

	plan, ok = fp.Sky.Plan(0)
	assert.True(t, ok)
	assert.Equal(t, DrawPlan{VertexCount: 4, InstanceCount: 1}, plan)
}

func TestPipelineState(t *testing.T) {
	cases := []struct {
		name     string
		topology wgpu.PrimitiveTopology
		compare  wgpu.CompareFunction
		blend    bool
		stride   uint64
	}{
		{"grid", wgpu.PrimitiveTopologyLineList, wgpu.CompareFunctionLessEqual, false, 12},
		{"sky", wgpu.PrimitiveTopologyTriangleStrip, wgpu.CompareFunctionLessEqual, false, 0},
		{"spheres", wgpu.PrimitiveTopologyTriangleList, wgpu.CompareFunctionLessEqual, false, 12},
		{"bounding-rects", wgpu.PrimitiveTopologyLineStrip, wgpu.CompareFunctionLess, false, 0},
		{"long-axes", wgpu.PrimitiveTopologyLineStrip, wgpu.CompareFunctionLess, false, 0},
		{"occluder-circles", wgpu.PrimitiveTopologyTriangleList, wgpu.CompareFunctionLess, true, 8},
	}

	for i, p := range newTestPasses(t).Ordered() {
		tc := cases[i]
		t.Run(tc.name, func(t *testing.T) {
			pl := p.Pipeline()
			assert.Equal(t, tc.topology, pl.Topology())
			assert.Equal(t, tc.compare, pl.DepthCompare())
			assert.Equal(t, tc.blend, pl.BlendEnabled())

			layouts := pl.Shader().VertexLayouts()
			if tc.stride == 0 {
				assert.Empty(t, layouts)
				return
			}
			require.Len(t, layouts, 1)
			assert.Equal(t, tc.stride, layouts[0].ArrayStride)
		})
	}
}

func TestBundleSkipsEmptySet(t *testing.T) {
	res := &fakeResources{}
	set, err := scene.NewSphereSet(res)
	require.NoError(t, err)
	res.created = nil

	fp, err := NewFramePasses(res, DefaultSettings())
	require.NoError(t, err)
	for _, p := range fp.Ordered()[2:] {
		b, err := p.Bundle(pipeline.Target{}, Frame{Set: set})
		assert.NoError(t, err, p.Name())
		assert.Nil(t, b, p.Name())
	}
	assert.Empty(t, res.created)
}

func TestBundleReportsBindGroupFailure(t *testing.T) {
	res := &fakeResources{}
	set, err := scene.NewSphereSet(res, scene.WithSpheres(common.Sphere{Radius: 1}))
	require.NoError(t, err)

	p, err := NewSpheresPass(res, 1)
	require.NoError(t, err)
	_, err = p.Bundle(pipeline.Target{}, Frame{Set: set})
	assert.ErrorContains(t, err, "failed to create bind group")
	assert.Contains(t, res.created, "spheres uniforms")
	assert.Contains(t, res.created, "spheres indices")
	assert.Contains(t, res.created, "spheres vertices")
}

func TestGridSetGridsRebuildsPlan(t *testing.T) {
	fp := newTestPasses(t)
	require.NoError(t, fp.Grid.SetGrids([]Grid{{Scale: 1, Width: 1, Height: 1}}))
	plan, ok := fp.Grid.Plan(0)
	assert.True(t, ok)
	assert.Equal(t, uint32(8), plan.IndexCount)

	require.NoError(t, fp.Grid.SetGrids(nil))
	_, ok = fp.Grid.Plan(0)
	assert.False(t, ok)
}
