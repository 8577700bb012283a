package compute

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/Carmen-Shannon/oxy-bounds/engine/camera"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResources struct {
	mu                  sync.Mutex
	creates, bindGroups int
}

func (f *fakeResources) CreateBuffer(string, wgpu.BufferUsage, uint64) (*wgpu.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return &wgpu.Buffer{}, nil
}

func (f *fakeResources) WriteBuffer(*wgpu.Buffer, uint64, []byte) error { return nil }

func (f *fakeResources) ReleaseBuffer(*wgpu.Buffer) {}

func (f *fakeResources) CreateBindGroup(*wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindGroups++
	return nil, errors.New("no device")
}

func TestWorkgroupCount(t *testing.T) {
	cases := []struct {
		n    int
		want uint32
	}{
		{0, 0},
		{1, 1},
		{255, 1},
		{256, 1},
		{257, 2},
		{1000, 4},
		{-3, 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, WorkgroupCount(tc.n), "n=%d", tc.n)
	}
}

func TestPassesReflectKernelLayout(t *testing.T) {
	passes, err := NewPasses(&fakeResources{})
	require.NoError(t, err)
	require.Len(t, passes, 3)

	want := []struct {
		name    string
		output  scene.Output
		varName string
	}{
		{"compute-bounds", scene.OutputBounds, "bounds"},
		{"compute-long-axes", scene.OutputAxes, "axes"},
		{"compute-occluder-circles", scene.OutputCircles, "circles"},
	}
	for i, w := range want {
		p := passes[i]
		assert.Equal(t, w.name, p.Name())
		assert.Equal(t, w.output, p.Output())

		s := p.Pipeline().Shader()
		assert.Equal(t, [3]uint32{GroupSize, 1, 1}, s.WorkgroupSize())
		assert.Equal(t, "uniforms", s.BindGroupVarName(0, 0))
		assert.Equal(t, "spheres", s.BindGroupVarName(0, 1))
		assert.Equal(t, w.varName, s.BindGroupVarName(0, 2))

		entries := s.BindGroupLayoutDescriptor(0).Entries
		require.Len(t, entries, 3)
		assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
		assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, entries[1].Buffer.Type)
		assert.Equal(t, wgpu.BufferBindingTypeStorage, entries[2].Buffer.Type)
	}
	assert.Len(t, Pipelines(passes), 3)
}

func TestEncodeEmptySetRecordsNothing(t *testing.T) {
	res := &fakeResources{}
	set, err := scene.NewSphereSet(res)
	require.NoError(t, err)

	passes, err := NewPasses(res)
	require.NoError(t, err)
	encoded, err := EncodeAll(nil, ComputeInput{Set: set}, newTestPool(), passes...)
	require.NoError(t, err)

	require.Len(t, encoded, 3)
	for _, e := range encoded {
		assert.Zero(t, e.Workgroups)
		e.Release()
	}
	assert.Zero(t, res.bindGroups)
}

func TestEncodeBeforePipelineCreation(t *testing.T) {
	res := &fakeResources{}
	set, err := scene.NewSphereSet(res, scene.WithSpheres(common.Sphere{Radius: 1}))
	require.NoError(t, err)

	p, err := NewBoundsPass(res)
	require.NoError(t, err)
	_, err = p.Encode(nil, ComputeInput{Set: set})
	assert.True(t, errors.Is(err, ErrPipelineNotCreated))
}

func newTestPool() worker.DynamicWorkerPool {
	return worker.NewDynamicWorkerPool(2, 16, 1*time.Second)
}

// recordingPass prepares on any goroutine and logs the order Record is called in.
type recordingPass struct {
	name       string
	prepareErr error
	mu         *sync.Mutex
	recorded   *[]string
}

func (p *recordingPass) Name() string                { return p.name }
func (p *recordingPass) Output() scene.Output        { return scene.OutputBounds }
func (p *recordingPass) Pipeline() pipeline.Pipeline { return nil }

func (p *recordingPass) Prepare(ComputeInput) (*Encoded, error) {
	if p.prepareErr != nil {
		return nil, p.prepareErr
	}
	return &Encoded{Workgroups: 1}, nil
}

func (p *recordingPass) Record(_ *wgpu.CommandEncoder, enc *Encoded) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.recorded = append(*p.recorded, p.name)
}

func (p *recordingPass) Encode(encoder *wgpu.CommandEncoder, in ComputeInput) (*Encoded, error) {
	enc, err := p.Prepare(in)
	if err == nil {
		p.Record(encoder, enc)
	}
	return enc, err
}

func TestEncodeAllRecordsInPassOrder(t *testing.T) {
	mu := &sync.Mutex{}
	var recorded []string
	var list []Pass
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		list = append(list, &recordingPass{name: name, mu: mu, recorded: &recorded})
	}

	encoded, err := EncodeAll(nil, ComputeInput{}, newTestPool(), list...)
	require.NoError(t, err)
	assert.Len(t, encoded, 5)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, recorded)
}

func TestEncodeAllFailureRecordsNothing(t *testing.T) {
	mu := &sync.Mutex{}
	var recorded []string
	errB, errD := errors.New("b failed"), errors.New("d failed")
	list := []Pass{
		&recordingPass{name: "a", mu: mu, recorded: &recorded},
		&recordingPass{name: "b", mu: mu, recorded: &recorded, prepareErr: errB},
		&recordingPass{name: "c", mu: mu, recorded: &recorded},
		&recordingPass{name: "d", mu: mu, recorded: &recorded, prepareErr: errD},
	}

	encoded, err := EncodeAll(nil, ComputeInput{}, newTestPool(), list...)
	assert.ErrorIs(t, err, errB)
	assert.Nil(t, encoded)
	assert.Empty(t, recorded)
}

func matricesAt(position mgl32.Vec3, aspect float32) camera.Matrices {
	cam := camera.NewCamera(camera.WithPosition(position))
	cam.SetAspectRatio(aspect)
	return cam.Matrices()
}

func TestProjectCenteredSphere(t *testing.T) {
	m := matricesAt(mgl32.Vec3{0, 0, 5}, 1)
	sx := m.CameraToClip.At(0, 0)
	p := ProjectSphere(m.WorldToCamera, m.CameraToClip, common.Sphere{Radius: 1})
	require.Equal(t, VisibilityVisible, p.Visibility)

	half := float32(1 / math.Sqrt(24))
	assert.InDelta(t, half*sx, p.Bounds.Max[0], 1e-5)
	assert.InDelta(t, -p.Bounds.Max[0], p.Bounds.Min[0], 1e-6)
	assert.InDelta(t, -p.Bounds.Max[1], p.Bounds.Min[1], 1e-6)
	assert.InDelta(t, p.Bounds.Max[0], p.Bounds.Max[1], 1e-5)

	// a sphere on the view axis projects to a circle
	assert.InDelta(t, 0, p.Circle.Origin[0], 1e-6)
	assert.InDelta(t, 0, p.Circle.Origin[1], 1e-6)
	assert.InDelta(t, half*sx, p.Circle.Radius, 1e-5)
	assert.InDelta(t, 2*half*sx, p.LongAxis.End[0]-p.LongAxis.Start[0], 1e-5)
}

func TestProjectionShrinksWithDistance(t *testing.T) {
	prev := float32(math.Inf(1))
	for _, d := range []float32{2, 3, 5, 10, 40} {
		m := matricesAt(mgl32.Vec3{0, 0, d}, 1)
		p := ProjectSphere(m.WorldToCamera, m.CameraToClip, common.Sphere{Radius: 1})
		width := p.Bounds.Max[0] - p.Bounds.Min[0]
		assert.Less(t, width, prev, "distance %v", d)
		prev = width
	}
}

func TestProjectOffAxisSphere(t *testing.T) {
	m := matricesAt(mgl32.Vec3{0, 0, 5}, 1)
	p := ProjectSphere(m.WorldToCamera, m.CameraToClip, common.Sphere{Origin: [3]float32{2, 0, 0}, Radius: 1})
	require.Equal(t, VisibilityVisible, p.Visibility)

	// the silhouette stretches away from the view axis
	centre := 0.4 * m.CameraToClip.At(0, 0)
	assert.Greater(t, p.Bounds.Max[0]-centre, centre-p.Bounds.Min[0])

	// the long axis of a sphere on the x axis is horizontal and spans the bounds
	assert.InDelta(t, p.Bounds.Min[0], p.LongAxis.Start[0], 1e-5)
	assert.InDelta(t, p.Bounds.Max[0], p.LongAxis.End[0], 1e-5)
	assert.InDelta(t, 0, p.LongAxis.Start[1], 1e-6)
	assert.InDelta(t, 0, p.LongAxis.End[1], 1e-6)

	// the circle sits inside the bounds
	assert.GreaterOrEqual(t, p.Circle.Origin[0]-p.Circle.Radius, p.Bounds.Min[0])
	assert.LessOrEqual(t, p.Circle.Origin[0]+p.Circle.Radius, p.Bounds.Max[0])
	assert.LessOrEqual(t, p.Circle.Radius, p.Bounds.Max[1]+1e-6)
}

func TestCircleFitsAnisotropicView(t *testing.T) {
	m := matricesAt(mgl32.Vec3{0, 0, 5}, 2)
	p := ProjectSphere(m.WorldToCamera, m.CameraToClip, common.Sphere{Radius: 1})

	halfWidth := (p.Bounds.Max[0] - p.Bounds.Min[0]) / 2
	halfHeight := (p.Bounds.Max[1] - p.Bounds.Min[1]) / 2
	assert.InDelta(t, halfWidth*2, halfHeight, 1e-5)
	assert.InDelta(t, halfWidth, p.Circle.Radius, 1e-5)
}

func TestProjectNearPlaneCases(t *testing.T) {
	m := matricesAt(mgl32.Vec3{0, 0, 5}, 1)

	cases := []struct {
		name   string
		sphere common.Sphere
		want   Projection
	}{
		{
			"camera inside",
			common.Sphere{Origin: [3]float32{0, 0, 5}, Radius: 2},
			Projection{Visibility: VisibilityStraddling, Bounds: fullView},
		},
		{
			"crossing the near plane",
			common.Sphere{Origin: [3]float32{0, 0, 4.5}, Radius: 1},
			Projection{Visibility: VisibilityStraddling, Bounds: fullView},
		},
		{
			"behind the camera",
			common.Sphere{Origin: [3]float32{0, 0, 8}, Radius: 1},
			Projection{Visibility: VisibilityCulled},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProjectSphere(m.WorldToCamera, m.CameraToClip, tc.sphere))
		})
	}
}

func TestMaxDeviation(t *testing.T) {
	gpu := []common.Circle{{Radius: 1}, {Origin: [2]float32{0.5, 0}, Radius: 1}}
	cpu := []common.Circle{{Radius: 1}, {Origin: [2]float32{0.25, 0}, Radius: 1.1}, {Radius: 9}}

	assert.InDelta(t, 0.25, MaxDeviation(gpu, cpu, CircleCoords), 1e-6)
	assert.Zero(t, MaxDeviation(nil, cpu, CircleCoords))
}
