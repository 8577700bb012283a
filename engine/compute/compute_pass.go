// Package compute holds the compute passes that project every sphere of a scene.SphereSet into
// normalized device coordinates: bounding rectangles, long axes and occluder circles, plus the CPU
// reference of the same projection.
package compute

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-bounds/engine/camera"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// GroupSize is the workgroup size every projection kernel declares.
const GroupSize = 256

// ErrPipelineNotCreated is returned by Encode before the pass pipeline has been created.
var ErrPipelineNotCreated = errors.New("compute pipeline not created")

// Resources creates the per-dispatch GPU objects of a pass. The renderer backend implements it.
type Resources interface {
	scene.BufferAllocator
	CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error)
}

// ComputeInput is the data one dispatch of a projection pass reads.
type ComputeInput struct {
	WorldToCamera mgl32.Mat4
	CameraToClip  mgl32.Mat4
	Set           scene.SphereSet
}

// Encoded holds the GPU objects created for one dispatch. They must outlive the submission of the
// command buffer the dispatch was recorded into, and are released with Release afterwards.
type Encoded struct {
	// Workgroups is the number of workgroups dispatched, zero when nothing was recorded.
	Workgroups uint32

	res       Resources
	uniform   *wgpu.Buffer
	bindGroup *wgpu.BindGroup
}

// Release releases the uniform buffer and bind group of the dispatch. Safe on a nil or empty handle.
func (e *Encoded) Release() {
	if e == nil {
		return
	}
	if e.bindGroup != nil {
		e.bindGroup.Release()
		e.bindGroup = nil
	}
	if e.uniform != nil {
		e.res.ReleaseBuffer(e.uniform)
		e.uniform = nil
	}
}

// Pass is a compute pass writing one of the SphereSet output arrays.
type Pass interface {
	// Name returns the pass name, used for labels and logging.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Output returns the SphereSet array the pass writes.
	//
	// Returns:
	//   - scene.Output: the output array
	Output() scene.Output

	// Pipeline returns the compute pipeline of the pass. It must be created before Encode.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline
	Pipeline() pipeline.Pipeline

	// Prepare creates the uniform buffer and bind group of one dispatch covering every sphere of
	// in.Set. It records nothing and may run concurrently with the Prepare of other passes.
	//
	// Parameters:
	//   - in: the camera matrices and the sphere set
	//
	// Returns:
	//   - *Encoded: the dispatch resources, with zero workgroups for an empty set
	//   - error: ErrPipelineNotCreated or a resource creation error
	Prepare(in ComputeInput) (*Encoded, error)

	// Record records a prepared dispatch into encoder. Nothing is recorded for zero workgroups.
	//
	// Parameters:
	//   - encoder: the command encoder to record into
	//   - enc: the result of Prepare
	Record(encoder *wgpu.CommandEncoder, enc *Encoded)

	// Encode prepares and records one dispatch covering every sphere of in.Set into encoder.
	// Nothing is recorded for an empty set.
	//
	// Parameters:
	//   - encoder: the command encoder to record into
	//   - in: the camera matrices and the sphere set
	//
	// Returns:
	//   - *Encoded: the dispatch resources, to release after submission
	//   - error: ErrPipelineNotCreated or a resource creation error
	Encode(encoder *wgpu.CommandEncoder, in ComputeInput) (*Encoded, error)
}

// spherePass is the implementation of the Pass interface shared by all projection kernels.
type spherePass struct {
	name     string
	output   scene.Output
	res      Resources
	pipeline pipeline.Pipeline
}

var _ Pass = &spherePass{}

// WorkgroupCount returns the number of workgroups needed to cover n spheres.
//
// Parameters:
//   - n: the sphere count
//
// Returns:
//   - uint32: ceil(n / GroupSize)
func WorkgroupCount(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + GroupSize - 1) / GroupSize)
}

// newSpherePass parses a projection kernel and builds the pipeline configuration for it.
//
// Parameters:
//   - name: the pass name
//   - output: the SphereSet array the kernel writes
//   - source: the kernel WGSL source
//   - res: the creator of per-dispatch resources
//
// Returns:
//   - *spherePass: the pass
//   - error: a shader error, or a workgroup size other than GroupSize
func newSpherePass(name string, output scene.Output, source string, res Resources) (*spherePass, error) {
	s, err := shader.NewShader(name, source)
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", name, err)
	}
	if wg := s.WorkgroupSize(); wg != [3]uint32{GroupSize, 1, 1} {
		return nil, fmt.Errorf("%s pass: workgroup size %v, expected [%d 1 1]", name, wg, GroupSize)
	}
	return &spherePass{
		name:     name,
		output:   output,
		res:      res,
		pipeline: pipeline.NewPipeline(name, pipeline.PipelineTypeCompute, s),
	}, nil
}

func (p *spherePass) Name() string {
	return p.name
}

func (p *spherePass) Output() scene.Output {
	return p.output
}

func (p *spherePass) Pipeline() pipeline.Pipeline {
	return p.pipeline
}

func (p *spherePass) Prepare(in ComputeInput) (*Encoded, error) {
	n := in.Set.Len()
	if n == 0 {
		return &Encoded{}, nil
	}
	if p.pipeline.ComputePipeline() == nil {
		return nil, fmt.Errorf("%s pass: %w", p.name, ErrPipelineNotCreated)
	}

	u := camera.NewGPUCameraUniform(camera.Matrices{WorldToCamera: in.WorldToCamera, CameraToClip: in.CameraToClip})
	enc := &Encoded{res: p.res, Workgroups: WorkgroupCount(n)}

	var err error
	enc.uniform, err = p.res.CreateBuffer(p.name+" uniforms", wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, uint64(u.Size()))
	if err != nil {
		return nil, fmt.Errorf("%s pass: failed to create uniform buffer: %w", p.name, err)
	}
	if err = p.res.WriteBuffer(enc.uniform, 0, u.Marshal()); err != nil {
		enc.Release()
		return nil, fmt.Errorf("%s pass: failed to write uniforms: %w", p.name, err)
	}

	size := in.Set.BindingSize()
	enc.bindGroup, err = p.res.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  p.name,
		Layout: p.pipeline.BindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: enc.uniform, Size: uint64(u.Size())},
			{Binding: 1, Buffer: in.Set.SphereBuffer(), Size: size},
			{Binding: 2, Buffer: in.Set.OutputBuffer(p.output), Size: size},
		},
	})
	if err != nil {
		enc.Release()
		return nil, fmt.Errorf("%s pass: failed to create bind group: %w", p.name, err)
	}
	return enc, nil
}

func (p *spherePass) Record(encoder *wgpu.CommandEncoder, enc *Encoded) {
	if enc == nil || enc.Workgroups == 0 || enc.bindGroup == nil {
		return
	}
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: p.name})
	pass.SetPipeline(p.pipeline.ComputePipeline())
	pass.SetBindGroup(0, enc.bindGroup, nil)
	pass.DispatchWorkgroups(enc.Workgroups, 1, 1)
	pass.End()
	pass.Release()
}

func (p *spherePass) Encode(encoder *wgpu.CommandEncoder, in ComputeInput) (*Encoded, error) {
	enc, err := p.Prepare(in)
	if err != nil {
		return nil, err
	}
	p.Record(encoder, enc)
	return enc, nil
}

// NewPasses creates the bounds, long axes and occluder circles passes, in that order.
//
// Parameters:
//   - res: the creator of per-dispatch resources
//
// Returns:
//   - []Pass: the three passes
//   - error: the first kernel error
func NewPasses(res Resources) ([]Pass, error) {
	ctors := []func(Resources) (Pass, error){NewBoundsPass, NewLongAxesPass, NewOccluderCirclesPass}
	passes := make([]Pass, 0, len(ctors))
	for _, ctor := range ctors {
		p, err := ctor(res)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	return passes, nil
}

// Pipelines returns the pipelines of passes, for batch creation.
func Pipelines(passes []Pass) []pipeline.Pipeline {
	out := make([]pipeline.Pipeline, len(passes))
	for i, p := range passes {
		out[i] = p.Pipeline()
	}
	return out
}

// EncodeAll prepares every pass on pool, waits for all of them, then records the dispatches into
// encoder in pass order. On error every prepared dispatch is released and nothing is recorded.
//
// Parameters:
//   - encoder: the command encoder to record into
//   - in: the camera matrices and the sphere set
//   - pool: the worker pool running Prepare
//   - passes: the passes to record
//
// Returns:
//   - []*Encoded: one handle per pass, to release after submission
//   - error: the first preparation error in pass order
func EncodeAll(encoder *wgpu.CommandEncoder, in ComputeInput, pool worker.DynamicWorkerPool, passes ...Pass) ([]*Encoded, error) {
	out := make([]*Encoded, len(passes))
	errs := make([]error, len(passes))

	// pool.Wait blocks until the workers idle out, so a WaitGroup is the per-frame barrier.
	var wg sync.WaitGroup
	for i, p := range passes {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				out[i], errs[i] = p.Prepare(in)
				return nil, nil
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err == nil {
			continue
		}
		for _, e := range out {
			e.Release()
		}
		return nil, err
	}
	for i, p := range passes {
		p.Record(encoder, out[i])
	}
	return out, nil
}
