// Package passes holds the render passes of the main frame. Every pass owns one render pipeline and
// hands the renderer a reusable render bundle, or nil when it has nothing to draw.
package passes

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bounds/engine/camera"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// Resources creates the GPU objects the passes own. The renderer backend implements it.
type Resources interface {
	scene.BufferAllocator
	CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error)
	CreateRenderBundleEncoder(desc *wgpu.RenderBundleEncoderDescriptor) (*wgpu.RenderBundleEncoder, error)
}

// Frame carries the per-frame inputs shared by every pass.
type Frame struct {
	Matrices camera.Matrices
	Set      scene.SphereSet
}

// DrawPlan is the single draw call a bundle records.
// Indexed draws set IndexCount; the sky quad sets VertexCount instead.
type DrawPlan struct {
	IndexCount    uint32
	VertexCount   uint32
	InstanceCount uint32
}

// Pass is one render pass of the main frame.
type Pass interface {
	// Name returns the pass name, used for labels and logging.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Pipeline returns the render pipeline of the pass. It must be created before Bundle.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline
	Pipeline() pipeline.Pipeline

	// Plan returns the draw call the pass records for n spheres.
	//
	// Parameters:
	//   - n: the number of spheres in the frame; static passes ignore it
	//
	// Returns:
	//   - DrawPlan: the draw call
	//   - bool: false when there is nothing to draw
	Plan(n int) (DrawPlan, bool)

	// Bundle refreshes the pass uniforms for frame and returns the bundle to execute. Bundles are
	// cached and rebuilt only when the buffers they reference change.
	//
	// Parameters:
	//   - target: the attachments of the main render pass
	//   - frame: the per-frame inputs
	//
	// Returns:
	//   - *wgpu.RenderBundle: the bundle, or nil when there is nothing to draw
	//   - error: a resource creation error
	Bundle(target pipeline.Target, frame Frame) (*wgpu.RenderBundle, error)

	// Release releases every GPU object owned by the pass, including its pipeline.
	Release()
}

// instancedPlan draws indexCount indices once per instance, nothing for zero instances.
func instancedPlan(indexCount uint32, n int) (DrawPlan, bool) {
	if n <= 0 || indexCount == 0 {
		return DrawPlan{}, false
	}
	return DrawPlan{IndexCount: indexCount, InstanceCount: uint32(n)}, true
}

// bundleCommands lists what one bundle binds before its draw call.
type bundleCommands struct {
	label        string
	pipeline     pipeline.Pipeline
	bindGroup    *wgpu.BindGroup
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexFormat  wgpu.IndexFormat
	plan         DrawPlan
}

// encodeBundle records cmds into a new render bundle compatible with target.
//
// Parameters:
//   - res: creates the bundle encoder
//   - target: the attachments the bundle will execute against
//   - cmds: the bindings and the draw call
//
// Returns:
//   - *wgpu.RenderBundle: the finished bundle
//   - error: an error if the pipeline is missing or the encoder cannot be created
func encodeBundle(res Resources, target pipeline.Target, cmds bundleCommands) (*wgpu.RenderBundle, error) {
	rp := cmds.pipeline.RenderPipeline()
	if rp == nil {
		return nil, fmt.Errorf("%s: render pipeline not created", cmds.label)
	}

	enc, err := res.CreateRenderBundleEncoder(&wgpu.RenderBundleEncoderDescriptor{
		Label:              cmds.label,
		ColorFormats:       []wgpu.TextureFormat{target.ColorFormat},
		DepthStencilFormat: target.DepthFormat,
		SampleCount:        max(target.SampleCount, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create bundle encoder: %w", cmds.label, err)
	}
	defer enc.Release()

	enc.SetPipeline(rp)
	if cmds.bindGroup != nil {
		enc.SetBindGroup(0, cmds.bindGroup, nil)
	}
	if cmds.vertexBuffer != nil {
		enc.SetVertexBuffer(0, cmds.vertexBuffer, 0, wgpu.WholeSize)
	}
	if cmds.indexBuffer != nil {
		enc.SetIndexBuffer(cmds.indexBuffer, cmds.indexFormat, 0, wgpu.WholeSize)
		enc.DrawIndexed(cmds.plan.IndexCount, cmds.plan.InstanceCount, 0, 0, 0)
	} else {
		enc.Draw(cmds.plan.VertexCount, cmds.plan.InstanceCount, 0, 0)
	}
	return enc.Finish(&wgpu.RenderBundleDescriptor{Label: cmds.label}), nil
}

// createBuffer creates a buffer of the given usage and uploads data into it.
func createBuffer(res Resources, label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	buf, err := res.CreateBuffer(label, usage|wgpu.BufferUsageCopyDst, uint64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create buffer: %w", label, err)
	}
	if err = res.WriteBuffer(buf, 0, data); err != nil {
		res.ReleaseBuffer(buf)
		return nil, fmt.Errorf("%s: failed to upload buffer: %w", label, err)
	}
	return buf, nil
}

// cachedBundle is a bundle together with the bind group it references and the key it was built for.
type cachedBundle struct {
	key       bundleKey
	bindGroup *wgpu.BindGroup
	bundle    *wgpu.RenderBundle
}

// bundleKey identifies the inputs a cached bundle was recorded against.
type bundleKey struct {
	target     pipeline.Target
	generation uint64
}

func (c *cachedBundle) valid(key bundleKey) bool {
	return c.bundle != nil && c.key == key
}

func (c *cachedBundle) release() {
	if c.bundle != nil {
		c.bundle.Release()
		c.bundle = nil
	}
	if c.bindGroup != nil {
		c.bindGroup.Release()
		c.bindGroup = nil
	}
}
