package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/sync/errgroup"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// Target describes the attachments a render pipeline draws into. Every render pipeline and
// render bundle of a frame must agree on it.
type Target struct {
	ColorFormat wgpu.TextureFormat
	DepthFormat wgpu.TextureFormat
	SampleCount uint32
}

// pipeline is the implementation of the Pipeline interface.
// It holds the underlying WebGPU pipeline objects and the configuration used to create them.
type pipeline struct {
	mu *sync.Mutex

	pipelineType PipelineType
	pipelineKey  string

	// shader provides every stage entry point of the pipeline from one module
	shader shader.Shader

	module           *wgpu.ShaderModule
	bindGroupLayouts []*wgpu.BindGroupLayout
	pipelineLayout   *wgpu.PipelineLayout
	renderPipeline   *wgpu.RenderPipeline
	computePipeline  *wgpu.ComputePipeline

	// The following properties only apply to render pipelines.

	depthTestEnabled  bool
	depthWriteEnabled bool
	depthCompare      wgpu.CompareFunction
	blendEnabled      bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline encapsulates either a render pipeline (vertex + fragment entry points) or a compute
// pipeline built from one shader module, together with the bind group layouts reflected from it.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for labels and logging.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the shader the pipeline is built from.
	//
	// Returns:
	//   - shader.Shader: the shader
	Shader() shader.Shader

	// Create compiles the shader module and creates the bind group layouts, the pipeline layout and
	// the pipeline itself. The target is ignored by compute pipelines.
	//
	// Parameters:
	//   - device: the device to create GPU objects on
	//   - target: the attachments render pipelines draw into
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	Create(device *wgpu.Device, target Target) error

	// RenderPipeline returns the created render pipeline, nil for compute pipelines or before Create.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// ComputePipeline returns the created compute pipeline, nil for render pipelines or before Create.
	//
	// Returns:
	//   - *wgpu.ComputePipeline: the compute pipeline
	ComputePipeline() *wgpu.ComputePipeline

	// BindGroupLayout returns the layout created for a group index, used to create bind groups that
	// are compatible with this pipeline.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil if the group is not declared or Create has not run
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthCompare returns the depth comparison used when depth testing is enabled.
	//
	// Returns:
	//   - wgpu.CompareFunction: the comparison function
	DepthCompare() wgpu.CompareFunction

	// BlendEnabled returns whether blending is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state, applied only when blending is enabled
	BlendState() *wgpu.BlendState

	// Release releases every GPU object created by Create.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline. The shader must provide the entry points
// the pipeline type needs; Create reports a mismatch.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - s: the shader providing the pipeline's entry points
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, s shader.Shader, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		mu:                &sync.Mutex{},
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		shader:            s,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      wgpu.CompareFunctionLess,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateAll creates every pipeline concurrently and returns the first error.
// The device queues pipeline compilation internally, so concurrent creation overlaps shader compiles.
//
// Parameters:
//   - ctx: cancels the remaining creations once one has failed
//   - device: the device to create GPU objects on
//   - target: the attachments render pipelines draw into
//   - pipelines: the pipelines to create
//
// Returns:
//   - error: the first creation error, if any
func CreateAll(ctx context.Context, device *wgpu.Device, target Target, pipelines ...Pipeline) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range pipelines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return p.Create(device, target)
		})
	}
	return g.Wait()
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) Create(device *wgpu.Device, target Target) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.validate(); err != nil {
		return err
	}

	module, err := device.CreateShaderModule(p.shader.Module())
	if err != nil {
		return fmt.Errorf("pipeline %s: failed to create shader module: %w", p.pipelineKey, err)
	}
	p.module = module

	descriptors := p.shader.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	p.bindGroupLayouts = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range descriptors {
		desc.Label = fmt.Sprintf("%s group %d", p.pipelineKey, g)
		layout, layoutErr := device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return fmt.Errorf("pipeline %s: failed to create bind group layout for group %d: %w", p.pipelineKey, g, layoutErr)
		}
		p.bindGroupLayouts[g] = layout
	}

	p.pipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.pipelineKey,
		BindGroupLayouts: p.bindGroupLayouts,
	})
	if err != nil {
		return fmt.Errorf("pipeline %s: failed to create pipeline layout: %w", p.pipelineKey, err)
	}

	switch p.pipelineType {
	case PipelineTypeRender:
		p.renderPipeline, err = device.CreateRenderPipeline(p.renderPipelineDescriptor(target))
	case PipelineTypeCompute:
		p.computePipeline, err = device.CreateComputePipeline(p.computePipelineDescriptor())
	}
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", p.pipelineKey, err)
	}
	return nil
}

// validate checks the shader provides the entry points the pipeline type needs.
func (p *pipeline) validate() error {
	if p.shader == nil {
		return errors.New("pipeline " + p.pipelineKey + ": no shader set")
	}
	switch p.pipelineType {
	case PipelineTypeRender:
		if !p.shader.HasStage(shader.ShaderTypeVertex) || !p.shader.HasStage(shader.ShaderTypeFragment) {
			return fmt.Errorf("pipeline %s: render pipelines need both a vertex and a fragment entry point", p.pipelineKey)
		}
	case PipelineTypeCompute:
		if !p.shader.HasStage(shader.ShaderTypeCompute) {
			return fmt.Errorf("pipeline %s: compute pipelines need a compute entry point", p.pipelineKey)
		}
	default:
		return fmt.Errorf("pipeline %s: unknown pipeline type %d", p.pipelineKey, p.pipelineType)
	}
	return nil
}

// renderPipelineDescriptor assembles the render pipeline descriptor from the configured state.
// Module and layout are whatever Create has produced so far.
func (p *pipeline) renderPipelineDescriptor(target Target) *wgpu.RenderPipelineDescriptor {
	colorTarget := wgpu.ColorTargetState{
		Format:    target.ColorFormat,
		WriteMask: p.writeMask,
	}
	if p.blendEnabled {
		colorTarget.Blend = p.blendState
	}

	depthCompare := p.depthCompare
	if !p.depthTestEnabled {
		depthCompare = wgpu.CompareFunctionAlways
	}

	return &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey + " Render Pipeline",
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: p.shader.EntryPoint(shader.ShaderTypeVertex),
			Buffers:    p.shader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: p.shader.EntryPoint(shader.ShaderTypeFragment),
			Targets:    []wgpu.ColorTargetState{colorTarget},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: max(target.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            target.DepthFormat,
			DepthWriteEnabled: p.depthWriteEnabled,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	}
}

func (p *pipeline) computePipelineDescriptor() *wgpu.ComputePipelineDescriptor {
	return &wgpu.ComputePipelineDescriptor{
		Label:  p.pipelineKey + " Compute Pipeline",
		Layout: p.pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     p.module,
			EntryPoint: p.shader.EntryPoint(shader.ShaderTypeCompute),
		},
	}
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) ComputePipeline() *wgpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() wgpu.CompareFunction {
	return p.depthCompare
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for _, layout := range p.bindGroupLayouts {
		if layout != nil {
			layout.Release()
		}
	}
	p.bindGroupLayouts = nil
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
