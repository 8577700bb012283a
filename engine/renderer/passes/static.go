package passes

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// staticPass draws geometry that does not depend on the sphere set. Only its uniform changes from
// frame to frame, so the bundle is recorded once per render target.
type staticPass struct {
	name     string
	res      Resources
	pipeline pipeline.Pipeline

	vertices    []byte
	indices     []byte
	indexFormat wgpu.IndexFormat
	plan        DrawPlan

	uniformVar  string
	uniformData func(frame Frame) []byte

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	uniform      *wgpu.Buffer
	cache        cachedBundle
}

var _ Pass = &staticPass{}

func newStaticPass(name, source string, res Resources, opts ...pipeline.PipelineBuilderOption) (*staticPass, error) {
	s, err := shader.NewShader(name, source)
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", name, err)
	}
	return &staticPass{
		name:     name,
		res:      res,
		pipeline: pipeline.NewPipeline(name, pipeline.PipelineTypeRender, s, opts...),
	}, nil
}

func (p *staticPass) Name() string {
	return p.name
}

func (p *staticPass) Pipeline() pipeline.Pipeline {
	return p.pipeline
}

func (p *staticPass) Plan(int) (DrawPlan, bool) {
	return p.plan, p.plan.IndexCount > 0 || p.plan.VertexCount > 0
}

func (p *staticPass) Bundle(target pipeline.Target, frame Frame) (*wgpu.RenderBundle, error) {
	plan, ok := p.Plan(0)
	if !ok {
		return nil, nil
	}
	if err := p.ensureBuffers(); err != nil {
		return nil, err
	}
	if err := p.res.WriteBuffer(p.uniform, 0, p.uniformData(frame)); err != nil {
		return nil, fmt.Errorf("%s pass: failed to write uniforms: %w", p.name, err)
	}

	key := bundleKey{target: target}
	if p.cache.valid(key) {
		return p.cache.bundle, nil
	}
	p.cache.release()

	binding, ok := p.pipeline.Shader().BindGroupFromVarName(0, p.uniformVar)
	if !ok {
		return nil, fmt.Errorf("%s pass: shader declares no %q binding", p.name, p.uniformVar)
	}
	bindGroup, err := p.res.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.name,
		Layout:  p.pipeline.BindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{{Binding: uint32(binding), Buffer: p.uniform, Size: wgpu.WholeSize}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s pass: failed to create bind group: %w", p.name, err)
	}

	bundle, err := encodeBundle(p.res, target, bundleCommands{
		label:        p.name,
		pipeline:     p.pipeline,
		bindGroup:    bindGroup,
		vertexBuffer: p.vertexBuffer,
		indexBuffer:  p.indexBuffer,
		indexFormat:  p.indexFormat,
		plan:         plan,
	})
	if err != nil {
		bindGroup.Release()
		return nil, err
	}
	p.cache = cachedBundle{key: key, bindGroup: bindGroup, bundle: bundle}
	return bundle, nil
}

func (p *staticPass) ensureBuffers() error {
	var err error
	if p.vertexBuffer == nil && len(p.vertices) > 0 {
		p.vertexBuffer, err = createBuffer(p.res, p.name+" vertices", wgpu.BufferUsageVertex, p.vertices)
		if err != nil {
			return err
		}
	}
	if p.indexBuffer == nil && len(p.indices) > 0 {
		p.indexBuffer, err = createBuffer(p.res, p.name+" indices", wgpu.BufferUsageIndex, p.indices)
		if err != nil {
			return err
		}
	}
	if p.uniform == nil {
		size := uint64(len(p.uniformData(Frame{})))
		p.uniform, err = p.res.CreateBuffer(p.name+" uniforms", wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, size)
		if err != nil {
			return fmt.Errorf("%s pass: failed to create uniform buffer: %w", p.name, err)
		}
	}
	return nil
}

// releaseGeometry drops the mesh buffers and the bundle recorded against them.
func (p *staticPass) releaseGeometry() {
	p.cache.release()
	for _, buf := range []*wgpu.Buffer{p.vertexBuffer, p.indexBuffer} {
		if buf != nil {
			p.res.ReleaseBuffer(buf)
		}
	}
	p.vertexBuffer, p.indexBuffer = nil, nil
}

func (p *staticPass) Release() {
	p.releaseGeometry()
	if p.uniform != nil {
		p.res.ReleaseBuffer(p.uniform)
		p.uniform = nil
	}
	p.pipeline.Release()
}
