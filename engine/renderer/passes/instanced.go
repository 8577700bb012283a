package passes

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// mesh is the static geometry an instanced pass draws once per sphere.
// Vertices may be empty when the vertex stage synthesizes positions from the vertex index.
type mesh struct {
	vertices []byte
	indices  []uint32
}

// instancedPass draws its mesh once per element of a SphereSet array, reading the per-instance
// payload from a storage buffer indexed by instance_index. The bind group and bundle are rebuilt
// only when the set's buffers change.
type instancedPass struct {
	name     string
	res      Resources
	pipeline pipeline.Pipeline
	mesh     mesh

	// storageVar names the storage binding; storage selects the buffer bound to it.
	storageVar string
	storage    func(set scene.SphereSet) *wgpu.Buffer

	// uniformVar names the optional uniform binding; uniformData fills it every frame.
	uniformVar  string
	uniformData func(frame Frame) []byte

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	uniform      *wgpu.Buffer
	cache        cachedBundle
}

var _ Pass = &instancedPass{}

// newInstancedPass parses source and configures the pipeline for an instanced pass.
//
// Parameters:
//   - name: the pass name
//   - source: the WGSL source holding both vertex and fragment entry points
//   - res: the creator of the pass GPU objects
//   - m: the mesh drawn per instance
//   - opts: pipeline options
//
// Returns:
//   - *instancedPass: the pass, without storage or uniform bindings configured
//   - error: a shader parse error
func newInstancedPass(name, source string, res Resources, m mesh, opts ...pipeline.PipelineBuilderOption) (*instancedPass, error) {
	s, err := shader.NewShader(name, source)
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", name, err)
	}
	return &instancedPass{
		name:     name,
		res:      res,
		pipeline: pipeline.NewPipeline(name, pipeline.PipelineTypeRender, s, opts...),
		mesh:     m,
	}, nil
}

func (p *instancedPass) Name() string {
	return p.name
}

func (p *instancedPass) Pipeline() pipeline.Pipeline {
	return p.pipeline
}

func (p *instancedPass) Plan(n int) (DrawPlan, bool) {
	return instancedPlan(uint32(len(p.mesh.indices)), n)
}

func (p *instancedPass) Bundle(target pipeline.Target, frame Frame) (*wgpu.RenderBundle, error) {
	if frame.Set == nil {
		return nil, nil
	}
	plan, ok := p.Plan(frame.Set.Len())
	if !ok {
		return nil, nil
	}
	if err := p.ensureBuffers(); err != nil {
		return nil, err
	}
	if p.uniform != nil {
		if err := p.res.WriteBuffer(p.uniform, 0, p.uniformData(frame)); err != nil {
			return nil, fmt.Errorf("%s pass: failed to write uniforms: %w", p.name, err)
		}
	}

	key := bundleKey{target: target, generation: frame.Set.Generation()}
	if p.cache.valid(key) {
		return p.cache.bundle, nil
	}
	p.cache.release()

	bindGroup, err := p.createBindGroup(frame.Set)
	if err != nil {
		return nil, err
	}
	bundle, err := encodeBundle(p.res, target, bundleCommands{
		label:        p.name,
		pipeline:     p.pipeline,
		bindGroup:    bindGroup,
		vertexBuffer: p.vertexBuffer,
		indexBuffer:  p.indexBuffer,
		indexFormat:  wgpu.IndexFormatUint32,
		plan:         plan,
	})
	if err != nil {
		bindGroup.Release()
		return nil, err
	}
	p.cache = cachedBundle{key: key, bindGroup: bindGroup, bundle: bundle}
	return bundle, nil
}

// ensureBuffers uploads the mesh and creates the uniform buffer on first use.
func (p *instancedPass) ensureBuffers() error {
	var err error
	if p.indexBuffer == nil {
		p.indexBuffer, err = createBuffer(p.res, p.name+" indices", wgpu.BufferUsageIndex, uint32Bytes(p.mesh.indices))
		if err != nil {
			return err
		}
	}
	if p.vertexBuffer == nil && len(p.mesh.vertices) > 0 {
		p.vertexBuffer, err = createBuffer(p.res, p.name+" vertices", wgpu.BufferUsageVertex, p.mesh.vertices)
		if err != nil {
			return err
		}
	}
	if p.uniform == nil && p.uniformData != nil {
		size := uint64(len(p.uniformData(Frame{})))
		p.uniform, err = p.res.CreateBuffer(p.name+" uniforms", wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, size)
		if err != nil {
			return fmt.Errorf("%s pass: failed to create uniform buffer: %w", p.name, err)
		}
	}
	return nil
}

// createBindGroup binds the uniform and the storage array of set at the bindings the shader declares.
func (p *instancedPass) createBindGroup(set scene.SphereSet) (*wgpu.BindGroup, error) {
	s := p.pipeline.Shader()
	var entries []wgpu.BindGroupEntry
	if p.uniform != nil {
		binding, ok := s.BindGroupFromVarName(0, p.uniformVar)
		if !ok {
			return nil, fmt.Errorf("%s pass: shader declares no %q binding", p.name, p.uniformVar)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(binding), Buffer: p.uniform, Size: wgpu.WholeSize})
	}
	binding, ok := s.BindGroupFromVarName(0, p.storageVar)
	if !ok {
		return nil, fmt.Errorf("%s pass: shader declares no %q binding", p.name, p.storageVar)
	}
	entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(binding), Buffer: p.storage(set), Size: set.BindingSize()})

	bindGroup, err := p.res.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.name,
		Layout:  p.pipeline.BindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%s pass: failed to create bind group: %w", p.name, err)
	}
	return bindGroup, nil
}

func (p *instancedPass) Release() {
	p.cache.release()
	for _, buf := range []*wgpu.Buffer{p.vertexBuffer, p.indexBuffer, p.uniform} {
		if buf != nil {
			p.res.ReleaseBuffer(buf)
		}
	}
	p.vertexBuffer, p.indexBuffer, p.uniform = nil, nil, nil
	p.pipeline.Release()
}
