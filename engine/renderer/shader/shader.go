package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies a pipeline stage a WGSL module provides an entry point for.
type ShaderType int

const (
	// ShaderTypeCompute indicates a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex indicates a @vertex entry point.
	ShaderTypeVertex

	// ShaderTypeFragment indicates a @fragment entry point, paired with a vertex entry point in the same module.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
// It holds the persistent shader data required for pipeline creation and resource binding.
type shader struct {
	key                        string
	source                     string
	entryPoints                map[ShaderType]string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              []wgpu.VertexBufferLayout
	workGroupSize              [3]uint32
	declarations               []Annotation
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader is a pre-processed WGSL module together with the layout metadata reflected from its
// source: entry points per stage, bind group layout descriptors, vertex buffer layouts and the
// compute workgroup size.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used as the module label.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// HasStage reports whether the module declares an entry point for stage.
	//
	// Parameters:
	//   - stage: the pipeline stage to look for
	//
	// Returns:
	//   - bool: true if an entry point exists
	HasStage(stage ShaderType) bool

	// EntryPoint returns the entry point name for the given stage.
	//
	// Parameters:
	//   - stage: the pipeline stage
	//
	// Returns:
	//   - string: the entry point function name, or empty if the stage is absent
	EntryPoint(stage ShaderType) string

	// Visibility returns the union of the stages the module provides, used as the visibility of
	// every reflected binding.
	//
	// Returns:
	//   - wgpu.ShaderStage: the stage flags
	Visibility() wgpu.ShaderStage

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors, keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index of a variable within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable name was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// VertexLayouts returns one vertex buffer layout per struct parameter of the vertex entry
	// point, in parameter order. Nil when the vertex stage reads no vertex buffers.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts, indexed by vertex buffer slot
	VertexLayouts() []wgpu.VertexBufferLayout

	// WorkgroupSize returns the workgroup size of the compute entry point.
	// Returns [0, 0, 0] for modules without a compute stage.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor for this shader.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the @oxy:group annotations found while pre-processing the source.
	//
	// Returns:
	//   - []Annotation: the declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes a WGSL source and reflects its entry points and layouts.
//
// Parameters:
//   - key: a unique identifier for the shader, used as the module label
//   - source: the WGSL source, usually embedded from an assets/ file
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or the source declares no entry point
func NewShader(key string, source string) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %s: empty source", key)
	}

	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: failed to pre-process source: %w", key, err)
	}

	s := &shader{
		key:          key,
		source:       processed,
		entryPoints:  make(map[ShaderType]string),
		declarations: append([]Annotation(nil), pp.Declarations()...),
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: processed,
			},
		},
	}

	for _, stage := range []ShaderType{ShaderTypeCompute, ShaderTypeVertex, ShaderTypeFragment} {
		if name := parseEntryPoint(processed, stage); name != "" {
			s.entryPoints[stage] = name
		}
	}
	if len(s.entryPoints) == 0 {
		return nil, fmt.Errorf("shader %s: no @compute, @vertex or @fragment entry point", key)
	}

	if s.HasStage(ShaderTypeVertex) {
		s.vertexLayouts = parseVertexLayouts(processed)
	}
	if s.HasStage(ShaderTypeCompute) {
		s.workGroupSize = parseWorkgroupSize(processed)
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(processed, s.Visibility())
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) HasStage(stage ShaderType) bool {
	_, ok := s.entryPoints[stage]
	return ok
}

func (s *shader) EntryPoint(stage ShaderType) string {
	return s.entryPoints[stage]
}

func (s *shader) Visibility() wgpu.ShaderStage {
	var visibility wgpu.ShaderStage
	if s.HasStage(ShaderTypeCompute) {
		visibility |= wgpu.ShaderStageCompute
	}
	if s.HasStage(ShaderTypeVertex) {
		visibility |= wgpu.ShaderStageVertex
	}
	if s.HasStage(ShaderTypeFragment) {
		visibility |= wgpu.ShaderStageFragment
	}
	return visibility
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
