package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const computeSource = `
//@oxy:include camera
//@oxy:include sphere
//@oxy:include sphere_bounds

//@oxy:group 0 0 storage_uniform uniforms camera
//@oxy:group 0 1 storage_read spheres array<sphere>
//@oxy:group 0 2 storage_read_write bounds array<sphere_bounds>

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i >= arrayLength(&spheres)) {
        return;
    }
    bounds[i] = SphereBounds(vec2<f32>(0.0), vec2<f32>(0.0));
}
`

const renderSource = `
//@oxy:include view
//@oxy:include sphere

//@oxy:group 0 0 storage_uniform view view
//@oxy:group 0 1 storage_read spheres array<sphere>

struct VertexInput {
    @location(0) position: vec3<f32>,
}

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) normal: vec3<f32>,
}

struct FragmentInput {
    @location(0) normal: vec3<f32>,
}

@vertex
fn vert_main(in: VertexInput, @builtin(instance_index) instance: u32) -> VertexOutput {
    var out: VertexOutput;
    let s = spheres[instance];
    out.clip_position = view.world_to_clip * vec4<f32>(s.origin + s.radius * in.position, 1.0);
    out.normal = in.position;
    return out;
}

@fragment
fn frag_main(in: FragmentInput) -> @location(0) vec4<f32> {
    return vec4<f32>(normalize(in.normal) * 0.5 + 0.5, 1.0);
}
`

func TestComputeShaderReflection(t *testing.T) {
	s, err := NewShader("bounds", computeSource)
	require.NoError(t, err)

	assert.True(t, s.HasStage(ShaderTypeCompute))
	assert.False(t, s.HasStage(ShaderTypeVertex))
	assert.Equal(t, "main", s.EntryPoint(ShaderTypeCompute))
	assert.Equal(t, [3]uint32{256, 1, 1}, s.WorkgroupSize())
	assert.Equal(t, wgpu.ShaderStageCompute, s.Visibility())
	assert.Nil(t, s.VertexLayouts())

	layout := s.BindGroupLayoutDescriptor(0)
	require.Len(t, layout.Entries, 3)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, layout.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(128), layout.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, layout.Entries[1].Buffer.Type)
	assert.Equal(t, uint64(16), layout.Entries[1].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, layout.Entries[2].Buffer.Type)
	for _, e := range layout.Entries {
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
	}

	binding, ok := s.BindGroupFromVarName(0, "bounds")
	assert.True(t, ok)
	assert.Equal(t, 2, binding)
	assert.Equal(t, "spheres", s.BindGroupVarName(0, 1))
	assert.Len(t, s.Declarations(), 3)
}

func TestRenderShaderReflection(t *testing.T) {
	s, err := NewShader("spheres", renderSource)
	require.NoError(t, err)

	assert.Equal(t, "vert_main", s.EntryPoint(ShaderTypeVertex))
	assert.Equal(t, "frag_main", s.EntryPoint(ShaderTypeFragment))
	assert.Equal(t, [3]uint32{0, 0, 0}, s.WorkgroupSize())
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, s.Visibility())

	// FragmentInput also has only @location fields but is not a vertex entry parameter
	layouts := s.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(12), layouts[0].ArrayStride)
	require.Len(t, layouts[0].Attributes, 1)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layouts[0].Attributes[0].Format)
	assert.Equal(t, uint32(0), layouts[0].Attributes[0].ShaderLocation)

	assert.Equal(t, uint64(64), s.BindGroupLayoutDescriptor(0).Entries[0].Buffer.MinBindingSize)
}

func TestPreProcessorInjectsStructs(t *testing.T) {
	s, err := NewShader("render", renderSource)
	require.NoError(t, err)

	assert.Contains(t, s.Source(), "struct ViewUniform")
	assert.Contains(t, s.Source(), "@group(0) @binding(1) var<storage, read> spheres: array<Sphere>;")
	assert.NotContains(t, s.Source(), "@oxy:")
	assert.Equal(t, s.Source(), s.Module().WGSLDescriptor.Code)
	assert.Equal(t, "render", s.Module().Label)
}

func TestNewShaderErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{"empty", "", "empty source"},
		{"no entry point", "struct A { x: f32, }", "no @compute"},
		{"unknown include", "//@oxy:include teapot\n@compute @workgroup_size(1) fn main() {}", "unknown struct type"},
		{"bad address space", "//@oxy:group 0 0 private x camera\n@compute @workgroup_size(1) fn main() {}", "unknown address space"},
		{"short group", "//@oxy:group 0 0 storage_uniform camera\n@compute @workgroup_size(1) fn main() {}", "requires five arguments"},
		{"library bound as a variable", "//@oxy:group 0 0 storage_read lib sphere_projection\n@compute @workgroup_size(1) fn main() {}", "unknown type"},
		{"unknown annotation", "//@oxy:provider 0 0 camera\n@compute @workgroup_size(1) fn main() {}", "unknown @oxy annotation type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewShader(tc.name, tc.source)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.want), err.Error())
		})
	}
}

func TestParseWorkgroupSize(t *testing.T) {
	cases := []struct {
		src  string
		want [3]uint32
	}{
		{"@compute @workgroup_size(64) fn main() {}", [3]uint32{64, 1, 1}},
		{"@compute @workgroup_size(8, 8) fn main() {}", [3]uint32{8, 8, 1}},
		{"@compute @workgroup_size( 4 , 2 , 3 ) fn main() {}", [3]uint32{4, 2, 3}},
		{"// @workgroup_size(99)\n@compute fn main() {}", [3]uint32{1, 1, 1}},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, parseWorkgroupSize(tc.src), tc.src)
	}
}

func TestStructLayouts(t *testing.T) {
	sizes := computeStructSizes(parseStructBlocks(`
struct Circle { origin: vec2<f32>, radius: f32, }
struct Sky { m: mat4x4<f32>, a: vec3<f32>, b: vec3<f32>, }
struct Wrapper { c: Circle, n: u32, }
`))

	assert.Equal(t, wgslTypeLayout{16, 8}, sizes["Circle"])
	assert.Equal(t, wgslTypeLayout{96, 16}, sizes["Sky"])
	assert.Equal(t, wgslTypeLayout{24, 8}, sizes["Wrapper"])

	arr, ok := resolveTypeLayout("array<Circle, 3>", sizes)
	assert.True(t, ok)
	assert.Equal(t, uint64(48), arr.size)
}
