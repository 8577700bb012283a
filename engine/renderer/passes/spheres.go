package passes

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-bounds/engine/camera"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUSpheresSource is the WGSL source of the spheres pass.
//
//go:embed assets/spheres.wgsl
var GPUSpheresSource string

// DefaultIcosphereLevel is the subdivision level of the sphere mesh.
const DefaultIcosphereLevel = 3

// NewSpheresPass creates the pass drawing one icosphere per sphere, shaded by its normal.
//
// Parameters:
//   - res: the creator of the pass GPU objects
//   - level: the icosphere subdivision level
//
// Returns:
//   - Pass: the pass
//   - error: a shader error
func NewSpheresPass(res Resources, level int) (Pass, error) {
	vertices, indices := Icosphere(level)
	p, err := newInstancedPass("spheres", GPUSpheresSource, res, mesh{vertices: vec3Bytes(vertices), indices: indices},
		pipeline.WithDepthCompare(wgpu.CompareFunctionLessEqual),
	)
	if err != nil {
		return nil, err
	}
	p.storageVar = "spheres"
	p.storage = scene.SphereSet.SphereBuffer
	p.uniformVar = "view"
	p.uniformData = func(frame Frame) []byte {
		u := camera.GPUViewUniform{WorldToClip: frame.Matrices.WorldToClip}
		return u.Marshal()
	}
	return p, nil
}
