package passes

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUOccluderCirclesSource is the WGSL source of the occluder circles pass.
//
//go:embed assets/occluder_circles.wgsl
var GPUOccluderCirclesSource string

// DefaultCircleSubdivisions is the number of rim segments of an occluder circle.
const DefaultCircleSubdivisions = 32

// NewOccluderCirclesPass creates the pass filling every occluder circle with a translucent disc.
//
// Parameters:
//   - res: the creator of the pass GPU objects
//   - subdivisions: the number of rim segments per circle
//
// Returns:
//   - Pass: the pass
//   - error: a shader error
func NewOccluderCirclesPass(res Resources, subdivisions uint32) (Pass, error) {
	vertices, indices := CircleFan(subdivisions)
	p, err := newInstancedPass("occluder-circles", GPUOccluderCirclesSource, res, mesh{vertices: vec2Bytes(vertices), indices: indices},
		pipeline.WithBlendEnabled(true),
	)
	if err != nil {
		return nil, err
	}
	p.storageVar = "circles"
	p.storage = func(set scene.SphereSet) *wgpu.Buffer {
		return set.OutputBuffer(scene.OutputCircles)
	}
	return p, nil
}
