package passes

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUBoundingRectsSource is the WGSL source of the bounding rects pass.
//
//go:embed assets/bounding_rects.wgsl
var GPUBoundingRectsSource string

// NewBoundingRectsPass creates the pass outlining the bounds of every sphere as a closed line strip.
//
// Parameters:
//   - res: the creator of the pass GPU objects
//
// Returns:
//   - Pass: the pass
//   - error: a shader error
func NewBoundingRectsPass(res Resources) (Pass, error) {
	p, err := newInstancedPass("bounding-rects", GPUBoundingRectsSource, res, mesh{indices: []uint32{0, 1, 2, 3, 0}},
		pipeline.WithTopology(wgpu.PrimitiveTopologyLineStrip),
	)
	if err != nil {
		return nil, err
	}
	p.storageVar = "bounds"
	p.storage = func(set scene.SphereSet) *wgpu.Buffer {
		return set.OutputBuffer(scene.OutputBounds)
	}
	return p, nil
}
