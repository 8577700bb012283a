package passes

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPULongAxesSource is the WGSL source of the long axes pass.
//
//go:embed assets/long_axes.wgsl
var GPULongAxesSource string

// NewLongAxesPass creates the pass drawing the long axis of every projected sphere.
//
// Parameters:
//   - res: the creator of the pass GPU objects
//
// Returns:
//   - Pass: the pass
//   - error: a shader error
func NewLongAxesPass(res Resources) (Pass, error) {
	p, err := newInstancedPass("long-axes", GPULongAxesSource, res, mesh{indices: []uint32{0, 1}},
		pipeline.WithTopology(wgpu.PrimitiveTopologyLineStrip),
	)
	if err != nil {
		return nil, err
	}
	p.storageVar = "axes"
	p.storage = func(set scene.SphereSet) *wgpu.Buffer {
		return set.OutputBuffer(scene.OutputAxes)
	}
	return p, nil
}
