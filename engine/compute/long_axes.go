package compute

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
)

// GPULongAxesSource is the WGSL kernel writing the major axis of every projected sphere.
//
//go:embed assets/long_axes.wgsl
var GPULongAxesSource string

// NewLongAxesPass creates the pass writing scene.OutputAxes. Spheres that are not entirely in
// front of the near plane get a zero-length axis at the origin.
func NewLongAxesPass(res Resources) (Pass, error) {
	return newSpherePass("compute-long-axes", scene.OutputAxes, GPULongAxesSource, res)
}
