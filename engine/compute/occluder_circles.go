package compute

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
)

// GPUOccluderCirclesSource is the WGSL kernel writing the largest circle inside every projected sphere.
//
//go:embed assets/occluder_circles.wgsl
var GPUOccluderCirclesSource string

// NewOccluderCirclesPass creates the pass writing the largest circle inside every projected sphere.
// Its pipeline must be created before the first Encode.
//
// Parameters:
//   - res: the creator of per-dispatch uniform buffers and bind groups
//
// Returns:
//   - Pass: the pass writing scene.OutputCircles
//   - error: an error if the kernel fails to parse
func NewOccluderCirclesPass(res Resources) (Pass, error) {
	return newSpherePass("compute-occluder-circles", scene.OutputCircles, GPUOccluderCirclesSource, res)
}
