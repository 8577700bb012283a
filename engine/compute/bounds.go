package compute

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
)

// GPUBoundsSource is the WGSL kernel writing the NDC bounding rectangle of every sphere.
//
//go:embed assets/bounds.wgsl
var GPUBoundsSource string

// NewBoundsPass creates the pass writing the NDC bounding rectangle of every sphere.
// Its pipeline must be created before the first Encode.
//
// Parameters:
//   - res: the creator of per-dispatch uniform buffers and bind groups
//
// Returns:
//   - Pass: the pass writing scene.OutputBounds
//   - error: an error if the kernel fails to parse
func NewBoundsPass(res Resources) (Pass, error) {
	return newSpherePass("compute-bounds", scene.OutputBounds, GPUBoundsSource, res)
}
