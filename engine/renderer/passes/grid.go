package passes

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-bounds/engine/camera"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUGridSource is the WGSL source of the grid pass.
//
//go:embed assets/grid.wgsl
var GPUGridSource string

// GridPass draws the reference grids as white lines.
type GridPass struct {
	*staticPass
}

// NewGridPass creates the grid pass for grids.
//
// Parameters:
//   - res: the creator of the pass GPU objects
//   - grids: the grids to draw
//
// Returns:
//   - *GridPass: the pass
//   - error: a shader error or ErrGridTooLarge
func NewGridPass(res Resources, grids []Grid) (*GridPass, error) {
	sp, err := newStaticPass("grid", GPUGridSource, res,
		pipeline.WithTopology(wgpu.PrimitiveTopologyLineList),
		pipeline.WithDepthCompare(wgpu.CompareFunctionLessEqual),
	)
	if err != nil {
		return nil, err
	}
	sp.indexFormat = wgpu.IndexFormatUint16
	sp.uniformVar = "view"
	sp.uniformData = func(frame Frame) []byte {
		u := camera.GPUViewUniform{WorldToClip: frame.Matrices.WorldToClip}
		return u.Marshal()
	}

	p := &GridPass{staticPass: sp}
	if err = p.SetGrids(grids); err != nil {
		return nil, err
	}
	return p, nil
}

// SetGrids replaces the grid geometry. The buffers are rebuilt on the next Bundle call.
//
// Parameters:
//   - grids: the new grids
//
// Returns:
//   - error: ErrGridTooLarge
func (p *GridPass) SetGrids(grids []Grid) error {
	vertices, indices, err := GridMesh(grids)
	if err != nil {
		return fmt.Errorf("grid pass: %w", err)
	}
	p.releaseGeometry()
	p.vertices = vec3Bytes(vertices)
	p.indices = uint16Bytes(indices)
	p.plan = DrawPlan{IndexCount: uint32(len(indices)), InstanceCount: 1}
	return nil
}
