package passes

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-bounds/engine/camera"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUSkySource is the WGSL source of the sky gradient pass.
//
//go:embed assets/sky.wgsl
var GPUSkySource string

// Gradient is the pair of sky colors, linear RGB.
type Gradient struct {
	Bottom [3]float32
	Top    [3]float32
}

// DefaultGradient is a dusk blue fading to near black overhead.
var DefaultGradient = Gradient{
	Bottom: [3]float32{0.106, 0.165, 0.259},
	Top:    [3]float32{0.012, 0.016, 0.035},
}

// SkyPass fills the background on the far plane with a vertical gradient in camera space.
type SkyPass struct {
	*staticPass
	gradient Gradient
}

// NewSkyPass creates the sky gradient pass.
//
// Parameters:
//   - res: the creator of the pass GPU objects
//   - gradient: the gradient colors
//
// Returns:
//   - *SkyPass: the pass
//   - error: a shader error
func NewSkyPass(res Resources, gradient Gradient) (*SkyPass, error) {
	sp, err := newStaticPass("sky", GPUSkySource, res,
		pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		pipeline.WithDepthCompare(wgpu.CompareFunctionLessEqual),
	)
	if err != nil {
		return nil, err
	}
	p := &SkyPass{staticPass: sp, gradient: gradient}
	sp.plan = DrawPlan{VertexCount: 4, InstanceCount: 1}
	sp.uniformVar = "sky"
	sp.uniformData = func(frame Frame) []byte {
		u := camera.NewGPUSkyUniform(frame.Matrices.ClipToCamera, p.gradient.Bottom, p.gradient.Top)
		return u.Marshal()
	}
	return p, nil
}

// SetGradient replaces the gradient colors from the next frame on.
func (p *SkyPass) SetGradient(gradient Gradient) {
	p.gradient = gradient
}
