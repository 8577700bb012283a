package passes

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// Settings configures the geometry of the frame passes.
type Settings struct {
	Grids              []Grid
	Gradient           Gradient
	IcosphereLevel     int
	CircleSubdivisions uint32
}

// DefaultSettings returns one floor grid, the default gradient and the default mesh resolutions.
//
// Returns:
//   - Settings: the settings
func DefaultSettings() Settings {
	return Settings{
		Grids:              []Grid{DefaultGrid()},
		Gradient:           DefaultGradient,
		IcosphereLevel:     DefaultIcosphereLevel,
		CircleSubdivisions: DefaultCircleSubdivisions,
	}
}

// FramePasses holds every render pass of the main frame in draw order: grid, sky, spheres,
// bounding rects, long axes and occluder circles.
type FramePasses struct {
	Grid *GridPass
	Sky  *SkyPass

	ordered []Pass
}

// NewFramePasses creates every render pass. Their pipelines still have to be created.
//
// Parameters:
//   - res: the creator of the pass GPU objects
//   - settings: the pass geometry
//
// Returns:
//   - *FramePasses: the passes
//   - error: the first construction error
func NewFramePasses(res Resources, settings Settings) (*FramePasses, error) {
	grid, err := NewGridPass(res, settings.Grids)
	if err != nil {
		return nil, err
	}
	sky, err := NewSkyPass(res, settings.Gradient)
	if err != nil {
		return nil, err
	}
	fp := &FramePasses{Grid: grid, Sky: sky, ordered: []Pass{grid, sky}}

	ctors := []func() (Pass, error){
		func() (Pass, error) { return NewSpheresPass(res, settings.IcosphereLevel) },
		func() (Pass, error) { return NewBoundingRectsPass(res) },
		func() (Pass, error) { return NewLongAxesPass(res) },
		func() (Pass, error) { return NewOccluderCirclesPass(res, settings.CircleSubdivisions) },
	}
	for _, ctor := range ctors {
		p, err := ctor()
		if err != nil {
			return nil, err
		}
		fp.ordered = append(fp.ordered, p)
	}
	return fp, nil
}

// Ordered returns the passes in draw order.
func (fp *FramePasses) Ordered() []Pass {
	return fp.ordered
}

// Pipelines returns the pipelines of every pass, for batch creation.
func (fp *FramePasses) Pipelines() []pipeline.Pipeline {
	out := make([]pipeline.Pipeline, len(fp.ordered))
	for i, p := range fp.ordered {
		out[i] = p.Pipeline()
	}
	return out
}

// Bundles collects the bundles of every pass in draw order, skipping passes with nothing to draw.
//
// Parameters:
//   - target: the attachments of the main render pass
//   - frame: the per-frame inputs
//
// Returns:
//   - []*wgpu.RenderBundle: the bundles to execute
//   - error: the first bundle error, wrapped with the pass name
func (fp *FramePasses) Bundles(target pipeline.Target, frame Frame) ([]*wgpu.RenderBundle, error) {
	bundles := make([]*wgpu.RenderBundle, 0, len(fp.ordered))
	for _, p := range fp.ordered {
		b, err := p.Bundle(target, frame)
		if err != nil {
			return nil, fmt.Errorf("render pass %s: %w", p.Name(), err)
		}
		if b != nil {
			bundles = append(bundles, b)
		}
	}
	return bundles, nil
}

// Release releases every pass.
func (fp *FramePasses) Release() {
	for _, p := range fp.ordered {
		p.Release()
	}
}
