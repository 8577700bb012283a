package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/passes"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithPassSettings sets the grids, sky gradient and mesh resolutions of the render passes.
// When not specified, passes.DefaultSettings is used.
//
// Parameters:
//   - settings: the pass settings
//
// Returns:
//   - RendererBuilderOption: a function that applies the pass settings to a renderer
func WithPassSettings(settings passes.Settings) RendererBuilderOption {
	return func(r *renderer) {
		r.passSettings = settings
	}
}

// WithLogger sets the logger of the renderer.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithComputeWorkers sets how many workers prepare the compute dispatches of a frame concurrently.
// Values below 1 keep the default of one less than the CPU count.
//
// Parameters:
//   - workers: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker count to a renderer
func WithComputeWorkers(workers int) RendererBuilderOption {
	return func(r *renderer) {
		if workers > 0 {
			r.computeWorkers = workers
		}
	}
}
