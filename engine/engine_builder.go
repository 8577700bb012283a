package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-bounds/engine/profiler"
	"github.com/Carmen-Shannon/oxy-bounds/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output, overriding the config.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.cfg.Debug.Profile = enabled
	}
}

// WithProfiler replaces the default profiler.
//
// Parameters:
//   - p: the profiler to tick once per frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create one from the config.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithConfigPath sets the file the R key reloads the config from.
//
// Parameters:
//   - path: the TOML config file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigPath(path string) EngineBuilderOption {
	return func(e *engine) {
		e.configPath = path
	}
}

// WithWatch applies edits to the config file while running. Requires WithConfigPath.
//
// Parameters:
//   - enabled: if true, watches the config file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWatch(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.watch = enabled
	}
}

// WithLogger sets the logger shared by the engine and everything it creates.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLogLevel hands the engine the level variable of its log handler so config reloads can change
// the level.
//
// Parameters:
//   - level: the handler's level variable
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogLevel(level *slog.LevelVar) EngineBuilderOption {
	return func(e *engine) {
		e.logLevel = level
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithRenderCallback sets a function called on the render goroutine before each frame. It may
// change the sphere set and the passes of the renderer.
//
// Parameters:
//   - callback: function receiving the time since the previous frame in seconds
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		e.renderCallback = callback
	}
}
