package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/Carmen-Shannon/oxy-bounds/engine/camera"
	"github.com/Carmen-Shannon/oxy-bounds/engine/compute"
	"github.com/Carmen-Shannon/oxy-bounds/engine/config"
	"github.com/Carmen-Shannon/oxy-bounds/engine/input"
	"github.com/Carmen-Shannon/oxy-bounds/engine/profiler"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/passes"
	"github.com/Carmen-Shannon/oxy-bounds/engine/scene"
	"github.com/Carmen-Shannon/oxy-bounds/engine/window"
)

// idleFrameDelay is how long the render loop sleeps while the window has no drawable area.
const idleFrameDelay = 10 * time.Millisecond

// engine is the implementation of the Engine interface.
type engine struct {
	logger   *slog.Logger
	logLevel *slog.LevelVar

	cfg        config.Config
	configPath string
	watch      bool
	watcher    *config.Watcher

	window     window.Window
	camera     camera.Camera
	controller camera.CameraController
	renderer   renderer.Renderer
	spheres    scene.SphereSet
	profiler   *profiler.Profiler

	// size is the framebuffer size as last applied on the render goroutine.
	width, height int

	// matrices are the camera matrices of the last submitted frame, used to check readbacks.
	matrices camera.Matrices

	profilingEnabled atomic.Bool
	renderFrameLimit time.Duration
	renderCallback   func(deltaTime float32)

	// resizes and commands carry work from the main thread to the render goroutine.
	resizes  chan [2]int
	commands chan func()

	quitChannel chan struct{}
	quitOnce    sync.Once
	wg          sync.WaitGroup

	// err is the failure that stopped the frame loop, set before the loop returns.
	err error
}

// Engine runs the sphere viewer: the window message loop on the main thread and the frame loop
// (camera update, projection compute passes, render) on its own goroutine.
//
// Keys: B, L and C read the bounds, long axes and occluder circles back from the GPU and log them
// against the CPU reference; R reloads the config file; P toggles the profiler; Esc quits.
type Engine interface {
	// Window returns the viewer window.
	//
	// Returns:
	//   - window.Window: the window
	Window() window.Window

	// Camera returns the camera the controller drives.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Renderer returns the frame orchestrator.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Spheres returns the sphere set being projected.
	//
	// Returns:
	//   - scene.SphereSet: the sphere set
	Spheres() scene.SphereSet

	// EnableProfiler enables periodic frame statistics in the log.
	EnableProfiler()

	// DisableProfiler disables frame statistics.
	DisableProfiler()

	// Run starts the frame loop and runs the window message loop until the window closes, Quit is
	// called or a frame fails, then releases every resource. It must be called from the goroutine
	// that created the engine.
	//
	// Returns:
	//   - error: the failed frame or render goroutine panic, or a config watcher error
	Run() error

	// Quit signals the frame loop to stop and asks the window to close.
	// Safe to call multiple times and from any goroutine.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates the window, camera, controller, sphere set and renderer described by cfg.
// It must be called on the main thread, which then has to call Run.
//
// Parameters:
//   - ctx: cancels pipeline creation
//   - cfg: a validated configuration
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the engine
//   - error: a GPU or pipeline error
func NewEngine(ctx context.Context, cfg config.Config, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		logger:      slog.Default(),
		cfg:         cfg,
		resizes:     make(chan [2]int, 1),
		commands:    make(chan func(), 16),
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	cfg = e.cfg
	e.profilingEnabled.Store(cfg.Debug.Profile)
	if e.logLevel != nil {
		e.logLevel.Set(cfg.LogLevel())
	}

	if e.window == nil {
		e.window = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
	}
	e.width, e.height = e.window.Width(), e.window.Height()

	e.camera = camera.NewCamera(cfg.CameraOptions(aspect(e.width, e.height))...)
	e.controller = camera.NewCameraController(e.camera,
		camera.WithOrbitPoint(cfg.Camera.OrbitPoint),
		camera.WithPointerLocker(e.window),
		camera.WithControllerLogger(e.logger),
	)

	r, err := renderer.NewRenderer(ctx, renderer.BackendTypeWGPU, e.window,
		renderer.WithPresentMode(presentMode(cfg)),
		renderer.WithPassSettings(cfg.PassSettings()),
		renderer.WithLogger(e.logger),
	)
	if err != nil {
		e.controller.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	e.renderer = r

	e.spheres, err = scene.NewSphereSet(r.Backend(),
		scene.WithSpheres(cfg.SphereList()...),
		scene.WithLogger(e.logger),
	)
	if err != nil {
		e.controller.Close()
		r.Release()
		return nil, fmt.Errorf("failed to create sphere set: %w", err)
	}

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	e.window.SetResizeCallback(e.onResize)
	e.window.SetEventCallback(e.onEvent)
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Spheres() scene.SphereSet {
	return e.spheres
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) Run() error {
	if e.watch && e.configPath != "" {
		w, err := config.NewWatcher(e.configPath, e.logger)
		if err != nil {
			e.release()
			return err
		}
		e.watcher = w
	}

	e.wg.Add(1)
	go e.handleRender()
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.release()
	return e.err
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel and asks the window to close.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
		e.window.RequestClose()
	})
}

// release frees everything NewEngine created. The frame loop must have stopped.
func (e *engine) release() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			e.logger.Warn("failed to close config watcher", "error", err)
		}
	}
	e.controller.Close()
	if e.spheres != nil {
		e.spheres.Release()
	}
	if e.renderer != nil {
		e.renderer.Release()
	}
	if err := e.window.Close(); err != nil {
		e.logger.Warn("failed to close window", "error", err)
	}
}

// onResize runs on the main thread; the newest size replaces any pending one.
func (e *engine) onResize(width, height int) {
	size := [2]int{width, height}
	select {
	case e.resizes <- size:
	default:
		select {
		case <-e.resizes:
		default:
		}
		e.resizes <- size
	}
}

// onEvent runs on the main thread. Pointer and wheel input goes to the camera controller,
// key presses are handled here.
func (e *engine) onEvent(ev input.Event) {
	if ev.Type != input.EventKeyDown {
		e.controller.Send(ev)
		return
	}

	switch ev.KeyCode {
	case common.KeyEsc:
		e.Quit()
	case common.KeyP:
		enabled := !e.profilingEnabled.Load()
		e.profilingEnabled.Store(enabled)
		e.logger.Info("profiler toggled", "enabled", enabled)
	case common.KeyB:
		e.post(e.logBounds)
	case common.KeyL:
		e.post(e.logAxes)
	case common.KeyC:
		e.post(e.logCircles)
	case common.KeyR:
		e.post(e.reloadConfig)
	}
}

// post queues task for the render goroutine without blocking the main thread.
func (e *engine) post(task func()) {
	select {
	case e.commands <- task:
	default:
		e.logger.Warn("render command queue full, dropping command")
	}
}

// handleRender runs the frame loop until the quit channel is closed or a frame fails.
// A failed frame or a recovered panic is stored in e.err and shuts the engine down.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render goroutine recovered from panic", "panic", r)
			e.err = fmt.Errorf("render goroutine panic: %v", r)
			e.signalQuit()
		}
	}()

	var updates <-chan config.Config
	if e.watcher != nil {
		updates = e.watcher.Updates()
	}

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case size := <-e.resizes:
			e.resize(size[0], size[1])
			continue
		case cfg := <-updates:
			e.applyConfig(cfg)
			continue
		default:
		}

		if e.width <= 0 || e.height <= 0 {
			time.Sleep(idleFrameDelay)
			continue
		}

		start := time.Now()
		dt := float32(start.Sub(lastRender).Seconds())
		lastRender = start

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}
		if err := e.frame(); err != nil {
			e.logger.Error("frame failed, shutting down", "error", err)
			e.err = err
			e.signalQuit()
			return
		}
		e.runCommands()

		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// frame runs one viewer frame: camera update, projection compute passes, then the render pass.
func (e *engine) frame() error {
	e.controller.UpdateCamera(e.camera)
	e.matrices = e.camera.Matrices()

	err := e.renderer.Compute(compute.ComputeInput{
		WorldToCamera: e.matrices.WorldToCamera,
		CameraToClip:  e.matrices.CameraToClip,
		Set:           e.spheres,
	})
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}
	if err = e.renderer.Render(passes.Frame{Matrices: e.matrices, Set: e.spheres}); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// runCommands runs every queued command after the frame they refer to has been submitted.
func (e *engine) runCommands() {
	for {
		select {
		case task := <-e.commands:
			task()
		default:
			return
		}
	}
}

func (e *engine) resize(width, height int) {
	e.width, e.height = width, height
	if width <= 0 || height <= 0 {
		e.logger.Debug("window minimized, pausing frames")
		return
	}
	e.camera.SetAspectRatio(aspect(width, height))
	if err := e.renderer.Resize(width, height); err != nil {
		e.logger.Error("failed to resize surface", "width", width, "height", height, "error", err)
	}
}

func (e *engine) reloadConfig() {
	if e.configPath == "" {
		e.logger.Warn("no config file to reload")
		return
	}
	cfg, err := config.Load(e.configPath)
	if err != nil {
		e.logger.Error("failed to reload config", "error", err)
		return
	}
	e.applyConfig(cfg)
}

// applyConfig applies the parts of cfg that can change while running: spheres, grids, sky
// gradient, present mode, log level and profiling. Other changes need a restart.
func (e *engine) applyConfig(cfg config.Config) {
	old := e.cfg
	e.cfg = cfg

	if e.logLevel != nil {
		e.logLevel.Set(cfg.LogLevel())
	}
	e.profilingEnabled.Store(cfg.Debug.Profile)

	if err := e.spheres.SetSpheres(cfg.SphereList()); err != nil {
		e.logger.Error("failed to apply spheres", "error", err)
	}
	settings := cfg.PassSettings()
	if err := e.renderer.Passes().Grid.SetGrids(settings.Grids); err != nil {
		e.logger.Error("failed to apply grids", "error", err)
	}
	e.renderer.Passes().Sky.SetGradient(settings.Gradient)

	if cfg.Window.VSync != old.Window.VSync {
		e.renderer.SetPresentMode(presentMode(cfg))
		if err := e.renderer.Resize(e.width, e.height); err != nil {
			e.logger.Error("failed to apply present mode", "error", err)
		}
	}
	if cfg.Render != old.Render || cfg.Window != old.Window || cfg.Camera != old.Camera {
		e.logger.Info("window, camera and render settings apply on restart")
	}
	e.logger.Info("config applied", "spheres", len(cfg.Spheres), "grids", len(cfg.Grids))
}

func (e *engine) logBounds() {
	gpu, err := e.spheres.ReadBounds(e.renderer.Backend())
	if err != nil {
		e.logger.Error("failed to read bounds", "error", err)
		return
	}
	for i, b := range gpu {
		e.logger.Debug("sphere bounds", "index", i, "min", b.Min, "max", b.Max)
	}
	e.logger.Info("bounds readback", "count", len(gpu),
		"max_deviation", BoundsDeviation(gpu, e.spheres.Spheres(), e.matrices))
}

func (e *engine) logAxes() {
	gpu, err := e.spheres.ReadAxes(e.renderer.Backend())
	if err != nil {
		e.logger.Error("failed to read long axes", "error", err)
		return
	}
	for i, l := range gpu {
		e.logger.Debug("long axis", "index", i, "start", l.Start, "end", l.End)
	}
	e.logger.Info("long axes readback", "count", len(gpu),
		"max_deviation", AxesDeviation(gpu, e.spheres.Spheres(), e.matrices))
}

func (e *engine) logCircles() {
	gpu, err := e.spheres.ReadCircles(e.renderer.Backend())
	if err != nil {
		e.logger.Error("failed to read occluder circles", "error", err)
		return
	}
	for i, c := range gpu {
		e.logger.Debug("occluder circle", "index", i, "origin", c.Origin, "radius", c.Radius)
	}
	e.logger.Info("occluder circles readback", "count", len(gpu),
		"max_deviation", CirclesDeviation(gpu, e.spheres.Spheres(), e.matrices))
}

// aspect returns width/height, or 1 for an empty area.
func aspect(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}

func presentMode(cfg config.Config) renderer.PresentMode {
	if cfg.Window.VSync {
		return renderer.PresentModeVSync
	}
	return renderer.PresentModeUncapped
}
