package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-bounds/engine/compute"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/passes"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bounds/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger *slog.Logger

	backendType RendererBackendType
	backend     RendererBackend

	computePasses  []compute.Pass
	computePool    worker.DynamicWorkerPool
	computeWorkers int
	framePasses    *passes.FramePasses

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	presentMode          PresentMode
	passSettings         passes.Settings
}

// Renderer orchestrates one frame of the viewer: the projection compute passes followed by the
// main render pass replaying the bundles of every render pass in a fixed order.
type Renderer interface {
	// Backend returns the GPU backend, which also serves buffer creation and readback.
	//
	// Returns:
	//   - RendererBackend: the backend
	Backend() RendererBackend

	// Passes returns the render passes of the main frame.
	//
	// Returns:
	//   - *passes.FramePasses: the passes
	Passes() *passes.FramePasses

	// ComputePasses returns the projection compute passes in dispatch order.
	//
	// Returns:
	//   - []compute.Pass: bounds, long axes and occluder circles
	ComputePasses() []compute.Pass

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the depth texture could not be recreated
	Resize(width, height int) error

	// SetPresentMode changes how frames are delivered to the display. It takes effect on the
	// next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Compute records the three projection passes into one command encoder and submits it.
	// An empty sphere set submits nothing but is not an error.
	//
	// Parameters:
	//   - in: the camera matrices and the sphere set
	//
	// Returns:
	//   - error: an encoding or submission error
	Compute(in compute.ComputeInput) error

	// Render draws one frame: it refreshes the pass uniforms, collects their bundles, clears the
	// surface and executes the bundles in the order grid, sky, spheres, bounding rects, long axes
	// and occluder circles before presenting.
	//
	// Parameters:
	//   - frame: the camera matrices and the sphere set
	//
	// Returns:
	//   - error: a bundle, surface or submission error
	Render(frame passes.Frame) error

	// Release releases every pass and the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates the backend for window, configures its surface and creates every compute and
// render pipeline concurrently.
//
// Parameters:
//   - ctx: cancels pipeline creation
//   - backendType: the GPU backend to use
//   - window: the window providing the surface and its initial size
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an adapter, device, surface or pipeline error
func NewRenderer(ctx context.Context, backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:             &sync.Mutex{},
		logger:         slog.Default(),
		backendType:    backendType,
		presentMode:    PresentModeUncapped,
		passSettings:   passes.DefaultSettings(),
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(r)
	}
	r.computePool = worker.NewDynamicWorkerPool(r.computeWorkers, 256, 1*time.Second)

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter)
	}
	if err != nil {
		return nil, err
	}

	r.backend.SetPresentMode(r.presentMode)
	if err = r.backend.ConfigureSurface(window.Width(), window.Height()); err != nil {
		r.backend.Release()
		return nil, err
	}

	if err = r.createPasses(ctx); err != nil {
		r.Release()
		return nil, err
	}
	r.logger.Info("renderer ready",
		"format", r.backend.Target().ColorFormat,
		"present_mode", r.presentMode,
		"width", window.Width(),
		"height", window.Height(),
	)
	return r, nil
}

func (r *renderer) createPasses(ctx context.Context) error {
	var err error
	r.computePasses, err = compute.NewPasses(r.backend)
	if err != nil {
		return err
	}
	r.framePasses, err = passes.NewFramePasses(r.backend, r.passSettings)
	if err != nil {
		return err
	}

	all := append(compute.Pipelines(r.computePasses), r.framePasses.Pipelines()...)
	if err = pipeline.CreateAll(ctx, r.backend.Device(), r.backend.Target(), all...); err != nil {
		return fmt.Errorf("failed to create pipelines: %w", err)
	}
	return nil
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Passes() *passes.FramePasses {
	return r.framePasses
}

func (r *renderer) ComputePasses() []compute.Pass {
	return r.computePasses
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Compute(in compute.ComputeInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if in.Set == nil || in.Set.Len() == 0 {
		return nil
	}

	encoder, err := r.backend.BeginComputeFrame()
	if err != nil {
		return fmt.Errorf("failed to begin compute frame: %w", err)
	}
	encoded, encodeErr := compute.EncodeAll(encoder, in, r.computePool, r.computePasses...)

	// The encoder is finished even after an encoding error so the backend can start the next frame.
	submitErr := r.backend.EndComputeFrame()
	for _, e := range encoded {
		e.Release()
	}
	if encodeErr != nil {
		return encodeErr
	}
	return submitErr
}

func (r *renderer) Render(frame passes.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bundles, err := r.framePasses.Bundles(r.backend.Target(), frame)
	if err != nil {
		return err
	}

	if err = r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}
	r.backend.ExecuteBundles(bundles)
	if err = r.backend.EndFrame(); err != nil {
		return err
	}
	r.backend.Present()
	return nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.framePasses != nil {
		r.framePasses.Release()
		r.framePasses = nil
	}
	for _, p := range r.computePasses {
		p.Pipeline().Release()
	}
	r.computePasses = nil
	if r.backend != nil {
		r.backend.Release()
	}
}
