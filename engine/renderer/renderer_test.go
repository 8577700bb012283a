package renderer

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/passes"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestBuilderOptions(t *testing.T) {
	r := &renderer{presentMode: PresentModeUncapped, passSettings: passes.DefaultSettings(), computeWorkers: 3}
	settings := passes.Settings{IcosphereLevel: 1, CircleSubdivisions: 8}
	for _, opt := range []RendererBuilderOption{
		WithPresentMode(PresentModeVSync),
		WithPassSettings(settings),
		WithForceSoftwareRenderer(true),
		WithLogger(nil),
		WithComputeWorkers(0),
	} {
		opt(r)
	}

	assert.Equal(t, PresentModeVSync, r.presentMode)
	assert.Equal(t, settings, r.passSettings)
	assert.True(t, r.forceFallbackAdapter)
	assert.Nil(t, r.logger)
	assert.Equal(t, 3, r.computeWorkers)

	WithComputeWorkers(2)(r)
	assert.Equal(t, 2, r.computeWorkers)
}

func TestPresentModeMapping(t *testing.T) {
	b := &wgpuRendererBackendImpl{mu: &sync.Mutex{}}

	b.SetPresentMode(PresentModeVSync)
	assert.Equal(t, wgpu.PresentModeFifo, b.presentMode)
	b.SetPresentMode(PresentModeUncapped)
	assert.Equal(t, wgpu.PresentModeImmediate, b.presentMode)

	assert.Equal(t, "vsync", PresentModeVSync.String())
	assert.Equal(t, "uncapped", PresentModeUncapped.String())
}

func TestTargetUsesSurfaceFormat(t *testing.T) {
	b := &wgpuRendererBackendImpl{mu: &sync.Mutex{}, surfaceFormat: wgpu.TextureFormatBGRA8Unorm}
	target := b.Target()
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, target.ColorFormat)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, target.DepthFormat)
	assert.Equal(t, uint32(1), target.SampleCount)
}

func TestFrameCallsOutsideFrame(t *testing.T) {
	b := &wgpuRendererBackendImpl{mu: &sync.Mutex{}}
	assert.ErrorIs(t, b.EndFrame(), errNoFrame)
	assert.NoError(t, b.EndComputeFrame())
	assert.Error(t, b.BeginFrame())
	assert.Error(t, b.WriteBuffer(nil, 0, []byte{0, 0, 0, 0}))
	assert.NoError(t, b.ConfigureSurface(0, 0))

	// no-ops without a frame
	b.ExecuteBundles(nil)
	b.Present()
}
