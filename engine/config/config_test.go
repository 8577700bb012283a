package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []common.Sphere{{Radius: 1}}, cfg.SphereList())
	settings := cfg.PassSettings()
	require.Len(t, settings.Grids, 1)
	assert.Equal(t, uint32(20), settings.Grids[0].Width)
	assert.Equal(t, 3, settings.IcosphereLevel)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
width = 800

[camera]
position = [0.0, 2.0, 8.0]

[[spheres]]
origin = [1.0, 0.0, 0.0]
radius = 0.5

[[spheres]]
origin = [-1.0, 0.0, -2.0]
radius = 2.0

[[grids]]
width = 4
height = 2

[debug]
log_level = "debug"
`))
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, "oxy-bounds", cfg.Window.Title)
	assert.Equal(t, [3]float32{0, 2, 8}, cfg.Camera.Position)
	assert.Equal(t, Default().Camera.Fov, cfg.Camera.Fov)

	assert.Equal(t, []common.Sphere{
		{Origin: [3]float32{1, 0, 0}, Radius: 0.5},
		{Origin: [3]float32{-1, 0, -2}, Radius: 2},
	}, cfg.SphereList())

	// omitted grid scale defaults to 1 and omitted orientation is the identity
	require.Len(t, cfg.Grids, 1)
	grid := cfg.PassSettings().Grids[0]
	assert.Equal(t, float32(1), grid.Scale)
	assert.Equal(t, mgl32.QuatIdent(), grid.Orientation)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestParseEmptyDocumentIsDefault(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   error
		msg    string
	}{
		{"zero grid", "[[grids]]\nwidth = 0\nheight = 3", ErrInvalidGrid, ""},
		{"oversized grid", "[[grids]]\nwidth = 400\nheight = 400", ErrInvalidGrid, ""},
		{"negative radius", "[[spheres]]\nradius = -1.0", ErrInvalidSphere, ""},
		{"zero window", "[window]\nheight = 0", ErrInvalidWindow, ""},
		{"far before near", "[camera]\nnear = 2.0\nfar = 1.0", ErrInvalidCamera, ""},
		{"wide fov", "[camera]\nfov = 4.0", ErrInvalidCamera, ""},
		{"coarse circles", "[render]\ncircle_subdivisions = 2", ErrInvalidRender, ""},
		{"fine icosphere", "[render]\nicosphere_level = 9", ErrInvalidRender, ""},
		{"unknown key", "[window]\ncolour = 1", nil, "config"},
		{"syntax", "[window\nwidth = 1", nil, "line 1"},
		{"log level", "[debug]\nlog_level = \"loud\"", nil, "invalid log level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.source))
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			if tc.msg != "" {
				assert.ErrorContains(t, err, tc.msg)
			}
		})
	}
}

func TestMarshalParses(t *testing.T) {
	cfg := Default()
	cfg.Spheres = append(cfg.Spheres, SphereConfig{Origin: [3]float32{3, 0, 0}, Radius: 0.25})

	data, err := cfg.Marshal()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestCameraOptions(t *testing.T) {
	cfg := Default()
	cfg.Camera.Position = [3]float32{1, 2, 3}
	lens := cfg.Lens(2)
	assert.Equal(t, float32(2), lens.AspectRatio())
	assert.Equal(t, cfg.Camera.Near, lens.FrustumNear)
	assert.Len(t, cfg.CameraOptions(1), 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestWatcherDeliversValidEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[spheres]]\nradius = 1.0\n"), 0o644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Close()

	// an invalid edit is skipped
	require.NoError(t, os.WriteFile(path, []byte("[[spheres]]\nradius = -1.0\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[[spheres]]\nradius = 3.0\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-w.Updates():
			require.Len(t, cfg.Spheres, 1)
			if cfg.Spheres[0].Radius == 3 {
				assert.NoError(t, w.Close())
				assert.NoError(t, w.Close())
				return
			}
		case <-deadline:
			t.Fatal("no reload delivered")
		}
	}
}

func TestExampleSceneLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "scene.toml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Spheres, 4)
	require.Len(t, cfg.Grids, 1)
	assert.Equal(t, float32(-1), cfg.Grids[0].Position[1])
	assert.True(t, cfg.Window.VSync)
}
