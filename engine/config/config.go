// Package config loads the viewer scene from TOML: window, camera, grids, sky gradient, spheres and
// render settings, and watches the file for edits.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/Carmen-Shannon/oxy-bounds/engine/camera"
	"github.com/Carmen-Shannon/oxy-bounds/engine/renderer/passes"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrInvalidWindow is returned for a window without a positive size.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrInvalidCamera is returned for a lens that cannot form a perspective projection.
	ErrInvalidCamera = errors.New("invalid camera")

	// ErrInvalidGrid is returned for a grid with no cells or a non-positive scale.
	ErrInvalidGrid = errors.New("invalid grid")

	// ErrInvalidSphere is returned for a sphere with a negative or non-finite radius.
	ErrInvalidSphere = errors.New("invalid sphere")

	// ErrInvalidRender is returned for mesh resolutions outside their supported range.
	ErrInvalidRender = errors.New("invalid render settings")
)

// MaxIcosphereLevel bounds the sphere mesh resolution.
const MaxIcosphereLevel = 6

// Config is the full viewer configuration.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Camera   CameraConfig   `toml:"camera"`
	Grids    []GridConfig   `toml:"grids"`
	Gradient GradientConfig `toml:"gradient"`
	Spheres  []SphereConfig `toml:"spheres"`
	Render   RenderConfig   `toml:"render"`
	Debug    DebugConfig    `toml:"debug"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

// CameraConfig places the camera. Fov is the vertical field of view in radians and the orientation
// is a rotation of Angle radians about Axis.
type CameraConfig struct {
	Fov        float32    `toml:"fov"`
	Near       float32    `toml:"near"`
	Far        float32    `toml:"far"`
	Position   [3]float32 `toml:"position"`
	Axis       [3]float32 `toml:"axis"`
	Angle      float32    `toml:"angle"`
	OrbitPoint [3]float32 `toml:"orbit_point"`
}

type GridConfig struct {
	Scale    float32    `toml:"scale"`
	Width    uint32     `toml:"width"`
	Height   uint32     `toml:"height"`
	Position [3]float32 `toml:"position"`
	Axis     [3]float32 `toml:"axis"`
	Angle    float32    `toml:"angle"`
}

type GradientConfig struct {
	Bottom [3]float32 `toml:"bottom"`
	Top    [3]float32 `toml:"top"`
}

type SphereConfig struct {
	Origin [3]float32 `toml:"origin"`
	Radius float32    `toml:"radius"`
}

type RenderConfig struct {
	IcosphereLevel     int    `toml:"icosphere_level"`
	CircleSubdivisions uint32 `toml:"circle_subdivisions"`
}

type DebugConfig struct {
	LogLevel string `toml:"log_level"`
	Profile  bool   `toml:"profile"`
}

// Default returns the built-in scene: one 20x20 floor grid, the default sky and a unit sphere at the
// origin seen from (0, 0, 5).
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	lens := camera.DefaultPerspectiveLens(1)
	return Config{
		Window: WindowConfig{Title: "oxy-bounds", Width: 1280, Height: 720},
		Camera: CameraConfig{
			Fov:      lens.FovVertical,
			Near:     lens.FrustumNear,
			Far:      lens.FrustumFar,
			Position: [3]float32{0, 0, 5},
		},
		Grids:    []GridConfig{{Scale: 1, Width: 20, Height: 20, Axis: [3]float32{1, 0, 0}, Angle: 0.5 * math.Pi}},
		Gradient: GradientConfig{Bottom: passes.DefaultGradient.Bottom, Top: passes.DefaultGradient.Top},
		Spheres:  []SphereConfig{{Radius: 1}},
		Render: RenderConfig{
			IcosphereLevel:     passes.DefaultIcosphereLevel,
			CircleSubdivisions: passes.DefaultCircleSubdivisions,
		},
		Debug: DebugConfig{LogLevel: "info"},
	}
}

// Parse decodes TOML over the defaults, so omitted keys keep their default values. Unknown keys are
// rejected. Grid scales left at zero default to 1.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the decoded and validated configuration
//   - error: a decoding or validation error
func Parse(data []byte) (Config, error) {
	cfg := Default()
	// arrays of tables replace the defaults instead of extending them
	cfg.Grids, cfg.Spheres = nil, nil
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return Config{}, fmt.Errorf("config line %d column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if cfg.Grids == nil {
		cfg.Grids = Default().Grids
	}
	if cfg.Spheres == nil {
		cfg.Spheres = Default().Spheres
	}
	for i := range cfg.Grids {
		cfg.Grids[i].Scale = common.Coalesce(cfg.Grids[i].Scale, 1)
	}
	cfg.Window.Title = common.Coalesce(cfg.Window.Title, Default().Window.Title)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - Config: the configuration
//   - error: a read, decoding or validation error
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the configuration as TOML.
//
// Returns:
//   - []byte: the TOML document
//   - error: an encoding error
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks every section and returns the first problem found.
//
// Returns:
//   - error: one of the ErrInvalid errors, wrapped with the offending entry
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidWindow, c.Window.Width, c.Window.Height)
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= math.Pi {
		return fmt.Errorf("%w: fov %v outside (0, pi)", ErrInvalidCamera, c.Camera.Fov)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("%w: near %v far %v", ErrInvalidCamera, c.Camera.Near, c.Camera.Far)
	}
	for i, g := range c.Grids {
		if g.Width == 0 || g.Height == 0 {
			return fmt.Errorf("%w %d: size %dx%d", ErrInvalidGrid, i, g.Width, g.Height)
		}
		if g.Scale <= 0 {
			return fmt.Errorf("%w %d: scale %v", ErrInvalidGrid, i, g.Scale)
		}
	}
	if _, _, err := passes.GridMesh(c.PassSettings().Grids); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGrid, err)
	}
	for i, s := range c.Spheres {
		if s.Radius < 0 || !common.Finite(s.Radius) {
			return fmt.Errorf("%w %d: radius %v", ErrInvalidSphere, i, s.Radius)
		}
	}
	if c.Render.IcosphereLevel < 0 || c.Render.IcosphereLevel > MaxIcosphereLevel {
		return fmt.Errorf("%w: icosphere level %d outside [0, %d]", ErrInvalidRender, c.Render.IcosphereLevel, MaxIcosphereLevel)
	}
	if c.Render.CircleSubdivisions < 3 {
		return fmt.Errorf("%w: %d circle subdivisions, need at least 3", ErrInvalidRender, c.Render.CircleSubdivisions)
	}
	if _, err := ParseLevel(c.Debug.LogLevel); err != nil {
		return err
	}
	return nil
}

// SphereList converts the configured spheres.
func (c Config) SphereList() []common.Sphere {
	out := make([]common.Sphere, len(c.Spheres))
	for i, s := range c.Spheres {
		out[i] = common.Sphere{Origin: s.Origin, Radius: s.Radius}
	}
	return out
}

// PassSettings converts the grids, gradient and render sections for the render passes.
func (c Config) PassSettings() passes.Settings {
	grids := make([]passes.Grid, len(c.Grids))
	for i, g := range c.Grids {
		grids[i] = passes.Grid{
			Scale:       g.Scale,
			Width:       g.Width,
			Height:      g.Height,
			Position:    mgl32.Vec3(g.Position),
			Orientation: common.AxisAngle(mgl32.Vec3(g.Axis), g.Angle),
		}
	}
	return passes.Settings{
		Grids:              grids,
		Gradient:           passes.Gradient{Bottom: c.Gradient.Bottom, Top: c.Gradient.Top},
		IcosphereLevel:     c.Render.IcosphereLevel,
		CircleSubdivisions: c.Render.CircleSubdivisions,
	}
}

// Lens builds the perspective lens for the given aspect ratio.
func (c Config) Lens(aspect float32) *camera.PerspectiveLens {
	return &camera.PerspectiveLens{
		FovVertical: c.Camera.Fov,
		Aspect:      aspect,
		FrustumNear: c.Camera.Near,
		FrustumFar:  c.Camera.Far,
	}
}

// CameraOptions returns the camera builder options for the configured lens and placement.
//
// Parameters:
//   - aspect: the initial aspect ratio
//
// Returns:
//   - []camera.CameraBuilderOption: the options
func (c Config) CameraOptions(aspect float32) []camera.CameraBuilderOption {
	return []camera.CameraBuilderOption{
		camera.WithLens(c.Lens(aspect)),
		camera.WithPosition(mgl32.Vec3(c.Camera.Position)),
		camera.WithOrientation(common.AxisAngle(mgl32.Vec3(c.Camera.Axis), c.Camera.Angle)),
	}
}

// LogLevel returns the configured log level, info when it does not parse.
func (c Config) LogLevel() slog.Level {
	level, err := ParseLevel(c.Debug.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel parses a slog level name such as "debug" or "warn". An empty name is info.
//
// Parameters:
//   - name: the level name, case-insensitive
//
// Returns:
//   - slog.Level: the level
//   - error: an error for an unknown name
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(name) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
