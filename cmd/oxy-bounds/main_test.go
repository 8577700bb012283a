package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-bounds/engine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dump(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--dump-config"}, args...))
	if err := cmd.Execute(); err != nil {
		return config.Config{}, err
	}
	return config.Parse(out.Bytes())
}

func TestDumpDefaultConfig(t *testing.T) {
	cfg, err := dump(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	doc := "[window]\nvsync = true\n\n[debug]\nlog_level = \"warn\"\n\n[[spheres]]\norigin = [1.0, 2.0, 3.0]\nradius = 0.5\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := dump(t, "--config", path)
	require.NoError(t, err)
	assert.True(t, cfg.Window.VSync)
	assert.Equal(t, "warn", cfg.Debug.LogLevel)
	require.Len(t, cfg.Spheres, 1)
	assert.Equal(t, float32(0.5), cfg.Spheres[0].Radius)

	cfg, err = dump(t, "-c", path, "--vsync=false", "--log-level", "debug", "--profile")
	require.NoError(t, err)
	assert.False(t, cfg.Window.VSync)
	assert.Equal(t, "debug", cfg.Debug.LogLevel)
	assert.True(t, cfg.Debug.Profile)
}

func TestInvalidInputsFail(t *testing.T) {
	_, err := dump(t, "--log-level", "loud")
	assert.Error(t, err)

	_, err = dump(t, "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = dump(t, "extra")
	assert.Error(t, err)
}
