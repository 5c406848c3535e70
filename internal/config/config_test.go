package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadDefaults(t *testing.T) {
	tempHome(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100.0, c.Total)
	assert.Equal(t, 10000, c.Samples)
	assert.Equal(t, 100, c.GridSize)
	assert.Equal(t, 2.0, c.BandwidthScale)
	assert.Equal(t, 12, c.MinContourVertices)
	assert.Equal(t, "Viridis", c.Colorscale)
	assert.Equal(t, "info", c.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	home := tempHome(t)
	c, err := Load("")
	require.NoError(t, err)
	c.Samples = 500
	c.Colorscale = "Plasma"
	require.NoError(t, Save(c, ""))
	require.FileExists(t, filepath.Join(home, ".quickternary", "config.yaml"))

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 500, again.Samples)
	assert.Equal(t, "Plasma", again.Colorscale)

	t.Setenv("QUICKTERNARY_SAMPLES", "2500")
	again, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 2500, again.Samples)
}

func TestExplicitFile(t *testing.T) {
	tempHome(t)
	path := filepath.Join(t.TempDir(), "qt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("total: 1\ngrid_size: 50\n"), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Total)
	assert.Equal(t, 50, c.GridSize)
	assert.Equal(t, 10000, c.Samples)
}

func TestValidateRejects(t *testing.T) {
	tempHome(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("samples: 3\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "samples")

	c := Global{Total: 100, Samples: 100, GridSize: 100, BandwidthScale: 0, MinContourVertices: 12, HeaderScanRows: 16}
	assert.ErrorContains(t, c.Validate(), "bandwidth_scale")
}
