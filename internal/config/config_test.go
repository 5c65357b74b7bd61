package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shadowboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.InDelta(t, 29.7, cfg.Board.WidthCm, 1e-9)
	assert.InDelta(t, 21.0, cfg.Board.HeightCm, 1e-9)
	assert.Equal(t, [4]int{17, 18, 19, 20}, cfg.Board.CornerIDs)
	assert.Equal(t, 200, cfg.Similarity.PatchSize)
	assert.InDelta(t, 0.85, cfg.Similarity.EmptyThreshold, 1e-9)
	assert.InDelta(t, 0.85, cfg.Similarity.OccupiedThreshold, 1e-9)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
secret: super-secret
board:
  width_cm: 42.0
  height_cm: 29.7
  marker_size_cm: 4.0
  corner_ids: [1, 2, 3, 4]
similarity:
  patch_size: 128
  empty_threshold: 0.9
  occupied_threshold: 0.8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "super-secret", cfg.Secret)
	assert.InDelta(t, 42.0, cfg.Board.WidthCm, 1e-9)
	assert.Equal(t, [4]int{1, 2, 3, 4}, cfg.Board.CornerIDs)
	assert.Equal(t, 128, cfg.Similarity.PatchSize)
	// Untouched sections keep defaults.
	assert.Equal(t, 1188, cfg.Rectified.Width)
}

func TestLoadSecretFromEnvironment(t *testing.T) {
	path := writeConfig(t, "secret: from-file\n")
	t.Setenv(secretEnv, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Secret)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero board":          "board: {width_cm: 0}\n",
		"marker too large":    "board: {marker_size_cm: 50}\n",
		"duplicate corners":   "board: {corner_ids: [5, 5, 6, 7]}\n",
		"threshold too high":  "similarity: {empty_threshold: 1.5}\n",
		"negative patch size": "similarity: {patch_size: -1}\n",
		"zero output":         "rectified: {width: 0}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLayoutConversion(t *testing.T) {
	cfg := Default()
	layout := cfg.Layout()
	assert.InDelta(t, cfg.Board.WidthCm, layout.WidthCm, 1e-9)
	assert.Equal(t, cfg.Board.CornerIDs, layout.CornerIDs)
}
