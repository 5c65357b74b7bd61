// Package config loads and validates the shadowboard configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"shadowboard/internal/calib"
)

// secretEnv overrides the configured marker secret when set, keeping it
// out of the config file on shared machines.
const secretEnv = "SHADOWBOARD_SECRET"

// Config is the full runtime configuration.
type Config struct {
	// Secret is the shared HMAC key for marker payload validation.
	Secret string `yaml:"secret"`

	Board      BoardConfig      `yaml:"board"`
	Rectified  RectifiedConfig  `yaml:"rectified"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Capture    CaptureConfig    `yaml:"capture"`

	// BaselineDir holds per-slot baseline images named
	// <slot>_empty.png and <slot>_occupied.png.
	BaselineDir string `yaml:"baseline_dir"`
	// CalibrationDir holds per-camera calibration JSON files.
	CalibrationDir string `yaml:"calibration_dir"`
}

// BoardConfig describes the physical board and its corner markers.
type BoardConfig struct {
	WidthCm      float64 `yaml:"width_cm"`
	HeightCm     float64 `yaml:"height_cm"`
	MarkerSizeCm float64 `yaml:"marker_size_cm"`
	CornerIDs    [4]int  `yaml:"corner_ids"`
	Dictionary   string  `yaml:"dictionary"`
}

// RectifiedConfig sets the canonical output raster.
type RectifiedConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// SimilarityConfig tunes the baseline comparison.
type SimilarityConfig struct {
	PatchSize         int     `yaml:"patch_size"`
	EmptyThreshold    float64 `yaml:"empty_threshold"`
	OccupiedThreshold float64 `yaml:"occupied_threshold"`
}

// CaptureConfig shapes camera access.
type CaptureConfig struct {
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	WarmupFrames int `yaml:"warmup_frames"`
	Retries      int `yaml:"retries"`
}

// Default returns a configuration matching the standard A4 calibration
// board and conservative thresholds.
func Default() *Config {
	layout := calib.DefaultLayout()
	return &Config{
		Board: BoardConfig{
			WidthCm:      layout.WidthCm,
			HeightCm:     layout.HeightCm,
			MarkerSizeCm: layout.MarkerSizeCm,
			CornerIDs:    layout.CornerIDs,
			Dictionary:   "4x4_100",
		},
		Rectified: RectifiedConfig{Width: 1188, Height: 840},
		Similarity: SimilarityConfig{
			PatchSize:         200,
			EmptyThreshold:    0.85,
			OccupiedThreshold: 0.85,
		},
		Capture: CaptureConfig{
			Width:        1920,
			Height:       1080,
			WarmupFrames: 3,
			Retries:      2,
		},
		BaselineDir:    "baselines",
		CalibrationDir: "calibrations",
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults unchanged. The SHADOWBOARD_SECRET environment
// variable, when set, overrides any configured secret.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if env := os.Getenv(secretEnv); env != "" {
		cfg.Secret = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks internal consistency.
func (c *Config) Validate() error {
	if err := c.Layout().Validate(); err != nil {
		return fmt.Errorf("board: %w", err)
	}
	if c.Rectified.Width <= 0 || c.Rectified.Height <= 0 {
		return fmt.Errorf("rectified output size must be positive, got %dx%d",
			c.Rectified.Width, c.Rectified.Height)
	}
	if c.Similarity.EmptyThreshold <= 0 || c.Similarity.EmptyThreshold >= 1 {
		return fmt.Errorf("empty_threshold must be in (0, 1), got %v", c.Similarity.EmptyThreshold)
	}
	if c.Similarity.OccupiedThreshold <= 0 || c.Similarity.OccupiedThreshold >= 1 {
		return fmt.Errorf("occupied_threshold must be in (0, 1), got %v", c.Similarity.OccupiedThreshold)
	}
	if c.Similarity.PatchSize <= 0 {
		return fmt.Errorf("patch_size must be positive, got %d", c.Similarity.PatchSize)
	}
	return nil
}

// Layout converts the board section into the calibration layout type.
func (c *Config) Layout() calib.BoardLayout {
	return calib.BoardLayout{
		WidthCm:      c.Board.WidthCm,
		HeightCm:     c.Board.HeightCm,
		MarkerSizeCm: c.Board.MarkerSizeCm,
		CornerIDs:    c.Board.CornerIDs,
	}
}
