package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Plot
	Total      float64 `mapstructure:"total" yaml:"total"`
	Colorscale string  `mapstructure:"colorscale" yaml:"colorscale"`

	// Bootstrap / contour
	Samples            int     `mapstructure:"samples" yaml:"samples"`
	GridSize           int     `mapstructure:"grid_size" yaml:"grid_size"`
	BandwidthScale     float64 `mapstructure:"bandwidth_scale" yaml:"bandwidth_scale"`
	MinContourVertices int     `mapstructure:"min_contour_vertices" yaml:"min_contour_vertices"`

	// Loading
	HeaderScanRows int `mapstructure:"header_scan_rows" yaml:"header_scan_rows"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"total", "colorscale", "samples", "grid_size", "bandwidth_scale",
	"min_contour_vertices", "header_scan_rows", "log_level", "output_dir",
}

// Dir returns ~/.quickternary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".quickternary"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.quickternary/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("QUICKTERNARY")
	v.AutomaticEnv()

	v.SetDefault("total", 100.0)
	v.SetDefault("colorscale", "Viridis")
	v.SetDefault("samples", 10000)
	v.SetDefault("grid_size", 100)
	v.SetDefault("bandwidth_scale", 2.0)
	v.SetDefault("min_contour_vertices", 12)
	v.SetDefault("header_scan_rows", 16)
	v.SetDefault("log_level", "info")
	v.SetDefault("output_dir", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Global) Validate() error {
	switch {
	case !(c.Total > 0):
		return fmt.Errorf("total must be > 0, got %v", c.Total)
	case c.Samples < 10:
		return fmt.Errorf("samples must be >= 10, got %d", c.Samples)
	case c.GridSize < 10:
		return fmt.Errorf("grid_size must be >= 10, got %d", c.GridSize)
	case !(c.BandwidthScale > 0):
		return fmt.Errorf("bandwidth_scale must be > 0, got %v", c.BandwidthScale)
	case c.MinContourVertices < 3:
		return fmt.Errorf("min_contour_vertices must be >= 3, got %d", c.MinContourVertices)
	case c.HeaderScanRows < 1:
		return fmt.Errorf("header_scan_rows must be >= 1, got %d", c.HeaderScanRows)
	}
	return nil
}
