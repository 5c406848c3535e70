package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/quickternary-cli/internal/config"
	"github.com/KaramelBytes/quickternary-cli/internal/logging"
	"github.com/KaramelBytes/quickternary-cli/internal/visual"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set QuickTernary configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("total: %g\n", cfg.Total)
		fmt.Printf("colorscale: %s\n", cfg.Colorscale)
		fmt.Printf("samples: %d\n", cfg.Samples)
		fmt.Printf("grid_size: %d\n", cfg.GridSize)
		fmt.Printf("bandwidth_scale: %g\n", cfg.BandwidthScale)
		fmt.Printf("min_contour_vertices: %d\n", cfg.MinContourVertices)
		fmt.Printf("header_scan_rows: %d\n", cfg.HeaderScanRows)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		if cfg.OutputDir != "" {
			fmt.Printf("output_dir: %s\n", cfg.OutputDir)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Set a config value and save to disk. Keys: " + strings.Join(cfgpkg.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	atof := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float for %s: %v", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "total":
		c.Total, err = atof()
	case "colorscale":
		if !visual.KnownScale(val) {
			return fmt.Errorf("unknown colorscale: %s", val)
		}
		c.Colorscale = val
	case "samples":
		c.Samples, err = atoi()
	case "grid_size":
		c.GridSize, err = atoi()
	case "bandwidth_scale":
		c.BandwidthScale, err = atof()
	case "min_contour_vertices":
		c.MinContourVertices, err = atoi()
	case "header_scan_rows":
		c.HeaderScanRows, err = atoi()
	case "log_level":
		if _, ok := logging.ParseLevel(val); !ok {
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
		c.LogLevel = strings.ToLower(val)
	case "output_dir":
		c.OutputDir = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}
