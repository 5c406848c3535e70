package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	cfgpkg "github.com/KaramelBytes/quickternary-cli/internal/config"
	"github.com/KaramelBytes/quickternary-cli/internal/contour"
	"github.com/KaramelBytes/quickternary-cli/internal/logging"
	"github.com/KaramelBytes/quickternary-cli/internal/table"
	"github.com/KaramelBytes/quickternary-cli/internal/trace"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	logLevel string
	// Pipeline flags (override config if set)
	flagSamples  int
	flagGridSize int
	flagTotal    float64

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "quickternary",
	Short: "QuickTernary CLI: build ternary diagram traces from geochemical tables",
	Long: `QuickTernary turns tables of oxide measurements into ternary diagram traces:
normalized apex proportions with heatmap, size and colour encodings, density
outlines, and Monte Carlo confidence contours around single measurements.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.quickternary/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagSamples, "samples", 0, "Monte Carlo draws per bootstrap trace (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagGridSize, "grid-size", 0, "density grid resolution per axis (overrides config)")
	rootCmd.PersistentFlags().Float64Var(&flagTotal, "total", 0, "normalization total, e.g. 100 or 1 (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		applyLogLevel("")
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("samples") && flagSamples > 0 {
		cfg.Samples = flagSamples
	}
	if f.Changed("grid-size") && flagGridSize > 0 {
		cfg.GridSize = flagGridSize
	}
	if f.Changed("total") && flagTotal > 0 {
		cfg.Total = flagTotal
	}
	applyLogLevel(cfg.LogLevel)
}

func applyLogLevel(fromConfig string) {
	level := fromConfig
	if logLevel != "" {
		level = logLevel
	}
	if debug {
		level = "debug"
	}
	if level == "" {
		return
	}
	if err := logging.SetLevel(level); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
}

// pipeline builds the trace pipeline from the effective configuration.
func pipeline() trace.Pipeline {
	p := trace.DefaultPipeline()
	if cfg == nil {
		return p
	}
	p.Total = cfg.Total
	p.Samples = cfg.Samples
	p.Colorscale = cfg.Colorscale
	p.Contour = contour.Options{
		GridSize:       cfg.GridSize,
		BandwidthScale: cfg.BandwidthScale,
		MinVertices:    cfg.MinContourVertices,
	}
	return p
}

// tableOptions returns the loader options from the effective configuration.
func tableOptions() table.Options {
	opt := table.DefaultOptions()
	if cfg != nil && cfg.HeaderScanRows > 0 {
		opt.ScanRows = cfg.HeaderScanRows
	}
	return opt
}
