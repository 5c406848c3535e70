package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/quickternary-cli/internal/colmap"
	"github.com/KaramelBytes/quickternary-cli/internal/filter"
	"github.com/KaramelBytes/quickternary-cli/internal/plotfile"
	"github.com/KaramelBytes/quickternary-cli/internal/trace"
	"github.com/KaramelBytes/quickternary-cli/internal/utils"
	"github.com/KaramelBytes/quickternary-cli/internal/visual"
	"github.com/spf13/cobra"
)

var (
	initTitle string
	initForce bool
)

const sampleCSV = `Sample,SiO2,Al2O3,CaO,Na2O,K2O,FeOT,MgO,Zr,Rock
BAS-01,49.2,15.1,10.9,2.6,0.4,11.2,7.9,98,basalt
BAS-02,50.1,14.7,10.2,2.9,0.6,11.8,7.1,112,basalt
BAS-03,48.6,15.8,11.4,2.3,0.3,10.4,8.6,87,basalt
AND-01,58.4,17.2,7.1,3.6,1.5,6.8,3.4,145,andesite
AND-02,59.9,16.9,6.4,3.9,1.8,6.1,2.9,160,andesite
DAC-01,65.3,15.9,4.3,4.1,2.4,4.2,1.6,190,dacite
RHY-01,73.1,13.4,1.2,3.7,4.6,1.9,0.3,230,rhyolite
RHY-02,74.0,12.9,0.9,3.5,4.9,1.6,0.2,245,rhyolite
`

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a plot definition with sample data",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
		path := filepath.Join(dir, plotfile.FileName)
		// Refuse to overwrite an existing definition.
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("plot file already exists at %s (use --force to overwrite)", path)
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat plot file: %w", err)
		}
		dataPath := filepath.Join(dir, "sample.csv")
		if err := utils.SafeWriteFile(dataPath, []byte(sampleCSV)); err != nil {
			return err
		}
		p := samplePlot(initTitle, path)
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Plot initialized: %s\n", path)
		fmt.Printf("  sample data: %s\n", dataPath)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initTitle, "title", "Volcanic series", "plot title")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing plot file")
	rootCmd.AddCommand(initCmd)
}

func samplePlot(title, path string) *plotfile.Plot {
	p := plotfile.New(title, path)
	p.Data = []*plotfile.DataSource{{Name: "sample", Path: "sample.csv"}}
	row := 3
	p.Traces = []*plotfile.TraceDef{
		{
			Name: "Volcanics",
			Data: "sample",
			Heatmap: &visual.Heatmap{
				Column: "SiO2",
				Sort:   visual.Ascending,
			},
			Sizemap: &visual.Sizemap{Column: "Zr", Min: 6, Max: 16},
		},
		{
			Name:  "Basalts (molar)",
			Data:  "sample",
			Molar: true,
			Filters: []filter.Spec{
				{Column: "Rock", Op: filter.Equal, Operands: filter.Operands{"basalt"}},
			},
			Style: &trace.Style{Color: "#d62728", Shape: "diamond"},
		},
		{
			Name:        "AND-01 uncertainty",
			Kind:        trace.Bootstrap,
			Source:      &plotfile.SourceDef{Data: "sample", Row: &row},
			Uncertainty: colmap.Of(colmap.Pair[float64]{Key: "Al2O3", Value: 0.4}, colmap.Pair[float64]{Key: "CaO", Value: 0.3}, colmap.Pair[float64]{Key: "MgO", Value: 0.2}),
			Contour:     "1-sigma",
			Style:       &trace.Style{OutlineColor: "#2ca02c", OutlineThickness: 2, LineStyle: "dash"},
		},
	}
	p.AssignIDs()
	return p
}
