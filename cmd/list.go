package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/quickternary-cli/internal/plotfile"
	"github.com/KaramelBytes/quickternary-cli/internal/trace"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [plot-file]",
	Short: "List data sources and traces of a plot definition",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := locatePlot(args)
		if err != nil {
			return err
		}
		p, err := plotfile.Load(path)
		if err != nil {
			return err
		}
		apexes, err := p.ResolveApexes()
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", p.Title, path)
		fmt.Printf("apexes: top=%s left=%s right=%s\n",
			strings.Join(apexes.Top, "+"), strings.Join(apexes.Left, "+"), strings.Join(apexes.Right, "+"))
		if len(p.Data) == 0 {
			fmt.Println("(no data sources)")
		}
		for _, d := range p.Data {
			fmt.Printf("- data %s: %s\n", d.Name, d.Path)
		}
		if len(p.Traces) == 0 {
			fmt.Println("(no traces)")
			return nil
		}
		for _, t := range p.Traces {
			kind := t.Kind
			if kind == "" {
				kind = trace.Standard
			}
			id := t.ID
			if id == "" {
				id = "(no id)"
			}
			line := fmt.Sprintf("- %s: %s [%s]", id, t.Name, kind)
			if t.Data != "" {
				line += " data=" + t.Data
			}
			if t.Disabled {
				line += " (disabled)"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
