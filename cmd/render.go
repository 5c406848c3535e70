package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/quickternary-cli/internal/filter"
	"github.com/KaramelBytes/quickternary-cli/internal/logging"
	"github.com/KaramelBytes/quickternary-cli/internal/plotfile"
	"github.com/KaramelBytes/quickternary-cli/internal/trace"
	"github.com/KaramelBytes/quickternary-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	renderOutput  string
	renderWhere   []string
	renderTraces  []string
	renderSaveIDs bool
	renderStrict  bool
)

// document is the rendered plot handed to a plotting front end.
type document struct {
	Title    string         `json:"title"`
	Total    float64        `json:"total"`
	Axes     axes           `json:"axes"`
	Traces   []trace.Result `json:"traces"`
	Failures []failure      `json:"failures,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

type axes struct {
	Top   string `json:"top"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

type failure struct {
	TraceID string `json:"id"`
	Name    string `json:"name"`
	Stage   string `json:"stage"`
	Error   string `json:"error"`
}

var renderCmd = &cobra.Command{
	Use:   "render [plot-file]",
	Short: "Compute every trace of a plot definition and write plot JSON",
	Long: `Compute every trace of a plot definition and write the result as JSON.

Without an argument the nearest quickternary.yaml in the current directory or
its parents is used. A failing trace is reported and skipped; the others still
render.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := locatePlot(args)
		if err != nil {
			return err
		}
		p, err := plotfile.Load(path)
		if err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if p.AssignIDs() && renderSaveIDs {
			if err := p.Save(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Assigned trace ids in %s\n", path)
		}
		extra, err := parseWhere(renderWhere)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		doc, err := renderPlot(ctx, p, extra, renderTraces)
		if err != nil {
			return err
		}
		for _, w := range doc.Warnings {
			fmt.Fprintf(os.Stderr, "⚠ %s\n", w)
		}
		for _, f := range doc.Failures {
			fmt.Fprintf(os.Stderr, "✗ trace %s (%s): %s\n", f.TraceID, f.Stage, f.Error)
		}

		b, err := utils.PrettyJSON(doc)
		if err != nil {
			return err
		}
		out := renderOutput
		if out == "" && cfg != nil && cfg.OutputDir != "" {
			if err := utils.EnsureDir(cfg.OutputDir); err != nil {
				return err
			}
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			out = filepath.Join(cfg.OutputDir, base+".json")
		}
		if out == "" || out == "-" {
			fmt.Print(string(b))
		} else {
			if err := utils.SafeWriteFile(out, b); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Rendered %d/%d traces to %s\n", len(doc.Traces), len(doc.Traces)+len(doc.Failures), out)
		}

		switch {
		case len(doc.Failures) > 0 && len(doc.Traces) == 0:
			return errors.New("no trace rendered")
		case len(doc.Failures) > 0 && renderStrict:
			return fmt.Errorf("%d trace(s) failed", len(doc.Failures))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "write JSON to this file ('-' for stdout)")
	renderCmd.Flags().StringArrayVar(&renderWhere, "where", nil, `extra filter applied to every standard trace, e.g. --where "Rock is one of basalt andesite"`)
	renderCmd.Flags().StringSliceVar(&renderTraces, "trace", nil, "render only these trace ids or names")
	renderCmd.Flags().BoolVar(&renderSaveIDs, "save-ids", false, "persist generated trace ids back to the plot file")
	renderCmd.Flags().BoolVar(&renderStrict, "strict", false, "exit non-zero if any trace fails")
	rootCmd.AddCommand(renderCmd)
}

// locatePlot resolves the plot file from args or by searching upwards.
func locatePlot(args []string) (string, error) {
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err == nil && info.IsDir() {
			return utils.FindUp(args[0], plotfile.FileName)
		}
		return args[0], nil
	}
	return utils.FindUp("", plotfile.FileName)
}

func parseWhere(exprs []string) ([]filter.Spec, error) {
	var out []filter.Spec
	for i, e := range exprs {
		s, err := filter.ParseExpr(e)
		if err != nil {
			return nil, err
		}
		s.ID = fmt.Sprintf("where-%d", i+1)
		out = append(out, s)
	}
	return out, nil
}

// renderPlot builds and runs the selected traces, keeping definition order.
func renderPlot(ctx context.Context, p *plotfile.Plot, extra []filter.Spec, only []string) (*document, error) {
	apexes, err := p.ResolveApexes()
	if err != nil {
		return nil, err
	}
	entries, err := p.Build(ctx, tableOptions())
	if err != nil {
		return nil, err
	}
	pl := pipeline()
	if p.Total > 0 {
		pl.Total = p.Total
	}
	doc := &document{Title: p.Title, Total: pl.Total, Axes: axisLabels(apexes, p)}

	selected := func(t trace.Trace) bool {
		if len(only) == 0 {
			return true
		}
		for _, ref := range only {
			if ref == t.ID || ref == t.Name {
				return true
			}
		}
		return false
	}
	for _, e := range entries {
		if !selected(e.Trace) {
			continue
		}
		if e.Err != nil {
			doc.Failures = append(doc.Failures, newFailure(e.Trace, e.Err))
			continue
		}
		t := e.Trace
		if t.Kind == trace.Standard && len(extra) > 0 {
			t.Filters = append(append([]filter.Spec(nil), t.Filters...), extra...)
		}
		res := pl.Run(ctx, []trace.Trace{t})[0]
		for _, w := range res.Warnings {
			doc.Warnings = append(doc.Warnings, w.Error())
		}
		if !res.OK() {
			logging.Debugf("trace %s failed: %v", t.ID, res.Err)
			doc.Failures = append(doc.Failures, newFailure(t, res.Err))
			continue
		}
		doc.Traces = append(doc.Traces, res)
	}
	return doc, nil
}

func newFailure(t trace.Trace, err error) failure {
	return failure{TraceID: t.ID, Name: t.Name, Stage: trace.Stage(err), Error: err.Error()}
}

// axisLabels joins each apex's columns with "+", prefixing scaled columns
// with their factor.
func axisLabels(a trace.Apexes, p *plotfile.Plot) axes {
	label := func(cols []string) string {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = c
			if k, ok := p.Scale.Get(c); ok && k != 1 {
				parts[i] = trace.FormatScaleFactor(k) + "×" + c
			}
		}
		return strings.Join(parts, "+")
	}
	return axes{Top: label(a.Top), Left: label(a.Left), Right: label(a.Right)}
}
