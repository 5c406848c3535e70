package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/KaramelBytes/quickternary-cli/internal/filter"
	"github.com/KaramelBytes/quickternary-cli/internal/plotfile"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var registerInit sync.Once

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns its error.
func execCmd(t *testing.T, args ...string) error {
	t.Helper()
	registerInit.Do(func() { cobra.OnInitialize(loadConfig) })
	resetFlags(rootCmd)
	cfg = nil
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(t, args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })
	os.Setenv("HOME", home)
	return home
}

type renderedDoc struct {
	Title string  `json:"title"`
	Total float64 `json:"total"`
	Axes  struct {
		Top, Left, Right string
	} `json:"axes"`
	Traces []struct {
		ID            string      `json:"id"`
		Kind          string      `json:"kind"`
		A             []*float64  `json:"a"`
		B             []*float64  `json:"b"`
		C             []*float64  `json:"c"`
		HoverData     [][]string  `json:"customdata"`
		HoverTemplate string      `json:"hovertemplate"`
		Marker        interface{} `json:"marker"`
	} `json:"traces"`
	Failures []struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
	} `json:"failures"`
}

func readDoc(t *testing.T, path string) renderedDoc {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc renderedDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	return doc
}

func TestCLI_Init_Render(t *testing.T) {
	home := withHome(t)
	dir := filepath.Join(home, "plot")

	runCmd(t, "init", dir, "--title", "Integration")
	if _, err := os.Stat(filepath.Join(dir, "quickternary.yaml")); err != nil {
		t.Fatalf("plot file not created: %v", err)
	}
	// refuses to overwrite
	if err := execCmd(t, "init", dir); err == nil {
		t.Fatalf("expected init to refuse an existing plot file")
	}
	runCmd(t, "init", dir, "--force")

	out := filepath.Join(home, "out.json")
	runCmd(t, "render", dir, "-o", out, "--samples", "2000", "--grid-size", "40")
	doc := readDoc(t, out)
	if doc.Title != "Volcanic series" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	if doc.Axes.Top != "Al2O3" || doc.Axes.Left != "CaO+Na2O+K2O" || doc.Axes.Right != "FeOT+MgO" {
		t.Fatalf("unexpected axes %+v", doc.Axes)
	}
	if len(doc.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", doc.Failures)
	}
	if len(doc.Traces) != 3 {
		t.Fatalf("expected 3 traces, got %d", len(doc.Traces))
	}
	all := doc.Traces[0]
	if len(all.A) != 8 || len(all.HoverData) != 8 {
		t.Fatalf("expected 8 points, got %d/%d", len(all.A), len(all.HoverData))
	}
	for i := range all.A {
		sum := *all.A[i] + *all.B[i] + *all.C[i]
		if sum < 99.999 || sum > 100.001 {
			t.Fatalf("point %d sums to %v", i, sum)
		}
	}
	basalts := doc.Traces[1]
	if len(basalts.A) != 3 {
		t.Fatalf("expected 3 basalts, got %d", len(basalts.A))
	}
	boot := doc.Traces[2]
	if boot.Kind != "bootstrap" || len(boot.A) < 12 {
		t.Fatalf("unexpected bootstrap trace: kind=%s points=%d", boot.Kind, len(boot.A))
	}
	if !strings.HasPrefix(boot.HoverTemplate, "<b>Contour:</b> 1-sigma (68.27%)") {
		t.Fatalf("unexpected bootstrap hover %q", boot.HoverTemplate)
	}

	runCmd(t, "list", dir)
}

func TestCLI_RenderReportsFailedTrace(t *testing.T) {
	home := withHome(t)
	dir := filepath.Join(home, "plot")
	runCmd(t, "init", dir)

	plotPath := filepath.Join(dir, "quickternary.yaml")
	p, err := plotfile.Load(plotPath)
	if err != nil {
		t.Fatal(err)
	}
	p.Traces = append(p.Traces, &plotfile.TraceDef{
		ID:   "broken",
		Name: "Broken",
		Data: "sample",
		Filters: []filter.Spec{
			{Column: "SiO2", Op: filter.Greater, Operands: filter.Operands{"lots"}},
		},
	})
	if err := p.Save(); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(home, "out.json")
	runCmd(t, "render", plotPath, "-o", out, "--samples", "500", "--grid-size", "30", "--trace", "Volcanics", "--trace", "broken")
	doc := readDoc(t, out)
	if len(doc.Traces) != 1 || len(doc.Failures) != 1 {
		t.Fatalf("expected 1 trace and 1 failure, got %d/%d", len(doc.Traces), len(doc.Failures))
	}
	if doc.Failures[0].ID != "broken" || doc.Failures[0].Stage != "filter" {
		t.Fatalf("unexpected failure %+v", doc.Failures[0])
	}

	if err := execCmd(t, "render", plotPath, "-o", out, "--trace", "broken", "--strict"); err == nil {
		t.Fatalf("expected render to fail when only a broken trace is selected")
	}
}

func TestCLI_RenderWhere(t *testing.T) {
	home := withHome(t)
	dir := filepath.Join(home, "plot")
	runCmd(t, "init", dir)

	out := filepath.Join(home, "out.json")
	runCmd(t, "render", dir, "-o", out, "--trace", "Volcanics", "--where", "Rock is one of rhyolite dacite")
	doc := readDoc(t, out)
	if len(doc.Traces) != 1 || len(doc.Traces[0].A) != 3 {
		t.Fatalf("expected 3 filtered points, got %+v", doc.Traces)
	}

	if err := execCmd(t, "render", dir, "-o", out, "--where", "Rock"); err == nil {
		t.Fatalf("expected malformed --where to fail")
	}
}

func TestCLI_ConfigSet(t *testing.T) {
	home := withHome(t)
	runCmd(t, "config", "set", "samples", "500")
	runCmd(t, "config", "set", "colorscale", "Plasma")
	b, err := os.ReadFile(filepath.Join(home, ".quickternary", "config.yaml"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(b), "samples: 500") || !strings.Contains(string(b), "colorscale: Plasma") {
		t.Fatalf("unexpected config:\n%s", b)
	}
	runCmd(t, "config", "show")

	for _, args := range [][]string{
		{"config", "set", "nope", "1"},
		{"config", "set", "samples", "many"},
		{"config", "set", "samples", "3"},
		{"config", "set", "colorscale", "Rainbow"},
		{"config", "set", "log_level", "loud"},
	} {
		if err := execCmd(t, args...); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestCLI_InspectAndFormula(t *testing.T) {
	home := withHome(t)
	dir := filepath.Join(home, "plot")
	runCmd(t, "init", dir)

	summary := filepath.Join(home, "summary.md")
	runCmd(t, "inspect", filepath.Join(dir, "sample.csv"), "--formulas", "-o", summary)
	b, err := os.ReadFile(summary)
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	md := string(b)
	for _, want := range []string{"Rows: 8", "[formula SiO2]", "[formula FeO]", "Rock: categorical"} {
		if !strings.Contains(md, want) {
			t.Fatalf("summary missing %q:\n%s", want, md)
		}
	}

	runCmd(t, "formula", "Fe2O3", "FeOT", "Ca(OH)2")
	if err := execCmd(t, "formula", "Xq2"); err == nil {
		t.Fatalf("expected unknown element to fail")
	}
}
