// Package plotfile reads and writes quickternary.yaml plot definitions and
// turns them into pipeline traces.
package plotfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/quickternary-cli/internal/colmap"
	"github.com/KaramelBytes/quickternary-cli/internal/filter"
	"github.com/KaramelBytes/quickternary-cli/internal/trace"
	"github.com/KaramelBytes/quickternary-cli/internal/utils"
	"github.com/KaramelBytes/quickternary-cli/internal/visual"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileName is the default plot definition name looked up by the CLI.
const FileName = "quickternary.yaml"

// Plot is a plot definition persisted on disk.
type Plot struct {
	Title string `yaml:"title"`
	// Total is the normalization target; 0 inherits the global setting.
	Total       float64             `yaml:"total,omitempty"`
	TernaryType string              `yaml:"ternary_type"`
	Apexes      *trace.Apexes       `yaml:"apexes,omitempty"`
	Scale       colmap.Map[float64] `yaml:"scale,omitempty"`
	Formulas    colmap.Map[string]  `yaml:"formulas,omitempty"`
	Data        []*DataSource       `yaml:"data"`
	Traces      []*TraceDef         `yaml:"traces"`

	// Not serialized: location of the definition file.
	path string `yaml:"-"`
}

// DataSource names a table file. Relative paths resolve against the plot
// file's directory.
type DataSource struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path"`
	Sheet     string `yaml:"sheet,omitempty"`
	HeaderRow *int   `yaml:"header_row,omitempty"`
	Delimiter string `yaml:"delimiter,omitempty"`
}

// TraceDef is one trace as written in the plot file.
type TraceDef struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	Kind        trace.Kind          `yaml:"kind,omitempty"`
	Data        string              `yaml:"data,omitempty"`
	Molar       bool                `yaml:"molar,omitempty"`
	Filters     []filter.Spec       `yaml:"filters,omitempty"`
	Heatmap     *visual.Heatmap     `yaml:"heatmap,omitempty"`
	Sizemap     *visual.Sizemap     `yaml:"sizemap,omitempty"`
	RGB         *visual.RGBMapping  `yaml:"rgb,omitempty"`
	Density     *DensityDef         `yaml:"density,omitempty"`
	Style       *trace.Style        `yaml:"style,omitempty"`
	Hover       []string            `yaml:"hover,omitempty"`
	Source      *SourceDef          `yaml:"source,omitempty"`
	Uncertainty colmap.Map[float64] `yaml:"uncertainty,omitempty"`
	Contour     string              `yaml:"contour,omitempty"`
	Seed        int64               `yaml:"seed,omitempty"`
	Disabled    bool                `yaml:"disabled,omitempty"`
}

// DensityDef requests density outlines. Levels accept the same spellings as
// a bootstrap contour ("1-sigma", "80%", "0.8").
type DensityDef struct {
	Levels    []string `yaml:"levels,omitempty"`
	Name      string   `yaml:"name,omitempty"`
	Color     string   `yaml:"color,omitempty"`
	Thickness float64  `yaml:"thickness,omitempty"`
	LineStyle string   `yaml:"line_style,omitempty"`
}

// SourceDef picks the central values of a bootstrap trace: either a data row
// (0-based, header excluded) or inline values.
type SourceDef struct {
	Data   string              `yaml:"data,omitempty"`
	Row    *int                `yaml:"row,omitempty"`
	Values colmap.Map[float64] `yaml:"values,omitempty"`
}

// New constructs an in-memory plot at path. Call Save() to persist.
func New(title, path string) *Plot {
	return &Plot{Title: title, TernaryType: trace.Presets[0], path: path}
}

// Load reads a plot definition file.
func Load(path string) (*Plot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("plot file not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read plot file: %w", err)
	}
	var p Plot
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse plot file: %w", err)
	}
	p.path = path
	return &p, nil
}

// Path returns the on-disk location of the definition.
func (p *Plot) Path() string { return p.path }

// Dir returns the directory relative data paths resolve against.
func (p *Plot) Dir() string {
	if p.path == "" {
		return "."
	}
	return filepath.Dir(p.path)
}

// Save writes the definition using an atomic write.
func (p *Plot) Save() error {
	if p.path == "" {
		return errors.New("plot path not set")
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal plot: %w", err)
	}
	return utils.SafeWriteFile(p.path, b)
}

// AssignIDs gives every trace without an id a fresh one and reports whether
// anything changed.
func (p *Plot) AssignIDs() bool {
	changed := false
	for _, t := range p.Traces {
		if strings.TrimSpace(t.ID) == "" {
			t.ID = uuid.NewString()
			changed = true
		}
	}
	return changed
}

// Trace returns the trace definition with the given id or name.
func (p *Plot) Trace(ref string) (*TraceDef, error) {
	for _, t := range p.Traces {
		if t.ID == ref || t.Name == ref {
			return t, nil
		}
	}
	return nil, fmt.Errorf("trace not found: %s", ref)
}

// Source returns the data source with the given name.
func (p *Plot) Source(name string) (*DataSource, error) {
	for _, d := range p.Data {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("data source not found: %s", name)
}

// ResolveApexes returns the apex columns from the ternary type, or the
// explicit apexes when the type is "Custom" or empty.
func (p *Plot) ResolveApexes() (trace.Apexes, error) {
	tt := strings.TrimSpace(p.TernaryType)
	if tt == "" || strings.EqualFold(tt, "custom") {
		if p.Apexes == nil {
			return trace.Apexes{}, errors.New(`ternary type "Custom" needs an apexes section`)
		}
		return *p.Apexes, p.Apexes.Validate()
	}
	return trace.ParseApexes(tt)
}

// Validate checks the structure of the definition: unique source and trace
// names, known kinds and resolvable apexes. Data files are not read.
func (p *Plot) Validate() error {
	if _, err := p.ResolveApexes(); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, d := range p.Data {
		if d.Name == "" {
			return errors.New("data source without a name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate data source %q", d.Name)
		}
		seen[d.Name] = true
	}
	ids := map[string]bool{}
	for i, t := range p.Traces {
		if t.ID != "" {
			if ids[t.ID] {
				return fmt.Errorf("duplicate trace id %q", t.ID)
			}
			ids[t.ID] = true
		}
		switch t.Kind {
		case "", trace.Standard, trace.Bootstrap:
		default:
			return fmt.Errorf("trace %d: unknown kind %q", i+1, t.Kind)
		}
	}
	return nil
}
