// Package trace turns trace definitions into plot-ready series: apex arrays,
// marker encodings and hover data for point clouds, or confidence contours
// for bootstrap traces.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/quickternary-cli/internal/colmap"
	"github.com/KaramelBytes/quickternary-cli/internal/filter"
	"github.com/KaramelBytes/quickternary-cli/internal/table"
	"github.com/KaramelBytes/quickternary-cli/internal/visual"
)

// Kind selects the pipeline variant.
type Kind string

const (
	Standard  Kind = "standard"
	Bootstrap Kind = "bootstrap"
)

// Presets are the built-in ternary types. Each names the top, left and right
// apex columns separated by spaces, with "+" joining summed columns.
var Presets = []string{
	"Al2O3 CaO+Na2O+K2O FeOT+MgO",
	"SiO2+Al2O3 CaO+Na2O+K2O FeOT+MgO",
	"Al2O3 CaO+Na2O K2O",
}

// Apexes lists the source columns summed into each apex.
type Apexes struct {
	Top   []string `yaml:"top" json:"top"`
	Left  []string `yaml:"left" json:"left"`
	Right []string `yaml:"right" json:"right"`
}

// ParseApexes reads a ternary type such as "Al2O3 CaO+Na2O+K2O FeOT+MgO".
func ParseApexes(ternaryType string) (Apexes, error) {
	if strings.EqualFold(strings.TrimSpace(ternaryType), "custom") {
		return Apexes{}, errors.New(`ternary type "Custom" needs explicit top, left and right columns`)
	}
	parts := strings.Fields(ternaryType)
	if len(parts) != 3 {
		return Apexes{}, fmt.Errorf("ternary type %q: expected three apexes separated by spaces", ternaryType)
	}
	split := func(s string) []string {
		var out []string
		for _, c := range strings.Split(s, "+") {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
		return out
	}
	a := Apexes{Top: split(parts[0]), Left: split(parts[1]), Right: split(parts[2])}
	return a, a.Validate()
}

// All returns every apex column, top first.
func (a Apexes) All() []string {
	out := make([]string, 0, len(a.Top)+len(a.Left)+len(a.Right))
	out = append(out, a.Top...)
	out = append(out, a.Left...)
	return append(out, a.Right...)
}

func (a Apexes) lists() [3][]string { return [3][]string{a.Top, a.Left, a.Right} }

// Validate rejects empty apexes and columns assigned more than once.
func (a Apexes) Validate() error {
	seen := map[string]string{}
	for i, cols := range a.lists() {
		name := apexNames[i]
		if len(cols) == 0 {
			return fmt.Errorf("%s apex has no columns", name)
		}
		for _, c := range cols {
			if prev, ok := seen[c]; ok {
				return fmt.Errorf("column %q assigned to both %s and %s apex", c, prev, name)
			}
			seen[c] = name
		}
	}
	return nil
}

var apexNames = [3]string{"top", "left", "right"}

// Style holds the fixed appearance of a trace.
type Style struct {
	Color            string  `yaml:"color,omitempty" json:"color,omitempty"`
	Size             float64 `yaml:"size,omitempty" json:"size,omitempty"`
	Shape            string  `yaml:"shape,omitempty" json:"shape,omitempty"`
	Opacity          float64 `yaml:"opacity,omitempty" json:"opacity,omitempty"`
	OutlineColor     string  `yaml:"outline_color,omitempty" json:"outline_color,omitempty"`
	OutlineThickness float64 `yaml:"outline_thickness,omitempty" json:"outline_thickness,omitempty"`
	LineStyle        string  `yaml:"line_style,omitempty" json:"line_style,omitempty"`
}

// DefaultStyle mirrors the defaults of a new trace.
func DefaultStyle() Style {
	return Style{
		Color:            "#1f77b4",
		Size:             6,
		Shape:            "circle",
		Opacity:          1,
		OutlineColor:     "#000000",
		OutlineThickness: 1,
		LineStyle:        "solid",
	}
}

// DensityContour asks for density outlines over a standard trace's own points.
type DensityContour struct {
	Levels    []float64 `yaml:"levels,omitempty" json:"levels,omitempty"`
	Name      string    `yaml:"name,omitempty" json:"name,omitempty"`
	Color     string    `yaml:"color,omitempty" json:"color,omitempty"`
	Thickness float64   `yaml:"thickness,omitempty" json:"thickness,omitempty"`
	LineStyle string    `yaml:"line_style,omitempty" json:"line_style,omitempty"`
}

// DefaultDensityLevels are used when a density contour lists no levels.
var DefaultDensityLevels = []float64{0.6, 0.7, 0.8}

// Trace is one series definition. Standard traces read rows from Table;
// bootstrap traces read a single Source row and its Uncertainty.
type Trace struct {
	ID   string
	Name string
	Kind Kind

	Table       *table.Table
	Source      colmap.Map[float64]
	Uncertainty colmap.Map[float64]

	Apexes   Apexes
	Scale    colmap.Map[float64]
	Molar    bool
	Formulas colmap.Map[string]
	Filters  []filter.Spec

	Heatmap *visual.Heatmap
	Sizemap *visual.Sizemap
	RGB     *visual.RGBMapping
	Density *DensityContour

	// ContourLevel is the confidence mass of a bootstrap contour in (0, 1].
	ContourLevel float64
	Style        Style
	HoverColumns []string
	Seed         int64
}

// Validate checks the definition before any data is touched.
func (t *Trace) Validate() error {
	if err := t.Apexes.Validate(); err != nil {
		return err
	}
	for _, k := range t.Scale.Keys() {
		if v, _ := t.Scale.Get(k); math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scale factor for %q is not a finite number", k)
		}
	}
	switch t.Kind {
	case Standard, "":
		if t.Table == nil {
			return errors.New("standard trace has no data table")
		}
	case Bootstrap:
		if t.Source.Len() == 0 {
			return errors.New("bootstrap trace has no source row")
		}
		for _, k := range t.Uncertainty.Keys() {
			if v, _ := t.Uncertainty.Get(k); math.IsNaN(v) || v < 0 {
				return fmt.Errorf("uncertainty for %q must be >= 0", k)
			}
		}
		if t.ContourLevel < 0 || t.ContourLevel > 1 {
			return fmt.Errorf("contour level %v out of range (0, 1]", t.ContourLevel)
		}
	default:
		return fmt.Errorf("unknown trace kind %q", t.Kind)
	}
	return nil
}

// Series is a numeric array whose missing values encode as JSON null.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i := range s {
		if !math.IsNaN(s[i]) && !math.IsInf(s[i], 0) {
			out[i] = &s[i]
		}
	}
	return json.Marshal(out)
}

// Line styles a contour or a marker outline.
type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width"`
	Dash  string  `json:"dash,omitempty"`
}

// Marker carries either scalar or per-point size and colour.
type Marker struct {
	Symbol      string   `json:"symbol,omitempty"`
	Opacity     float64  `json:"opacity,omitempty"`
	Size        float64  `json:"size,omitempty"`
	Sizes       Series   `json:"sizes,omitempty"`
	SizeMin     float64  `json:"sizemin,omitempty"`
	SizeRef     float64  `json:"sizeref,omitempty"`
	Color       string   `json:"color,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	ColorValues Series   `json:"color_values,omitempty"`
	Colorscale  string   `json:"colorscale,omitempty"`
	CMin        *float64 `json:"cmin,omitempty"`
	CMax        *float64 `json:"cmax,omitempty"`
	Line        *Line    `json:"line,omitempty"`
}

// Contour is a closed outline in ternary coordinates.
type Contour struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
	A     Series  `json:"a"`
	B     Series  `json:"b"`
	C     Series  `json:"c"`
	Line  Line    `json:"line"`
}

// Result is the output for one trace. A failed trace has Err set and no data.
type Result struct {
	TraceID       string     `json:"id"`
	Name          string     `json:"name"`
	Kind          Kind       `json:"kind"`
	A             Series     `json:"a"`
	B             Series     `json:"b"`
	C             Series     `json:"c"`
	Marker        *Marker    `json:"marker,omitempty"`
	Line          *Line      `json:"line,omitempty"`
	HoverData     [][]string `json:"customdata,omitempty"`
	HoverTemplate string     `json:"hovertemplate"`
	RowIndex      []int      `json:"row_index,omitempty"`
	Contours      []Contour  `json:"contours,omitempty"`
	Warnings      []error    `json:"-"`
	Err           error      `json:"-"`
}

// OK reports whether the trace rendered.
func (r *Result) OK() bool { return r.Err == nil }
