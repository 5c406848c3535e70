package plotfile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/quickternary-cli/internal/colmap"
	"github.com/KaramelBytes/quickternary-cli/internal/contour"
	"github.com/KaramelBytes/quickternary-cli/internal/filter"
	"github.com/KaramelBytes/quickternary-cli/internal/logging"
	"github.com/KaramelBytes/quickternary-cli/internal/table"
	"github.com/KaramelBytes/quickternary-cli/internal/trace"
)

// Entry is a built trace, or the reason it could not be built.
type Entry struct {
	Trace trace.Trace
	Err   error
}

type loaded struct {
	t   *table.Table
	err error
}

// Build resolves every enabled trace definition into a pipeline trace. Each
// data source is read at most once. A definition that cannot be built yields
// an Entry with Err set; only context cancellation fails the whole build.
func (p *Plot) Build(ctx context.Context, opt table.Options) ([]Entry, error) {
	apexes, err := p.ResolveApexes()
	if err != nil {
		return nil, err
	}
	cache := map[string]loaded{}
	tableFor := func(name string) (*table.Table, error) {
		if l, ok := cache[name]; ok {
			return l.t, l.err
		}
		t, err := p.loadTable(ctx, name, opt)
		cache[name] = loaded{t, err}
		return t, err
	}

	var out []Entry
	for i, def := range p.Traces {
		if def.Disabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := def.ID
		if id == "" {
			id = fmt.Sprintf("trace-%d", i+1)
		}
		t, err := p.buildTrace(def, id, apexes, tableFor)
		if err != nil {
			err = &trace.Error{TraceID: id, Stage: trace.StageLoad, Err: err}
		}
		out = append(out, Entry{Trace: t, Err: err})
	}
	return out, nil
}

func (p *Plot) loadTable(ctx context.Context, name string, opt table.Options) (*table.Table, error) {
	src, err := p.Source(name)
	if err != nil {
		return nil, err
	}
	loc := src.Path
	if !strings.Contains(loc, "://") && !filepath.IsAbs(loc) {
		loc = filepath.Join(p.Dir(), loc)
	}
	if src.Sheet != "" {
		opt.SheetName = src.Sheet
	}
	if src.HeaderRow != nil {
		opt.HeaderRow = *src.HeaderRow
	}
	if src.Delimiter != "" {
		d := src.Delimiter
		if d == `\t` || strings.EqualFold(d, "tab") {
			d = "\t"
		}
		r, _ := utf8.DecodeRuneInString(d)
		opt.Delimiter = r
	}
	logging.Debugf("loading data source %s from %s", name, loc)
	return table.Load(ctx, loc, opt)
}

func (p *Plot) buildTrace(def *TraceDef, id string, apexes trace.Apexes, tableFor func(string) (*table.Table, error)) (trace.Trace, error) {
	t := trace.Trace{
		ID:           id,
		Name:         def.Name,
		Kind:         def.Kind,
		Apexes:       apexes,
		Scale:        p.Scale,
		Molar:        def.Molar,
		Formulas:     p.Formulas,
		Filters:      append([]filter.Spec(nil), def.Filters...),
		Heatmap:      def.Heatmap,
		Sizemap:      def.Sizemap,
		RGB:          def.RGB,
		HoverColumns: def.Hover,
		Uncertainty:  def.Uncertainty,
		Seed:         def.Seed,
		Style:        trace.DefaultStyle(),
	}
	if t.Name == "" {
		t.Name = id
	}
	if t.Kind == "" {
		t.Kind = trace.Standard
	}
	if def.Style != nil {
		t.Style = mergeStyle(t.Style, *def.Style)
	}
	for j := range t.Filters {
		if t.Filters[j].ID == "" {
			t.Filters[j].ID = fmt.Sprintf("f%d", j+1)
		}
	}
	if def.Density != nil {
		d, err := def.Density.resolve()
		if err != nil {
			return t, err
		}
		t.Density = d
	}

	switch t.Kind {
	case trace.Bootstrap:
		if def.Contour != "" {
			level, err := contour.ParseLevel(def.Contour)
			if err != nil {
				return t, err
			}
			t.ContourLevel = level
		}
		src, err := p.sourceRow(def, apexes, tableFor)
		if err != nil {
			return t, err
		}
		t.Source = src
	default:
		if def.Data == "" {
			return t, errors.New("no data source")
		}
		tbl, err := tableFor(def.Data)
		if err != nil {
			return t, err
		}
		t.Table = tbl
	}
	return t, nil
}

// sourceRow collects the apex values of a bootstrap trace. Inline values win
// over a referenced row.
func (p *Plot) sourceRow(def *TraceDef, apexes trace.Apexes, tableFor func(string) (*table.Table, error)) (colmap.Map[float64], error) {
	s := def.Source
	if s == nil {
		return colmap.Map[float64]{}, errors.New("bootstrap trace has no source")
	}
	if s.Values.Len() > 0 {
		return s.Values, nil
	}
	if s.Row == nil {
		return colmap.Map[float64]{}, errors.New("bootstrap source needs a row or values")
	}
	name := s.Data
	if name == "" {
		name = def.Data
	}
	tbl, err := tableFor(name)
	if err != nil {
		return colmap.Map[float64]{}, err
	}
	row := *s.Row
	if row < 0 || row >= tbl.Len() {
		return colmap.Map[float64]{}, fmt.Errorf("source row %d out of range [0, %d)", row, tbl.Len())
	}
	var out colmap.Map[float64]
	for _, c := range apexes.All() {
		col, err := tbl.Column(c)
		if err != nil {
			return colmap.Map[float64]{}, err
		}
		if !col.Numeric() || col.Missing(row) {
			return colmap.Map[float64]{}, fmt.Errorf("source row %d: column %q has no numeric value", row, c)
		}
		out.Set(c, col.Float(row))
	}
	return out, nil
}

func (d *DensityDef) resolve() (*trace.DensityContour, error) {
	out := &trace.DensityContour{Name: d.Name, Color: d.Color, Thickness: d.Thickness, LineStyle: d.LineStyle}
	for _, s := range d.Levels {
		level, err := contour.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("density: %w", err)
		}
		out.Levels = append(out.Levels, level)
	}
	return out, nil
}

// mergeStyle overlays the non-zero fields of s on base.
func mergeStyle(base, s trace.Style) trace.Style {
	if s.Color != "" {
		base.Color = s.Color
	}
	if s.Size != 0 {
		base.Size = s.Size
	}
	if s.Shape != "" {
		base.Shape = s.Shape
	}
	if s.Opacity != 0 {
		base.Opacity = s.Opacity
	}
	if s.OutlineColor != "" {
		base.OutlineColor = s.OutlineColor
	}
	if s.OutlineThickness != 0 {
		base.OutlineThickness = s.OutlineThickness
	}
	if s.LineStyle != "" {
		base.LineStyle = s.LineStyle
	}
	return base
}
