package trace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/KaramelBytes/quickternary-cli/internal/barycentric"
	"github.com/KaramelBytes/quickternary-cli/internal/chem"
	"github.com/KaramelBytes/quickternary-cli/internal/colmap"
	"github.com/KaramelBytes/quickternary-cli/internal/contour"
	"github.com/KaramelBytes/quickternary-cli/internal/filter"
	"github.com/KaramelBytes/quickternary-cli/internal/logging"
	"github.com/KaramelBytes/quickternary-cli/internal/montecarlo"
	"github.com/KaramelBytes/quickternary-cli/internal/table"
	"github.com/KaramelBytes/quickternary-cli/internal/visual"
)

// Pipeline recomputes traces. It holds configuration only; every run works
// on fresh copies of its inputs.
type Pipeline struct {
	Resolver   chem.Resolver
	Total      float64
	Samples    int
	Contour    contour.Options
	Colorscale string
}

// DefaultPipeline returns a pipeline normalizing to 100 with 10,000
// bootstrap draws.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Total:      100,
		Samples:    montecarlo.DefaultSamples,
		Contour:    contour.DefaultOptions(),
		Colorscale: "Viridis",
	}
}

// frame is the intermediate state passed between stages: one entry per
// surviving point.
type frame struct {
	rows   []int
	apexes [3][]float64
	points []barycentric.Point
}

// Run computes every trace in order. A failing trace yields a Result with Err
// set and never stops the others. Cancelling ctx stops before the next trace;
// traces not reached are returned with the context error.
func (p Pipeline) Run(ctx context.Context, traces []Trace) []Result {
	out := make([]Result, len(traces))
	for i := range traces {
		if err := ctx.Err(); err != nil {
			out[i] = Result{TraceID: traces[i].ID, Name: traces[i].Name, Kind: traces[i].Kind, Err: err}
			continue
		}
		out[i] = p.RunTrace(traces[i])
	}
	return out
}

// RunTrace computes a single trace, converting panics into a failure for
// that trace.
func (p Pipeline) RunTrace(t Trace) (res Result) {
	defer logging.TimeTrack(time.Now(), "trace "+t.ID)
	if t.Kind == "" {
		t.Kind = Standard
	}
	res = Result{TraceID: t.ID, Name: t.Name, Kind: t.Kind}
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("trace %s: recovered from panic: %v", t.ID, r)
			res = Result{TraceID: t.ID, Name: t.Name, Kind: t.Kind,
				Err: &Error{TraceID: t.ID, Stage: "internal", Err: fmt.Errorf("%v", r)}}
		}
	}()
	if err := t.Validate(); err != nil {
		res.Err = &Error{TraceID: t.ID, Stage: StageValidate, Err: err}
		return res
	}
	p = p.withDefaults()
	var err error
	if t.Kind == Bootstrap {
		err = p.bootstrap(&t, &res)
	} else {
		err = p.standard(&t, &res)
	}
	if err != nil {
		return Result{TraceID: t.ID, Name: t.Name, Kind: t.Kind, Warnings: res.Warnings, Err: err}
	}
	return res
}

func (p Pipeline) withDefaults() Pipeline {
	d := DefaultPipeline()
	if !(p.Total > 0) {
		p.Total = d.Total
	}
	if p.Samples <= 0 {
		p.Samples = d.Samples
	}
	if p.Colorscale == "" {
		p.Colorscale = d.Colorscale
	}
	return p
}

func (p Pipeline) standard(t *Trace, res *Result) error {
	rows, err := filter.Apply(t.Table, t.Table.Rows(), t.Filters)
	if err != nil {
		return t.filterError(err)
	}
	f := &frame{rows: rows}
	get := func(name string) ([]float64, error) {
		col, err := t.Table.Column(name)
		if err != nil {
			return nil, &MissingColumnError{TraceID: t.ID, Column: name, Err: err}
		}
		if !col.Numeric() {
			res.Warnings = append(res.Warnings, fmt.Errorf("trace %s: column %q is not numeric", t.ID, name))
		}
		vals := make([]float64, len(rows))
		for i, r := range rows {
			vals[i] = col.Float(r)
		}
		return vals, nil
	}
	if err := p.sumApexes(t, f, get, res); err != nil {
		return err
	}
	var flagged []int
	f.points, flagged = barycentric.NormalizeAll(f.apexes[0], f.apexes[1], f.apexes[2], p.Total)
	if len(flagged) > 0 {
		res.Warnings = append(res.Warnings, fmt.Errorf("trace %s: %d row(s) have a zero or missing apex sum", t.ID, len(flagged)))
	}

	marker, perm, err := p.encode(t, f)
	if err != nil {
		return err
	}
	cols := t.hoverColumns()
	hover, err := t.hoverData(cols, f.rows)
	if err != nil {
		return err
	}

	pts := visual.Permute(f.points, perm)
	res.A, res.B, res.C = split(pts, 1)
	res.Marker = marker
	res.HoverData = visual.Permute(hover, perm)
	res.HoverTemplate = t.hoverTemplate(cols)
	res.RowIndex = visual.Permute(f.rows, perm)

	if t.Density != nil {
		cs, err := p.densityContours(t, f.points)
		if err != nil {
			res.Warnings = append(res.Warnings, err)
		}
		res.Contours = cs
	}
	return nil
}

func (t *Trace) filterError(err error) error {
	var ve *filter.ValueError
	if errors.As(err, &ve) {
		return &FilterValueError{TraceID: t.ID, FilterID: ve.FilterID, Column: ve.Column, Err: err}
	}
	var mc *table.MissingColumnError
	if errors.As(err, &mc) {
		return &MissingColumnError{TraceID: t.ID, Column: mc.Column, Err: err}
	}
	return &Error{TraceID: t.ID, Stage: StageFilter, Err: err}
}

// sumApexes scales each apex column, optionally converts it to molar
// proportions and sums it into its apex. Columns whose formula cannot be
// resolved are skipped with a warning.
func (p Pipeline) sumApexes(t *Trace, f *frame, get func(string) ([]float64, error), res *Result) error {
	for a, cols := range t.Apexes.lists() {
		var sum []float64
		for _, name := range cols {
			vals, err := get(name)
			if err != nil {
				return err
			}
			if k := t.Scale.GetOr(name, 1); k != 1 {
				for i := range vals {
					vals[i] *= k
				}
			}
			if t.Molar {
				formula, err := p.formulaFor(t, name)
				if err != nil {
					res.Warnings = append(res.Warnings, err)
					logging.Warnf("%v", err)
					continue
				}
				if vals, err = chem.ConvertColumn(vals, formula); err != nil {
					res.Warnings = append(res.Warnings, &InvalidFormulaError{TraceID: t.ID, Column: name, Formula: formula, Err: err})
					continue
				}
			}
			if sum == nil {
				sum = vals
				continue
			}
			for i := range sum {
				sum[i] += vals[i]
			}
		}
		if sum == nil {
			// every column was skipped
			sum = make([]float64, len(f.rows))
		}
		f.apexes[a] = sum
	}
	return nil
}

func (p Pipeline) formulaFor(t *Trace, column string) (string, error) {
	configured := t.Formulas.GetOr(column, "")
	formula, err := p.Resolver.For(column, configured)
	if err == nil {
		return formula, nil
	}
	var inv *chem.InvalidFormulaError
	if configured != "" && errors.As(err, &inv) {
		return "", &InvalidFormulaError{TraceID: t.ID, Column: column, Formula: configured, Err: err}
	}
	attempted := configured
	var ue *chem.UnresolvedError
	if attempted == "" && errors.As(err, &ue) && len(ue.Tried) > 0 {
		attempted = ue.Tried[len(ue.Tried)-1]
	}
	return "", &MolarConversionError{TraceID: t.ID, Column: column, Formula: attempted, Err: err}
}

func split(pts []barycentric.Point, scale float64) (a, b, c Series) {
	a, b, c = make(Series, len(pts)), make(Series, len(pts)), make(Series, len(pts))
	for i, pt := range pts {
		a[i], b[i], c[i] = pt.A*scale, pt.B*scale, pt.C*scale
	}
	return a, b, c
}

// encode builds the marker and the draw-order permutation.
func (p Pipeline) encode(t *Trace, f *frame) (*Marker, []int, error) {
	st := t.Style
	m := &Marker{Symbol: st.Shape, Opacity: st.Opacity, Size: st.Size, Color: visual.HexToRGBA(st.Color)}
	var keys []visual.SortKey
	var colors []string
	var colorVals, sizes []float64

	values := func(name string) ([]float64, error) {
		col, err := t.Table.Column(name)
		if err != nil {
			return nil, &MissingColumnError{TraceID: t.ID, Column: name, Err: err}
		}
		if !col.Numeric() {
			return nil, &Error{TraceID: t.ID, Stage: StageEncode, Err: fmt.Errorf("column %q is not numeric", name)}
		}
		out := make([]float64, len(f.rows))
		for i, r := range f.rows {
			out[i] = col.Float(r)
		}
		return out, nil
	}

	switch {
	case t.RGB != nil:
		apexes := map[string][]float64{"top": pluck(f.points, 0), "left": pluck(f.points, 1), "right": pluck(f.points, 2)}
		r, g, b, err := t.RGB.Channels(apexes)
		if err != nil {
			return nil, nil, &Error{TraceID: t.ID, Stage: StageEncode, Err: err}
		}
		colors = visual.RGBColors(r, g, b)
		m.Color = ""
	case t.Heatmap != nil:
		hm := t.Heatmap
		raw, err := values(hm.Column)
		if err != nil {
			return nil, nil, err
		}
		colorVals = visual.Transform(raw, hm.Log)
		cmin, cmax := hm.Min, hm.Max
		if cmin == 0 && cmax == 0 {
			if lo, hi, ok := visual.Bounds(colorVals); ok {
				cmin, cmax = lo, hi
			}
		}
		scale := hm.Colorscale
		if scale == "" {
			scale = p.Colorscale
		}
		if colors, err = visual.MapColors(colorVals, cmin, cmax, scale, hm.Reverse); err != nil {
			return nil, nil, &Error{TraceID: t.ID, Stage: StageEncode, Err: err}
		}
		m.Color = ""
		m.Colorscale = visual.ScaleName(scale, hm.Reverse)
		m.CMin, m.CMax = &cmin, &cmax
		keys = append(keys, visual.SortKey{Values: colorVals, Mode: hm.Sort})
	}

	if sm := t.Sizemap; sm != nil {
		raw, err := values(sm.Column)
		if err != nil {
			return nil, nil, err
		}
		sizes, m.SizeRef = sm.Sizes(raw)
		m.Size = 0
		m.SizeMin = sm.Min
		keys = append(keys, visual.SortKey{Values: sizes, Mode: sm.Sort})
	} else {
		m.Line = &Line{Color: visual.HexToRGBA(st.OutlineColor), Width: st.OutlineThickness / 10}
	}

	seed := t.Seed
	if seed == 0 {
		seed = montecarlo.DeriveSeed(nil, t.ID)
	}
	perm := visual.Order(len(f.rows), rand.New(rand.NewSource(seed)), keys...)
	m.Colors = visual.Permute(colors, perm)
	m.ColorValues = visual.Permute(colorVals, perm)
	m.Sizes = visual.Permute(sizes, perm)
	return m, perm, nil
}

func pluck(pts []barycentric.Point, i int) []float64 {
	out := make([]float64, len(pts))
	for j, p := range pts {
		out[j] = [3]float64{p.A, p.B, p.C}[i]
	}
	return out
}

func (p Pipeline) densityContours(t *Trace, pts []barycentric.Point) ([]Contour, error) {
	d := t.Density
	levels := d.Levels
	if len(levels) == 0 {
		levels = DefaultDensityLevels
	}
	xs, ys := cartesian(pts)
	polys, err := contour.Extract(xs, ys, levels, p.Contour)
	if err != nil {
		return nil, &ContourExtractionError{TraceID: t.ID, Level: levels[0], Err: err}
	}
	color := d.Color
	if color == "" {
		color = t.Style.Color
	}
	width := d.Thickness
	if width == 0 {
		width = 1
	}
	out := make([]Contour, len(polys))
	for i, poly := range polys {
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("%s density for %s", contour.LevelLabel(levels[i]), t.Name)
		}
		a, b, c := split(poly.ToTernary(), p.Total)
		out[i] = Contour{
			Name: name, Level: levels[i], A: a, B: b, C: c,
			Line: Line{Color: visual.HexToRGBA(color), Width: width, Dash: d.LineStyle},
		}
	}
	return out, nil
}

func cartesian(pts []barycentric.Point) (xs, ys []float64) {
	xs = make([]float64, 0, len(pts))
	ys = make([]float64, 0, len(pts))
	for _, pt := range pts {
		if !pt.Valid() {
			continue
		}
		x, y := barycentric.ToCartesian(pt)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys
}

func (p Pipeline) bootstrap(t *Trace, res *Result) error {
	var ms []montecarlo.Measurement
	for _, name := range t.Apexes.All() {
		v, ok := t.Source.Get(name)
		if !ok {
			return &MissingColumnError{TraceID: t.ID, Column: name}
		}
		k := t.Scale.GetOr(name, 1)
		ms = append(ms, montecarlo.Measurement{
			Column: name,
			Value:  v * k,
			Sigma:  t.Uncertainty.GetOr(name, 0) * math.Abs(k),
		})
	}
	seed := t.Seed
	if seed == 0 {
		seed = montecarlo.DeriveSeed(ms, t.ID)
	}
	sim, err := montecarlo.Sampler{N: p.Samples, Seed: seed}.Simulate(ms)
	if err != nil {
		return &Error{TraceID: t.ID, Stage: StageSimulate, Err: err}
	}

	f := &frame{rows: make([]int, sim.Len())}
	get := func(name string) ([]float64, error) {
		d, ok := sim.Column(name)
		if !ok {
			return nil, &MissingColumnError{TraceID: t.ID, Column: name}
		}
		return append([]float64(nil), d...), nil
	}
	// scaling already happened on the source row
	scaled := *t
	scaled.Scale = colmap.Map[float64]{}
	if err := p.sumApexes(&scaled, f, get, res); err != nil {
		return err
	}
	f.points, _ = barycentric.NormalizeAll(f.apexes[0], f.apexes[1], f.apexes[2], 1)

	level := t.ContourLevel
	if level == 0 {
		level = contour.OneSigma
	}
	xs, ys := cartesian(f.points)
	polys, err := contour.Extract(xs, ys, []float64{level}, p.Contour)
	if err != nil {
		return &ContourExtractionError{TraceID: t.ID, Level: level, Err: err}
	}
	res.A, res.B, res.C = split(polys[0].ToTernary(), p.Total)
	res.Line = &Line{
		Color: visual.HexToRGBA(t.Style.OutlineColor),
		Width: t.Style.OutlineThickness,
		Dash:  t.Style.LineStyle,
	}
	res.HoverTemplate = t.bootstrapHover(level)
	return nil
}
