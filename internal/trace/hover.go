package trace

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/quickternary-cli/internal/contour"
)

// FormatScaleFactor renders a scale factor with no more decimals than it
// needs, up to three.
func FormatScaleFactor(f float64) string {
	r := roundTo(f, 4)
	switch {
	case r == math.Trunc(r):
		return strconv.FormatFloat(r, 'f', 0, 64)
	case r == roundTo(r, 1):
		return strconv.FormatFloat(r, 'f', 1, 64)
	case r == roundTo(r, 2):
		return strconv.FormatFloat(r, 'f', 2, 64)
	}
	return strconv.FormatFloat(r, 'f', 3, 64)
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// hoverColumns picks the columns shown on hover: the configured list, else
// apex columns followed by encoding and filter columns.
func (t *Trace) hoverColumns() []string {
	if len(t.HoverColumns) > 0 {
		return t.HoverColumns
	}
	cols := t.Apexes.All()
	add := func(c string) {
		if c == "" {
			return
		}
		for _, have := range cols {
			if have == c {
				return
			}
		}
		cols = append(cols, c)
	}
	if t.Heatmap != nil {
		add(t.Heatmap.Column)
	}
	if t.Sizemap != nil {
		add(t.Sizemap.Column)
	}
	for _, f := range t.Filters {
		add(f.Column)
	}
	return cols
}

// hoverTemplate builds one line per column with positional placeholders.
func (t *Trace) hoverTemplate(cols []string) string {
	var b strings.Builder
	for i, c := range cols {
		label := c
		if k, ok := t.Scale.Get(c); ok && k != 1 {
			label = FormatScaleFactor(k) + "×" + c
		}
		fmt.Fprintf(&b, "<br><b>%s:</b> %%{customdata[%d]}", label, i)
	}
	b.WriteString("<extra></extra>")
	return b.String()
}

// hoverData returns one row of display values per table row. Numbers are
// rounded to four decimals.
func (t *Trace) hoverData(cols []string, rows []int) ([][]string, error) {
	out := make([][]string, len(rows))
	for i := range out {
		out[i] = make([]string, len(cols))
	}
	for j, name := range cols {
		col, err := t.Table.Column(name)
		if err != nil {
			return nil, &MissingColumnError{TraceID: t.ID, Column: name, Err: err}
		}
		for i, r := range rows {
			if col.Numeric() && !col.Missing(r) {
				out[i][j] = strconv.FormatFloat(roundTo(col.Float(r), 4), 'f', -1, 64)
				continue
			}
			out[i][j] = col.String(r)
		}
	}
	return out, nil
}

// bootstrapHover is the static hover text of a bootstrap contour.
func (t *Trace) bootstrapHover(level float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Contour:</b> %s<br><br>", contour.LevelLabel(level))
	if t.Name != "" {
		fmt.Fprintf(&b, "<b>Trace:</b> %s<br>", t.Name)
	}
	if t.Uncertainty.Len() > 0 {
		b.WriteString("<br><b>Component Uncertainties:</b><br>")
		t.Uncertainty.Each(func(col string, sigma float64) {
			label := col
			if k, ok := t.Scale.Get(col); ok && k != 1 {
				label = FormatScaleFactor(k) + "× " + col
			}
			fmt.Fprintf(&b, "%s: ±%s<br>", label, strconv.FormatFloat(sigma, 'g', -1, 64))
		})
	}
	b.WriteString("<extra></extra>")
	return b.String()
}
