// Package table holds column-oriented measurement tables loaded from CSV or
// XLSX files.
package table

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aclements/go-moremath/stats"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
	KindText        Kind = "text"
)

// MissingColumnError is returned when a referenced column is absent.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("column %q not found in %s", e.Column, e.Table)
	}
	return fmt.Sprintf("column %q not found", e.Column)
}

// Column is a single named column. Raw keeps the trimmed cell text; Num holds
// the parsed value or NaN when the cell is missing or not numeric.
type Column struct {
	Name string
	Kind Kind
	Raw  []string
	Num  []float64
}

// Numeric reports whether the column was inferred as numeric.
func (c *Column) Numeric() bool { return c.Kind == KindNumeric }

// Missing reports whether row i holds no value.
func (c *Column) Missing(i int) bool { return c.Raw[i] == "" }

// Float returns the numeric value at row i (NaN if missing).
func (c *Column) Float(i int) float64 { return c.Num[i] }

// String returns the textual value at row i.
func (c *Column) String(i int) string { return c.Raw[i] }

// Stats summarizes the non-missing numeric values of a column.
type Stats struct {
	Count  int
	Min    float64
	Median float64
	Max    float64
	Mean   float64
}

// Stats returns min/median/max over the given rows, or all rows when rows is nil.
func (c *Column) Stats(rows []int) Stats {
	var xs []float64
	each(rows, len(c.Num), func(i int) {
		if !math.IsNaN(c.Num[i]) {
			xs = append(xs, c.Num[i])
		}
	})
	if len(xs) == 0 {
		return Stats{Min: math.NaN(), Median: math.NaN(), Max: math.NaN(), Mean: math.NaN()}
	}
	s := (&stats.Sample{Xs: xs}).Sort()
	lo, hi := s.Bounds()
	return Stats{
		Count:  len(xs),
		Min:    lo,
		Median: s.Quantile(0.5),
		Max:    hi,
		Mean:   s.Mean(),
	}
}

// Unique returns the distinct non-missing values in display order: numerically
// for numeric columns, lexically otherwise.
func (c *Column) Unique() []string {
	seen := map[string]struct{}{}
	var out []string
	for i, v := range c.Raw {
		if v == "" {
			continue
		}
		key := v
		if c.Numeric() {
			key = strconv.FormatFloat(c.Num[i], 'g', -1, 64)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	if c.Numeric() {
		sort.Slice(out, func(i, j int) bool {
			a, _ := strconv.ParseFloat(out[i], 64)
			b, _ := strconv.ParseFloat(out[j], 64)
			return a < b
		})
	} else {
		sort.Strings(out)
	}
	return out
}

// Table is an immutable set of equal-length columns.
type Table struct {
	Name  string
	rows  int
	cols  []*Column
	index map[string]int
}

// New builds a table from a header and string records, inferring column kinds.
func New(name string, header []string, records [][]string, opt Options) *Table {
	header = uniqueHeader(header)
	t := &Table{Name: name, rows: len(records), index: make(map[string]int, len(header))}
	for j, h := range header {
		col := &Column{Name: h, Raw: make([]string, len(records)), Num: make([]float64, len(records))}
		for i, rec := range records {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			if isMissingToken(v) {
				v = ""
			}
			col.Raw[i] = v
			col.Num[i] = math.NaN()
			if v != "" {
				if f, ok := parseNumeric(v, opt); ok {
					col.Num[i] = f
				}
			}
		}
		col.Kind = inferKind(col)
		if !col.Numeric() {
			for i := range col.Num {
				col.Num[i] = math.NaN()
			}
		}
		t.index[h] = len(t.cols)
		t.cols = append(t.cols, col)
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int { return t.rows }

// Columns returns column names in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &MissingColumnError{Table: t.Name, Column: name}
	}
	return t.cols[i], nil
}

// Rows returns the identity row selection 0..Len()-1.
func (t *Table) Rows() []int {
	out := make([]int, t.rows)
	for i := range out {
		out[i] = i
	}
	return out
}

func each(rows []int, n int, fn func(i int)) {
	if rows == nil {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	for _, i := range rows {
		fn(i)
	}
}

func inferKind(c *Column) Kind {
	nonNull, numeric := 0, 0
	distinct := map[string]struct{}{}
	for i, v := range c.Raw {
		if v == "" {
			continue
		}
		nonNull++
		if !math.IsNaN(c.Num[i]) {
			numeric++
		}
		distinct[v] = struct{}{}
	}
	if nonNull > 0 && numeric == nonNull {
		return KindNumeric
	}
	if len(distinct) <= 50 || len(distinct)*2 <= nonNull {
		return KindCategorical
	}
	return KindText
}

var missingTokens = map[string]struct{}{
	"na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "-": {}, "--": {}, "#n/a": {},
}

func isMissingToken(v string) bool {
	_, ok := missingTokens[strings.ToLower(v)]
	return ok
}

// uniqueHeader fills empty names and disambiguates duplicates with a numeric
// suffix ("Name", "Name.1", ...).
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := seen[h]; dup {
			base, n := h, seen[h]
			for {
				n++
				cand := fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[cand]; !taken {
					h = cand
					break
				}
			}
			seen[base] = n
		}
		seen[h] = 0
		out[i] = h
	}
	return out
}
