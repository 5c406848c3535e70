package table

import (
	"fmt"
	"strings"
)

// ColumnSummary captures the inferred kind and statistics of one column.
type ColumnSummary struct {
	Name    string
	Kind    Kind
	NonNull int
	Missing int
	Unique  int
	Stats   Stats
	// Top holds the first few distinct values of non-numeric columns.
	Top []string
	// Formula is a suggested chemical formula, when one was requested.
	Formula string
}

// Describe summarizes every column.
func (t *Table) Describe() []ColumnSummary {
	out := make([]ColumnSummary, 0, len(t.cols))
	for _, c := range t.cols {
		s := ColumnSummary{Name: c.Name, Kind: c.Kind}
		for i := range c.Raw {
			if c.Missing(i) {
				s.Missing++
			} else {
				s.NonNull++
			}
		}
		uniq := c.Unique()
		s.Unique = len(uniq)
		if c.Numeric() {
			s.Stats = c.Stats(nil)
		} else {
			s.Top = uniq[:min(5, len(uniq))]
		}
		out = append(out, s)
	}
	return out
}

// Markdown renders a compact schema report.
func Markdown(name string, rows int, cols []ColumnSummary) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		fmt.Fprintf(&b, "File: %s\n", name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", rows)
	fmt.Fprintf(&b, "Columns: %d\n\n", len(cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range cols {
		missPct := 0.0
		if total := c.NonNull + c.Missing; total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", safeVal(c.Name), c.Kind, c.NonNull, missPct)
		switch c.Kind {
		case KindNumeric:
			fmt.Fprintf(&b, " — min %.4g, median %.4g, max %.4g", c.Stats.Min, c.Stats.Median, c.Stats.Max)
		default:
			if len(c.Top) > 0 {
				vals := make([]string, len(c.Top))
				for i, v := range c.Top {
					vals[i] = safeVal(v)
				}
				fmt.Fprintf(&b, " — values: %s", strings.Join(vals, ", "))
				if c.Unique > len(c.Top) {
					fmt.Fprintf(&b, "; unique=%d", c.Unique)
				}
			}
		}
		if c.Formula != "" {
			fmt.Fprintf(&b, " [formula %s]", c.Formula)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func safeVal(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
