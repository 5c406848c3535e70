package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
)

// Options controls how a table file is read.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the first lines among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// HeaderRow is the 0-based header row; negative means infer it.
	HeaderRow int
	// ScanRows bounds the number of header candidates considered.
	ScanRows int
	// XLSX sheet selection. SheetIndex is 1-based.
	SheetName  string
	SheetIndex int
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// DefaultOptions infers the header row among the first 16 rows of the first sheet.
func DefaultOptions() Options {
	return Options{HeaderRow: -1, ScanRows: 16, SheetIndex: 1}
}

// Load reads a CSV/TSV or XLSX table from a local path or URL.
func Load(ctx context.Context, location string, opt Options) (*Table, error) {
	if !strings.Contains(location, "://") {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", location, err)
		}
		location = abs
	}
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	name := path.Base(location)
	var rows [][]string
	if strings.HasSuffix(strings.ToLower(location), ".xlsx") {
		rows, err = readXLSX(data, opt.SheetName, opt.SheetIndex)
	} else {
		rows, err = readCSV(data, location, opt.Delimiter)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return FromRecords(name, rows, opt)
}

// FromRecords builds a table from raw rows, selecting or inferring the header.
func FromRecords(name string, rows [][]string, opt Options) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: no rows", name)
	}
	h := opt.HeaderRow
	if h < 0 {
		h = InferHeaderRow(rows, opt.ScanRows)
	}
	if h >= len(rows) {
		return nil, fmt.Errorf("%s: header row %d beyond %d rows", name, h, len(rows))
	}
	data := rows[h+1:]
	if opt.MaxRows > 0 && len(data) > opt.MaxRows {
		data = data[:opt.MaxRows]
	}
	return New(name, rows[h], data, opt), nil
}

func readCSV(data []byte, location string, delim rune) ([][]string, error) {
	if delim == 0 {
		delim = sniffDelimiter(location, data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// sniffDelimiter picks the candidate that splits the first lines most
// consistently, falling back to the file extension.
func sniffDelimiter(location string, data []byte) rune {
	if strings.HasSuffix(strings.ToLower(location), ".tsv") {
		return '\t'
	}
	lines := strings.SplitN(string(data), "\n", 6)
	if len(lines) > 5 {
		lines = lines[:5]
	}
	best, bestScore := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		score := 0
		for _, l := range lines {
			score += strings.Count(l, string(d))
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// InferHeaderRow scores the first scan rows as header candidates. A row scores
// its duplicate cell count minus the number of columns whose cells below it
// share one type; the lowest score wins.
func InferHeaderRow(rows [][]string, scan int) int {
	if scan <= 0 {
		scan = 16
	}
	if scan > len(rows) {
		scan = len(rows)
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	best, bestScore := 0, int(^uint(0)>>1)
	for i := 0; i < scan; i++ {
		seen := map[string]struct{}{}
		for j := 0; j < width; j++ {
			seen[cell(rows[i], j)] = struct{}{}
		}
		duplicates := width - len(seen)
		consistent := 0
		if i+1 < len(rows) {
			for j := 0; j < width; j++ {
				if columnConsistent(rows[i+1:], j) {
					consistent++
				}
			}
		}
		if score := duplicates - consistent; score < bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func cell(rec []string, j int) string {
	if j < len(rec) {
		return strings.TrimSpace(rec[j])
	}
	return ""
}

// columnConsistent treats empty cells as numeric, the way a missing value
// reads as a float in a numeric column.
func columnConsistent(rows [][]string, j int) bool {
	numeric, text := false, false
	for _, r := range rows {
		v := cell(r, j)
		if v == "" || isMissingToken(v) {
			numeric = true
			continue
		}
		if _, ok := parseNumeric(v, Options{}); ok {
			numeric = true
		} else {
			text = true
		}
		if numeric && text {
			return false
		}
	}
	return true
}
