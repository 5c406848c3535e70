package table

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplesCSV = `Survey 2021,,,,
Operator: field team,,,,
Sample,Rock,SiO2,Al2O3,FeOT
S1,basalt,49.5,15.1,10.2
S2,basalt,50.1,14.8,9.9
S3,andesite,58.2,17.0,6.4
S4,dacite,65.0,16.1,NA
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestLoadCSVInfersHeader(t *testing.T) {
	p := writeFile(t, "samples.csv", []byte(samplesCSV))
	tb, err := Load(context.Background(), p, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "samples.csv", tb.Name)
	assert.Equal(t, []string{"Sample", "Rock", "SiO2", "Al2O3", "FeOT"}, tb.Columns())
	assert.Equal(t, 4, tb.Len())

	si, err := tb.Column("SiO2")
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, si.Kind)
	st := si.Stats(nil)
	assert.Equal(t, 4, st.Count)
	assert.InDelta(t, 49.5, st.Min, 1e-12)
	assert.InDelta(t, 65.0, st.Max, 1e-12)
	assert.False(t, math.IsNaN(st.Median))
	assert.GreaterOrEqual(t, st.Median, st.Min)
	assert.LessOrEqual(t, st.Median, st.Max)

	fe, err := tb.Column("FeOT")
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, fe.Kind)
	assert.True(t, fe.Missing(3))
	assert.True(t, math.IsNaN(fe.Float(3)))

	rock, err := tb.Column("Rock")
	require.NoError(t, err)
	assert.Equal(t, KindCategorical, rock.Kind)
	assert.Equal(t, []string{"andesite", "basalt", "dacite"}, rock.Unique())
}

func TestLoadSemicolonLocale(t *testing.T) {
	p := writeFile(t, "eu.csv", []byte("Name;CaO;MgO\na;1,5;2\nb;2,5;3\n"))
	tb, err := Load(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	cao, err := tb.Column("CaO")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, cao.Float(0), 1e-12)
	assert.InDelta(t, 2.5, cao.Float(1), 1e-12)
}

func TestMissingColumn(t *testing.T) {
	tb, err := FromRecords("t", [][]string{{"a"}, {"1"}}, DefaultOptions())
	require.NoError(t, err)
	_, err = tb.Column("b")
	var mce *MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "b", mce.Column)
}

func TestUniqueHeader(t *testing.T) {
	got := uniqueHeader([]string{"A", "", "A", "A.1", "A"})
	assert.Equal(t, []string{"A", "Unnamed: 1", "A.1", "A.1.1", "A.2"}, got)
}

func TestNumericUniqueSortsByValue(t *testing.T) {
	tb := New("t", []string{"n"}, [][]string{{"10"}, {"9"}, {"10.0"}, {""}}, Options{})
	c, err := tb.Column("n")
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "10"}, c.Unique())
}

func TestDescribeMarkdown(t *testing.T) {
	tb, err := FromRecords("s.csv", [][]string{{"Rock", "SiO2"}, {"basalt", "50"}, {"dacite", ""}}, Options{HeaderRow: 0})
	require.NoError(t, err)
	md := Markdown(tb.Name, tb.Len(), tb.Describe())
	assert.Contains(t, md, "[SCHEMA]")
	assert.Contains(t, md, "- Rock: categorical")
	assert.Contains(t, md, "- SiO2: numeric (non-null 1, missing 50.0%)")
}

func buildXLSX(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0"?><workbook xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>` +
			`<sheet name="Notes" sheetId="1" r:id="rId1"/><sheet name="Major" sheetId="2" r:id="rId2"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?><Relationships>` +
			`<Relationship Id="rId1" Target="worksheets/sheet1.xml"/><Relationship Id="rId2" Target="/xl/worksheets/sheet2.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0"?><sst><si><t>Sample</t></si><si><t>CaO</t></si><si><t>x1</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0"?><worksheet><sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>notes</t></is></c></row></sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<?xml version="1.0"?><worksheet><sheetData>` +
			`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>` +
			`<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>11.5</v></c></row>` +
			`</sheetData></worksheet>`,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLoadXLSXBySheetName(t *testing.T) {
	p := writeFile(t, "book.xlsx", buildXLSX(t))
	opt := DefaultOptions()
	opt.SheetName = "major"
	opt.HeaderRow = 0
	tb, err := Load(context.Background(), p, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sample", "CaO"}, tb.Columns())
	cao, err := tb.Column("CaO")
	require.NoError(t, err)
	assert.InDelta(t, 11.5, cao.Float(0), 1e-12)

	opt.SheetName = "missing"
	_, err = Load(context.Background(), p, opt)
	assert.ErrorContains(t, err, "available: Notes, Major")
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizeRelPath(tt.input))
	}
}

func TestColumnStatsMedian(t *testing.T) {
	opt := DefaultOptions()
	opt.HeaderRow = 0
	tb, err := FromRecords("m", [][]string{{"x"}, {"5"}, {"1"}, {"3"}, {""}, {"9"}, {"7"}}, opt)
	require.NoError(t, err)
	c, err := tb.Column("x")
	require.NoError(t, err)
	st := c.Stats(nil)
	assert.Equal(t, 5, st.Count)
	assert.InDelta(t, 1, st.Min, 1e-12)
	assert.InDelta(t, 5, st.Median, 1e-12)
	assert.InDelta(t, 9, st.Max, 1e-12)
	assert.InDelta(t, 5, st.Mean, 1e-12)

	sub := c.Stats([]int{1, 2})
	assert.Equal(t, 2, sub.Count)
	assert.InDelta(t, 2, sub.Median, 1e-12)
}
