package plotfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/KaramelBytes/quickternary-cli/internal/contour"
	"github.com/KaramelBytes/quickternary-cli/internal/table"
	"github.com/KaramelBytes/quickternary-cli/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const majors = `Sample,Al2O3,CaO,Na2O,K2O,FeOT,MgO,Rock
s1,15,8,3,1,10,6,basalt
s2,17,5,4,2,6,3,andesite
s3,14,10,2,0.5,12,9,basalt
`

const plotYAML = `title: Majors
ternary_type: "Al2O3 CaO+Na2O+K2O FeOT+MgO"
scale:
  CaO: 2
data:
  - name: majors
    path: majors.csv
traces:
  - name: Basalts
    data: majors
    filters:
      - column: Rock
        op: is
        values: basalt
    density:
      levels: ["1-sigma", "80%"]
    style:
      color: "#ff0000"
  - id: boot
    name: Sample 2
    kind: bootstrap
    source:
      data: majors
      row: 1
    uncertainty:
      Al2O3: 0.5
    contour: 2-sigma
  - name: Missing
    data: nowhere
  - name: Off
    data: majors
    disabled: true
`

func writePlot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "majors.csv"), []byte(majors), 0o644))
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(plotYAML), 0o644))
	return path
}

func TestLoadAssignSave(t *testing.T) {
	path := writePlot(t)
	p, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.Equal(t, "Majors", p.Title)
	assert.Len(t, p.Traces, 4)

	assert.True(t, p.AssignIDs())
	assert.False(t, p.AssignIDs())
	assert.Equal(t, "boot", p.Traces[1].ID)
	require.NoError(t, p.Save())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p.Traces[0].ID, again.Traces[0].ID)
	assert.Equal(t, []string{"CaO"}, again.Scale.Keys())
	assert.Equal(t, "2-sigma", again.Traces[1].Contour)

	tr, err := again.Trace("Sample 2")
	require.NoError(t, err)
	assert.Equal(t, "boot", tr.ID)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild(t *testing.T) {
	p, err := Load(writePlot(t))
	require.NoError(t, err)
	entries, err := p.Build(context.Background(), table.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, entries, 3, "disabled trace is skipped")

	std := entries[0]
	require.NoError(t, std.Err)
	assert.Equal(t, trace.Standard, std.Trace.Kind)
	assert.Equal(t, "trace-1", std.Trace.ID)
	assert.Equal(t, 3, std.Trace.Table.Len())
	assert.Equal(t, "f1", std.Trace.Filters[0].ID)
	assert.Equal(t, "#ff0000", std.Trace.Style.Color)
	assert.Equal(t, "circle", std.Trace.Style.Shape)
	assert.Equal(t, []float64{contour.OneSigma, 0.8}, std.Trace.Density.Levels)
	assert.Equal(t, 2.0, std.Trace.Scale.GetOr("CaO", 1))

	boot := entries[1]
	require.NoError(t, boot.Err)
	assert.Equal(t, trace.Bootstrap, boot.Trace.Kind)
	assert.Equal(t, contour.TwoSigma, boot.Trace.ContourLevel)
	assert.Equal(t, []string{"Al2O3", "CaO", "Na2O", "K2O", "FeOT", "MgO"}, boot.Trace.Source.Keys())
	assert.Equal(t, 17.0, boot.Trace.Source.GetOr("Al2O3", 0))
	assert.Equal(t, 0.5, boot.Trace.Uncertainty.GetOr("Al2O3", 0))

	missing := entries[2]
	require.Error(t, missing.Err)
	var te *trace.Error
	require.True(t, errors.As(missing.Err, &te))
	assert.Equal(t, trace.StageLoad, te.Stage)
	assert.Equal(t, trace.StageLoad, trace.Stage(missing.Err))
}

func TestBuildLeavesDefinitionUntouched(t *testing.T) {
	p, err := Load(writePlot(t))
	require.NoError(t, err)
	entries, err := p.Build(context.Background(), table.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, entries[0].Err)
	assert.Equal(t, "f1", entries[0].Trace.Filters[0].ID)
	assert.Empty(t, p.Traces[0].Filters[0].ID)

	entries[0].Trace.Filters[0].Column = "SiO2"
	assert.Equal(t, "Rock", p.Traces[0].Filters[0].Column)
}

func TestBuildRunsThroughPipeline(t *testing.T) {
	p, err := Load(writePlot(t))
	require.NoError(t, err)
	entries, err := p.Build(context.Background(), table.DefaultOptions())
	require.NoError(t, err)

	res := trace.DefaultPipeline().RunTrace(entries[0].Trace)
	require.NoError(t, res.Err)
	rows := append([]int(nil), res.RowIndex...)
	slices.Sort(rows)
	assert.Equal(t, []int{0, 2}, rows)
}

func TestBuildBadSourceRow(t *testing.T) {
	p, err := Load(writePlot(t))
	require.NoError(t, err)
	row := 7
	p.Traces[1].Source.Row = &row
	entries, err := p.Build(context.Background(), table.DefaultOptions())
	require.NoError(t, err)
	assert.ErrorContains(t, entries[1].Err, "out of range")
}

func TestBuildInlineSource(t *testing.T) {
	p, err := Load(writePlot(t))
	require.NoError(t, err)
	p.Traces[1].Source.Values.Set("Al2O3", 20)
	entries, err := p.Build(context.Background(), table.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, entries[1].Err)
	assert.Equal(t, 20.0, entries[1].Trace.Source.GetOr("Al2O3", 0))
}

func TestBuildCancelled(t *testing.T) {
	p, err := Load(writePlot(t))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Build(ctx, table.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidate(t *testing.T) {
	p := New("x", "")
	require.NoError(t, p.Validate())

	p.TernaryType = "Custom"
	assert.Error(t, p.Validate())

	p.Data = []*DataSource{{Name: "a"}, {Name: "a"}}
	p.TernaryType = trace.Presets[2]
	assert.ErrorContains(t, p.Validate(), "duplicate data source")

	p.Data = nil
	p.Traces = []*TraceDef{{Kind: "spline"}}
	assert.ErrorContains(t, p.Validate(), "unknown kind")
}

func TestSaveWithoutPath(t *testing.T) {
	assert.Error(t, New("x", "").Save())
}
