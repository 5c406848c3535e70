package chem

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMolarMass(t *testing.T) {
	cases := map[string]float64{
		"SiO2":       60.083,
		"Al2O3":      101.9601,
		"FeO":        71.844,
		"FeOT":       71.844,
		"Ca(OH)2":    74.092,
		"CuSO4·5H2O": 249.677,
		"K[Fe(CN)6]": 39.0983 + 55.845 + 6*(12.011+14.007),
		"H2O":        18.015,
	}
	for f, want := range cases {
		got, err := MolarMass(f)
		require.NoError(t, err, f)
		assert.InDelta(t, want, got, 0.01, f)
	}
}

func TestParseRejects(t *testing.T) {
	for _, f := range []string{"", "SiO2 wt%", "Xx2", "Ca(OH", "Ca)OH(", "sio2", "FEOT", "()", "O0", "12"} {
		_, err := Parse(f)
		var ife *InvalidFormulaError
		require.Error(t, err, f)
		require.True(t, errors.As(err, &ife), f)
		assert.Equal(t, f, ife.Formula)
	}
}

func TestResolveDefaults(t *testing.T) {
	var r Resolver
	got, err := r.Resolve("SiO2")
	require.NoError(t, err)
	assert.Equal(t, "SiO2", got)

	got, err = r.Resolve("SiO2 wt%")
	require.NoError(t, err)
	assert.Equal(t, "SiO2", got)

	got, err = r.Resolve("FEOT")
	require.NoError(t, err)
	assert.Equal(t, "FeO", got)

	got, err = r.Resolve("FeOT (wt%)")
	require.NoError(t, err)
	assert.Equal(t, "FeO", got)

	_, err = r.Resolve("Sample Name")
	var ue *UnresolvedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "Sample Name", ue.Column)
	assert.Equal(t, []string{"Sample Name", "Sample"}, ue.Tried)
}

func TestResolverPrefersConfigured(t *testing.T) {
	var r Resolver
	got, err := r.For("iron", "Fe2O3")
	require.NoError(t, err)
	assert.Equal(t, "Fe2O3", got)

	_, err = r.For("iron", "Qq")
	var ife *InvalidFormulaError
	assert.True(t, errors.As(err, &ife))

	got, err = r.For("MgO", "")
	require.NoError(t, err)
	assert.Equal(t, "MgO", got)
}

func TestConvertColumn(t *testing.T) {
	out, err := ConvertColumn([]float64{60.083, math.NaN(), 0}, "SiO2")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 1e-4)
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 0.0, out[2])

	_, err = ConvertColumn([]float64{1}, "nope")
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "SiO2", Suggest("SiO2_wt"))
	assert.Equal(t, "Al2O3", Suggest("al2o3_pct"))
	assert.Equal(t, "Fe2O3", Suggest("total_fe2o3"))
	assert.Equal(t, "FeO", Suggest("feot_norm"))
	assert.Equal(t, "", Suggest("sample id"))
}
