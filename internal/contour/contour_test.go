package contour

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]float64{
		"1-sigma":          OneSigma,
		"1 sigma":          OneSigma,
		"Contour: 1-sigma": OneSigma,
		"2-SIGMA":          TwoSigma,
		"95":               0.95,
		"68.27%":           0.6827,
		"0.5":              0.5,
		"1":                1,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-12, in)
	}
	for _, bad := range []string{"", "3-sigma", "0", "-5", "150"} {
		_, err := ParseLevel(bad)
		assert.Error(t, err, bad)
	}
}

func TestLevelLabel(t *testing.T) {
	assert.Equal(t, "1-sigma (68.27%)", LevelLabel(OneSigma))
	assert.Equal(t, "2-sigma (95.45%)", LevelLabel(TwoSigma))
	assert.Equal(t, "80%", LevelLabel(0.8))
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 3.0, threshold([]float64{1, 4, 2, 3}, 0.5))
	assert.Equal(t, 4.0, threshold([]float64{1, 4, 2, 3}, 0.1))
	assert.Equal(t, 1.0, threshold([]float64{1, 4, 2, 3}, 1))
}

func TestLoopsSinglePeak(t *testing.T) {
	g := &Grid{
		X: []float64{0, 1, 2},
		Y: []float64{0, 1, 2},
		Z: [][]float64{{0, 0, 0}, {0, 1, 0}, {0, 0, 0}},
	}
	loops := g.Loops(0.5)
	require.Len(t, loops, 1)
	assert.Equal(t, 4, loops[0].Len())
	assert.InDelta(t, 0.5, loops[0].Area(), 1e-12)
}

func TestLoopsClosedAlongBorder(t *testing.T) {
	g := &Grid{
		X: []float64{0, 1},
		Y: []float64{0, 1},
		Z: [][]float64{{1, 1}, {1, 1}},
	}
	loops := g.Loops(0.5)
	require.Len(t, loops, 1)
	assert.Equal(t, 8, loops[0].Len())
	assert.InDelta(t, 3.5, loops[0].Area(), 1e-12)
}

func TestLoopsTwoPeaks(t *testing.T) {
	g := &Grid{
		X: []float64{0, 1, 2, 3, 4},
		Y: []float64{0, 1, 2},
		Z: [][]float64{{0, 0, 0, 0, 0}, {0, 1, 0, 1, 0}, {0, 0, 0, 0, 0}},
	}
	assert.Len(t, g.Loops(0.5), 2)
}

func cloud(n int, cx, cy, sigma float64) (xs, ys []float64) {
	rng := rand.New(rand.NewSource(3))
	xs, ys = make([]float64, n), make([]float64, n)
	for i := range xs {
		xs[i] = cx + rng.NormFloat64()*sigma
		ys[i] = cy + rng.NormFloat64()*sigma
	}
	return xs, ys
}

func inside(p Polygon, x, y float64) bool {
	in := false
	n := p.Len()
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if (p.Y[i] > y) != (p.Y[j] > y) &&
			x < (p.X[j]-p.X[i])*(y-p.Y[i])/(p.Y[j]-p.Y[i])+p.X[i] {
			in = !in
		}
	}
	return in
}

func TestExtractNormalCloud(t *testing.T) {
	xs, ys := cloud(1500, 0.5, 0.3, 0.02)
	polys, err := Extract(xs, ys, []float64{OneSigma, TwoSigma}, Options{GridSize: 60})
	require.NoError(t, err)
	require.Len(t, polys, 2)

	one := polys[0]
	assert.GreaterOrEqual(t, one.Len(), 12)
	assert.Equal(t, one.X[0], one.X[one.Len()-1])
	assert.Equal(t, one.Y[0], one.Y[one.Len()-1])
	assert.True(t, inside(one, 0.5, 0.3))
	assert.Greater(t, polys[1].Area(), one.Area())

	var in int
	for i := range xs {
		if inside(one, xs[i], ys[i]) {
			in++
		}
	}
	frac := float64(in) / float64(len(xs))
	assert.Greater(t, frac, 0.6)
	assert.Less(t, frac, 0.95)

	for _, p := range one.ToTernary() {
		assert.InDelta(t, 1.0, p.Sum(), 1e-9)
	}
}

func TestExtractDegenerate(t *testing.T) {
	xs, _ := cloud(200, 0.5, 0.3, 0.02)
	ys := make([]float64, len(xs))
	for i := range ys {
		ys[i] = 0.3
	}
	_, err := Extract(xs, ys, []float64{OneSigma}, DefaultOptions())
	assert.True(t, errors.Is(err, ErrDegenerate))

	_, err = NewKDE([]float64{1, 1, 1}, []float64{2, 2, 2}, 1)
	assert.True(t, errors.Is(err, ErrDegenerate))
}

func TestExtractTooFewVertices(t *testing.T) {
	xs, ys := cloud(300, 0.5, 0.3, 0.02)
	_, err := Extract(xs, ys, []float64{OneSigma}, Options{GridSize: 4, MinVertices: 500})
	assert.True(t, errors.Is(err, ErrNoContour))
}
