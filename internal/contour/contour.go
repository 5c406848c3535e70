// Package contour extracts confidence-region outlines from a cloud of
// simulated points using a kernel density estimate.
package contour

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aclements/go-moremath/vec"

	"github.com/KaramelBytes/quickternary-cli/internal/barycentric"
)

// Confidence presets for a bivariate normal.
const (
	OneSigma = 0.6827
	TwoSigma = 0.9545
)

// ErrNoContour is returned when no closed outline of sufficient length exists
// at the requested level.
var ErrNoContour = errors.New("no contour found at the requested level")

// Options tunes the density grid and contour filtering.
type Options struct {
	GridSize       int
	BandwidthScale float64
	MinVertices    int
}

// DefaultOptions returns a 100x100 grid, doubled bandwidth and a 12 vertex
// minimum.
func DefaultOptions() Options {
	return Options{GridSize: 100, BandwidthScale: 2, MinVertices: 12}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.GridSize < 2 {
		o.GridSize = d.GridSize
	}
	if o.BandwidthScale <= 0 {
		o.BandwidthScale = d.BandwidthScale
	}
	if o.MinVertices <= 0 {
		o.MinVertices = d.MinVertices
	}
	return o
}

// ParseLevel accepts "1-sigma", "2-sigma" (optionally prefixed "Contour:"),
// a percentage in (1, 100] or a fraction in (0, 1].
func ParseLevel(s string) (float64, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSpace(strings.TrimPrefix(key, "contour:"))
	key = strings.TrimSuffix(key, "%")
	switch strings.ReplaceAll(key, " ", "-") {
	case "1-sigma", "1sigma":
		return OneSigma, nil
	case "2-sigma", "2sigma":
		return TwoSigma, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid confidence level %q", s)
	}
	if v > 1 {
		v /= 100
	}
	if !(v > 0 && v <= 1) {
		return 0, fmt.Errorf("confidence level %q out of range", s)
	}
	return v, nil
}

// LevelLabel renders a level for display, e.g. "1-sigma (68.27%)".
func LevelLabel(level float64) string {
	pct := strconv.FormatFloat(math.Round(level*10000)/100, 'f', -1, 64)
	switch level {
	case OneSigma:
		return "1-sigma (" + pct + "%)"
	case TwoSigma:
		return "2-sigma (" + pct + "%)"
	}
	return pct + "%"
}

// Polygon is a closed outline in cartesian coordinates. The first vertex is
// repeated at the end.
type Polygon struct {
	X, Y []float64
}

// Len returns the number of vertices.
func (p Polygon) Len() int { return len(p.X) }

// Area returns the absolute shoelace area.
func (p Polygon) Area() float64 {
	var s float64
	n := len(p.X)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		s += p.X[i]*p.Y[j] - p.X[j]*p.Y[i]
	}
	return math.Abs(s) / 2
}

// ToTernary maps every vertex back into unit-sum barycentric coordinates.
func (p Polygon) ToTernary() []barycentric.Point {
	out := make([]barycentric.Point, len(p.X))
	for i := range p.X {
		out[i] = barycentric.FromCartesian(p.X[i], p.Y[i])
	}
	return out
}

// Evaluate samples the density on an n by n lattice spanning the bounds of
// the fitted points.
func (k *KDE) Evaluate(n int) *Grid {
	xlo, xhi := bounds(k.xs)
	ylo, yhi := bounds(k.ys)
	g := &Grid{X: vec.Linspace(xlo, xhi, n), Y: vec.Linspace(ylo, yhi, n), Z: make([][]float64, n)}
	for j, y := range g.Y {
		row := make([]float64, n)
		for i, x := range g.X {
			row[i] = k.At(x, y)
		}
		g.Z[j] = row
	}
	return g
}

// Extract fits a density to the points and returns one outline per level,
// in the order given. Each outline is the largest closed loop at that
// level's density threshold.
func Extract(xs, ys []float64, levels []float64, opt Options) ([]Polygon, error) {
	opt = opt.withDefaults()
	if xlo, xhi := bounds(xs); !(xhi > xlo) {
		return nil, ErrDegenerate
	}
	if ylo, yhi := bounds(ys); !(yhi > ylo) {
		return nil, ErrDegenerate
	}
	k, err := NewKDE(xs, ys, opt.BandwidthScale)
	if err != nil {
		return nil, err
	}
	g := k.Evaluate(opt.GridSize)
	out := make([]Polygon, 0, len(levels))
	for _, level := range levels {
		if !(level > 0 && level <= 1) {
			return nil, fmt.Errorf("confidence level %v out of range", level)
		}
		t := g.Threshold(level)
		if !(t > 0) {
			return nil, fmt.Errorf("%s: %w", LevelLabel(level), ErrNoContour)
		}
		var best Polygon
		for _, p := range g.Loops(t) {
			if p.Len() < opt.MinVertices {
				continue
			}
			if best.Len() == 0 || p.Area() > best.Area() {
				best = p
			}
		}
		if best.Len() == 0 {
			return nil, fmt.Errorf("%s: %w", LevelLabel(level), ErrNoContour)
		}
		best.X = append(best.X, best.X[0])
		best.Y = append(best.Y, best.Y[0])
		out = append(out, best)
	}
	return out, nil
}

func threshold(vals []float64, level float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	var total float64
	for _, v := range sorted {
		total += v
	}
	target := level * total
	var cum float64
	for _, v := range sorted {
		cum += v
		if cum >= target {
			return v
		}
	}
	return sorted[len(sorted)-1]
}

func bounds(xs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
