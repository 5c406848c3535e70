// Package barycentric converts three-component compositions into ternary
// proportions and between ternary and cartesian plot coordinates.
package barycentric

import "math"

var sqrt3Over2 = math.Sqrt(3) / 2

// Point is a normalized composition. A is the top apex, B the left and C the
// right apex.
type Point struct {
	A, B, C float64
}

// Sum returns A+B+C.
func (p Point) Sum() float64 { return p.A + p.B + p.C }

// Valid reports whether all three components are finite.
func (p Point) Valid() bool {
	return !math.IsNaN(p.A) && !math.IsNaN(p.B) && !math.IsNaN(p.C) &&
		!math.IsInf(p.A, 0) && !math.IsInf(p.B, 0) && !math.IsInf(p.C, 0)
}

// Undefined is the result for compositions that cannot be normalized.
var Undefined = Point{math.NaN(), math.NaN(), math.NaN()}

// Normalize rescales (a, b, c) so that the components sum to total.
// A non-positive or non-finite sum yields Undefined and ok=false.
func Normalize(a, b, c, total float64) (Point, bool) {
	s := a + b + c
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return Undefined, false
	}
	k := total / s
	return Point{A: a * k, B: b * k, C: c * k}, true
}

// NormalizeAll normalizes parallel apex slices. It returns the points and the
// positions of rows that could not be normalized.
func NormalizeAll(as, bs, cs []float64, total float64) ([]Point, []int) {
	n := len(as)
	out := make([]Point, n)
	var flagged []int
	for i := 0; i < n; i++ {
		p, ok := Normalize(as[i], bs[i], cs[i], total)
		if !ok {
			flagged = append(flagged, i)
		}
		out[i] = p
	}
	return out, flagged
}

// ToCartesian projects a composition onto the unit-sided triangle with the
// left apex at (0,0), the right apex at (1,0) and the top apex at (1/2, √3/2).
func ToCartesian(p Point) (x, y float64) {
	s := p.Sum()
	if s == 0 || !p.Valid() {
		return math.NaN(), math.NaN()
	}
	x = (p.C + p.A/2) / s
	y = sqrt3Over2 * p.A / s
	return x, y
}

// FromCartesian is the inverse of ToCartesian. The result sums to 1.
func FromCartesian(x, y float64) Point {
	a := y / sqrt3Over2
	c := x - a/2
	b := 1 - a - c
	p, ok := Normalize(a, b, c, 1)
	if !ok {
		return Point{A: a, B: b, C: c}
	}
	return p
}
