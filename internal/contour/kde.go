package contour

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerate is returned when the points have no spread in some
// direction, so no density can be fitted.
var ErrDegenerate = errors.New("samples are degenerate: covariance is singular")

// KDE is a bivariate Gaussian kernel density estimate with a full bandwidth
// matrix.
type KDE struct {
	xs, ys        []float64
	i00, i01, i11 float64
	norm          float64
}

// NewKDE fits a kernel density over the points. The bandwidth follows
// Scott's rule (n^-1/6) multiplied by scale.
func NewKDE(xs, ys []float64, scale float64) (*KDE, error) {
	n := len(xs)
	if n < 3 || len(ys) != n {
		return nil, ErrDegenerate
	}
	if scale <= 0 {
		scale = 1
	}
	data := make([]float64, 0, 2*n)
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			return nil, ErrDegenerate
		}
		data = append(data, xs[i], ys[i])
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, mat.NewDense(n, 2, data), nil)

	factor := scale * math.Pow(float64(n), -1.0/6)
	cov.ScaleSym(factor*factor, &cov)

	var chol mat.Cholesky
	if ok := chol.Factorize(&cov); !ok {
		return nil, ErrDegenerate
	}
	det := chol.Det()
	if !(det > 0) || math.IsInf(det, 0) {
		return nil, ErrDegenerate
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, ErrDegenerate
	}
	return &KDE{
		xs:   xs,
		ys:   ys,
		i00:  inv.At(0, 0),
		i01:  inv.At(0, 1),
		i11:  inv.At(1, 1),
		norm: 1 / (float64(n) * 2 * math.Pi * math.Sqrt(det)),
	}, nil
}

// At evaluates the density at (x, y).
func (k *KDE) At(x, y float64) float64 {
	var sum float64
	for i := range k.xs {
		dx, dy := x-k.xs[i], y-k.ys[i]
		q := k.i00*dx*dx + 2*k.i01*dx*dy + k.i11*dy*dy
		sum += math.Exp(-0.5 * q)
	}
	return sum * k.norm
}

// Grid is a density field sampled on a regular lattice; Z[j][i] is the value
// at (X[i], Y[j]).
type Grid struct {
	X, Y []float64
	Z    [][]float64
}

// Threshold returns the density value above which the densest cells hold at
// least level of the total grid mass.
func (g *Grid) Threshold(level float64) float64 {
	var vals []float64
	for _, row := range g.Z {
		vals = append(vals, row...)
	}
	return threshold(vals, level)
}
