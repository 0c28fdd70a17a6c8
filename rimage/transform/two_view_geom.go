package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// helpers
// normalizePoints normalizes points as described in Multiple View Geometry, Alg 4.2: the centroid
// moves to the origin and the mean distance from it becomes sqrt(2). It returns the normalized
// points and the 3x3 similarity that produced them.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense) {
	nPoints := len(pts)
	// compute centroid of points
	mu := r2.Point{X: 0, Y: 0}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / float64(nPoints))
	// compute scale factor
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	scale := 1.0
	if d > 0 {
		scale = math.Sqrt(2) / d
	}
	transformData := []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	}
	T := mat.NewDense(3, 3, transformData)
	// apply transform to points
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = pts[i].Sub(mu).Mul(scale)
	}
	return pointsTransformed, T
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	if n <= 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// rightSingularVectors factorizes m and returns the full V matrix (so the null-space direction is
// present even when m has fewer rows than columns) together with the singular values padded with
// zeros up to the number of columns. U is not computed.
func rightSingularVectors(m *mat.Dense) (*mat.Dense, []float64, bool) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFullV); !ok {
		return nil, nil, false
	}
	var v mat.Dense
	svd.VTo(&v)

	_, cols := m.Dims()
	values := make([]float64, cols)
	copy(values, svd.Values(nil))
	return &v, values, true
}
