package transform

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// minCorrespondences is the number of pairs that pins down the 8 degrees of freedom of a
	// homography.
	minCorrespondences = 4

	// AmbiguityTolerance is the relative gap between the two smallest singular values under which
	// the solution is considered ambiguous. The gap is measured after every column of the
	// constraint matrix is scaled to unit length.
	AmbiguityTolerance = 1e-9
)

// BuildConstraintMatrix turns k correspondences into the 2k x 9 direct linear transform matrix.
// For (x,y) -> (x',y') the rows are
//
//	[x, y, 1, 0, 0, 0, -x*x', -y*x', -x']
//	[0, 0, 0, x, y, 1, -x*y', -y*y', -y']
func BuildConstraintMatrix(c Correspondences) (*mat.Dense, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	k := c.Len()
	if k < 1 {
		return nil, errors.Wrap(ErrInsufficientCorrespondences, "cannot build a constraint matrix from no correspondences")
	}

	p := mat.NewDense(2*k, 9, nil)
	for i := 0; i < k; i++ {
		src, dst := c.At(i)
		x, y := src.X, src.Y
		xp, yp := dst.X, dst.Y
		p.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -x * xp, -y * xp, -xp})
		p.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -x * yp, -y * yp, -yp})
	}
	return p, nil
}

// SolveHomography returns the right singular vector of the smallest singular value of p, reshaped
// into a 3x3 matrix. When the two smallest singular values of the column-equilibrated p cannot be
// told apart, the matrix is still returned along with ErrAmbiguousSolution. Equilibration keeps the
// test independent of the pixel scale of the points.
func SolveHomography(p *mat.Dense) (*Homography, error) {
	rows, cols := p.Dims()
	if cols != 9 {
		return nil, errors.Errorf("constraint matrix must have 9 columns, got %d", cols)
	}
	if rows < 2*minCorrespondences {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences,
			"need at least %d constraint rows, got %d", 2*minCorrespondences, rows)
	}

	v, values, ok := rightSingularVectors(p)
	if !ok {
		return nil, errors.New("singular value decomposition of the constraint matrix failed")
	}
	h := newHomographyFromVector(v.ColView(8))

	conditioned, ok := equilibratedSingularValues(p)
	if !ok {
		return nil, errors.New("singular value decomposition of the equilibrated constraint matrix failed")
	}
	if conditioned[7]-conditioned[8] <= AmbiguityTolerance*conditioned[0] {
		return h, errors.Wrapf(ErrAmbiguousSolution,
			"smallest singular values %.3g and %.3g are indistinguishable (raw %.3g and %.3g)",
			conditioned[7], conditioned[8], values[7], values[8])
	}
	return h, nil
}

// equilibratedSingularValues scales every nonzero column of p to unit length and returns the
// singular values of the result, padded with zeros to the number of columns.
func equilibratedSingularValues(p *mat.Dense) ([]float64, bool) {
	rows, cols := p.Dims()
	scaled := mat.NewDense(rows, cols, nil)
	scaled.Copy(p)
	for j := 0; j < cols; j++ {
		norm := mat.Norm(scaled.ColView(j), 2)
		if norm == 0 {
			continue
		}
		for i := 0; i < rows; i++ {
			scaled.Set(i, j, scaled.At(i, j)/norm)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(scaled, mat.SVDNone); !ok {
		return nil, false
	}
	values := make([]float64, cols)
	copy(values, svd.Values(nil))
	return values, true
}

// FitHomography builds and solves the constraint matrix for c. With normalize set, both point sets
// are first conditioned (centroid at the origin, mean distance sqrt(2)) and the solution is mapped
// back, H = T2^-1 * Hn * T1.
func FitHomography(c Correspondences, normalize bool) (*Homography, error) {
	if !normalize {
		p, err := BuildConstraintMatrix(c)
		if err != nil {
			return nil, err
		}
		return SolveHomography(p)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Len() < minCorrespondences {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences,
			"need at least %d correspondences, got %d", minCorrespondences, c.Len())
	}
	sources, t1 := normalizePoints(c.Sources)
	targets, t2 := normalizePoints(c.Targets)
	p, err := BuildConstraintMatrix(Correspondences{Sources: sources, Targets: targets})
	if err != nil {
		return nil, err
	}
	hn, solveErr := SolveHomography(p)
	if hn == nil {
		return nil, solveErr
	}

	var t2Inv mat.Dense
	if err := t2Inv.Inverse(t2); err != nil {
		return nil, errors.Wrap(err, "cannot invert target normalization")
	}
	var left, out mat.Dense
	left.Mul(&t2Inv, hn.matrix)
	out.Mul(&left, t1)
	return &Homography{&out}, solveErr
}
