package transform

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ProjectionEpsilon is the smallest magnitude of the homogeneous coordinate that still dehomogenizes.
const ProjectionEpsilon = 1e-12

// Homography is a 3x3 projective transform from one image plane to another, defined up to scale.
// Indices are [row][column].
type Homography struct {
	matrix *mat.Dense
}

// NewHomography creates a Homography from 9 values in row-major order.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	data := make([]float64, 9)
	copy(data, vals)
	return &Homography{mat.NewDense(3, 3, data)}, nil
}

// IdentityHomography returns the transform that maps every point to itself.
func IdentityHomography() *Homography {
	return &Homography{eye(3)}
}

// NewTranslationHomography returns the transform that shifts every point by (dx, dy).
func NewTranslationHomography(dx, dy float64) *Homography {
	return &Homography{mat.NewDense(3, 3, []float64{
		1, 0, dx,
		0, 1, dy,
		0, 0, 1,
	})}
}

// newHomographyFromVector reshapes a 9-vector row-major into a Homography.
func newHomographyFromVector(v mat.Vector) *Homography {
	data := make([]float64, 9)
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return &Homography{mat.NewDense(3, 3, data)}
}

// At returns the entry at (row, col).
func (h *Homography) At(row, col int) float64 {
	return h.matrix.At(row, col)
}

// Matrix returns a copy of the underlying 3x3 matrix.
func (h *Homography) Matrix() *mat.Dense {
	return mat.DenseCopyOf(h.matrix)
}

// Apply maps a point through the homography and dehomogenizes it. A point that lands on the line at
// infinity returns ErrDegenerateProjection instead of non-finite coordinates.
func (h *Homography) Apply(pt r2.Point) (r2.Point, error) {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	if math.Abs(z) <= ProjectionEpsilon || math.IsNaN(z) {
		return r2.Point{}, errors.Wrapf(ErrDegenerateProjection, "point (%g, %g) has homogeneous coordinate %g", pt.X, pt.Y, z)
	}
	return r2.Point{X: x / z, Y: y / z}, nil
}

// Normalize returns the homography scaled so that its bottom-right entry is 1.
func (h *Homography) Normalize() (*Homography, error) {
	scale := h.At(2, 2)
	if math.Abs(scale) <= ProjectionEpsilon*mat.Norm(h.matrix, 2) {
		return nil, errors.Wrapf(ErrDegenerateHomography, "bottom-right entry %g cannot be scaled to 1", scale)
	}
	var out mat.Dense
	out.Scale(1/scale, h.matrix)
	return &Homography{&out}, nil
}

// ApproxEqual reports whether h and other describe the same transform, comparing their normalized
// entries within tol.
func (h *Homography) ApproxEqual(other *Homography, tol float64) bool {
	a, err := h.Normalize()
	if err != nil {
		return false
	}
	b, err := other.Normalize()
	if err != nil {
		return false
	}
	return floats.EqualApprox(a.matrix.RawMatrix().Data, b.matrix.RawMatrix().Data, tol)
}

// String prints the matrix one row per line.
func (h *Homography) String() string {
	return fmt.Sprintf("%v", mat.Formatted(h.matrix, mat.Prefix("")))
}
