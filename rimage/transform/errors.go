package transform

import "github.com/pkg/errors"

var (
	// ErrInsufficientCorrespondences is returned when there are too few point pairs to sample from or
	// to solve for a homography.
	ErrInsufficientCorrespondences = errors.New("insufficient correspondences")

	// ErrAmbiguousSolution is returned when the constraint matrix has more than one null-space
	// direction, e.g. because a sample repeated a correspondence or its points were collinear.
	ErrAmbiguousSolution = errors.New("ambiguous homography solution")

	// ErrDegenerateProjection is returned when a point maps to the line at infinity, i.e. its
	// homogeneous coordinate is zero.
	ErrDegenerateProjection = errors.New("degenerate projection")

	// ErrDegenerateHomography is returned when a homography cannot be scaled so its bottom-right
	// entry is one.
	ErrDegenerateHomography = errors.New("degenerate homography")

	// ErrOutOfBounds is returned when a coordinate falls outside the buffer it indexes.
	ErrOutOfBounds = errors.New("coordinate out of bounds")
)
