package transform

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Correspondences pairs Sources[i] with Targets[i]. Membership is positional, so every operation
// that filters or samples keeps the pairs aligned and in their original relative order.
type Correspondences struct {
	Sources []r2.Point
	Targets []r2.Point
}

// NewCorrespondences copies the two point lists into a Correspondences.
func NewCorrespondences(sources, targets []r2.Point) (Correspondences, error) {
	if len(sources) != len(targets) {
		return Correspondences{}, errors.Errorf(
			"sets of points sources and targets must have the same number of elements, got %d and %d",
			len(sources), len(targets))
	}
	c := Correspondences{
		Sources: make([]r2.Point, len(sources)),
		Targets: make([]r2.Point, len(targets)),
	}
	copy(c.Sources, sources)
	copy(c.Targets, targets)
	return c, nil
}

// Validate checks that both sides have the same length.
func (c Correspondences) Validate() error {
	if len(c.Sources) != len(c.Targets) {
		return errors.Errorf("mismatched correspondences: %d sources and %d targets", len(c.Sources), len(c.Targets))
	}
	return nil
}

// Len returns the number of pairs.
func (c Correspondences) Len() int {
	return len(c.Sources)
}

// At returns the i-th pair.
func (c Correspondences) At(i int) (r2.Point, r2.Point) {
	return c.Sources[i], c.Targets[i]
}

// Subset returns the pairs at the given indices, in the order given. Indices may repeat.
func (c Correspondences) Subset(indices []int) Correspondences {
	out := Correspondences{
		Sources: make([]r2.Point, len(indices)),
		Targets: make([]r2.Point, len(indices)),
	}
	for k, idx := range indices {
		out.Sources[k] = c.Sources[idx]
		out.Targets[k] = c.Targets[idx]
	}
	return out
}

// Append returns c with one more pair at the end.
func (c Correspondences) Append(source, target r2.Point) Correspondences {
	c.Sources = append(c.Sources, source)
	c.Targets = append(c.Targets, target)
	return c
}
