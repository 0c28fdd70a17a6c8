package transform

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Evaluation is the result of scoring a homography against a set of correspondences.
type Evaluation struct {
	// Inliers holds the pairs whose reprojection distance is within Tolerance, in their original
	// relative order.
	Inliers Correspondences
	// InlierIndices are the positions of Inliers in the evaluated set.
	InlierIndices []int
	// Distances has one reprojection distance per evaluated pair. Pairs that project to infinity
	// are recorded as +Inf.
	Distances []float64
	// Degenerate lists the pairs whose source projects onto the line at infinity.
	Degenerate []int
	Tolerance  float64
}

// Count returns the size of the consensus set.
func (e *Evaluation) Count() int {
	if e == nil {
		return 0
	}
	return len(e.InlierIndices)
}

// ReprojectionStats summarizes the reprojection error of a consensus set, in pixels.
type ReprojectionStats struct {
	Mean   float64
	Median float64
	Max    float64
}

// Stats summarizes the inlier distances. An empty consensus set yields zero stats.
func (e *Evaluation) Stats() (ReprojectionStats, error) {
	if e.Count() == 0 {
		return ReprojectionStats{}, nil
	}
	data := make(stats.Float64Data, 0, e.Count())
	for _, idx := range e.InlierIndices {
		data = append(data, e.Distances[idx])
	}

	var out ReprojectionStats
	var err error
	if out.Mean, err = data.Mean(); err != nil {
		return ReprojectionStats{}, err
	}
	if out.Median, err = data.Median(); err != nil {
		return ReprojectionStats{}, err
	}
	if out.Max, err = data.Max(); err != nil {
		return ReprojectionStats{}, err
	}
	return out, nil
}

// EvaluateInliers projects every source point through h and keeps the pairs that land within
// tolerance pixels of their target. A pair whose source projects to infinity is never an inlier.
func EvaluateInliers(h *Homography, c Correspondences, tolerance float64) (*Evaluation, error) {
	if tolerance < 0 || math.IsNaN(tolerance) {
		return nil, errors.Errorf("tolerance must be non-negative, got %v", tolerance)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	eval := &Evaluation{
		Distances: make([]float64, c.Len()),
		Tolerance: tolerance,
	}
	for i := 0; i < c.Len(); i++ {
		src, dst := c.At(i)
		projected, err := h.Apply(src)
		if err != nil {
			if !errors.Is(err, ErrDegenerateProjection) {
				return nil, err
			}
			eval.Distances[i] = math.Inf(1)
			eval.Degenerate = append(eval.Degenerate, i)
			continue
		}
		dist := projected.Sub(dst).Norm()
		eval.Distances[i] = dist
		if dist <= tolerance {
			eval.InlierIndices = append(eval.InlierIndices, i)
		}
	}
	eval.Inliers = c.Subset(eval.InlierIndices)
	return eval, nil
}
