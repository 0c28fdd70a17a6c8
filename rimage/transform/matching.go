package transform

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/panorama/rimage"
)

// KNNMatch is the result of a k-nearest-neighbor descriptor search for one keypoint of the query
// image.
type KNNMatch struct {
	// Query is the keypoint location in the query image.
	Query r2.Point
	// Train is the location of the nearest neighbor in the train image.
	Train r2.Point
	// Distances are the descriptor distances to the nearest neighbors, closest first.
	Distances []float64
}

// A Matcher detects keypoints in two images and returns, for every query keypoint, its nearest
// neighbors in the train image. Feature extraction lives outside this module; implementations wrap
// whatever detector the caller uses and must be safe for concurrent use.
type Matcher interface {
	Match(query, train *rimage.Image) ([]KNNMatch, error)
}

// FilterByRatio keeps the matches whose nearest neighbor is distinctly closer than the second
// nearest, nearest < ratio*secondNearest, and returns them as query -> train correspondences in
// input order. Matches with fewer than two neighbors cannot be tested and are dropped.
func FilterByRatio(matches []KNNMatch, ratio float64) (Correspondences, error) {
	if !(ratio > 0 && ratio <= 1) {
		return Correspondences{}, errors.Errorf("ratio must be in (0, 1], got %v", ratio)
	}
	var out Correspondences
	for _, m := range matches {
		if len(m.Distances) < 2 {
			continue
		}
		if m.Distances[0] < ratio*m.Distances[1] {
			out = out.Append(m.Query, m.Train)
		}
	}
	return out, nil
}

// MatchAndFilter runs matcher on the two images and applies the ratio test to its output.
func MatchAndFilter(matcher Matcher, query, train *rimage.Image, ratio float64) (Correspondences, error) {
	matches, err := matcher.Match(query, train)
	if err != nil {
		return Correspondences{}, errors.Wrap(err, "matching keypoints")
	}
	return FilterByRatio(matches, ratio)
}
