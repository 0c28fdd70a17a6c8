package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/panorama/rimage"
)

type fixedMatcher struct {
	matches []KNNMatch
	err     error
}

func (m fixedMatcher) Match(query, train *rimage.Image) ([]KNNMatch, error) {
	return m.matches, m.err
}

func TestFilterByRatio(t *testing.T) {
	matches := []KNNMatch{
		{Query: r2.Point{X: 1, Y: 1}, Train: r2.Point{X: 11, Y: 11}, Distances: []float64{10, 100}},
		{Query: r2.Point{X: 2, Y: 2}, Train: r2.Point{X: 12, Y: 12}, Distances: []float64{80, 100}},
		{Query: r2.Point{X: 3, Y: 3}, Train: r2.Point{X: 13, Y: 13}, Distances: []float64{10}},
		{Query: r2.Point{X: 4, Y: 4}, Train: r2.Point{X: 14, Y: 14}, Distances: []float64{74, 100, 200}},
		{Query: r2.Point{X: 5, Y: 5}, Train: r2.Point{X: 15, Y: 15}, Distances: []float64{75, 100}},
	}

	c, err := FilterByRatio(matches, 0.75)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Sources, test.ShouldResemble, []r2.Point{{X: 1, Y: 1}, {X: 4, Y: 4}})
	test.That(t, c.Targets, test.ShouldResemble, []r2.Point{{X: 11, Y: 11}, {X: 14, Y: 14}})

	c, err = FilterByRatio(matches, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Len(), test.ShouldEqual, 4)

	c, err = FilterByRatio(nil, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Len(), test.ShouldEqual, 0)

	_, err = FilterByRatio(matches, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = FilterByRatio(matches, 1.2)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMatchAndFilter(t *testing.T) {
	img := rimage.NewImage(4, 4)
	m := fixedMatcher{matches: []KNNMatch{
		{Query: r2.Point{X: 1, Y: 2}, Train: r2.Point{X: 3, Y: 4}, Distances: []float64{1, 10}},
	}}
	c, err := MatchAndFilter(m, img, img, 0.7)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Len(), test.ShouldEqual, 1)

	boom := errors.New("boom")
	_, err = MatchAndFilter(fixedMatcher{err: boom}, img, img, 0.7)
	test.That(t, errors.Is(err, boom), test.ShouldBeTrue)
}
