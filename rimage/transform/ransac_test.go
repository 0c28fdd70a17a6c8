package transform

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/panorama/logging"
)

// scriptedSampler replays a fixed sequence of indices and counts how many were drawn.
type scriptedSampler struct {
	indices []int
	drawn   int
}

func (s *scriptedSampler) Intn(n int) int {
	idx := s.indices[s.drawn%len(s.indices)] % n
	s.drawn++
	return idx
}

// translatedSet returns eight pairs related by a (10, 10) shift followed by two outliers.
func translatedSet(t *testing.T) Correspondences {
	t.Helper()
	sources := []r2.Point{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100},
		{X: 50, Y: 20}, {X: 20, Y: 60}, {X: 80, Y: 40}, {X: 60, Y: 90},
		{X: 40, Y: 75}, {X: 75, Y: 15},
	}
	targets := make([]r2.Point, len(sources))
	for i, pt := range sources {
		targets[i] = pt.Add(r2.Point{X: 10, Y: 10})
	}
	targets[8] = targets[8].Add(r2.Point{X: 37, Y: -51})
	targets[9] = targets[9].Add(r2.Point{X: -44, Y: 29})
	c, err := NewCorrespondences(sources, targets)
	test.That(t, err, test.ShouldBeNil)
	return c
}

func TestRANSACConfigValidate(t *testing.T) {
	cfg := DefaultRANSACConfig()
	test.That(t, cfg.Validate("path"), test.ShouldBeNil)

	for name, mutate := range map[string]func(*RANSACConfig){
		"iterations":          func(c *RANSACConfig) { c.Iterations = 0 },
		"sample_size":         func(c *RANSACConfig) { c.SampleSize = 3 },
		"tolerance_px":        func(c *RANSACConfig) { c.Tolerance = -1 },
		"consensus_ratio":     func(c *RANSACConfig) { c.ConsensusRatio = 0 },
		"consensus_ratio > 1": func(c *RANSACConfig) { c.ConsensusRatio = 1.5 },
		"max_sample_attempts": func(c *RANSACConfig) { c.MaxSampleAttempts = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultRANSACConfig()
			mutate(&cfg)
			err := cfg.Validate("path")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, "path")
		})
	}

	_, err := NewRANSAC(RANSACConfig{}, rand.New(rand.NewSource(1)), nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewRANSAC(DefaultRANSACConfig(), nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRANSACTranslation(t *testing.T) {
	sources := []r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	targets := []r2.Point{{X: 10, Y: 10}, {X: 110, Y: 10}, {X: 110, Y: 110}, {X: 10, Y: 110}}
	c, err := NewCorrespondences(sources, targets)
	test.That(t, err, test.ShouldBeNil)

	cfg := RANSACConfig{Iterations: 1, SampleSize: 4, Tolerance: 0.5, ConsensusRatio: 1}
	r, err := NewRANSAC(cfg, rand.New(rand.NewSource(42)), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	res, err := r.Estimate(c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.EarlyExit, test.ShouldBeTrue)
	test.That(t, res.Iteration, test.ShouldEqual, 1)
	test.That(t, res.Evaluation.Count(), test.ShouldEqual, 4)
	test.That(t, res.Homography.At(2, 2), test.ShouldEqual, 1.0)
	homographyShouldMatch(t, res.Homography, []float64{1, 0, 10, 0, 1, 10, 0, 0, 1})
}

func TestRANSACUnitSquareTranslation(t *testing.T) {
	sources := []r2.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	targets := []r2.Point{{X: 10, Y: 10}, {X: 10, Y: 11}, {X: 11, Y: 10}, {X: 11, Y: 11}}
	c, err := NewCorrespondences(sources, targets)
	test.That(t, err, test.ShouldBeNil)

	cfg := RANSACConfig{Iterations: 1, SampleSize: 4, Tolerance: 0.5, ConsensusRatio: 1}
	for seed := int64(1); seed <= 20; seed++ {
		r, err := NewRANSAC(cfg, rand.New(rand.NewSource(seed)), logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)

		res, err := r.Estimate(c)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.EarlyExit, test.ShouldBeTrue)
		test.That(t, res.Evaluation.Count(), test.ShouldEqual, 4)
		homographyShouldMatch(t, res.Homography, []float64{1, 0, 10, 0, 1, 10, 0, 0, 1})
	}
}

func TestRANSACPhotoScaleSampleIsNotRedrawn(t *testing.T) {
	h, err := NewHomography([]float64{1.02, 0.03, 250, -0.01, 0.99, 40, 1e-5, 2e-5, 1})
	test.That(t, err, test.ShouldBeNil)
	sources := []r2.Point{
		{X: 312, Y: 2870}, {X: 3905, Y: 140}, {X: 2210, Y: 1995}, {X: 75, Y: 410},
		{X: 1480, Y: 760}, {X: 3340, Y: 2650},
	}
	c, err := NewCorrespondences(sources, mapPoints(t, h, sources))
	test.That(t, err, test.ShouldBeNil)

	sampler := &scriptedSampler{indices: []int{0, 1, 2, 3}}
	cfg := RANSACConfig{Iterations: 10, SampleSize: 4, Tolerance: 0.5, ConsensusRatio: 1}
	r, err := NewRANSAC(cfg, sampler, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	res, err := r.Estimate(c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.EarlyExit, test.ShouldBeTrue)
	test.That(t, res.SamplesDrawn, test.ShouldEqual, 4)
	test.That(t, res.Evaluation.Count(), test.ShouldEqual, 6)
}

func TestRANSACEarlyExit(t *testing.T) {
	c := translatedSet(t)
	sampler := &scriptedSampler{indices: []int{0, 1, 2, 3}}
	cfg := RANSACConfig{Iterations: 100, SampleSize: 4, Tolerance: 1, ConsensusRatio: 0.8}
	r, err := NewRANSAC(cfg, sampler, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	res, err := r.Estimate(c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.EarlyExit, test.ShouldBeTrue)
	test.That(t, res.Iteration, test.ShouldEqual, 1)
	test.That(t, res.SamplesDrawn, test.ShouldEqual, 4)
	test.That(t, sampler.drawn, test.ShouldEqual, 4)
	test.That(t, res.Evaluation.InlierIndices, test.ShouldResemble, []int{0, 1, 2, 3, 4, 5, 6, 7})
	homographyShouldMatch(t, res.Homography, []float64{1, 0, 10, 0, 1, 10, 0, 0, 1})
}

func TestRANSACExhaustion(t *testing.T) {
	c := translatedSet(t)
	// the first sample mixes in both outliers, the other two are clean
	sampler := &scriptedSampler{indices: []int{0, 1, 8, 9, 0, 1, 2, 3, 4, 5, 6, 7}}
	cfg := RANSACConfig{Iterations: 3, SampleSize: 4, Tolerance: 1, ConsensusRatio: 1}
	r, err := NewRANSAC(cfg, sampler, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	res, err := r.Estimate(c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.EarlyExit, test.ShouldBeFalse)
	// iterations 2 and 3 tie; the earlier one is kept
	test.That(t, res.Iteration, test.ShouldEqual, 2)
	test.That(t, res.SamplesDrawn, test.ShouldEqual, 12)
	test.That(t, res.Evaluation.Count(), test.ShouldEqual, 8)
	homographyShouldMatch(t, res.Homography, []float64{1, 0, 10, 0, 1, 10, 0, 0, 1})
}

func TestRANSACSeparatesInliersFromOutliers(t *testing.T) {
	truth, err := NewHomography([]float64{
		1.05, 0.02, 30,
		-0.03, 0.98, -12,
		5e-5, -2e-5, 1,
	})
	test.That(t, err, test.ShouldBeNil)

	gen := rand.New(rand.NewSource(7))
	var c Correspondences
	for i := 0; i < 40; i++ {
		src := r2.Point{X: gen.Float64() * 200, Y: gen.Float64() * 200}
		dst, err := truth.Apply(src)
		test.That(t, err, test.ShouldBeNil)
		if i < 30 {
			dst = dst.Add(r2.Point{X: gen.Float64()*0.4 - 0.2, Y: gen.Float64()*0.4 - 0.2})
		} else {
			dst = dst.Add(r2.Point{X: 20 + gen.Float64()*20, Y: -20 - gen.Float64()*20})
		}
		c = c.Append(src, dst)
	}

	cfg := RANSACConfig{Iterations: 500, SampleSize: 4, Tolerance: 3, ConsensusRatio: 0.7, NormalizePoints: true}
	r, err := NewRANSAC(cfg, rand.New(rand.NewSource(42)), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	res, err := r.Estimate(c)
	test.That(t, err, test.ShouldBeNil)

	eval := res.Evaluation
	test.That(t, eval.Count(), test.ShouldBeGreaterThanOrEqualTo, 28)
	inlier := map[int]bool{}
	for _, idx := range eval.InlierIndices {
		inlier[idx] = true
		test.That(t, idx, test.ShouldBeLessThan, 30)
	}
	for i, d := range eval.Distances {
		if inlier[i] {
			test.That(t, d, test.ShouldBeLessThanOrEqualTo, cfg.Tolerance)
		} else {
			test.That(t, d, test.ShouldBeGreaterThan, cfg.Tolerance)
		}
	}
	test.That(t, eval.Inliers.Len(), test.ShouldEqual, eval.Count())
}

func TestRANSACIsReproducible(t *testing.T) {
	c := translatedSet(t)
	cfg := DefaultRANSACConfig()
	cfg.ConsensusRatio = 1

	run := func() *RANSACResult {
		r, err := NewRANSAC(cfg, rand.New(rand.NewSource(42)), logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		res, err := r.Estimate(c)
		test.That(t, err, test.ShouldBeNil)
		return res
	}
	first, second := run(), run()
	test.That(t, second.Iteration, test.ShouldEqual, first.Iteration)
	test.That(t, second.SamplesDrawn, test.ShouldEqual, first.SamplesDrawn)
	test.That(t, second.Evaluation.InlierIndices, test.ShouldResemble, first.Evaluation.InlierIndices)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			test.That(t, second.Homography.At(row, col), test.ShouldEqual, first.Homography.At(row, col))
		}
	}
}

func TestRANSACInsufficientCorrespondences(t *testing.T) {
	sources := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	c, err := NewCorrespondences(sources, sources)
	test.That(t, err, test.ShouldBeNil)

	r, err := NewRANSAC(DefaultRANSACConfig(), rand.New(rand.NewSource(1)), nil)
	test.That(t, err, test.ShouldBeNil)
	_, err = r.Estimate(c)
	test.That(t, errors.Is(err, ErrInsufficientCorrespondences), test.ShouldBeTrue)

	cfg := DefaultRANSACConfig()
	cfg.SampleSize = 6
	r, err = NewRANSAC(cfg, rand.New(rand.NewSource(1)), nil)
	test.That(t, err, test.ShouldBeNil)
	_, err = r.Estimate(translatedSet(t).Subset([]int{0, 1, 2, 3, 4}))
	test.That(t, errors.Is(err, ErrInsufficientCorrespondences), test.ShouldBeTrue)
}

func TestRANSACAllSamplesDegenerate(t *testing.T) {
	var c Correspondences
	for i := 0; i < 6; i++ {
		c = c.Append(r2.Point{X: 5, Y: 5}, r2.Point{X: 6, Y: 6})
	}
	sampler := &scriptedSampler{indices: []int{0, 1, 2, 3, 4, 5}}
	cfg := RANSACConfig{Iterations: 2, SampleSize: 4, Tolerance: 1, ConsensusRatio: 1, MaxSampleAttempts: 3}
	r, err := NewRANSAC(cfg, sampler, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, err = r.Estimate(c)
	test.That(t, errors.Is(err, ErrInsufficientCorrespondences), test.ShouldBeTrue)
	test.That(t, sampler.drawn, test.ShouldEqual, 2*3*4)
}
