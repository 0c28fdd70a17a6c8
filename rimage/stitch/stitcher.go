package stitch

import (
	"context"
	"math"
	"math/rand"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/panorama/logging"
	"go.viam.com/panorama/rimage"
	"go.viam.com/panorama/rimage/transform"
)

// Stitcher aligns views to a reference image and composites them into one panorama.
type Stitcher struct {
	cfg     Config
	matcher transform.Matcher
	sampler transform.Sampler
	logger  logging.Logger
}

// Result is a cropped panorama and the homographies that placed each view on it.
type Result struct {
	Panorama *Canvas
	// Estimates holds one entry per view, in input order.
	Estimates []*transform.RANSACResult
	// Stats holds the draw statistics of the reference followed by every view.
	Stats []DrawStats
}

// NewStitcher returns a Stitcher that finds correspondences with matcher. Every estimate runs on
// its own generator seeded from sampler, in a fixed order, so a seeded sampler reproduces the
// result. A nil sampler is replaced by one seeded with cfg.Seed.
func NewStitcher(cfg Config, matcher transform.Matcher, sampler transform.Sampler, logger logging.Logger) (*Stitcher, error) {
	if err := cfg.Validate("stitch"); err != nil {
		return nil, err
	}
	if matcher == nil {
		return nil, errors.New("stitcher needs a matcher")
	}
	if logger == nil {
		logger = logging.NewBlankLogger("stitch")
	}
	if sampler == nil {
		sampler = rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec
	}
	return &Stitcher{cfg: cfg, matcher: matcher, sampler: sampler, logger: logger}, nil
}

// sublogger names a child logger and applies any level configured for it.
func (s *Stitcher) sublogger(name string) logging.Logger {
	logger := s.logger.Sublogger(name)
	if level, ok := logging.LevelForName(name, s.cfg.LogConfiguration); ok {
		logger.SetLevel(level)
	}
	return logger
}

// newRANSAC returns an estimator with a generator of its own. Callers must not call it
// concurrently.
func (s *Stitcher) newRANSAC() (*transform.RANSAC, error) {
	seed := int64(s.sampler.Intn(math.MaxInt32))
	return transform.NewRANSAC(s.cfg.RANSAC, rand.New(rand.NewSource(seed)), s.sublogger("ransac")) //nolint:gosec
}

func (s *Stitcher) drawOptions() DrawOptions {
	return DrawOptions{
		Offset:   r2.Point{X: s.cfg.OffsetX, Y: s.cfg.OffsetY},
		Fill:     s.cfg.Fill,
		Weighted: s.cfg.Weighted,
	}
}

// correspondences matches view against reference and keeps the pairs passing the ratio test.
func (s *Stitcher) correspondences(view, reference *rimage.Image) (transform.Correspondences, error) {
	c, err := transform.MatchAndFilter(s.matcher, view, reference, s.cfg.RatioTest)
	if err != nil {
		return transform.Correspondences{}, err
	}
	s.logger.Debugw("correspondences after ratio test", "count", c.Len())
	return c, nil
}

// Stitch estimates the homography from every view to reference, draws the reference followed by
// each view, and returns the cropped panorama. Views are matched and estimated concurrently; the
// drawing order is always the input order.
func (s *Stitcher) Stitch(ctx context.Context, reference *rimage.Image, views ...*rimage.Image) (*Result, error) {
	estimates := make([]*transform.RANSACResult, len(views))
	group, gctx := errgroup.WithContext(ctx)
	for i, view := range views {
		i, view := i, view
		ransac, err := s.newRANSAC()
		if err != nil {
			return nil, err
		}
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := s.correspondences(view, reference)
			if err != nil {
				return errors.Wrapf(err, "cannot match view %d", i)
			}
			est, err := ransac.Estimate(c)
			if err != nil {
				return errors.Wrapf(err, "cannot align view %d", i)
			}
			s.logger.Infow("view aligned", "view", i, "inliers", est.Evaluation.Count(), "iteration", est.Iteration)
			estimates[i] = est
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	opts := s.drawOptions()
	comp := NewCompositor(reference, s.cfg.Scale, s.sublogger("compositor"))
	res := &Result{Estimates: estimates}
	res.Stats = append(res.Stats, comp.Draw(reference, transform.IdentityHomography(), opts))
	for i, view := range views {
		res.Stats = append(res.Stats, comp.Draw(view, estimates[i].Homography, opts))
	}

	comp.Finalize()
	panorama, err := comp.Crop()
	if err != nil {
		return nil, err
	}
	res.Panorama = panorama
	return res, nil
}

// LayeredResult is a panorama built from depth layers.
type LayeredResult struct {
	Panorama *Canvas
	// Quantum is the depth width of one layer.
	Quantum rimage.Depth
	// Homographies maps every layer to the homography it was drawn with.
	Homographies map[int]*transform.Homography
	// FallbackLevels lists the layers that used the whole-image homography.
	FallbackLevels []int
}

// StitchLayered aligns view to reference one depth layer at a time, so that near and far content
// can follow different homographies. Both depth maps are quantized together into DepthLevels
// layers and the view's correspondences are split by the layer of their source point. Every layer
// with at least SampleSize pairs gets its own estimate; the others use the estimate over all pairs.
// The reference is drawn first, then the view's layers from the farthest to the nearest, each
// masked to its own pixels.
func (s *Stitcher) StitchLayered(
	ctx context.Context,
	reference, view *rimage.Image,
	viewDepth, referenceDepth *rimage.DepthMap,
) (*LayeredResult, error) {
	if viewDepth.Width() != view.Width() || viewDepth.Height() != view.Height() {
		return nil, errors.Errorf("view is %dx%d but its depth map is %dx%d",
			view.Width(), view.Height(), viewDepth.Width(), viewDepth.Height())
	}
	quantized, quantum, err := rimage.QuantizeDepthMaps([]*rimage.DepthMap{viewDepth, referenceDepth}, s.cfg.DepthLevels)
	if err != nil {
		return nil, err
	}
	levelMap := quantized[0]

	c, err := s.correspondences(view, reference)
	if err != nil {
		return nil, err
	}
	partition, err := transform.PartitionByDepth(levelMap, c, quantum)
	if err != nil {
		return nil, err
	}

	var global *transform.RANSACResult
	layers := make([]*transform.RANSACResult, s.cfg.DepthLevels)
	group, gctx := errgroup.WithContext(ctx)
	globalRANSAC, err := s.newRANSAC()
	if err != nil {
		return nil, err
	}
	group.Go(func() error {
		est, err := globalRANSAC.Estimate(c)
		if err != nil {
			return errors.Wrap(err, "cannot align view")
		}
		global = est
		return nil
	})
	for level := range layers {
		level := level
		pairs := partition[level]
		if pairs.Len() < s.cfg.RANSAC.SampleSize {
			continue
		}
		ransac, err := s.newRANSAC()
		if err != nil {
			return nil, err
		}
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			est, err := ransac.Estimate(pairs)
			if err != nil {
				s.logger.Warnw("cannot align depth layer, using the whole-image homography", "level", level, "error", err)
				return nil
			}
			s.logger.Debugw("depth layer aligned", "level", level, "pairs", pairs.Len(), "inliers", est.Evaluation.Count())
			layers[level] = est
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	res := &LayeredResult{Quantum: quantum, Homographies: map[int]*transform.Homography{}}
	for level, est := range layers {
		if est == nil {
			res.Homographies[level] = global.Homography
			res.FallbackLevels = append(res.FallbackLevels, level)
			continue
		}
		res.Homographies[level] = est.Homography
	}

	opts := s.drawOptions()
	opts.Weighted = false
	comp := NewCompositor(reference, s.cfg.Scale, s.sublogger("compositor"))
	comp.Draw(reference, transform.IdentityHomography(), opts)

	opts.SkipBlack = true
	levels := make([]int, 0, len(res.Homographies))
	for level := range res.Homographies {
		levels = append(levels, level)
	}
	slices.Sort(levels)
	slices.Reverse(levels)
	for _, level := range levels {
		comp.Draw(maskLayer(view, levelMap, quantum, level), res.Homographies[level], opts)
	}

	comp.Finalize()
	panorama, err := comp.Crop()
	if err != nil {
		return nil, err
	}
	res.Panorama = panorama
	return res, nil
}

// maskLayer copies the pixels of img whose quantized depth falls in level and leaves the rest black.
func maskLayer(img *rimage.Image, levels *rimage.DepthMap, quantum rimage.Depth, level int) *rimage.Image {
	out := rimage.NewImage(img.Width(), img.Height())
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			if int(levels.GetDepth(x, y)/quantum) == level {
				out.SetXY(x, y, img.GetXY(x, y))
			}
		}
	}
	return out
}
