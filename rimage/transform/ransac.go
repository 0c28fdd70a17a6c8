package transform

import (
	"math"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/panorama/logging"
)

// Sampler draws uniformly distributed indices in [0, n). *rand.Rand satisfies it.
type Sampler interface {
	Intn(n int) int
}

// defaultMaxSampleAttempts bounds how often a degenerate sample is redrawn within one iteration.
const defaultMaxSampleAttempts = 1000

// RANSACConfig holds the parameters of the consensus search.
type RANSACConfig struct {
	// Iterations is the maximum number of samples evaluated (n).
	Iterations int `json:"iterations"`
	// SampleSize is the number of correspondences drawn, with replacement, per iteration (r).
	SampleSize int `json:"sample_size"`
	// Tolerance is the reprojection distance in pixels under which a pair is an inlier (t).
	Tolerance float64 `json:"tolerance_px"`
	// ConsensusRatio is the fraction of all pairs that ends the search early (Tratio).
	ConsensusRatio float64 `json:"consensus_ratio"`
	// MaxSampleAttempts bounds the redraws of a sample whose solution is ambiguous. Zero means 1000.
	MaxSampleAttempts int `json:"max_sample_attempts,omitempty"`
	// NormalizePoints conditions the points before every fit.
	NormalizePoints bool `json:"normalize_points,omitempty"`
}

// DefaultRANSACConfig returns the parameters used when none are configured.
func DefaultRANSACConfig() RANSACConfig {
	return RANSACConfig{
		Iterations:        1000,
		SampleSize:        minCorrespondences,
		Tolerance:         3,
		ConsensusRatio:    0.8,
		MaxSampleAttempts: defaultMaxSampleAttempts,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *RANSACConfig) Validate(path string) error {
	if cfg.Iterations < 1 {
		return goutils.NewConfigValidationError(path, errors.Errorf("iterations must be at least 1, got %d", cfg.Iterations))
	}
	if cfg.SampleSize < minCorrespondences {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("sample_size must be at least %d, got %d", minCorrespondences, cfg.SampleSize))
	}
	if cfg.Tolerance < 0 || math.IsNaN(cfg.Tolerance) {
		return goutils.NewConfigValidationError(path, errors.Errorf("tolerance_px must be non-negative, got %v", cfg.Tolerance))
	}
	if !(cfg.ConsensusRatio > 0 && cfg.ConsensusRatio <= 1) {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("consensus_ratio must be in (0, 1], got %v", cfg.ConsensusRatio))
	}
	if cfg.MaxSampleAttempts < 0 {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("max_sample_attempts must be non-negative, got %d", cfg.MaxSampleAttempts))
	}
	return nil
}

// RANSAC estimates a homography robustly: it fits random samples, scores each fit against every
// correspondence, and refits on the winning consensus set.
type RANSAC struct {
	cfg     RANSACConfig
	sampler Sampler
	logger  logging.Logger
}

// RANSACResult is the refit homography and the consensus set it defines.
type RANSACResult struct {
	// Homography is normalized so its bottom-right entry is 1.
	Homography *Homography
	Evaluation *Evaluation
	// Iteration is the 1-based iteration whose consensus set was refit.
	Iteration int
	// EarlyExit is true when that iteration reached the consensus threshold.
	EarlyExit bool
	// SamplesDrawn counts every index drawn from the sampler.
	SamplesDrawn int
}

type candidate struct {
	homography *Homography
	evaluation *Evaluation
}

func (c *candidate) count() int {
	return c.evaluation.Count()
}

// NewRANSAC returns a RANSAC that draws its samples from sampler. The sampler is owned by the
// caller; seeding it fixes the result for a given input.
func NewRANSAC(cfg RANSACConfig, sampler Sampler, logger logging.Logger) (*RANSAC, error) {
	if err := cfg.Validate("ransac"); err != nil {
		return nil, err
	}
	if sampler == nil {
		return nil, errors.New("ransac needs a sampler")
	}
	if cfg.MaxSampleAttempts == 0 {
		cfg.MaxSampleAttempts = defaultMaxSampleAttempts
	}
	if logger == nil {
		logger = logging.NewBlankLogger("ransac")
	}
	return &RANSAC{cfg: cfg, sampler: sampler, logger: logger}, nil
}

// Estimate runs the consensus search over c.
//
// Each iteration samples SampleSize pairs with replacement, solves for a candidate and scores it
// against all of c. The first candidate whose consensus set reaches floor(ConsensusRatio*len(c)) is
// refit on that set and returned immediately. If none does, the largest consensus set (earliest on
// ties) is refit and returned.
func (r *RANSAC) Estimate(c Correspondences) (*RANSACResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	total := c.Len()
	if total < r.cfg.SampleSize || total < minCorrespondences {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences,
			"have %d correspondences, need at least %d", total, max(r.cfg.SampleSize, minCorrespondences))
	}
	threshold := int(math.Floor(r.cfg.ConsensusRatio * float64(total)))

	var best *candidate
	bestIteration := 0
	drawn := 0
	for iteration := 1; iteration <= r.cfg.Iterations; iteration++ {
		cand, draws := r.sampleCandidate(c)
		drawn += draws

		if best == nil || cand.count() > best.count() {
			best = cand
			bestIteration = iteration
			r.logger.Debugw("new best consensus", "iteration", iteration, "inliers", cand.count(), "threshold", threshold)
		}

		if cand.evaluation != nil && cand.count() >= threshold {
			h, eval, err := r.refit(c, cand)
			if err != nil {
				return nil, err
			}
			r.logResult(iteration, true, eval)
			return &RANSACResult{
				Homography:   h,
				Evaluation:   eval,
				Iteration:    iteration,
				EarlyExit:    true,
				SamplesDrawn: drawn,
			}, nil
		}
	}

	r.logger.Debugw("consensus threshold not reached, refitting the best iteration",
		"iteration", bestIteration, "inliers", best.count(), "threshold", threshold)
	h, eval, err := r.refit(c, best)
	if err != nil {
		return nil, err
	}
	r.logResult(bestIteration, false, eval)
	return &RANSACResult{
		Homography:   h,
		Evaluation:   eval,
		Iteration:    bestIteration,
		SamplesDrawn: drawn,
	}, nil
}

// sampleCandidate draws one sample and fits it. Samples with an ambiguous solution are redrawn up
// to MaxSampleAttempts times; if all of them are ambiguous the candidate has no consensus set.
func (r *RANSAC) sampleCandidate(c Correspondences) (*candidate, int) {
	indices := make([]int, r.cfg.SampleSize)
	draws := 0
	for attempt := 0; attempt < r.cfg.MaxSampleAttempts; attempt++ {
		for k := range indices {
			indices[k] = r.sampler.Intn(c.Len())
			draws++
		}
		h, err := FitHomography(c.Subset(indices), r.cfg.NormalizePoints)
		if err != nil {
			continue
		}
		eval, err := EvaluateInliers(h, c, r.cfg.Tolerance)
		if err != nil {
			continue
		}
		return &candidate{homography: h, evaluation: eval}, draws
	}
	r.logger.Debugw("every sample was degenerate", "attempts", r.cfg.MaxSampleAttempts)
	return &candidate{}, draws
}

// refit solves again using the candidate's whole consensus set, normalizes the result and scores it
// against all of c.
func (r *RANSAC) refit(c Correspondences, cand *candidate) (*Homography, *Evaluation, error) {
	if cand.count() < minCorrespondences {
		return nil, nil, errors.Wrapf(ErrInsufficientCorrespondences,
			"consensus set of %d is too small to refit", cand.count())
	}
	h, err := FitHomography(cand.evaluation.Inliers, r.cfg.NormalizePoints)
	if err != nil {
		if !errors.Is(err, ErrAmbiguousSolution) {
			return nil, nil, err
		}
		r.logger.Warnw("refit on the consensus set is ambiguous, keeping the sampled homography",
			"inliers", cand.count())
		h = cand.homography
	}
	normalized, err := h.Normalize()
	if err != nil {
		return nil, nil, err
	}
	eval, err := EvaluateInliers(normalized, c, r.cfg.Tolerance)
	if err != nil {
		return nil, nil, err
	}
	return normalized, eval, nil
}

func (r *RANSAC) logResult(iteration int, earlyExit bool, eval *Evaluation) {
	summary, err := eval.Stats()
	if err != nil {
		r.logger.Debugw("cannot summarize reprojection error", "error", err)
		return
	}
	r.logger.Debugw("homography estimated",
		"iteration", iteration,
		"early_exit", earlyExit,
		"inliers", eval.Count(),
		"mean_error_px", summary.Mean,
		"median_error_px", summary.Median,
		"max_error_px", summary.Max,
	)
}
