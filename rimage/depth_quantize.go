package rimage

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrInvalidQuantization is returned when depth values cannot be bucketed: no level count, no
// input maps, or a bucket width that would be zero.
var ErrInvalidQuantization = errors.New("invalid depth quantization")

// QuantizeDepthMaps buckets every depth map into `levels` discrete levels of equal width. The width
// (the quantum) is floor(max/levels), where max is the largest value across all maps, and every
// value v becomes floor(v/quantum)*quantum. The level index is clamped to levels-1, so the
// maximum value lands in the top bucket instead of opening an extra one. Inputs are not modified.
func QuantizeDepthMaps(maps []*DepthMap, levels int) ([]*DepthMap, Depth, error) {
	if levels < 1 {
		return nil, 0, errors.Wrapf(ErrInvalidQuantization, "level count must be positive, got %d", levels)
	}
	if len(maps) == 0 {
		return nil, 0, errors.Wrap(ErrInvalidQuantization, "no depth maps to quantize")
	}

	globalMax := lo.Max(lo.Map(maps, func(dm *DepthMap, _ int) Depth {
		_, hi := dm.MinMax()
		return hi
	}))
	quantum := globalMax / Depth(levels)
	if quantum == 0 {
		return nil, 0, errors.Wrapf(ErrInvalidQuantization,
			"max depth %d is too small for %d levels", globalMax, levels)
	}

	topLevel := Depth(levels - 1)
	out := make([]*DepthMap, len(maps))
	for i, dm := range maps {
		q := NewEmptyDepthMap(dm.width, dm.height)
		for k, v := range dm.data {
			q.data[k] = min(v/quantum, topLevel) * quantum
		}
		out[i] = q
	}
	return out, quantum, nil
}
