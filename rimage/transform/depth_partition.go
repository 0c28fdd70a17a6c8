package transform

import (
	"math"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/panorama/rimage"
)

// DepthPartition maps a depth level to the correspondences whose source point lies at that level.
type DepthPartition map[int]Correspondences

// add appends a pair to the bucket for level, creating the bucket on first use.
func (p DepthPartition) add(level int, source, target r2.Point) {
	p[level] = p[level].Append(source, target)
}

// Levels returns the populated levels in ascending order.
func (p DepthPartition) Levels() []int {
	levels := lo.Keys(p)
	slices.Sort(levels)
	return levels
}

// PartitionByDepth splits c by the depth level of each source point. The depth at a source point is
// read from dm at the nearest pixel and its level is floor(depth/quantum). Relative order is kept
// within every bucket. A source point outside dm is a caller error.
func PartitionByDepth(dm *rimage.DepthMap, c Correspondences, quantum rimage.Depth) (DepthPartition, error) {
	if quantum == 0 {
		return nil, errors.Wrap(rimage.ErrInvalidQuantization, "depth quantum must be positive")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	partition := DepthPartition{}
	for i := 0; i < c.Len(); i++ {
		src, dst := c.At(i)
		x, y := int(math.Round(src.X)), int(math.Round(src.Y))
		if !dm.Contains(x, y) {
			return nil, errors.Wrapf(ErrOutOfBounds,
				"correspondence %d source (%g, %g) is outside the %dx%d depth map", i, src.X, src.Y, dm.Width(), dm.Height())
		}
		level := int(dm.GetDepth(x, y) / quantum)
		partition.add(level, src, dst)
	}
	return partition, nil
}
