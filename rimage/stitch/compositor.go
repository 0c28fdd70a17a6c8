package stitch

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/panorama/logging"
	"go.viam.com/panorama/rimage"
	"go.viam.com/panorama/rimage/transform"
)

// ErrNoContent is returned when cropping a canvas that nothing was drawn on.
var ErrNoContent = errors.New("canvas has no content")

// snapTolerance is how far below an integer a projected coordinate may fall and still floor to it.
const snapTolerance = 1e-6

// ScaleFactor sizes the canvas as a multiple of the reference image.
type ScaleFactor struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DrawOptions controls how a warped image is written to the canvas.
type DrawOptions struct {
	// Offset is added to every projected position.
	Offset r2.Point
	// Fill is the edge length of the square block each source pixel is written to, which hides
	// holes left by forward warping. Values below 1 mean 1.
	Fill int
	// Weighted accumulates pixels scaled by a triangular weight across the source columns instead of
	// overwriting, so that Finalize can blend overlapping images.
	Weighted bool
	// SkipBlack leaves the canvas alone where the source pixel is black, which lets masked layers
	// be drawn over each other. It only applies to overwriting draws; a weighted draw accumulates
	// black pixels like any other.
	SkipBlack bool
}

// DrawStats counts what happened to the pixels of one Draw.
type DrawStats struct {
	// Written counts canvas pixels that were written.
	Written int
	// OutOfBounds counts block pixels that landed outside the canvas.
	OutOfBounds int
	// Degenerate counts source pixels whose projection was not finite.
	Degenerate int
	// Black counts source pixels skipped by SkipBlack in an overwriting draw.
	Black int
}

// Skipped returns how many pixels could not be placed.
func (s DrawStats) Skipped() int {
	return s.OutOfBounds + s.Degenerate
}

// A Compositor warps images onto a shared canvas and blends them. It owns its canvas and weight
// map and is not safe for concurrent use.
type Compositor struct {
	canvas  *Canvas
	weights *WeightMap
	logger  logging.Logger
}

// NewCompositor allocates a blank canvas of (width*scale.X) x (height*scale.Y) for reference.
func NewCompositor(reference *rimage.Image, scale ScaleFactor, logger logging.Logger) *Compositor {
	if logger == nil {
		logger = logging.NewBlankLogger("compositor")
	}
	return &Compositor{
		canvas: NewCanvas(reference.Width()*scale.X, reference.Height()*scale.Y),
		logger: logger,
	}
}

// Canvas returns the canvas being drawn on.
func (c *Compositor) Canvas() *Canvas {
	return c.canvas
}

// Weights returns the accumulated blending weights, or nil if no weighted draw happened yet.
func (c *Compositor) Weights() *WeightMap {
	return c.weights
}

// columnWeight is the triangular blending weight of source column j in an image w columns wide.
// It peaks in the middle and stays above zero at the edges.
func columnWeight(j, w int) float64 {
	half := float64(w) / 2
	if j > w/2 {
		return float64(w-j+1) / half
	}
	return float64(j+1) / half
}

func scalePixel(c rimage.Color, weight float64) Pixel {
	return Pixel{
		uint32(math.Round(weight * float64(c[0]))),
		uint32(math.Round(weight * float64(c[1]))),
		uint32(math.Round(weight * float64(c[2]))),
	}
}

// Draw maps every pixel (j, i) of src through h, adds opts.Offset and writes the pixel to the
// Fill x Fill block whose top-left corner is the floored destination. Pixels that fall off the
// canvas or project to infinity are skipped and counted; a draw never fails.
func (c *Compositor) Draw(src *rimage.Image, h *transform.Homography, opts DrawOptions) DrawStats {
	var stats DrawStats
	fill := max(opts.Fill, 1)
	width := src.Width()
	if opts.Weighted && c.weights == nil {
		c.weights = NewWeightMap(c.canvas.Width(), c.canvas.Height())
	}

	for i := 0; i < src.Height(); i++ {
		for j := 0; j < width; j++ {
			px := src.GetXY(j, i)
			if opts.SkipBlack && !opts.Weighted && px.IsBlack() {
				stats.Black++
				continue
			}
			dst, err := h.Apply(r2.Point{X: float64(j), Y: float64(i)})
			if err == nil && (math.IsInf(dst.X, 0) || math.IsInf(dst.Y, 0) || math.IsNaN(dst.X) || math.IsNaN(dst.Y)) {
				err = errors.Wrapf(transform.ErrDegenerateProjection, "pixel (%d, %d) projects to (%g, %g)", j, i, dst.X, dst.Y)
			}
			if err != nil {
				stats.Degenerate++
				c.logger.Debugw("skipping pixel", "x", j, "y", i, "error", err)
				continue
			}
			dst = dst.Add(opts.Offset)
			x, y := math.Floor(dst.X+snapTolerance), math.Floor(dst.Y+snapTolerance)

			value := Pixel{uint32(px[0]), uint32(px[1]), uint32(px[2])}
			var weight float64
			if opts.Weighted {
				weight = columnWeight(j, width)
				value = scalePixel(px, weight)
			}

			for dy := 0; dy < fill; dy++ {
				for dx := 0; dx < fill; dx++ {
					fx, fy := x+float64(dx), y+float64(dy)
					if fx < 0 || fy < 0 || fx >= float64(c.canvas.Width()) || fy >= float64(c.canvas.Height()) {
						stats.OutOfBounds++
						c.logger.Debugw("pixel outside the canvas", "x", j, "y", i, "canvas_x", fx, "canvas_y", fy)
						continue
					}
					cx, cy := int(fx), int(fy)
					if opts.Weighted {
						c.canvas.Add(cx, cy, value)
						c.weights.Add(cx, cy, weight)
					} else {
						c.canvas.Set(cx, cy, value)
					}
					stats.Written++
				}
			}
		}
	}

	if stats.Skipped() > 0 {
		c.logger.Warnw("some pixels could not be drawn",
			"out_of_bounds", stats.OutOfBounds, "degenerate", stats.Degenerate, "written", stats.Written)
	}
	return stats
}

// Finalize divides every pixel that received a weighted contribution by its accumulated weight.
// It must be called exactly once, after the last weighted Draw; a second call divides again.
func (c *Compositor) Finalize() {
	if c.weights == nil {
		return
	}
	for y := 0; y < c.canvas.Height(); y++ {
		for x := 0; x < c.canvas.Width(); x++ {
			w := c.weights.Get(x, y)
			if w == 0 {
				continue
			}
			p := c.canvas.At(x, y)
			c.canvas.Set(x, y, Pixel{
				uint32(math.Round(float64(p[0]) / w)),
				uint32(math.Round(float64(p[1]) / w)),
				uint32(math.Round(float64(p[2]) / w)),
			})
		}
	}
}

// Crop returns a copy of the smallest part of the canvas that holds every non-zero pixel.
func (c *Compositor) Crop() (*Canvas, error) {
	bounds, ok := c.canvas.ContentBounds()
	if !ok {
		return nil, ErrNoContent
	}
	return c.canvas.SubCanvas(bounds), nil
}
