package stitch

import (
	"image"
	"image/color"
)

// Pixel is one canvas sample. Channels are wide enough to hold sums of weighted contributions.
type Pixel [3]uint32

// IsZero reports whether every channel is zero.
func (p Pixel) IsZero() bool {
	return p[0] == 0 && p[1] == 0 && p[2] == 0
}

// Canvas is a row-major accumulation buffer for a panorama.
type Canvas struct {
	data   []Pixel
	width  int
	height int
}

// NewCanvas returns a zeroed canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	width, height = max(width, 0), max(height, 0)
	return &Canvas{
		data:   make([]Pixel, width*height),
		width:  width,
		height: height,
	}
}

func (c *Canvas) kxy(x, y int) int {
	return (y * c.width) + x
}

// Width returns the horizontal size of the canvas.
func (c *Canvas) Width() int {
	return c.width
}

// Height returns the vertical size of the canvas.
func (c *Canvas) Height() int {
	return c.height
}

// In returns whether (x, y) is on the canvas.
func (c *Canvas) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

// At returns the pixel at (x, y).
func (c *Canvas) At(x, y int) Pixel {
	return c.data[c.kxy(x, y)]
}

// Set overwrites the pixel at (x, y).
func (c *Canvas) Set(x, y int, p Pixel) {
	c.data[c.kxy(x, y)] = p
}

// Add accumulates p into the pixel at (x, y).
func (c *Canvas) Add(x, y int, p Pixel) {
	k := c.kxy(x, y)
	c.data[k][0] += p[0]
	c.data[k][1] += p[1]
	c.data[k][2] += p[2]
}

// ContentBounds returns the smallest rectangle holding every non-zero pixel. ok is false when the
// canvas is blank.
func (c *Canvas) ContentBounds() (bounds image.Rectangle, ok bool) {
	minX, minY := c.width, c.height
	maxX, maxY := -1, -1
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			if c.At(x, y).IsZero() {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// SubCanvas copies the part of the canvas inside r into a new canvas.
func (c *Canvas) SubCanvas(r image.Rectangle) *Canvas {
	r = r.Intersect(image.Rect(0, 0, c.width, c.height))
	out := NewCanvas(r.Dx(), r.Dy())
	for y := 0; y < out.height; y++ {
		copy(out.data[out.kxy(0, y):out.kxy(0, y)+out.width], c.data[c.kxy(r.Min.X, r.Min.Y+y):])
	}
	return out
}

// ToImage converts the canvas to 8-bit RGBA, clamping every channel to 255.
func (c *Canvas) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			p := c.At(x, y)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(min(p[0], 255)),
				G: uint8(min(p[1], 255)),
				B: uint8(min(p[2], 255)),
				A: 255,
			})
		}
	}
	return img
}
