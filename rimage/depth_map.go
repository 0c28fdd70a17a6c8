package rimage

import (
	"image"

	"golang.org/x/image/draw"
)

// Depth is the depth value of a single pixel. Units are whatever the depth source produced.
type Depth uint16

// DepthMap is a single-channel depth image addressed by (x, y) = (column, row).
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns a depth map of the given size with every value zero.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

// ConvertImageToDepthMap reads the first channel of an image as depth. 16-bit gray images keep
// their full range; everything else is converted to 8-bit RGBA and the red channel is used.
func ConvertImageToDepthMap(img image.Image) *DepthMap {
	bounds := img.Bounds()
	dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())

	if gray16, ok := img.(*image.Gray16); ok {
		for y := 0; y < dm.height; y++ {
			for x := 0; x < dm.width; x++ {
				dm.Set(x, y, Depth(gray16.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
			}
		}
		return dm
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, dm.width, dm.height))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			dm.Set(x, y, Depth(nrgba.Pix[nrgba.PixOffset(x, y)]))
		}
	}
	return dm
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// Width returns the number of columns.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the number of rows.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Contains reports whether (x, y) lies inside the depth map.
func (dm *DepthMap) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// GetDepth returns the depth at column x, row y.
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[dm.kxy(x, y)]
}

// Set sets the depth at column x, row y.
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[dm.kxy(x, y)] = val
}

// MinMax returns the smallest and largest depth values. An empty map returns (0, 0).
func (dm *DepthMap) MinMax() (Depth, Depth) {
	if len(dm.data) == 0 {
		return 0, 0
	}
	lo, hi := dm.data[0], dm.data[0]
	for _, v := range dm.data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Clone returns a deep copy.
func (dm *DepthMap) Clone() *DepthMap {
	out := NewEmptyDepthMap(dm.width, dm.height)
	copy(out.data, dm.data)
	return out
}
