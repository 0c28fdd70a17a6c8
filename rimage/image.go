// Package rimage holds the in-memory image and depth map types consumed by the stitching pipeline.
package rimage

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Color is an 8-bit RGB pixel. Alpha is dropped on the way in.
type Color [3]uint8

// IsBlack reports whether every channel is zero.
func (c Color) IsBlack() bool {
	return c[0] == 0 && c[1] == 0 && c[2] == 0
}

// Image is a 3-channel 8-bit image addressed by (x, y) = (column, row).
type Image struct {
	data          []Color
	width, height int
}

// NewImage returns a black image of the given size.
func NewImage(width, height int) *Image {
	return &Image{
		data:   make([]Color, width*height),
		width:  width,
		height: height,
	}
}

// NewImageFromStdImage copies any image.Image into an Image. The input is normalized to
// non-premultiplied RGBA first, so a partially transparent pixel keeps its color.
func NewImageFromStdImage(img image.Image) *Image {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	out := NewImage(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			off := nrgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			out.data[out.kxy(x, y)] = Color{nrgba.Pix[off], nrgba.Pix[off+1], nrgba.Pix[off+2]}
		}
	}
	return out
}

func (i *Image) kxy(x, y int) int {
	return (y * i.width) + x
}

// Width returns the number of columns.
func (i *Image) Width() int {
	return i.width
}

// Height returns the number of rows.
func (i *Image) Height() int {
	return i.height
}

// In reports whether (x, y) lies inside the image.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

// Bounds returns the image rectangle anchored at the origin.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	c := i.GetXY(x, y)
	return color.RGBA{c[0], c[1], c[2], 0xff}
}

// GetXY returns the pixel at column x, row y.
func (i *Image) GetXY(x, y int) Color {
	return i.data[i.kxy(x, y)]
}

// SetXY sets the pixel at column x, row y.
func (i *Image) SetXY(x, y int, c Color) {
	i.data[i.kxy(x, y)] = c
}

// Clone returns a deep copy.
func (i *Image) Clone() *Image {
	out := &Image{
		data:   make([]Color, len(i.data)),
		width:  i.width,
		height: i.height,
	}
	copy(out.data, i.data)
	return out
}
