package render

import "image/color"

// Checkerboard is the background drawn behind transparent pixels.
type Checkerboard struct {
	Light, Dark color.RGBA
	// Square is the side of one square, in image pixels at scale 1.
	Square int
}

// DefaultCheckerboard returns light 0xF0F0F0 and dark 0xC8C8C8 squares of
// 8 pixels.
func DefaultCheckerboard() Checkerboard {
	return Checkerboard{
		Light:  color.RGBA{R: 0xF0, G: 0xF0, B: 0xF0, A: 0xFF},
		Dark:   color.RGBA{R: 0xC8, G: 0xC8, B: 0xC8, A: 0xFF},
		Square: 8,
	}
}

// At returns the background color at screen position (x, y) when the image
// is drawn at the given scale. Squares grow with the scale so the pattern
// stays aligned to image pixels.
func (c Checkerboard) At(x, y, scale int) color.RGBA {
	size := max(c.Square*max(scale, 1), 1)
	if (x/size+y/size)%2 == 0 {
		return c.Light
	}
	return c.Dark
}
