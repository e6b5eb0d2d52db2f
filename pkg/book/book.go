// Package book defines the in-memory pixel book: an ordered list of RGBA
// frames that share one width and height.
//
// A Book is created with [New] or decoded by package codec, mutated in
// place by package draw, and persisted again by codec. Frames are owned by
// exactly one book and are never shared.
//
// Pixel access always goes through bounds-checked accessors:
//
//	b, _ := book.New("sprite.pxl", 16, 16, 4)
//	if err := b.SetPixel(0, 3, 3, book.RGBA(255, 0, 0, 255)); err != nil {
//	    // *errors.CoordinatesError
//	}
//	p, err := b.Pixel(0, 3, 3)
package book

import (
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// Book is a named multi-frame raster image. Its JSON form carries each
// frame's pixels as base64.
type Book struct {
	Filename string   `json:"filename"`
	Width    uint16   `json:"width"`
	Height   uint16   `json:"height"`
	Frames   []*Frame `json:"frames"`
}

// New creates a book of frameCount transparent frames.
// Zero dimensions or a zero frame count fail with INVALID_DIMENSIONS.
func New(filename string, width, height uint16, frameCount int) (*Book, error) {
	if width == 0 || height == 0 || frameCount <= 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidDimensions,
			"width, height and frame count must be greater than 0 (got %dx%d, %d frames)", width, height, frameCount)
	}
	frames := make([]*Frame, frameCount)
	for i := range frames {
		frames[i] = NewFrame(i, width, height)
	}
	return &Book{
		Filename: filename,
		Width:    width,
		Height:   height,
		Frames:   frames,
	}, nil
}

// FrameSize is the byte length of every frame buffer, width*height*4.
func (b *Book) FrameSize() int {
	return int(b.Width) * int(b.Height) * BytesPerPixel
}

// FrameCount returns the number of frames.
func (b *Book) FrameCount() int {
	return len(b.Frames)
}

// InBounds reports whether (x, y) lies inside the image.
func (b *Book) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < int(b.Width) && y < int(b.Height)
}

// Frame returns frame i, or an invalid-coordinates error when i is not a
// valid frame index.
func (b *Book) Frame(i int) (*Frame, error) {
	if i < 0 || i >= len(b.Frames) {
		return nil, perrors.InvalidCoordinates(0, 0, b.Width, b.Height)
	}
	return b.Frames[i], nil
}

// Pixel reads the pixel at (x, y) of the given frame.
func (b *Book) Pixel(frame, x, y int) (Pixel, error) {
	if frame < 0 || frame >= len(b.Frames) || !b.InBounds(x, y) {
		return Pixel{}, b.coordsErr(x, y)
	}
	p, ok := b.Frames[frame].At(x, y, b.Width, b.Height)
	if !ok {
		return Pixel{}, b.coordsErr(x, y)
	}
	return p, nil
}

// SetPixel writes the pixel at (x, y) of the given frame.
func (b *Book) SetPixel(frame, x, y int, p Pixel) error {
	if frame < 0 || frame >= len(b.Frames) || !b.InBounds(x, y) {
		return b.coordsErr(x, y)
	}
	if !b.Frames[frame].Set(x, y, b.Width, b.Height, p) {
		return b.coordsErr(x, y)
	}
	return nil
}

// Clone returns a deep copy of the book.
func (b *Book) Clone() *Book {
	c := &Book{
		Filename: b.Filename,
		Width:    b.Width,
		Height:   b.Height,
		Frames:   make([]*Frame, len(b.Frames)),
	}
	for i, f := range b.Frames {
		c.Frames[i] = f.Clone()
	}
	return c
}

func (b *Book) coordsErr(x, y int) error {
	return perrors.InvalidCoordinates(clampU16(x), clampU16(y), b.Width, b.Height)
}

func clampU16(v int) uint16 {
	switch {
	case v < 0:
		return 0
	case v > 0xFFFF:
		return 0xFFFF
	}
	return uint16(v)
}
