package book

// BytesPerPixel is the size of one RGBA pixel in a frame buffer.
const BytesPerPixel = 4

// Frame is one image of a book: a row-major RGBA buffer of exactly
// width*height*4 bytes. The width it is indexed with always comes from the
// owning Book.
type Frame struct {
	Index int    `json:"index"`
	Pix   []byte `json:"data"`
}

// NewFrame allocates a transparent frame.
func NewFrame(index int, width, height uint16) *Frame {
	return &Frame{
		Index: index,
		Pix:   make([]byte, int(width)*int(height)*BytesPerPixel),
	}
}

// offset returns the byte offset of (x, y) or -1 when the point lies
// outside a width×height frame or the buffer is too short.
func (f *Frame) offset(x, y int, width, height uint16) int {
	if x < 0 || y < 0 || x >= int(width) || y >= int(height) {
		return -1
	}
	i := (y*int(width) + x) * BytesPerPixel
	if i+BytesPerPixel > len(f.Pix) {
		return -1
	}
	return i
}

// At returns the pixel at (x, y) of a frame with the given dimensions.
// ok is false when the point is out of range.
func (f *Frame) At(x, y int, width, height uint16) (p Pixel, ok bool) {
	i := f.offset(x, y, width, height)
	if i < 0 {
		return Pixel{}, false
	}
	s := f.Pix[i : i+BytesPerPixel : i+BytesPerPixel]
	return Pixel{R: s[0], G: s[1], B: s[2], A: s[3]}, true
}

// Set writes p at (x, y) and reports whether the point was in range.
func (f *Frame) Set(x, y int, width, height uint16, p Pixel) bool {
	i := f.offset(x, y, width, height)
	if i < 0 {
		return false
	}
	s := f.Pix[i : i+BytesPerPixel : i+BytesPerPixel]
	s[0], s[1], s[2], s[3] = p.R, p.G, p.B, p.A
	return true
}

// Fill paints every pixel of the frame with p.
func (f *Frame) Fill(p Pixel) {
	for i := 0; i+BytesPerPixel <= len(f.Pix); i += BytesPerPixel {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = p.R, p.G, p.B, p.A
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Index: f.Index, Pix: pix}
}
