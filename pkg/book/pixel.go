package book

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// Pixel is a single RGBA color with 8 bits per channel.
type Pixel struct {
	R, G, B, A uint8
}

// Transparent is the zero pixel every new frame is filled with.
var Transparent = Pixel{}

// RGBA builds a Pixel from its four channels.
func RGBA(r, g, b, a uint8) Pixel {
	return Pixel{R: r, G: g, B: b, A: a}
}

// Array returns the channels in r, g, b, a order.
func (p Pixel) Array() [4]uint8 {
	return [4]uint8{p.R, p.G, p.B, p.A}
}

// Hex formats the pixel as "#rrggbbaa".
func (p Pixel) Hex() string {
	return "#" + hex.EncodeToString([]byte{p.R, p.G, p.B, p.A})
}

// String implements fmt.Stringer.
func (p Pixel) String() string {
	return p.Hex()
}

// ParseHex parses "#rrggbb" or "#rrggbbaa" (the leading '#' is optional).
// Six-digit colors are fully opaque.
func ParseHex(s string) (Pixel, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return Pixel{}, perrors.New(perrors.ErrCodeInvalidColor, "color %q must have 6 or 8 hex digits", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Pixel{}, perrors.Wrap(perrors.ErrCodeInvalidColor, err, "color %q is not hexadecimal", s)
	}
	p := Pixel{R: b[0], G: b[1], B: b[2], A: 255}
	if len(b) == 4 {
		p.A = b[3]
	}
	return p, nil
}

// MarshalJSON encodes the pixel as a [r, g, b, a] array.
func (p Pixel) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Array())
}

// UnmarshalJSON accepts either a [r, g, b, a] array of integers in
// [0, 255] or a hex string understood by ParseHex.
func (p *Pixel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseHex(s)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}

	var channels []int
	if err := json.Unmarshal(data, &channels); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidColor, err, "color must be [r,g,b,a] or a hex string")
	}
	if len(channels) != 4 {
		return perrors.New(perrors.ErrCodeInvalidColor, "color must have 4 channels, got %d", len(channels))
	}
	var rgba [4]uint8
	for i, c := range channels {
		if c < 0 || c > 255 {
			return perrors.New(perrors.ErrCodeInvalidColor, "color channel %d out of range: %d", i, c)
		}
		rgba[i] = uint8(c)
	}
	if err := perrors.ValidateColor(rgba); err != nil {
		return err
	}
	*p = Pixel{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
	return nil
}

// GoString is used by %#v and makes test failures readable.
func (p Pixel) GoString() string {
	return fmt.Sprintf("book.RGBA(%d, %d, %d, %d)", p.R, p.G, p.B, p.A)
}
