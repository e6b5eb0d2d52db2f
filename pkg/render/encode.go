package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"

	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// Export formats.
const (
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// Formats lists the supported export formats.
var Formats = []string{FormatPNG, FormatBMP}

// ParseFormat normalizes a format name or file extension ("PNG", ".bmp").
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimPrefix(s, "."))
	switch f {
	case FormatPNG, FormatBMP:
		return f, nil
	}
	return "", perrors.New(perrors.ErrCodeInvalidInput, "unsupported export format %q (want one of %s)", s, strings.Join(Formats, ", "))
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if format == FormatBMP {
		return "image/bmp"
	}
	return "image/png"
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// EncodeBMP writes img as BMP.
func EncodeBMP(w io.Writer, img image.Image) error {
	if err := bmp.Encode(w, img); err != nil {
		return fmt.Errorf("encode bmp: %w", err)
	}
	return nil
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case FormatPNG:
		return EncodePNG(w, img)
	case FormatBMP:
		return EncodeBMP(w, img)
	}
	_, err := ParseFormat(format)
	return err
}
