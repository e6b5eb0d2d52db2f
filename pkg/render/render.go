// Package render turns book frames into images for viewing and export.
//
// Pixels are stored as straight (non-premultiplied) RGBA, so [Frame]
// returns an *image.NRGBA sharing no memory with the book. [Composite]
// flattens a frame over the transparency checkerboard and scales it by an
// integer factor with nearest-neighbour sampling, which keeps pixel edges
// sharp at every zoom level.
package render

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/pixlkit/pixl/pkg/book"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

const (
	// MaxScale bounds the zoom factor accepted by Raw and Composite.
	MaxScale = 64

	// MaxPixels bounds the size of a scaled image: 4096x4096, 64 MiB of
	// RGBA.
	MaxPixels = 4096 * 4096
)

// checkScale rejects scale factors outside [1, MaxScale] and outputs
// larger than MaxPixels.
func checkScale(b *book.Book, scale int) error {
	if scale < 1 || scale > MaxScale {
		return perrors.New(perrors.ErrCodeInvalidInput, "scale must be between 1 and %d, got %d", MaxScale, scale)
	}
	w, h := int64(b.Width)*int64(scale), int64(b.Height)*int64(scale)
	if w*h > MaxPixels {
		return perrors.New(perrors.ErrCodeInvalidInput,
			"%dx%d at scale %d is %dx%d pixels, over the limit of %d", b.Width, b.Height, scale, w, h, MaxPixels)
	}
	return nil
}

// Frame returns frame i of b as an image.
func Frame(b *book.Book, i int) (*image.NRGBA, error) {
	f, err := b.Frame(i)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, int(b.Width), int(b.Height)))
	copy(img.Pix, f.Pix)
	return img, nil
}

// Raw returns frame i of b with its transparency kept, scaled by scale.
func Raw(b *book.Book, i, scale int) (*image.NRGBA, error) {
	if err := checkScale(b, scale); err != nil {
		return nil, err
	}
	img, err := Frame(b, i)
	if err != nil || scale == 1 {
		return img, err
	}
	r := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx()*scale, r.Dy()*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, r, xdraw.Src, nil)
	return dst, nil
}

// Composite returns frame i of b blended over the default checkerboard
// and scaled by scale. The result is fully opaque.
func Composite(b *book.Book, i, scale int) (*image.RGBA, error) {
	return DefaultCheckerboard().Composite(b, i, scale)
}

// Composite is like the package-level Composite with a custom background.
func (c Checkerboard) Composite(b *book.Book, i, scale int) (*image.RGBA, error) {
	if err := checkScale(b, scale); err != nil {
		return nil, err
	}
	f, err := b.Frame(i)
	if err != nil {
		return nil, err
	}

	w, h := int(b.Width), int(b.Height)
	flat := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			p, _ := f.At(x, y, b.Width, b.Height)
			flat.SetRGBA(x, y, blend(c.At(x, y, 1), p))
		}
	}
	if scale == 1 {
		return flat, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), flat, flat.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// blend composites p over an opaque background using p's alpha.
func blend(bg color.RGBA, p book.Pixel) color.RGBA {
	switch p.A {
	case 255:
		return color.RGBA{R: p.R, G: p.G, B: p.B, A: 255}
	case 0:
		return bg
	}
	a := float32(p.A) / 255
	inv := 1 - a
	mix := func(fg, bg uint8) uint8 {
		return uint8(float32(fg)*a + float32(bg)*inv)
	}
	return color.RGBA{R: mix(p.R, bg.R), G: mix(p.G, bg.G), B: mix(p.B, bg.B), A: 255}
}

// Fit returns the largest integer scale (at least 1) at which an
// imgW x imgH image fits a winW x winH window, and the offsets that
// centre it. Offsets are negative when even scale 1 overflows.
func Fit(imgW, imgH, winW, winH int) (scale, offX, offY int) {
	if imgW <= 0 || imgH <= 0 {
		return 1, 0, 0
	}
	scale = max(min(winW/imgW, winH/imgH), 1)
	offX = (winW - imgW*scale) / 2
	offY = (winH - imgH*scale) / 2
	return scale, offX, offY
}
