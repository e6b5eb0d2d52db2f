package draw

import (
	"github.com/pixlkit/pixl/pkg/book"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// fillArea replaces the 4-connected region of pixels that share the seed's
// color. The seed must name an existing frame and an in-bounds pixel.
func fillArea(b *book.Book, op FillArea) error {
	x, y := int(op.X), int(op.Y)
	if op.Frame < 0 || op.Frame >= b.FrameCount() || !b.InBounds(x, y) {
		return perrors.InvalidCoordinates(op.X, op.Y, b.Width, b.Height)
	}

	frame, err := b.Frame(op.Frame)
	if err != nil {
		return err
	}
	w, h := int(b.Width), int(b.Height)

	target, ok := frame.At(x, y, b.Width, b.Height)
	if !ok || target == op.Color {
		return nil
	}

	c := newCanvas(b, op.Frame, op.Color)
	visited := make([]bool, w*h)
	stack := []int{y*w + x}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			continue
		}
		visited[i] = true

		px, py := i%w, i/w
		if p, ok := frame.At(px, py, b.Width, b.Height); !ok || p != target {
			continue
		}
		if err := c.pixel(px, py); err != nil {
			return err
		}

		if px > 0 {
			stack = append(stack, i-1)
		}
		if px+1 < w {
			stack = append(stack, i+1)
		}
		if py > 0 {
			stack = append(stack, i-w)
		}
		if py+1 < h {
			stack = append(stack, i+w)
		}
	}
	return nil
}
