// Package draw turns drawing operations into pixel writes on a book.
//
// Operations form a closed set (see [Operation]). [Engine.Apply] runs a
// list of them in order against one book, mutating it in place:
//
//	ops := draw.Batch{
//	    draw.DrawShape{Shape: draw.Rectangle, Position: draw.Point{X: 1, Y: 1},
//	        Size: draw.Size{Width: 5, Height: 5}, Color: red},
//	    draw.FillArea{X: 3, Y: 3, Color: blue},
//	}
//	err := draw.New().Apply(b, ops)
//
// The first failing operation stops the batch and its error is returned
// unchanged. Operations applied before it stay applied.
//
// Every pixel write goes through the same bounds check as DrawPixel, so
// writing to a frame index the book does not have fails with
// INVALID_COORDINATES as soon as a figure touches a visible pixel. Figures
// that lie partly outside the image are clipped silently.
package draw

import (
	"github.com/pixlkit/pixl/pkg/book"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// Engine applies operations to books. It holds no state; the zero value
// and New are equivalent, and one Engine may be shared.
type Engine struct{}

// New returns an Engine.
func New() *Engine {
	return &Engine{}
}

// Apply applies ops to b in order and stops at the first error.
func (e *Engine) Apply(b *book.Book, ops []Operation) error {
	for _, op := range ops {
		if err := e.ApplyOne(b, op); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOne applies a single operation.
func (e *Engine) ApplyOne(b *book.Book, op Operation) error {
	switch op := op.(type) {
	case DrawPixel:
		return newCanvas(b, op.Frame, op.Color).pixel(int(op.X), int(op.Y))
	case SetColor:
		return nil
	case DrawLine:
		return drawLine(newCanvas(b, op.Frame, op.Color), op)
	case DrawShape:
		return drawShape(newCanvas(b, op.Frame, op.Color), op)
	case DrawPolygon:
		return drawPolygon(newCanvas(b, op.Frame, op.Color), op.Points, op.Filled)
	case FillArea:
		return fillArea(b, op)

	case *DrawPixel:
		return e.ApplyOne(b, *op)
	case *SetColor:
		return nil
	case *DrawLine:
		return e.ApplyOne(b, *op)
	case *DrawShape:
		return e.ApplyOne(b, *op)
	case *DrawPolygon:
		return e.ApplyOne(b, *op)
	case *FillArea:
		return e.ApplyOne(b, *op)
	}
	return perrors.New(perrors.ErrCodeInvalidInput, "unsupported operation %T", op)
}

// canvas binds a book, a frame index and a color for the rasterizers.
type canvas struct {
	b     *book.Book
	frame int
	color book.Pixel
	w, h  int
}

func newCanvas(b *book.Book, frame int, color book.Pixel) *canvas {
	return &canvas{b: b, frame: frame, color: color, w: int(b.Width), h: int(b.Height)}
}

// pixel writes one pixel with full validation of frame and coordinates.
func (c *canvas) pixel(x, y int) error {
	return c.b.SetPixel(c.frame, x, y, c.color)
}

// plot writes (x, y) when it lies inside the image and skips it otherwise.
func (c *canvas) plot(x, y int) error {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return nil
	}
	return c.pixel(x, y)
}

// span writes row y from x0 to x1 inclusive, clipped to the image width.
func (c *canvas) span(y, x0, x1 int) error {
	for x := max(x0, 0); x <= min(x1, c.w-1); x++ {
		if err := c.pixel(x, y); err != nil {
			return err
		}
	}
	return nil
}
