package draw

import "github.com/pixlkit/pixl/pkg/book"

// Point is a pixel coordinate.
type Point struct {
	X uint16 `json:"x"`
	Y uint16 `json:"y"`
}

// Size is a width/height extent.
type Size struct {
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

// LineType selects how DrawLine rasterizes.
type LineType string

// Line types.
const (
	Straight LineType = "straight"
	// Curved is rasterized exactly like Straight.
	Curved LineType = "curved"
)

// Shape selects the figure DrawShape renders.
type Shape string

// Shapes.
const (
	Rectangle Shape = "rectangle"
	Circle    Shape = "circle"
	Oval      Shape = "oval"
	Triangle  Shape = "triangle"
)

// Operation is one drawing intent. The set of implementations is closed:
// DrawPixel, SetColor, DrawLine, DrawShape, DrawPolygon and FillArea.
type Operation interface {
	// Kind returns the wire tag, e.g. "draw_pixel".
	Kind() string
	operation()
}

// Wire tags.
const (
	KindDrawPixel   = "draw_pixel"
	KindSetColor    = "set_color"
	KindDrawLine    = "draw_line"
	KindDrawShape   = "draw_shape"
	KindDrawPolygon = "draw_polygon"
	KindFillArea    = "fill_area"
)

// DrawPixel sets a single pixel.
type DrawPixel struct {
	Frame int        `json:"frame"`
	X     uint16     `json:"x"`
	Y     uint16     `json:"y"`
	Color book.Pixel `json:"color"`
}

// SetColor records the caller's current color. It does not touch the book.
type SetColor struct {
	Color book.Pixel `json:"color"`
}

// DrawLine draws a line between two points.
type DrawLine struct {
	Frame    int        `json:"frame"`
	Start    Point      `json:"start"`
	End      Point      `json:"end"`
	LineType LineType   `json:"line_type"`
	Color    book.Pixel `json:"color"`
}

// DrawShape draws a rectangle, circle, oval or triangle inside the box at
// Position with the given Size.
type DrawShape struct {
	Frame    int        `json:"frame"`
	Shape    Shape      `json:"shape"`
	Position Point      `json:"position"`
	Size     Size       `json:"size"`
	Filled   bool       `json:"filled"`
	Color    book.Pixel `json:"color"`
}

// DrawPolygon draws a closed polygon through Points.
type DrawPolygon struct {
	Frame  int        `json:"frame"`
	Points []Point    `json:"points"`
	Filled bool       `json:"filled"`
	Color  book.Pixel `json:"color"`
}

// FillArea flood-fills the 4-connected region around (X, Y).
type FillArea struct {
	Frame int        `json:"frame"`
	X     uint16     `json:"x"`
	Y     uint16     `json:"y"`
	Color book.Pixel `json:"color"`
}

func (DrawPixel) Kind() string   { return KindDrawPixel }
func (SetColor) Kind() string    { return KindSetColor }
func (DrawLine) Kind() string    { return KindDrawLine }
func (DrawShape) Kind() string   { return KindDrawShape }
func (DrawPolygon) Kind() string { return KindDrawPolygon }
func (FillArea) Kind() string    { return KindFillArea }

func (DrawPixel) operation()   {}
func (SetColor) operation()    {}
func (DrawLine) operation()    {}
func (DrawShape) operation()   {}
func (DrawPolygon) operation() {}
func (FillArea) operation()    {}
