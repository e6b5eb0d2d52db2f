package draw

import "slices"

// drawPolygon draws the closed polygon through points. Fewer than three
// points draw nothing.
func drawPolygon(c *canvas, points []Point, filled bool) error {
	if len(points) < 3 {
		return nil
	}
	if !filled {
		for i, p := range points {
			q := points[(i+1)%len(points)]
			if err := c.line(int(p.X), int(p.Y), int(q.X), int(q.Y)); err != nil {
				return err
			}
		}
		return nil
	}
	return c.scanFill(points)
}

// scanFill fills the polygon row by row. An edge counts on row y when y is
// in [min(y1, y2), max(y1, y2)), so horizontal edges never intersect.
func (c *canvas) scanFill(points []Point) error {
	minY, maxY := int(points[0].Y), int(points[0].Y)
	for _, p := range points[1:] {
		minY = min(minY, int(p.Y))
		maxY = max(maxY, int(p.Y))
	}

	xs := make([]int, 0, len(points))
	for y := minY; y <= min(maxY, c.h-1); y++ {
		xs = xs[:0]
		for i, p1 := range points {
			p2 := points[(i+1)%len(points)]
			y1, y2 := int(p1.Y), int(p2.Y)
			if (y1 <= y && y2 > y) || (y2 <= y && y1 > y) {
				x := float32(p1.X) + float32(y-y1)*float32(int(p2.X)-int(p1.X))/float32(y2-y1)
				xs = append(xs, int(x))
			}
		}
		slices.Sort(xs)

		for i := 0; i+1 < len(xs); i += 2 {
			if err := c.span(y, xs[i], xs[i+1]); err != nil {
				return err
			}
		}
	}
	return nil
}
