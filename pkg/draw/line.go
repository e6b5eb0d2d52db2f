package draw

func drawLine(c *canvas, op DrawLine) error {
	switch op.LineType {
	case Straight, Curved, "":
		// Curved is rasterized as a straight segment.
		return c.line(int(op.Start.X), int(op.Start.Y), int(op.End.X), int(op.End.Y))
	}
	return checkLineType(op.LineType)
}

// line rasterizes a segment with Bresenham's algorithm, plotting both
// endpoints and skipping points outside the image.
func (c *canvas) line(x0, y0, x1, y1 int) error {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		if e := c.plot(x0, y0); e != nil {
			return e
		}
		if x0 == x1 && y0 == y1 {
			return nil
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
