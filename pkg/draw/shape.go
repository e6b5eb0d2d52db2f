package draw

import "math"

func drawShape(c *canvas, op DrawShape) error {
	x, y := int(op.Position.X), int(op.Position.Y)
	w, h := int(op.Size.Width), int(op.Size.Height)

	switch op.Shape {
	case Rectangle:
		return c.rectangle(x, y, w, h, op.Filled)
	case Circle:
		return c.circle(x, y, w, h, op.Filled)
	case Oval:
		return c.oval(x, y, w, h, op.Filled)
	case Triangle:
		return c.triangle(x, y, w, h, op.Filled)
	}
	return checkShape(op.Shape)
}

// rectangle covers the inclusive box from (x, y) to (x+w-1, y+h-1). A zero
// extent still covers one row or column.
func (c *canvas) rectangle(x, y, w, h int, filled bool) error {
	x1, y1 := x, y
	x2, y2 := x+max(w-1, 0), y+max(h-1, 0)

	if filled {
		for py := y1; py <= min(y2, c.h-1); py++ {
			if err := c.span(py, x1, x2); err != nil {
				return err
			}
		}
		return nil
	}

	for px := x1; px <= min(x2, c.w-1); px++ {
		if y1 < c.h {
			if err := c.pixel(px, y1); err != nil {
				return err
			}
		}
		if y2 < c.h && y2 != y1 {
			if err := c.pixel(px, y2); err != nil {
				return err
			}
		}
	}
	for py := y1; py <= min(y2, c.h-1); py++ {
		if x1 < c.w {
			if err := c.pixel(x1, py); err != nil {
				return err
			}
		}
		if x2 < c.w && x2 != x1 {
			if err := c.pixel(x2, py); err != nil {
				return err
			}
		}
	}
	return nil
}

// circle is centred at (x+w/2, y+h/2) with radius min(w, h)/2.
func (c *canvas) circle(x, y, w, h int, filled bool) error {
	cx, cy := x+w/2, y+h/2
	r := min(w, h) / 2

	if filled {
		for py := max(cy-r, 0); py < min(cy+r+1, c.h); py++ {
			for px := max(cx-r, 0); px < min(cx+r+1, c.w); px++ {
				dx, dy := px-cx, py-cy
				if dx*dx+dy*dy <= r*r {
					if err := c.pixel(px, py); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	// Midpoint circle algorithm.
	px, py := 0, r
	d := 1 - r
	for px <= py {
		if err := c.octants(cx, cy, px, py); err != nil {
			return err
		}
		if d < 0 {
			d += 2*px + 3
		} else {
			d += 2*(px-py) + 5
			py--
		}
		px++
	}
	return nil
}

func (c *canvas) octants(cx, cy, x, y int) error {
	points := [8][2]int{
		{cx + x, cy + y}, {cx + x, cy - y},
		{cx - x, cy + y}, {cx - x, cy - y},
		{cx + y, cy + x}, {cx + y, cy - x},
		{cx - y, cy + x}, {cx - y, cy - x},
	}
	for _, p := range points {
		if err := c.plot(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// oval is the ellipse inscribed in the box, with semi-axes w/2 and h/2.
func (c *canvas) oval(x, y, w, h int, filled bool) error {
	cx, cy := x+w/2, y+h/2
	rx, ry := w/2, h/2

	if filled {
		for py := max(cy-ry, 0); py < min(cy+ry+1, c.h); py++ {
			for px := max(cx-rx, 0); px < min(cx+rx+1, c.w); px++ {
				dx, dy := px-cx, py-cy
				if rx*rx*dy*dy+ry*ry*dx*dx <= rx*rx*ry*ry {
					if err := c.pixel(px, py); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	steps := max((rx+ry)*2, 20)
	for i := range steps {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		px := cx + int(float64(rx)*math.Cos(angle))
		py := cy + int(float64(ry)*math.Sin(angle))
		if err := c.plot(px, py); err != nil {
			return err
		}
	}
	return nil
}

// triangle has its apex at the top centre of the box and its base along
// the bottom row.
func (c *canvas) triangle(x, y, w, h int, filled bool) error {
	ax, ay := x+w/2, y
	lx, ly := x, y+max(h-1, 0)
	rx, ry := x+max(w-1, 0), y+max(h-1, 0)

	if !filled {
		if err := c.line(ax, ay, lx, ly); err != nil {
			return err
		}
		if err := c.line(lx, ly, rx, ry); err != nil {
			return err
		}
		return c.line(rx, ry, ax, ay)
	}

	for py := ay; py <= min(ly, c.h-1); py++ {
		var progress float32
		if ly != ay {
			progress = float32(py-ay) / float32(ly-ay)
		}
		left := float32(ax) + progress*float32(lx-ax)
		right := float32(ax) + progress*float32(rx-ax)

		x0, x1 := int(left), int(right)
		if x0 > x1 {
			x0, x1 = x1, x0
		}
		if err := c.span(py, x0, x1); err != nil {
			return err
		}
	}
	return nil
}
