package stroke

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// Style describes how a polyline is painted. It is passed by value so draw
// calls never share mutable paint state.
type Style struct {
	Color color.NRGBA
	Width float64
}

type vec2 struct{ x, y float64 }

// Draw paints pts onto dst as a round-capped, round-joined polyline.
func Draw(dst *image.RGBA, pts []Point, st Style) {
	if len(pts) == 0 || st.Width <= 0 || st.Color.A == 0 {
		return
	}
	r := st.Width / 2

	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	box := image.Rect(
		int(math.Floor(minX-r))-1, int(math.Floor(minY-r))-1,
		int(math.Ceil(maxX+r))+1, int(math.Ceil(maxY+r))+1,
	).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}

	z := vector.NewRasterizer(box.Dx(), box.Dy())
	z.DrawOp = draw.Over
	w, h := float64(box.Dx()), float64(box.Dy())
	off := vec2{float64(box.Min.X), float64(box.Min.Y)}

	add := func(poly []vec2) {
		for i := range poly {
			poly[i].x -= off.x
			poly[i].y -= off.y
		}
		poly = clipPolygon(poly, w, h)
		if len(poly) < 3 {
			return
		}
		z.MoveTo(float32(poly[0].x), float32(poly[0].y))
		for _, p := range poly[1:] {
			z.LineTo(float32(p.x), float32(p.y))
		}
		z.ClosePath()
	}

	for i, p := range pts {
		add(disc(vec2{p.X, p.Y}, r))
		if i == 0 {
			continue
		}
		if q := segment(vec2{pts[i-1].X, pts[i-1].Y}, vec2{p.X, p.Y}, r); q != nil {
			add(q)
		}
	}

	z.Draw(dst, box, image.NewUniform(st.Color), image.Point{})
}

// segment returns the rectangle covering a-b with half-width r. All polygons
// emitted by this package share the same winding so overlaps never cancel.
func segment(a, b vec2, r float64) []vec2 {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*r, dx/l*r
	return []vec2{
		{a.x + nx, a.y + ny},
		{b.x + nx, b.y + ny},
		{b.x - nx, b.y - ny},
		{a.x - nx, a.y - ny},
	}
}

func disc(c vec2, r float64) []vec2 {
	n := int(math.Ceil(r * 2))
	if n < 8 {
		n = 8
	}
	if n > 48 {
		n = 48
	}
	poly := make([]vec2, n)
	for i := range poly {
		th := -2 * math.Pi * float64(i) / float64(n)
		poly[i] = vec2{c.x + r*math.Cos(th), c.y + r*math.Sin(th)}
	}
	return poly
}

// clipPolygon clips a convex polygon to [0,w]x[0,h] (Sutherland–Hodgman).
func clipPolygon(poly []vec2, w, h float64) []vec2 {
	edges := []struct {
		inside func(vec2) bool
		cross  func(a, b vec2) vec2
	}{
		{func(p vec2) bool { return p.x >= 0 }, func(a, b vec2) vec2 { return lerpAt(a, b, (0-a.x)/(b.x-a.x)) }},
		{func(p vec2) bool { return p.x <= w }, func(a, b vec2) vec2 { return lerpAt(a, b, (w-a.x)/(b.x-a.x)) }},
		{func(p vec2) bool { return p.y >= 0 }, func(a, b vec2) vec2 { return lerpAt(a, b, (0-a.y)/(b.y-a.y)) }},
		{func(p vec2) bool { return p.y <= h }, func(a, b vec2) vec2 { return lerpAt(a, b, (h-a.y)/(b.y-a.y)) }},
	}
	out := poly
	for _, e := range edges {
		if len(out) == 0 {
			break
		}
		in := out
		out = make([]vec2, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur) && e.inside(prev):
				out = append(out, cur)
			case e.inside(cur):
				out = append(out, e.cross(prev, cur), cur)
			case e.inside(prev):
				out = append(out, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return out
}

func lerpAt(a, b vec2, t float64) vec2 {
	return vec2{a.x + (b.x-a.x)*t, a.y + (b.y-a.y)*t}
}
