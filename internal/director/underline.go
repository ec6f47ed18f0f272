package director

import (
	"image"
	"math"

	"github.com/ivlev/sketchreel/internal/stroke"
)

const (
	underlineSamples = 12
	wobble           = 1.5 // canvas pixels
)

// underline returns a slightly wavy stroke just below r, left to right.
func underline(m pageMapping, r image.Rectangle) []stroke.Point {
	left := m.apply(float64(r.Min.X), float64(r.Max.Y))
	right := m.apply(float64(r.Max.X), float64(r.Max.Y))
	y := left.Y + underlineDY

	pts := make([]stroke.Point, underlineSamples+1)
	for i := range pts {
		t := float64(i) / underlineSamples
		pts[i] = stroke.Point{
			X: left.X + (right.X-left.X)*t,
			Y: y + wobble*math.Sin(t*3*math.Pi),
		}
	}
	return pts
}
