// Package stroke turns serialized point lists into cached polylines and draws
// them progressively.
package stroke

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Point is one sampled position of a freehand stroke. Pressure is kept for
// round-tripping only.
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure,omitempty"`
}

var errNoPoints = errors.New("stroke: empty point list")

// ParsePoints decodes a JSON point list such as `[{"x":1,"y":2},{"x":3,"y":4}]`.
func ParsePoints(data string) ([]Point, error) {
	var pts []Point
	if err := json.Unmarshal([]byte(data), &pts); err != nil {
		return nil, fmt.Errorf("stroke: parse points: %w", err)
	}
	if len(pts) == 0 {
		return nil, errNoPoints
	}
	for i, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, fmt.Errorf("stroke: point %d is not finite", i)
		}
	}
	return pts, nil
}

// EncodePoints is the inverse of ParsePoints.
func EncodePoints(pts []Point) (string, error) {
	b, err := json.Marshal(pts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Geometry is a resolved polyline with its cumulative arc length.
type Geometry struct {
	Points []Point
	// cum[i] is the arc length from Points[0] to Points[i].
	cum    []float64
	Length float64
}

// NewGeometry precomputes arc lengths for pts.
func NewGeometry(pts []Point) *Geometry {
	g := &Geometry{Points: pts, cum: make([]float64, len(pts))}
	for i := 1; i < len(pts); i++ {
		g.cum[i] = g.cum[i-1] + math.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
	}
	if len(pts) > 0 {
		g.Length = g.cum[len(pts)-1]
	}
	return g
}

// RevealLength is the arc length shown at the given progress.
func RevealLength(total, progress float64) float64 {
	return total * clamp01(progress)
}

// Sub returns the polyline from the start up to arc length l. The first
// element is the move-to point; the last one is interpolated on the segment
// that contains l.
func (g *Geometry) Sub(l float64) []Point {
	if len(g.Points) == 0 || l <= 0 {
		return nil
	}
	if l >= g.Length {
		return g.Points
	}
	out := []Point{g.Points[0]}
	for i := 1; i < len(g.Points); i++ {
		if g.cum[i] <= l {
			out = append(out, g.Points[i])
			continue
		}
		seg := g.cum[i] - g.cum[i-1]
		if seg > 0 {
			t := (l - g.cum[i-1]) / seg
			a, b := g.Points[i-1], g.Points[i]
			out = append(out, Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t})
		}
		break
	}
	return out
}

// Reveal returns the visible part of the stroke at progress in [0,1].
// Zero-length strokes show their single dot once progress is positive.
func (g *Geometry) Reveal(progress float64) []Point {
	if progress <= 0 || len(g.Points) == 0 {
		return nil
	}
	if g.Length == 0 {
		return g.Points[:1]
	}
	return g.Sub(RevealLength(g.Length, progress))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
