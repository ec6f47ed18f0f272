// Package geometry maps placement anchors to pixel coordinates on a canvas.
package geometry

import (
	"fmt"
	"math"
	"strings"
)

// Anchor is one of the nine fixed placements or Custom.
type Anchor string

const (
	TopLeft      Anchor = "top_left"
	TopCenter    Anchor = "top_center"
	TopRight     Anchor = "top_right"
	CenterLeft   Anchor = "center_left"
	Center       Anchor = "center"
	CenterRight  Anchor = "center_right"
	BottomLeft   Anchor = "bottom_left"
	BottomCenter Anchor = "bottom_center"
	BottomRight  Anchor = "bottom_right"
	Custom       Anchor = "custom"
)

// MarginFraction is the share of each canvas axis kept free around anchored objects.
const MarginFraction = 0.05

// Size is a width/height pair in pixels.
type Size struct {
	W, H float64
}

// Point is a pixel position.
type Point struct {
	X, Y float64
}

// ParseAnchor accepts the canonical names plus a few dashed aliases.
func ParseAnchor(s string) (Anchor, error) {
	a := Anchor(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch a {
	case "":
		return Center, nil
	case TopLeft, TopCenter, TopRight, CenterLeft, Center, CenterRight,
		BottomLeft, BottomCenter, BottomRight, Custom:
		return a, nil
	}
	return "", fmt.Errorf("unknown placement %q", s)
}

// UnmarshalText lets anchors be decoded from YAML and TOML.
func (a *Anchor) UnmarshalText(b []byte) error {
	v, err := ParseAnchor(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Position returns the top-left pixel of an object of size obj placed on canvas.
// For Custom, customX/customY are the object centre as fractions of the canvas.
func Position(a Anchor, customX, customY float64, canvas, obj Size) Point {
	mx := canvas.W * MarginFraction
	my := canvas.H * MarginFraction

	left := mx
	hcenter := (canvas.W - obj.W) / 2
	right := canvas.W - mx - obj.W
	top := my
	vcenter := (canvas.H - obj.H) / 2
	bottom := canvas.H - my - obj.H

	switch a {
	case TopLeft:
		return Point{left, top}
	case TopCenter:
		return Point{hcenter, top}
	case TopRight:
		return Point{right, top}
	case CenterLeft:
		return Point{left, vcenter}
	case CenterRight:
		return Point{right, vcenter}
	case BottomLeft:
		return Point{left, bottom}
	case BottomCenter:
		return Point{hcenter, bottom}
	case BottomRight:
		return Point{right, bottom}
	case Custom:
		return Point{
			X: clamp01(customX)*canvas.W - obj.W/2,
			Y: clamp01(customY)*canvas.H - obj.H/2,
		}
	default: // Center
		return Point{hcenter, vcenter}
	}
}

// AssetBoxFraction is the share of each canvas axis an asset at scale 1 fits into.
const AssetBoxFraction = 0.4

// FitScale is the factor that fits obj into the asset box of canvas,
// preserving its aspect ratio. Empty objects scale by 0.
func FitScale(canvas, obj Size) float64 {
	if obj.W <= 0 || obj.H <= 0 {
		return 0
	}
	return math.Min(canvas.W*AssetBoxFraction/obj.W, canvas.H*AssetBoxFraction/obj.H)
}

// Centre returns the centre of an object placed at top-left p.
func Centre(p Point, obj Size) Point {
	return Point{X: p.X + obj.W/2, Y: p.Y + obj.H/2}
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
