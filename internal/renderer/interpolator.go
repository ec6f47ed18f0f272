package renderer

import (
	"math"

	"github.com/ivlev/sketchreel/internal/scene"
)

// assetState is the transform and alpha an animation produces for one asset.
type assetState struct {
	Scale float64 // multiplier on the placed size, about the asset centre
	DX    float64 // translation in pixels
	DY    float64
	Alpha float64
}

// animate evaluates kind at local progress p in [0,1]. Every kind is
// handled explicitly; an unknown kind renders statically.
func animate(kind scene.AssetAnimation, p float64, canvasW float64) assetState {
	p = clamp01(p)
	st := assetState{Scale: 1, Alpha: 1}
	switch kind {
	case scene.AnimNone:
	case scene.AnimFade, scene.AnimHandDraw:
		st.Alpha = p
	case scene.AnimZoom:
		st.Scale = easeInOutCubic(p)
	case scene.AnimSlide:
		st.DX = lerp(canvasW, 0, easeInOutCubic(p))
	case scene.AnimPop:
		st.Scale = popScale(p)
	}
	return st
}

// popScale rises to 1.2 at the midpoint and settles back to 1.
func popScale(p float64) float64 {
	if p < 0.5 {
		return lerp(0, 1.2, p/0.5)
	}
	return lerp(1.2, 1, (p-0.5)/0.5)
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
