package renderer

import (
	"image"
	"image/color"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
)

const (
	subtitleStart    = 0.3
	subtitleFadeSpan = 0.2
	subtitleMaxRunes = 80
	subtitleBarFrac  = 0.1
	subtitleBarAlpha = 0xb4
)

// subtitleAlpha is 0 before 0.3 and ramps to 1 over the next 0.2.
func subtitleAlpha(progress float64) float64 {
	if progress < subtitleStart {
		return 0
	}
	return clamp01((progress - subtitleStart) / subtitleFadeSpan)
}

// truncateRunes shortens s to at most max runes, ending in "..." when cut.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func (r *Renderer) drawSubtitle(dst *image.RGBA, text string, progress float64) {
	alpha := subtitleAlpha(progress)
	if alpha <= 0 {
		return
	}
	b := dst.Bounds()
	barH := int(float64(b.Dy()) * subtitleBarFrac)
	bar := image.Rect(b.Min.X, b.Max.Y-barH, b.Max.X, b.Max.Y)

	shade := color.NRGBA{A: uint8(math.Round(subtitleBarAlpha * alpha))}
	xdraw.Draw(dst, bar, image.NewUniform(shade), image.Point{}, xdraw.Over)

	face := r.face(barH * 9 / 20)
	line := truncateRunes(strings.Join(strings.Fields(text), " "), subtitleMaxRunes)
	w := measure(face, line)
	m := face.Metrics()
	x := b.Min.X + (b.Dx()-w)/2
	y := bar.Min.Y + (barH+m.Ascent.Ceil()-m.Descent.Ceil())/2

	ink := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: uint8(math.Round(0xff * alpha))}
	drawString(dst, textStyle{face: face, color: ink}, line, x, y)
}
