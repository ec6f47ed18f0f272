package renderer

import (
	"image"
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/sketchreel/internal/scene"
)

const (
	textWidthFraction = 0.85
	textTopFraction   = 0.12
	handHeightFrac    = 0.2
)

// textStyle is the immutable paint for one text draw call.
type textStyle struct {
	face  font.Face
	color color.NRGBA
}

// wrapText splits text into lines no wider than maxWidth. A single word
// wider than maxWidth gets a line of its own.
func wrapText(face font.Face, text string, maxWidth int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if measure(face, candidate) > maxWidth {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

// revealBudget is how many characters of total are shown at progress.
func revealBudget(total int, progress, speed float64) int {
	if speed <= 0 {
		speed = 1
	}
	return int(float64(total) * clamp01(progress*speed))
}

// drawText renders the scene text block and, while hand-drawing, the hand
// image at the last revealed glyph.
func (r *Renderer) drawText(dst *image.RGBA, sc *scene.Scene, hand image.Image, progress float64) {
	b := dst.Bounds()
	face := r.face(b.Dy() / 18)
	lines := wrapText(face, sc.Text, int(float64(b.Dx())*textWidthFraction))
	if len(lines) == 0 {
		return
	}

	style := textStyle{face: face, color: defaultInk}
	handDraw := sc.TextAnimation == scene.TextHandDraw
	budget := math.MaxInt
	if handDraw {
		total := 0
		for _, l := range lines {
			total += utf8.RuneCountInString(l)
		}
		budget = revealBudget(total, progress, sc.TextSpeed)
	} else {
		style.color.A = uint8(math.Round(float64(style.color.A) * progress))
	}

	lineHeight := face.Metrics().Height.Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	y := b.Min.Y + int(float64(b.Dy())*textTopFraction) + ascent

	var last fixed.Point26_6
	drawn := false
	for _, line := range lines {
		if budget <= 0 {
			break
		}
		shown := line
		if n := utf8.RuneCountInString(line); budget < n {
			shown = string([]rune(line)[:budget])
		}
		budget -= utf8.RuneCountInString(shown)

		// Centred on the full line width.
		full := measure(face, line)
		x := b.Min.X + (b.Dx()-full)/2
		last = drawString(dst, style, shown, x, y)
		drawn = true
		y += lineHeight
	}

	if handDraw && hand != nil && drawn && progress < 1 {
		drawHand(dst, hand, last.X.Round(), last.Y.Round()-ascent/2)
	}
}

// drawString draws s with its baseline at (x, y) and returns the pen
// position after the last glyph.
func drawString(dst *image.RGBA, st textStyle, s string, x, y int) fixed.Point26_6 {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(st.color),
		Face: st.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
	return d.Dot
}

// drawHand places the hand image with its top-left corner (the pen tip) at x, y.
func drawHand(dst *image.RGBA, hand image.Image, x, y int) {
	hb := hand.Bounds()
	if hb.Dx() == 0 || hb.Dy() == 0 {
		return
	}
	h := int(float64(dst.Bounds().Dy()) * handHeightFrac)
	w := h * hb.Dx() / hb.Dy()
	xdraw.ApproxBiLinear.Scale(dst, image.Rect(x, y, x+w, y+h), hand, hb, xdraw.Over, nil)
}

func measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}
