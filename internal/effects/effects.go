// Package effects composites two scene rasters into a transition frame.
package effects

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/sketchreel/internal/scene"
)

const zoomMinScale = 0.7

var black = image.NewUniform(color.RGBA{A: 0xff})

// Effect draws one transition kind. a is the outgoing raster, b the
// incoming one; either may be nil.
type Effect interface {
	Apply(dst, a, b *image.RGBA, progress float64)
}

type EffectFunc func(dst, a, b *image.RGBA, progress float64)

func (f EffectFunc) Apply(dst, a, b *image.RGBA, progress float64) { f(dst, a, b, progress) }

// For returns the effect for kind. Unknown kinds cut like TransitionNone.
func For(kind scene.TransitionKind) Effect {
	switch kind {
	case scene.TransitionNone:
		return EffectFunc(cut)
	case scene.TransitionFade:
		return EffectFunc(fade)
	case scene.TransitionSlide:
		return EffectFunc(slide)
	case scene.TransitionZoom:
		return EffectFunc(zoom)
	case scene.TransitionWipe:
		return EffectFunc(wipe)
	}
	return EffectFunc(cut)
}

// Compose fully overwrites dst with the transition from a to b at progress.
func Compose(dst, a, b *image.RGBA, kind scene.TransitionKind, progress float64) {
	p := progress
	if p < 0 || math.IsNaN(p) {
		p = 0
	} else if p > 1 {
		p = 1
	}
	xdraw.Draw(dst, dst.Bounds(), black, image.Point{}, xdraw.Src)
	For(kind).Apply(dst, a, b, p)
}

func cut(dst, a, b *image.RGBA, p float64) {
	src := a
	if p >= 0.5 {
		src = b
	}
	blit(dst, src, 0)
}

// fade blends per channel; progress 0 yields exactly a and 1 exactly b.
func fade(dst, a, b *image.RGBA, p float64) {
	switch {
	case a == nil && b == nil:
		return
	case a == nil:
		blitAlpha(dst, b, p)
		return
	case b == nil:
		blitAlpha(dst, a, 1-p)
		return
	}

	r := dst.Bounds().Intersect(a.Bounds()).Intersect(b.Bounds())
	wb := uint32(math.Round(p * 65536))
	wa := 65536 - wb
	for y := r.Min.Y; y < r.Max.Y; y++ {
		do := dst.PixOffset(r.Min.X, y)
		ao := a.PixOffset(r.Min.X, y)
		bo := b.PixOffset(r.Min.X, y)
		n := r.Dx() * 4
		dp, ap, bp := dst.Pix[do:do+n], a.Pix[ao:ao+n], b.Pix[bo:bo+n]
		for i := range dp {
			dp[i] = uint8((uint32(ap[i])*wa + uint32(bp[i])*wb + 32768) >> 16)
		}
	}
}

func slide(dst, a, b *image.RGBA, p float64) {
	w := float64(dst.Bounds().Dx())
	blit(dst, a, -int(math.Round(w*p)))
	blit(dst, b, int(math.Round(w*(1-p))))
}

func zoom(dst, a, b *image.RGBA, p float64) {
	scaled(dst, a, 1-(1-zoomMinScale)*p, 1-p)
	scaled(dst, b, zoomMinScale+(1-zoomMinScale)*p, p)
}

func wipe(dst, a, b *image.RGBA, p float64) {
	blit(dst, a, 0)
	if b == nil {
		return
	}
	r := dst.Bounds()
	r.Max.X = r.Min.X + int(math.Round(float64(r.Dx())*p))
	xdraw.Draw(dst, r, b, b.Bounds().Min, xdraw.Src)
}

// blit copies src onto dst shifted dx pixels horizontally.
func blit(dst, src *image.RGBA, dx int) {
	if src == nil {
		return
	}
	r := dst.Bounds().Add(image.Pt(dx, 0)).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	xdraw.Draw(dst, r, src, src.Bounds().Min.Add(image.Pt(r.Min.X-dst.Bounds().Min.X-dx, r.Min.Y-dst.Bounds().Min.Y)), xdraw.Src)
}

func blitAlpha(dst, src *image.RGBA, alpha float64) {
	if alpha <= 0 {
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 0xff))})
	xdraw.DrawMask(dst, dst.Bounds(), src, src.Bounds().Min, mask, image.Point{}, xdraw.Over)
}

// scaled draws src scaled by k about the canvas centre with the given alpha.
func scaled(dst, src *image.RGBA, k, alpha float64) {
	if src == nil || k <= 0 || alpha <= 0 {
		return
	}
	db, sb := dst.Bounds(), src.Bounds()
	cx := float64(db.Min.X) + float64(db.Dx())/2
	cy := float64(db.Min.Y) + float64(db.Dy())/2
	sx := float64(sb.Min.X) + float64(sb.Dx())/2
	sy := float64(sb.Min.Y) + float64(sb.Dy())/2
	m := f64.Aff3{
		k, 0, cx - k*sx,
		0, k, cy - k*sy,
	}
	var opts *xdraw.Options
	if alpha < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 0xff))})}
	}
	xdraw.ApproxBiLinear.Transform(dst, m, src, sb, xdraw.Over, opts)
}
