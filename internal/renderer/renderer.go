// Package renderer draws a single scene at a normalized progress value.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"sort"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/sketchreel/internal/geometry"
	"github.com/ivlev/sketchreel/internal/logging"
	"github.com/ivlev/sketchreel/internal/scene"
	"github.com/ivlev/sketchreel/internal/stroke"
)

const defaultPathWidth = 4.0

var (
	defaultBackground = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	defaultInk        = color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
)

// Input is everything needed to draw one scene. Dimensions come from the
// destination surface.
type Input struct {
	Scene      *scene.Scene
	Assets     []scene.Asset
	Paths      []scene.DrawingPath
	Hand       image.Image
	Background image.Image
	Images     map[string]image.Image // keyed by Asset.Ref
}

// Renderer draws scenes. It owns the resolved path cache and the font
// faces, so one instance should serve one export job. Not safe for
// concurrent use.
type Renderer struct {
	paths  *stroke.Cache
	font   *opentype.Font
	faces  map[int]font.Face
	logger *slog.Logger
}

// New creates a renderer with the built-in Go Regular font.
func New(logger *slog.Logger) (*Renderer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{
		paths:  stroke.NewCache(),
		font:   f,
		faces:  make(map[int]font.Face),
		logger: logging.OrDiscard(logger),
	}, nil
}

// Paths exposes the resolved path cache.
func (r *Renderer) Paths() *stroke.Cache { return r.paths }

// Reset drops every resolved path.
func (r *Renderer) Reset() {
	r.paths.Clear()
}

// Close releases the cached font faces.
func (r *Renderer) Close() error {
	for size, face := range r.faces {
		face.Close()
		delete(r.faces, size)
	}
	return nil
}

// RenderFrame fully overwrites dst with the scene at progress.
func (r *Renderer) RenderFrame(dst *image.RGBA, in Input, progress float64) {
	progress = clamp01(progress)
	sc := in.Scene
	if sc == nil {
		sc = &scene.Scene{}
	}

	r.drawBackground(dst, sc, in.Background)
	r.drawAssets(dst, in, progress)
	r.drawPaths(dst, in.Paths, progress)

	if sc.HasText() {
		r.drawText(dst, sc, in.Hand, progress)
		if sc.Subtitles {
			r.drawSubtitle(dst, sc.Text, progress)
		}
	}
}

func (r *Renderer) drawBackground(dst *image.RGBA, sc *scene.Scene, bg image.Image) {
	b := dst.Bounds()
	fill := scene.ColorOr(sc.BackgroundColor, defaultBackground)
	fill.A = 0xff
	xdraw.Draw(dst, b, image.NewUniform(fill), image.Point{}, xdraw.Src)
	if bg != nil {
		xdraw.ApproxBiLinear.Scale(dst, b, bg, bg.Bounds(), xdraw.Over, nil)
	}
}

type placedAsset struct {
	asset scene.Asset
	img   image.Image
	local float64
}

func (r *Renderer) drawAssets(dst *image.RGBA, in Input, progress float64) {
	visible := make([]scene.Asset, 0, len(in.Assets))
	for _, a := range in.Assets {
		if a.Visible {
			visible = append(visible, a)
		}
	}

	n := len(visible)
	placed := make([]placedAsset, 0, n)
	for i, a := range visible {
		local, ok := StaggeredProgress(progress, i, n)
		if !ok {
			continue
		}
		img := in.Images[a.Ref]
		if img == nil {
			r.logger.Debug("asset image missing, skipping", "asset", a.ID, "ref", a.Ref)
			continue
		}
		placed = append(placed, placedAsset{asset: a, img: img, local: local})
	}

	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].asset.Layer < placed[j].asset.Layer
	})
	for _, p := range placed {
		r.drawAsset(dst, p)
	}
}

func (r *Renderer) drawAsset(dst *image.RGBA, p placedAsset) {
	b := dst.Bounds()
	canvas := geometry.Size{W: float64(b.Dx()), H: float64(b.Dy())}
	sr := p.img.Bounds()
	iw, ih := float64(sr.Dx()), float64(sr.Dy())
	if iw == 0 || ih == 0 {
		return
	}

	base := geometry.FitScale(canvas, geometry.Size{W: iw, H: ih}) * p.asset.Scale
	obj := geometry.Size{W: iw * base, H: ih * base}
	centre := geometry.Centre(geometry.Position(p.asset.Placement, p.asset.X, p.asset.Y, canvas, obj), obj)

	st := animate(p.asset.Animation, p.local, canvas.W)
	k := base * st.Scale
	alpha := clamp01(st.Alpha * p.asset.Opacity)
	if k <= 0 || alpha <= 0 {
		return
	}

	// Source centre to origin, scale, rotate, then move to the placed centre.
	theta := p.asset.Rotation * math.Pi / 180
	sin, cos := math.Sincos(theta)
	cx := float64(b.Min.X) + centre.X + st.DX
	cy := float64(b.Min.Y) + centre.Y + st.DY
	sx := float64(sr.Min.X) + iw/2
	sy := float64(sr.Min.Y) + ih/2
	a, bb := cos*k, -sin*k
	d, e := sin*k, cos*k
	m := f64.Aff3{
		a, bb, cx - a*sx - bb*sy,
		d, e, cy - d*sx - e*sy,
	}

	var opts *xdraw.Options
	if alpha < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 0xff))})}
	}
	xdraw.ApproxBiLinear.Transform(dst, m, p.img, sr, xdraw.Over, opts)
}

func (r *Renderer) drawPaths(dst *image.RGBA, paths []scene.DrawingPath, progress float64) {
	for _, p := range scene.SortedPaths(paths) {
		g, ok := r.paths.Resolve(p.ID, p.Points)
		if !ok {
			r.logger.Debug("malformed path, skipping", "path", p.ID)
			continue
		}
		width := p.Width
		if width <= 0 {
			width = defaultPathWidth
		}
		stroke.Draw(dst, g.Reveal(progress), stroke.Style{
			Color: scene.ColorOr(p.Color, defaultInk),
			Width: width,
		})
	}
}

// face returns the cached face for a pixel size.
func (r *Renderer) face(size int) font.Face {
	if size < 8 {
		size = 8
	}
	if f, ok := r.faces[size]; ok {
		return f
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		r.logger.Warn("font face unavailable, using fallback", "size", size, "error", err)
		return basicfont.Face7x13
	}
	r.faces[size] = f
	return f
}
