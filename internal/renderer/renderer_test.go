package renderer

import (
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/ivlev/sketchreel/internal/geometry"
	"github.com/ivlev/sketchreel/internal/scene"
)

func TestStaggerWindows(t *testing.T) {
	for n := 1; n <= 12; n++ {
		prev := -1.0
		for i := 0; i < n; i++ {
			start, end := StaggerWindow(i, n)
			if start < prev {
				t.Errorf("n=%d: start of %d (%.4f) before previous (%.4f)", n, i, start, prev)
			}
			if start < 0.1-1e-9 || end > 0.9+1e-9 {
				t.Errorf("n=%d i=%d: window [%.4f, %.4f] outside [0.1, 0.9]", n, i, start, end)
			}
			prev = start
		}
	}
}

func TestStaggeredProgress(t *testing.T) {
	tests := []struct {
		progress  float64
		i, n      int
		wantLocal float64
		wantOK    bool
	}{
		{0.05, 0, 1, 0, false},
		{0.1, 0, 1, 0, true},
		{0.5, 0, 1, 0.5, true},
		{0.95, 0, 1, 1, true},
		{0.2, 1, 2, 0, false},
		{0.38, 1, 2, 0, true},
		{1, 3, 4, 1, true},
	}
	for _, tt := range tests {
		local, ok := StaggeredProgress(tt.progress, tt.i, tt.n)
		if ok != tt.wantOK || math.Abs(local-tt.wantLocal) > 1e-9 {
			t.Errorf("StaggeredProgress(%.2f, %d, %d) = %.4f, %v; want %.4f, %v",
				tt.progress, tt.i, tt.n, local, ok, tt.wantLocal, tt.wantOK)
		}
	}
}

func TestAnimate(t *testing.T) {
	tests := []struct {
		name  string
		kind  scene.AssetAnimation
		p     float64
		scale float64
		dx    float64
		alpha float64
	}{
		{"none", scene.AnimNone, 0.3, 1, 0, 1},
		{"fade half", scene.AnimFade, 0.5, 1, 0, 0.5},
		{"hand draw", scene.AnimHandDraw, 0.25, 1, 0, 0.25},
		{"zoom start", scene.AnimZoom, 0, 0, 0, 1},
		{"zoom end", scene.AnimZoom, 1, 1, 0, 1},
		{"slide start", scene.AnimSlide, 0, 1, 640, 1},
		{"slide end", scene.AnimSlide, 1, 1, 0, 1},
		{"pop peak", scene.AnimPop, 0.5, 1.2, 0, 1},
		{"pop settled", scene.AnimPop, 1, 1, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := animate(tt.kind, tt.p, 640)
			if math.Abs(st.Scale-tt.scale) > 1e-9 || math.Abs(st.DX-tt.dx) > 1e-9 || math.Abs(st.Alpha-tt.alpha) > 1e-9 {
				t.Errorf("animate = %+v, want scale %.2f dx %.2f alpha %.2f", st, tt.scale, tt.dx, tt.alpha)
			}
		})
	}
}

func TestSubtitleAlpha(t *testing.T) {
	tests := map[float64]float64{0: 0, 0.29: 0, 0.3: 0, 0.4: 0.5, 0.5: 1, 0.9: 1}
	for p, want := range tests {
		if got := subtitleAlpha(p); math.Abs(got-want) > 1e-9 {
			t.Errorf("subtitleAlpha(%.2f) = %.3f, want %.3f", p, got, want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "ж"
	}
	got := truncateRunes(long, 80)
	if n := len([]rune(got)); n != 80 {
		t.Errorf("truncated length = %d runes, want 80", n)
	}
	if truncateRunes("short", 80) != "short" {
		t.Error("short text must be untouched")
	}
}

func TestRevealBudget(t *testing.T) {
	if got := revealBudget(100, 0.5, 0); got != 50 {
		t.Errorf("revealBudget = %d, want 50", got)
	}
	if got := revealBudget(100, 0.5, 3); got != 100 {
		t.Errorf("revealBudget with speed 3 = %d, want 100", got)
	}
	prev := 0
	for i := 0; i <= 20; i++ {
		got := revealBudget(37, float64(i)/20, 1)
		if got < prev {
			t.Fatalf("budget decreased at step %d", i)
		}
		prev = got
	}
}

func TestWrapText(t *testing.T) {
	r := newTestRenderer(t)
	face := r.face(20)
	lines := wrapText(face, "the quick brown fox jumps over the lazy dog again and again", 120)
	if len(lines) < 2 {
		t.Fatalf("expected several lines, got %q", lines)
	}
	for _, l := range lines {
		if w := measure(face, l); w > 120 && len(strings.Fields(l)) > 1 {
			t.Errorf("line %q is %dpx wide", l, w)
		}
	}
}

func TestRenderFrameOverwritesSurface(t *testing.T) {
	r := newTestRenderer(t)
	dst := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for i := range dst.Pix {
		dst.Pix[i] = 0x7f
	}
	sc := &scene.Scene{BackgroundColor: "#102030"}
	r.RenderFrame(dst, Input{Scene: sc}, 0.5)

	want := color.RGBA{0x10, 0x20, 0x30, 0xff}
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			if got := dst.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestRenderFrameAssets(t *testing.T) {
	r := newTestRenderer(t)
	red := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := 0; i < len(red.Pix); i += 4 {
		red.Pix[i], red.Pix[i+3] = 0xff, 0xff
	}
	in := Input{
		Scene: &scene.Scene{},
		Assets: []scene.Asset{
			{Ref: "red", Placement: geometry.Center, Scale: 1, Opacity: 1, Visible: true, Animation: scene.AnimNone},
			{Ref: "missing", Placement: geometry.TopLeft, Scale: 1, Opacity: 1, Visible: true, Animation: scene.AnimFade},
		},
		Images: map[string]image.Image{"red": red},
	}

	dst := image.NewRGBA(image.Rect(0, 0, 200, 100))
	r.RenderFrame(dst, in, 0.05)
	if got := dst.RGBAAt(100, 50); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("asset drawn before its window opened: %v", got)
	}

	r.RenderFrame(dst, in, 1)
	if got := dst.RGBAAt(100, 50); got != (color.RGBA{0xff, 0, 0, 0xff}) {
		t.Errorf("centre pixel = %v, want red", got)
	}
	if got := dst.RGBAAt(5, 5); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("missing asset should be skipped, corner = %v", got)
	}
}

func TestRenderFrameAssetLayers(t *testing.T) {
	red := color.RGBA{0xff, 0, 0, 0xff}
	blue := color.RGBA{0, 0, 0xff, 0xff}
	images := map[string]image.Image{
		"red":  solid(10, 10, red),
		"blue": solid(10, 10, blue),
	}
	centred := func(ref string, layer int) scene.Asset {
		return scene.Asset{ID: ref, Ref: ref, Placement: geometry.Center, Scale: 1, Opacity: 1,
			Visible: true, Animation: scene.AnimNone, Layer: layer}
	}

	tests := []struct {
		name   string
		assets []scene.Asset
		want   color.RGBA
	}{
		{"higher layer on top", []scene.Asset{centred("red", 1), centred("blue", 0)}, red},
		{"higher layer listed last", []scene.Asset{centred("blue", 0), centred("red", 1)}, red},
		{"tie keeps list order", []scene.Asset{centred("red", 0), centred("blue", 0)}, blue},
		{"tie reversed", []scene.Asset{centred("blue", 2), centred("red", 2)}, red},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t)
			dst := image.NewRGBA(image.Rect(0, 0, 200, 100))
			r.RenderFrame(dst, Input{Scene: &scene.Scene{}, Assets: tt.assets, Images: images}, 1)
			if got := dst.RGBAAt(100, 50); got != tt.want {
				t.Errorf("centre pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderFrameAssetRotation(t *testing.T) {
	red := color.RGBA{0xff, 0, 0, 0xff}
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	// A 20x4 bar fits the canvas as 80x16 around (100, 100).
	bar := map[string]image.Image{"bar": solid(20, 4, red)}

	tests := []struct {
		rotation    float64
		above, side color.RGBA
	}{
		{0, white, red},
		{90, red, white},
		{-90, red, white},
		{180, white, red},
	}
	for _, tt := range tests {
		r := newTestRenderer(t)
		dst := image.NewRGBA(image.Rect(0, 0, 200, 200))
		in := Input{
			Scene: &scene.Scene{},
			Assets: []scene.Asset{{Ref: "bar", Placement: geometry.Center, Scale: 1, Opacity: 1,
				Visible: true, Animation: scene.AnimNone, Rotation: tt.rotation}},
			Images: bar,
		}
		r.RenderFrame(dst, in, 1)
		if got := dst.RGBAAt(100, 100); got != red {
			t.Errorf("rotation %v: centre moved, pixel = %v", tt.rotation, got)
		}
		if got := dst.RGBAAt(100, 70); got != tt.above {
			t.Errorf("rotation %v: pixel above centre = %v, want %v", tt.rotation, got, tt.above)
		}
		if got := dst.RGBAAt(130, 100); got != tt.side {
			t.Errorf("rotation %v: pixel beside centre = %v, want %v", tt.rotation, got, tt.side)
		}
	}
}

func TestRenderFrameBackgroundImageStretched(t *testing.T) {
	r := newTestRenderer(t)
	red := color.RGBA{0xff, 0, 0, 0xff}
	blue := color.RGBA{0, 0, 0xff, 0xff}
	bg := image.NewRGBA(image.Rect(0, 0, 2, 1))
	bg.SetRGBA(0, 0, red)
	bg.SetRGBA(1, 0, blue)

	dst := image.NewRGBA(image.Rect(0, 0, 200, 100))
	r.RenderFrame(dst, Input{Scene: &scene.Scene{BackgroundColor: "#00FF00"}, Background: bg}, 0.5)

	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 0, red},
		{20, 50, red},
		{0, 99, red},
		{180, 50, blue},
		{199, 0, blue},
		{199, 99, blue},
	}
	for _, tt := range tests {
		if got := dst.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
	if n := countColor(dst, color.RGBA{0, 0xff, 0, 0xff}); n != 0 {
		t.Errorf("%d pixels of background colour show through the image", n)
	}
}

func TestRenderFrameHandImage(t *testing.T) {
	green := color.RGBA{0, 0xff, 0, 0xff}
	hand := solid(10, 10, green)

	tests := []struct {
		name     string
		anim     scene.TextAnimation
		progress float64
		wantHand bool
	}{
		{"hand draw midway", scene.TextHandDraw, 0.5, true},
		{"hand draw early", scene.TextHandDraw, 0.2, true},
		{"hand draw done", scene.TextHandDraw, 1, false},
		{"nothing revealed", scene.TextHandDraw, 0, false},
		{"fade text", scene.TextFade, 0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t)
			sc := &scene.Scene{Text: "Hand drawn words appear", TextAnimation: tt.anim}
			dst := image.NewRGBA(image.Rect(0, 0, 320, 180))
			r.RenderFrame(dst, Input{Scene: sc, Hand: hand}, tt.progress)
			if got := countColor(dst, green) > 0; got != tt.wantHand {
				t.Errorf("hand drawn = %v, want %v", got, tt.wantHand)
			}
		})
	}
}

func TestRenderFramePathReveal(t *testing.T) {
	r := newTestRenderer(t)
	in := Input{
		Scene: &scene.Scene{},
		Paths: []scene.DrawingPath{
			{ID: "line", Points: `[{"x":10,"y":10},{"x":190,"y":10}]`, Color: "#FF0000", Width: 6},
			{ID: "broken", Points: `not json`},
		},
	}
	dst := image.NewRGBA(image.Rect(0, 0, 200, 100))

	r.RenderFrame(dst, in, 0)
	if got := dst.RGBAAt(100, 10); got.G != 0xff {
		t.Errorf("stroke visible at progress 0: %v", got)
	}

	r.RenderFrame(dst, in, 0.5)
	if got := dst.RGBAAt(60, 10); got != (color.RGBA{0xff, 0, 0, 0xff}) {
		t.Errorf("revealed part = %v, want red", got)
	}
	if got := dst.RGBAAt(170, 10); got.G != 0xff {
		t.Errorf("unrevealed part painted: %v", got)
	}

	r.RenderFrame(dst, in, 1)
	if got := dst.RGBAAt(170, 10); got != (color.RGBA{0xff, 0, 0, 0xff}) {
		t.Errorf("full stroke = %v, want red", got)
	}
	if r.Paths().Len() != 2 {
		t.Errorf("cache holds %d paths, want 2", r.Paths().Len())
	}
	r.Reset()
	if r.Paths().Len() != 0 {
		t.Error("Reset did not clear the path cache")
	}
}

func TestRenderFrameTextFade(t *testing.T) {
	r := newTestRenderer(t)
	sc := &scene.Scene{Text: "Hello world", TextAnimation: scene.TextFade}
	dst := image.NewRGBA(image.Rect(0, 0, 320, 180))

	r.RenderFrame(dst, Input{Scene: sc}, 0)
	if countNonWhite(dst) != 0 {
		t.Error("text visible at progress 0 with fade")
	}
	r.RenderFrame(dst, Input{Scene: sc}, 1)
	if countNonWhite(dst) == 0 {
		t.Error("text not drawn at progress 1")
	}
}

func TestRenderFrameHandDrawReveal(t *testing.T) {
	r := newTestRenderer(t)
	sc := &scene.Scene{Text: "Hand drawn words appear", TextAnimation: scene.TextHandDraw}
	dst := image.NewRGBA(image.Rect(0, 0, 320, 180))

	prev := 0
	for _, p := range []float64{0, 0.25, 0.5, 0.75, 1} {
		r.RenderFrame(dst, Input{Scene: sc}, p)
		n := countNonWhite(dst)
		if n < prev {
			t.Errorf("ink decreased at progress %.2f: %d < %d", p, n, prev)
		}
		prev = n
	}
}

func TestRenderFrameSubtitleBar(t *testing.T) {
	r := newTestRenderer(t)
	sc := &scene.Scene{Text: "Caption", TextAnimation: scene.TextFade, Subtitles: true}
	dst := image.NewRGBA(image.Rect(0, 0, 320, 180))

	r.RenderFrame(dst, Input{Scene: sc}, 0.2)
	if got := dst.RGBAAt(2, 178); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("bar drawn before 0.3: %v", got)
	}
	r.RenderFrame(dst, Input{Scene: sc}, 0.6)
	if got := dst.RGBAAt(2, 178); got.R >= 0xff {
		t.Errorf("bar missing at 0.6: %v", got)
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func countColor(img *image.RGBA, c color.RGBA) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] == c.R && img.Pix[i+1] == c.G && img.Pix[i+2] == c.B && img.Pix[i+3] == c.A {
			n++
		}
	}
	return n
}

func countNonWhite(img *image.RGBA) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff || img.Pix[i+1] != 0xff || img.Pix[i+2] != 0xff {
			n++
		}
	}
	return n
}
