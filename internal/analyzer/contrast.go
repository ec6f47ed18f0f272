package analyzer

import (
	"image"
	"image/color"
)

// ContrastDetector marks strong luminance gradients (Sobel), closes gaps
// between them by dilation and reports the connected components.
type ContrastDetector struct {
	MinArea       int     // components with a smaller bounding box are dropped
	EdgeThreshold float64 // gradient magnitude that counts as an edge
	DilateRadius  int
}

// NewContrastDetector creates a new contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinArea:       400,
		EdgeThreshold: 30,
		DilateRadius:  3,
	}
}

func (d *ContrastDetector) Detect(img image.Image) ([]Region, error) {
	l := newLuma(img)
	edges := l.sobel(d.EdgeThreshold)
	edges = edges.dilate(d.DilateRadius)
	return edges.components(img.Bounds().Min, d.MinArea), nil
}

// luma is a dense 8-bit luminance plane.
type luma struct {
	w, h int
	pix  []uint8
}

func newLuma(img image.Image) luma {
	b := img.Bounds()
	l := luma{w: b.Dx(), h: b.Dy(), pix: make([]uint8, b.Dx()*b.Dy())}
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < l.h; y++ {
			copy(l.pix[y*l.w:(y+1)*l.w], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return l
	}
	for y := 0; y < l.h; y++ {
		for x := 0; x < l.w; x++ {
			l.pix[y*l.w+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	return l
}

func (l luma) at(x, y int) float64 { return float64(l.pix[y*l.w+x]) }

func (l luma) sobel(threshold float64) mask {
	m := newMask(l.w, l.h)
	t2 := threshold * threshold
	for y := 1; y < l.h-1; y++ {
		for x := 1; x < l.w-1; x++ {
			gx := -l.at(x-1, y-1) + l.at(x+1, y-1) -
				2*l.at(x-1, y) + 2*l.at(x+1, y) -
				l.at(x-1, y+1) + l.at(x+1, y+1)
			gy := -l.at(x-1, y-1) - 2*l.at(x, y-1) - l.at(x+1, y-1) +
				l.at(x-1, y+1) + 2*l.at(x, y+1) + l.at(x+1, y+1)
			m.bits[y*l.w+x] = gx*gx+gy*gy > t2
		}
	}
	return m
}

// mask is a binary image.
type mask struct {
	w, h int
	bits []bool
}

func newMask(w, h int) mask {
	return mask{w: w, h: h, bits: make([]bool, w*h)}
}

// dilate grows set pixels by r in each direction with a square kernel,
// done as two separable passes.
func (m mask) dilate(r int) mask {
	if r <= 0 {
		return m
	}
	horiz := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		last := -r - 1
		for x := 0; x < m.w; x++ {
			if m.bits[y*m.w+x] {
				last = x
			}
			horiz.bits[y*m.w+x] = x-last <= r
		}
		last = m.w + r + 1
		for x := m.w - 1; x >= 0; x-- {
			if m.bits[y*m.w+x] {
				last = x
			}
			if last-x <= r {
				horiz.bits[y*m.w+x] = true
			}
		}
	}
	out := newMask(m.w, m.h)
	for x := 0; x < m.w; x++ {
		last := -r - 1
		for y := 0; y < m.h; y++ {
			if horiz.bits[y*m.w+x] {
				last = y
			}
			out.bits[y*m.w+x] = y-last <= r
		}
		last = m.h + r + 1
		for y := m.h - 1; y >= 0; y-- {
			if horiz.bits[y*m.w+x] {
				last = y
			}
			if last-y <= r {
				out.bits[y*m.w+x] = true
			}
		}
	}
	return out
}

// components labels 4-connected regions and returns those whose bounding
// box area is at least minArea, offset by origin.
func (m mask) components(origin image.Point, minArea int) []Region {
	seen := make([]bool, len(m.bits))
	var regions []Region
	var stack []int
	for start, set := range m.bits {
		if !set || seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		minX, minY := start%m.w, start/m.w
		maxX, maxY := minX, minY
		count := 0
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			count++
			x, y := i%m.w, i/m.w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
			for _, n := range [4]int{i - 1, i + 1, i - m.w, i + m.w} {
				if n < 0 || n >= len(m.bits) || seen[n] || !m.bits[n] {
					continue
				}
				if (n == i-1 && x == 0) || (n == i+1 && x == m.w-1) {
					continue
				}
				seen[n] = true
				stack = append(stack, n)
			}
		}
		r := image.Rect(minX, minY, maxX+1, maxY+1).Add(origin)
		if r.Dx()*r.Dy() >= minArea {
			regions = append(regions, Region{Rect: r, Pixels: count})
		}
	}
	return regions
}
