package analyzer

import (
	"fmt"
	"image"
	"image/color"
)

// NewDetector creates a detector based on the specified variant
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	case "background":
		return &BackgroundDetector{Tolerance: 24}, nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}

// BackgroundDetector treats every pixel that differs from the top-left
// pixel by more than Tolerance on any channel as content, and reports
// their bounding box as a single region.
type BackgroundDetector struct {
	Tolerance uint8
}

func (d *BackgroundDetector) Detect(img image.Image) ([]Region, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}
	bg := color.NRGBAModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.NRGBA)
	box := image.Rectangle{}
	count := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if !near(c, bg, d.Tolerance) {
				box = box.Union(image.Rect(x, y, x+1, y+1))
				count++
			}
		}
	}
	if count == 0 {
		return nil, nil
	}
	return []Region{{Rect: box, Pixels: count}}, nil
}

func near(a, b color.NRGBA, tol uint8) bool {
	diff := func(x, y uint8) uint8 {
		if x > y {
			return x - y
		}
		return y - x
	}
	return diff(a.R, b.R) <= tol && diff(a.G, b.G) <= tol && diff(a.B, b.B) <= tol && diff(a.A, b.A) <= tol
}
