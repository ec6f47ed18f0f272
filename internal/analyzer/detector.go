// Package analyzer finds the content of a page image so empty margins can
// be trimmed before the page is used as an asset.
package analyzer

import "image"

// Region is a connected area of content.
type Region struct {
	Rect   image.Rectangle
	Pixels int // mask pixels inside the component
}

// Detector finds content regions in an image.
type Detector interface {
	Detect(img image.Image) ([]Region, error)
}

// ContentBounds returns the union of every detected region grown by pad
// pixels and clipped to the image. ok is false when nothing was found.
func ContentBounds(img image.Image, d Detector, pad int) (image.Rectangle, bool, error) {
	regions, err := d.Detect(img)
	if err != nil {
		return image.Rectangle{}, false, err
	}
	r, ok := Union(regions, pad, img.Bounds())
	return r, ok, nil
}

// Union is the bounding box of regions grown by pad and clipped to clip.
func Union(regions []Region, pad int, clip image.Rectangle) (image.Rectangle, bool) {
	var u image.Rectangle
	for _, r := range regions {
		u = u.Union(r.Rect)
	}
	if u.Empty() {
		return image.Rectangle{}, false
	}
	return u.Inset(-pad).Intersect(clip), true
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Trim crops img to its content bounds. Images without detectable content,
// or that cannot be sliced, are returned unchanged.
func Trim(img image.Image, d Detector, pad int) (image.Image, error) {
	r, ok, err := ContentBounds(img, d, pad)
	if err != nil || !ok || r == img.Bounds() {
		return img, err
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(r), nil
	}
	return img, nil
}
