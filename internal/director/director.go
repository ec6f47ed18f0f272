// Package director drafts scene projects from paged documents. Every page
// becomes a scene showing the page, with a hand-drawn underline beneath
// each content region in reading order.
package director

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ivlev/sketchreel/internal/analyzer"
	"github.com/ivlev/sketchreel/internal/geometry"
	"github.com/ivlev/sketchreel/internal/scene"
	"github.com/ivlev/sketchreel/internal/stroke"
)

// ErrNoPages is returned when there is nothing to draft.
var ErrNoPages = errors.New("director: no pages")

const (
	introOutro  = 2.0 // seconds: 1s full view before the first underline, 1s after the last
	rowSlack    = 20  // max top offset from the first region of a row
	underlineDY = 6   // pixels between a region and its underline
)

// Director generates scene projects from detected content regions.
type Director struct {
	ViewportWidth  int
	ViewportHeight int
	MinDwell       float64 // minimum seconds per region
	MaxDwell       float64 // maximum seconds per region
	MaxRegions     int     // underlines per page, in reading order
	Fill           float64 // share of the viewport the page should cover
	Transition     scene.TransitionKind
	TransitionMs   int64
	Ink            string
}

// NewDirector creates a Director with default settings.
func NewDirector(viewportWidth, viewportHeight int) *Director {
	return &Director{
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
		MinDwell:       1.0,
		MaxDwell:       3.0,
		MaxRegions:     8,
		Fill:           0.9,
		Transition:     scene.TransitionFade,
		TransitionMs:   500,
		Ink:            "#d03030",
	}
}

// Page is one document page as it will be shown: its asset reference, its
// raster size and the content regions found on it, in raster pixels.
type Page struct {
	Ref     string
	Size    image.Point
	Regions []analyzer.Region
}

// Draft builds a project with one scene per page. totalDuration (seconds)
// is shared evenly between pages; zero lets every page run for its
// minimum dwell times.
func (d *Director) Draft(title string, pages []Page, totalDuration float64) (*scene.Project, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	perPage := totalDuration / float64(len(pages))

	p := &scene.Project{Version: scene.CurrentVersion, Title: title}
	for i, page := range pages {
		sc, err := d.draftPage(i, page, perPage)
		if err != nil {
			return nil, err
		}
		if i < len(pages)-1 && d.TransitionMs > 0 {
			sc.Transition = d.Transition
			sc.TransitionMs = d.TransitionMs
		}
		p.Scenes = append(p.Scenes, sc)
	}
	return p, nil
}

func (d *Director) draftPage(i int, page Page, perPage float64) (scene.Scene, error) {
	if page.Size.X <= 0 || page.Size.Y <= 0 {
		return scene.Scene{}, fmt.Errorf("director: page %d has no size", i+1)
	}
	regions := d.sortRegions(page.Regions)
	if d.MaxRegions > 0 && len(regions) > d.MaxRegions {
		regions = regions[:d.MaxRegions]
	}

	id := fmt.Sprintf("page-%d", i+1)
	duration := max(perPage, introOutro)
	if len(regions) > 0 {
		duration = introOutro + d.calculateDwellTime(perPage, len(regions))*float64(len(regions))
	}

	sc := scene.Scene{
		ID:         id,
		DurationMs: int64(math.Round(duration * 1000)),
		Assets: []scene.Asset{{
			ID:        id + "-page",
			Ref:       page.Ref,
			Placement: geometry.Center,
			Scale:     d.pageScale(),
			Opacity:   1,
			Visible:   true,
			Animation: scene.AnimFade,
		}},
	}

	m := d.mapping(page.Size)
	for j, r := range regions {
		pts, err := stroke.EncodePoints(underline(m, r.Rect))
		if err != nil {
			return scene.Scene{}, err
		}
		sc.Paths = append(sc.Paths, scene.DrawingPath{
			ID:     fmt.Sprintf("%s-u%d", id, j+1),
			Points: pts,
			Color:  d.Ink,
			Width:  math.Max(2, float64(d.ViewportHeight)/240),
			Layer:  j,
		})
	}
	return sc, nil
}

// sortRegions orders regions top-to-bottom, then left-to-right within a row.
// A row opens at the topmost remaining region and takes every region whose
// top lies within rowSlack of it.
func (d *Director) sortRegions(regions []analyzer.Region) []analyzer.Region {
	sorted := append([]analyzer.Region(nil), regions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rect.Min.Y < sorted[j].Rect.Min.Y
	})
	for start := 0; start < len(sorted); {
		top := sorted[start].Rect.Min.Y
		end := start + 1
		for end < len(sorted) && sorted[end].Rect.Min.Y-top <= rowSlack {
			end++
		}
		row := sorted[start:end]
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].Rect.Min.X < row[j].Rect.Min.X
		})
		start = end
	}
	return sorted
}

// calculateDwellTime splits what is left after the intro and outro between
// the regions and clamps it to [MinDwell, MaxDwell].
func (d *Director) calculateDwellTime(totalDuration float64, regionCount int) float64 {
	available := totalDuration - introOutro
	if available <= 0 {
		available = totalDuration
	}
	dwell := available / float64(regionCount)
	if dwell < d.MinDwell {
		dwell = d.MinDwell
	}
	if dwell > d.MaxDwell {
		dwell = d.MaxDwell
	}
	return dwell
}

// pageScale is the asset scale that makes a page cover Fill of the
// viewport, clamped to [1, 3].
func (d *Director) pageScale() float64 {
	return math.Max(1, math.Min(3, d.Fill/geometry.AssetBoxFraction))
}

func (d *Director) canvas() geometry.Size {
	return geometry.Size{W: float64(d.ViewportWidth), H: float64(d.ViewportHeight)}
}

// pageMapping converts page raster pixels to canvas pixels for a page
// placed at the centre with pageScale.
type pageMapping struct {
	k      float64
	origin geometry.Point
}

func (d *Director) mapping(size image.Point) pageMapping {
	canvas := d.canvas()
	obj := geometry.Size{W: float64(size.X), H: float64(size.Y)}
	k := geometry.FitScale(canvas, obj) * d.pageScale()
	placed := geometry.Size{W: obj.W * k, H: obj.H * k}
	return pageMapping{k: k, origin: geometry.Position(geometry.Center, 0, 0, canvas, placed)}
}

func (m pageMapping) apply(x, y float64) stroke.Point {
	return stroke.Point{X: m.origin.X + x*m.k, Y: m.origin.Y + y*m.k}
}
