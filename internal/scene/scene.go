// Package scene holds the timeline data model and its YAML project format.
package scene

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/sketchreel/internal/geometry"
)

// Project is a complete timeline.
type Project struct {
	Version string  `yaml:"version"`
	Title   string  `yaml:"title,omitempty"`
	Scenes  []Scene `yaml:"scenes"`
}

// Scene is one timed entry of the timeline.
type Scene struct {
	ID              string         `yaml:"id"`
	Text            string         `yaml:"text,omitempty"`
	DurationMs      int64          `yaml:"duration_ms"`
	TransitionMs    int64          `yaml:"transition_ms,omitempty"`
	Transition      TransitionKind `yaml:"transition,omitempty"`
	BackgroundColor string         `yaml:"background_color,omitempty"`
	BackgroundImage string         `yaml:"background_image,omitempty"`
	HandStyle       string         `yaml:"hand,omitempty"`
	TextAnimation   TextAnimation  `yaml:"text_animation,omitempty"`
	TextSpeed       float64        `yaml:"text_speed,omitempty"`
	Subtitles       bool           `yaml:"subtitles,omitempty"`
	VoiceTrack      string         `yaml:"voice,omitempty"`
	Assets          []Asset        `yaml:"assets,omitempty"`
	Paths           []DrawingPath  `yaml:"paths,omitempty"`
}

// Asset is an image placed on a scene.
type Asset struct {
	ID        string          `yaml:"id,omitempty"`
	Ref       string          `yaml:"ref"`
	Placement geometry.Anchor `yaml:"placement,omitempty"`
	X         float64         `yaml:"x,omitempty"` // custom placement, canvas fraction
	Y         float64         `yaml:"y,omitempty"`
	Scale     float64         `yaml:"scale"`
	Rotation  float64         `yaml:"rotation,omitempty"` // degrees, clockwise
	Opacity   float64         `yaml:"opacity"`
	Visible   bool            `yaml:"visible"`
	Animation AssetAnimation  `yaml:"animation,omitempty"`
	Layer     int             `yaml:"layer,omitempty"`
}

// UnmarshalYAML applies the defaults an omitted field should have.
func (a *Asset) UnmarshalYAML(value *yaml.Node) error {
	type plain Asset
	v := plain{Placement: geometry.Center, Scale: 1, Opacity: 1, Visible: true, Animation: AnimNone}
	if err := value.Decode(&v); err != nil {
		return err
	}
	*a = Asset(v)
	return nil
}

// DrawingPath is a freehand stroke. Points holds the serialized point list.
type DrawingPath struct {
	ID     string  `yaml:"id,omitempty"`
	Points string  `yaml:"points"`
	Color  string  `yaml:"color,omitempty"`
	Width  float64 `yaml:"width,omitempty"`
	Layer  int     `yaml:"layer,omitempty"`
}

// TotalMs is the scene duration including its outgoing transition.
func (s Scene) TotalMs() int64 {
	return s.DurationMs + s.TransitionMs
}

// HasText reports whether the narration text is non-blank.
func (s Scene) HasText() bool {
	return strings.TrimSpace(s.Text) != ""
}

// SortedPaths returns paths ordered by layer; ties keep list order.
func SortedPaths(paths []DrawingPath) []DrawingPath {
	out := append([]DrawingPath(nil), paths...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Layer < out[j].Layer })
	return out
}

// Validate reports the first structural problem of the project.
func (p *Project) Validate() error {
	for i, s := range p.Scenes {
		if s.DurationMs < 0 || s.TransitionMs < 0 {
			return fmt.Errorf("scene %d (%s): durations must not be negative", i+1, s.ID)
		}
		if s.BackgroundColor != "" {
			if _, err := ParseColor(s.BackgroundColor); err != nil {
				return fmt.Errorf("scene %d (%s): %w", i+1, s.ID, err)
			}
		}
		for j, dp := range s.Paths {
			if dp.Color == "" {
				continue
			}
			if _, err := ParseColor(dp.Color); err != nil {
				return fmt.Errorf("scene %d (%s) path %d: %w", i+1, s.ID, j+1, err)
			}
		}
	}
	return nil
}

// ParseColor parses #RRGGBB or #AARRGGBB.
func ParseColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	c := color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
	if len(h) == 8 {
		c.A = uint8(v >> 24)
	}
	return c, nil
}

// ColorOr parses s and falls back to def when s is empty or malformed.
func ColorOr(s string, def color.NRGBA) color.NRGBA {
	if s == "" {
		return def
	}
	c, err := ParseColor(s)
	if err != nil {
		return def
	}
	return c
}
