package engine

import "github.com/ivlev/sketchreel/internal/scene"

// Segment is one scene's span of frames. The last Transition frames are
// the cross-over into the next scene.
type Segment struct {
	Scene      int
	Start      int
	Frames     int
	Transition int
	Kind       scene.TransitionKind
}

// Content is the number of frames rendered by the scene renderer.
func (s Segment) Content() int { return s.Frames - s.Transition }

// End is one past the segment's last frame.
func (s Segment) End() int { return s.Start + s.Frames }

// Plan maps frame indices onto scenes.
type Plan struct {
	FPS      int
	Total    int
	Segments []Segment
}

// msToFrames rounds ms/1000·fps to the nearest frame.
func msToFrames(ms int64, fps int) int {
	if ms <= 0 {
		return 0
	}
	return int((ms*int64(fps) + 500) / 1000)
}

// BuildPlan lays scenes out on the frame grid. Boundaries are rounded from
// cumulative time, so Total equals round(Σ(duration+transition)/1000·fps).
func BuildPlan(scenes []scene.Scene, fps int) Plan {
	p := Plan{FPS: fps, Segments: make([]Segment, 0, len(scenes))}
	var cum int64
	start := 0
	for i, sc := range scenes {
		cum += max(sc.DurationMs, 0) + max(sc.TransitionMs, 0)
		end := msToFrames(cum, fps)
		seg := Segment{Scene: i, Start: start, Frames: end - start, Kind: sc.Transition}
		if i < len(scenes)-1 && sc.TransitionMs > 0 {
			seg.Transition = min(msToFrames(sc.TransitionMs, fps), seg.Frames)
		}
		p.Segments = append(p.Segments, seg)
		start = end
	}
	p.Total = start
	return p
}

// Position is where a frame falls in the plan.
type Position struct {
	Segment    int // index into Plan.Segments
	Transition bool
	Progress   float64
}

// Locate returns the position of frame. ok is false outside the plan.
func (p Plan) Locate(frame int) (pos Position, ok bool) {
	for i, seg := range p.Segments {
		if frame < seg.Start || frame >= seg.End() {
			continue
		}
		local := frame - seg.Start
		if local >= seg.Content() {
			// Window progress is exclusive of 0 and 1.
			k := local - seg.Content()
			return Position{Segment: i, Transition: true, Progress: float64(k+1) / float64(seg.Transition+1)}, true
		}
		return Position{Segment: i, Progress: clamp01(float64(local) / float64(seg.Content()))}, true
	}
	return Position{}, false
}

// samplesThrough is the number of audio samples that cover frames [0, frame].
func samplesThrough(frame, rate, fps int) int64 {
	n := int64(frame+1) * int64(rate)
	return (2*n + int64(fps)) / (2 * int64(fps))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
