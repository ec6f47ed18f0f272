package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/sketchreel/internal/audio"
	"github.com/ivlev/sketchreel/internal/config"
	"github.com/ivlev/sketchreel/internal/scene"
	"github.com/ivlev/sketchreel/internal/system"
)

func TestBuildPlanFrameTotal(t *testing.T) {
	tests := []struct {
		name   string
		scenes []scene.Scene
		fps    int
		want   int
	}{
		{"two scenes at 24", []scene.Scene{{DurationMs: 3000}, {DurationMs: 2000}}, 24, 120},
		{"with transition", []scene.Scene{{DurationMs: 1000, TransitionMs: 500}, {DurationMs: 1000}}, 30, 75},
		{"rounding", []scene.Scene{{DurationMs: 333}, {DurationMs: 333}, {DurationMs: 334}}, 30, 30},
		{"fractional frames", []scene.Scene{{DurationMs: 1010}}, 25, 25},
		{"empty", nil, 30, 0},
		{"zero durations", []scene.Scene{{}, {}}, 30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildPlan(tt.scenes, tt.fps)
			if p.Total != tt.want {
				t.Errorf("Total = %d, want %d", p.Total, tt.want)
			}
			sum := 0
			for _, s := range p.Segments {
				sum += s.Frames
			}
			if sum != p.Total {
				t.Errorf("segments cover %d frames, total is %d", sum, p.Total)
			}
		})
	}
}

func TestPlanLocate(t *testing.T) {
	scenes := []scene.Scene{
		{DurationMs: 1000, TransitionMs: 500, Transition: scene.TransitionFade},
		{DurationMs: 1000, TransitionMs: 500},
	}
	p := BuildPlan(scenes, 10)
	if p.Total != 30 {
		t.Fatalf("Total = %d, want 30", p.Total)
	}
	if s := p.Segments[0]; s.Transition != 5 || s.Content() != 10 {
		t.Errorf("first segment = %+v", s)
	}
	if s := p.Segments[1]; s.Transition != 0 {
		t.Errorf("last scene must not transition: %+v", s)
	}

	tests := []struct {
		frame      int
		segment    int
		transition bool
		progress   float64
	}{
		{0, 0, false, 0},
		{5, 0, false, 0.5},
		{9, 0, false, 0.9},
		{10, 0, true, 1.0 / 6},
		{14, 0, true, 5.0 / 6},
		{15, 1, false, 0},
		{29, 1, false, 14.0 / 15},
	}
	for _, tt := range tests {
		pos, ok := p.Locate(tt.frame)
		if !ok {
			t.Fatalf("frame %d not located", tt.frame)
		}
		if pos.Segment != tt.segment || pos.Transition != tt.transition || abs(pos.Progress-tt.progress) > 1e-9 {
			t.Errorf("Locate(%d) = %+v, want segment %d transition %v progress %.4f",
				tt.frame, pos, tt.segment, tt.transition, tt.progress)
		}
	}
	if _, ok := p.Locate(30); ok {
		t.Error("frame past the end was located")
	}
}

func TestSamplesThroughAverages(t *testing.T) {
	for _, fps := range []int{24, 25, 30, 60} {
		var prev int64
		for f := 0; f < fps*3; f++ {
			n := samplesThrough(f, 44100, fps)
			step := n - prev
			avg := 44100 / fps
			if step < int64(avg) || step > int64(avg)+1 {
				t.Fatalf("fps %d frame %d: %d samples, want about %d", fps, f, step, avg)
			}
			prev = n
		}
		if prev != int64(44100*3) {
			t.Errorf("fps %d: 3s produced %d samples", fps, prev)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusIdle, StatusPreparing, true},
		{StatusIdle, StatusComplete, false},
		{StatusPreparing, StatusEncodingVideo, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusEncodingVideo, StatusComplete, true},
		{StatusEncodingVideo, StatusPreparing, false},
		{StatusComplete, StatusError, false},
		{StatusCancelled, StatusPreparing, false},
	}
	for _, tt := range tests {
		if got := canAdvance(tt.from, tt.to); got != tt.ok {
			t.Errorf("canAdvance(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}

	terminal := map[Status]bool{StatusComplete: true, StatusError: true, StatusCancelled: true}
	for _, s := range []Status{StatusIdle, StatusPreparing, StatusEncodingVideo, StatusComplete, StatusError, StatusCancelled} {
		if s.Terminal() != terminal[s] {
			t.Errorf("%v.Terminal() = %v", s, s.Terminal())
		}
	}
}

func TestObservable(t *testing.T) {
	o := NewObservable(1)
	ch, unsubscribe := o.Subscribe()
	if v := <-ch; v != 1 {
		t.Errorf("initial value = %d", v)
	}
	for i := 2; i <= 10; i++ {
		o.Set(i)
	}
	if v := <-ch; v != 10 {
		t.Errorf("subscriber got %d, want latest 10", v)
	}
	if o.Get() != 10 {
		t.Errorf("Get = %d", o.Get())
	}
	unsubscribe()
	unsubscribe()
	o.Set(11)
	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}
}

func TestExportFrameCount(t *testing.T) {
	be := &fakeBackend{}
	pool := system.NewSurfacePool()
	e := NewExporter(Options{Backend: be, Pool: pool})
	req := testRequest(t, []scene.Scene{
		{ID: "a", Text: "first", DurationMs: 3000, TransitionMs: 0},
		{ID: "b", Text: "second", DurationMs: 2000},
	}, 24)

	if err := e.Run(context.Background(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if be.video.submitted != 120 {
		t.Errorf("video frames = %d, want 120", be.video.submitted)
	}
	if want := int64(120*44100/24) * 2; be.audio.bytes != want {
		t.Errorf("audio bytes = %d, want %d", be.audio.bytes, want)
	}
	if be.videoCfg.Width%2 != 0 || be.videoCfg.Height%2 != 0 || be.videoCfg.GOP != 24 {
		t.Errorf("video config = %+v", be.videoCfg)
	}
	if be.audioCfg.SampleRate != 44100 || be.audioCfg.Channels != 1 || be.audioCfg.BitRate != 64000 {
		t.Errorf("audio config = %+v", be.audioCfg)
	}
	if be.muxer.started != 1 || !be.muxer.stopped {
		t.Errorf("muxer started %d times, stopped %v", be.muxer.started, be.muxer.stopped)
	}
	if be.muxer.samples[0] != 120 || be.muxer.samples[1] != 120 {
		t.Errorf("muxed samples = %v", be.muxer.samples)
	}
	if e.Status() != StatusComplete || e.Progress() != 1 {
		t.Errorf("status %v progress %.3f", e.Status(), e.Progress())
	}
	assertReleased(t, be, pool)
	if _, err := os.Stat(req.Output + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file left behind: %v", err)
	}
}

func TestExportVoiceTrack(t *testing.T) {
	dir := t.TempDir()
	samples := make([]int16, 22050)
	for i := range samples {
		samples[i] = 1000
	}
	if err := os.WriteFile(filepath.Join(dir, "voice.wav"), audio.EncodeWAV(samples, 22050, 1), 0644); err != nil {
		t.Fatal(err)
	}

	be := &fakeBackend{}
	e := NewExporter(Options{Backend: be})
	req := testRequest(t, []scene.Scene{
		{DurationMs: 1000, VoiceTrack: "voice.wav"},
		{DurationMs: 1000, VoiceTrack: "missing.wav"},
	}, 25)
	req.BaseDir = dir

	if err := e.Run(context.Background(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := int64(2*44100) * 2; be.audio.bytes != want {
		t.Errorf("audio bytes = %d, want %d", be.audio.bytes, want)
	}
}

func TestExportZeroFrames(t *testing.T) {
	be := &fakeBackend{}
	e := NewExporter(Options{Backend: be})
	req := testRequest(t, []scene.Scene{{DurationMs: 0}}, 30)

	err := e.Run(context.Background(), req)
	if !errors.Is(err, ErrNoFrames) {
		t.Fatalf("Run = %v, want ErrNoFrames", err)
	}
	if be.opened != 0 {
		t.Errorf("%d encoder/muxer handles opened for an empty timeline", be.opened)
	}
	if _, err := os.Stat(req.Output); !os.IsNotExist(err) {
		t.Errorf("output file exists: %v", err)
	}
	if e.Status() != StatusError {
		t.Errorf("status = %v, want error", e.Status())
	}
}

func TestExportCancel(t *testing.T) {
	pool := system.NewSurfacePool()
	var e *Exporter
	be := &fakeBackend{onVideoSubmit: func(n int) {
		if n == 10 {
			e.Cancel()
		}
	}}
	e = NewExporter(Options{Backend: be, Pool: pool})
	req := testRequest(t, []scene.Scene{{DurationMs: 5000}}, 30)

	err := e.Run(context.Background(), req)
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want ErrCancelled", err)
	}
	if e.Status() != StatusCancelled {
		t.Errorf("status = %v, want cancelled", e.Status())
	}
	if be.video.submitted >= 150 {
		t.Errorf("export ran to completion after cancel")
	}
	if be.muxer.stopped {
		t.Error("muxer stopped after cancellation")
	}
	assertReleased(t, be, pool)
	if _, err := os.Stat(req.Output); !os.IsNotExist(err) {
		t.Errorf("output file exists after cancel: %v", err)
	}
}

func TestExportCancelledWhileOpening(t *testing.T) {
	pool := system.NewSurfacePool()
	be := &fakeBackend{honorCtx: true}
	e := NewExporter(Options{Backend: be, Pool: pool})
	req := testRequest(t, []scene.Scene{{DurationMs: 1000}}, 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Run(ctx, req)
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want ErrCancelled", err)
	}
	if e.Status() != StatusCancelled {
		t.Errorf("status = %v, want cancelled", e.Status())
	}
	if be.video != nil {
		t.Error("video encoder created after cancellation")
	}
	assertReleased(t, be, pool)
}

func TestExportEncoderFailure(t *testing.T) {
	pool := system.NewSurfacePool()
	be := &fakeBackend{failVideoAt: 3}
	e := NewExporter(Options{Backend: be, Pool: pool})
	req := testRequest(t, []scene.Scene{{DurationMs: 1000}}, 30)

	if err := e.Run(context.Background(), req); err == nil || errors.Is(err, ErrCancelled) {
		t.Fatalf("Run = %v, want encoder error", err)
	}
	if e.Status() != StatusError {
		t.Errorf("status = %v, want error", e.Status())
	}
	assertReleased(t, be, pool)
}

func TestExportProgressMonotonic(t *testing.T) {
	be := &fakeBackend{}
	e := NewExporter(Options{Backend: be})
	ch, unsubscribe := e.SubscribeProgress()

	var (
		mu   sync.Mutex
		seen []float64
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		for v := range ch {
			mu.Lock()
			seen = append(seen, v)
			mu.Unlock()
		}
	}()

	req := testRequest(t, []scene.Scene{
		{DurationMs: 1000, TransitionMs: 400, Transition: scene.TransitionWipe},
		{DurationMs: 1000},
	}, 30)
	if err := e.Run(context.Background(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	unsubscribe()
	<-done

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress decreased: %v", seen)
		}
	}
	if len(seen) == 0 || seen[len(seen)-1] != 1 {
		t.Errorf("final progress not observed as 1: %v", seen)
	}
}

func TestExportProgressCountsFinishedFrames(t *testing.T) {
	const total = 30
	var e *Exporter
	var bad []string
	be := &fakeBackend{onVideoSubmit: func(n int) {
		// Submitting frame n-1: n-1 frames are finished.
		if got, want := e.Progress(), float64(n-1)/total; abs(got-want) > 1e-12 {
			bad = append(bad, fmt.Sprintf("frame %d: progress %.4f, want %.4f", n-1, got, want))
		}
	}}
	e = NewExporter(Options{Backend: be})
	if err := e.Run(context.Background(), testRequest(t, []scene.Scene{{DurationMs: 1000}}, total)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, b := range bad {
		t.Error(b)
	}
	if e.Progress() != 1 {
		t.Errorf("final progress = %v, want 1", e.Progress())
	}
}

func TestExporterResetAndBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	be := &fakeBackend{onVideoSubmit: func(n int) {
		if n == 1 {
			close(started)
			<-release
		}
	}}
	e := NewExporter(Options{Backend: be})
	req := testRequest(t, []scene.Scene{{DurationMs: 200}}, 30)

	errc := make(chan error, 1)
	go func() { errc <- e.Run(context.Background(), req) }()

	<-started
	if err := e.Run(context.Background(), req); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Run = %v, want ErrBusy", err)
	}
	if err := e.Reset(); !errors.Is(err, ErrBusy) {
		t.Errorf("Reset while running = %v, want ErrBusy", err)
	}
	if e.Status() != StatusEncodingVideo {
		t.Errorf("status while running = %v", e.Status())
	}
	close(release)

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("export did not finish")
	}

	if err := e.Run(context.Background(), req); !errors.Is(err, ErrNotIdle) {
		t.Errorf("Run after completion = %v, want ErrNotIdle", err)
	}
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if e.Status() != StatusIdle || e.Progress() != 0 {
		t.Errorf("after Reset: status %v progress %.2f", e.Status(), e.Progress())
	}
}

func testRequest(t *testing.T, scenes []scene.Scene, fps int) Request {
	t.Helper()
	return Request{
		Project:    &scene.Project{Version: scene.CurrentVersion, Scenes: scenes},
		Output:     filepath.Join(t.TempDir(), "out", "video.mp4"),
		Resolution: config.Res480p,
		Aspect:     config.Square,
		FPS:        fps,
	}
}

func assertReleased(t *testing.T, be *fakeBackend, pool *system.SurfacePool) {
	t.Helper()
	if be.video != nil && !be.video.closed {
		t.Error("video encoder not closed")
	}
	if be.audio != nil && !be.audio.closed {
		t.Error("audio encoder not closed")
	}
	if be.muxer != nil && !be.muxer.released {
		t.Error("muxer not released")
	}
	if n := pool.Outstanding(); n != 0 {
		t.Errorf("%d surfaces not returned to the pool", n)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
