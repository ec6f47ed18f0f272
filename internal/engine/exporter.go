// Package engine walks a project timeline frame by frame and drives the
// encoders and muxer that produce the output file.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/ivlev/sketchreel/internal/audio"
	"github.com/ivlev/sketchreel/internal/config"
	"github.com/ivlev/sketchreel/internal/effects"
	"github.com/ivlev/sketchreel/internal/logging"
	"github.com/ivlev/sketchreel/internal/renderer"
	"github.com/ivlev/sketchreel/internal/scene"
	"github.com/ivlev/sketchreel/internal/system"
	"github.com/ivlev/sketchreel/internal/video"
)

var (
	ErrNoFrames     = errors.New("engine: timeline has no frames")
	ErrCancelled    = errors.New("engine: export cancelled")
	ErrBusy         = errors.New("engine: export in progress")
	ErrNotIdle      = errors.New("engine: exporter must be reset before the next export")
	ErrOutputLocked = errors.New("engine: output is being written by another export")
)

// Backend creates the encoders and muxer for one export.
type Backend interface {
	NewVideoEncoder(ctx context.Context, cfg video.VideoConfig) (video.Encoder, error)
	NewAudioEncoder(ctx context.Context, cfg video.AudioConfig) (video.Encoder, error)
	NewMuxer(output string) (video.Muxer, error)
}

// Request describes one export.
type Request struct {
	Project *scene.Project
	// Images holds decoded images keyed by reference: asset refs,
	// background images and hand styles.
	Images     map[string]image.Image
	BaseDir    string // voice tracks are resolved against it
	Output     string
	Resolution config.Resolution
	Aspect     config.AspectRatio
	FPS        int
	VideoCodec string
}

// Options configures an Exporter.
type Options struct {
	Backend   Backend
	Pool      *system.SurfacePool
	Logger    *slog.Logger
	ShowStats bool
	StatsPath string    // appended to when ShowStats is set
	Report    io.Writer // receives the performance report, os.Stdout when nil
}

// Exporter runs export jobs one at a time and publishes their state.
type Exporter struct {
	backend   Backend
	pool      *system.SurfacePool
	logger    *slog.Logger
	showStats bool
	statsPath string
	reportOut io.Writer

	status   *Observable[Status]
	progress *Observable[float64]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewExporter returns an idle exporter. A nil backend uses ffmpeg.
func NewExporter(opts Options) *Exporter {
	logger := logging.OrDiscard(opts.Logger)
	if opts.Backend == nil {
		opts.Backend = video.FFmpeg{Logger: logger}
	}
	if opts.Pool == nil {
		opts.Pool = system.NewSurfacePool()
	}
	if opts.StatsPath == "" {
		opts.StatsPath = "benchmark.log"
	}
	if opts.Report == nil {
		opts.Report = os.Stdout
	}
	return &Exporter{
		backend:   opts.Backend,
		pool:      opts.Pool,
		logger:    logger,
		showStats: opts.ShowStats,
		statsPath: opts.StatsPath,
		reportOut: opts.Report,
		status:    NewObservable(StatusIdle),
		progress:  NewObservable(0.0),
	}
}

func (e *Exporter) Status() Status    { return e.status.Get() }
func (e *Exporter) Progress() float64 { return e.progress.Get() }

func (e *Exporter) SubscribeStatus() (<-chan Status, func())    { return e.status.Subscribe() }
func (e *Exporter) SubscribeProgress() (<-chan float64, func()) { return e.progress.Subscribe() }

// Cancel asks the running export to stop. It is checked once per frame.
func (e *Exporter) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Reset returns a finished exporter to Idle.
func (e *Exporter) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrBusy
	}
	e.progress.Set(0)
	e.status.Set(StatusIdle)
	return nil
}

func (e *Exporter) advance(to Status) {
	if from := e.status.Get(); !canAdvance(from, to) {
		e.logger.Warn("ignoring invalid status change", "from", from, "to", to)
		return
	}
	e.status.Set(to)
	if to.Terminal() {
		e.logger.Debug("export settled", "status", to)
	}
}

// Run performs the export and blocks until it finishes.
func (e *Exporter) Run(ctx context.Context, req Request) (err error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrBusy
	}
	if e.status.Get() != StatusIdle {
		e.mu.Unlock()
		return ErrNotIdle
	}
	ctx, cancel := context.WithCancel(ctx)
	e.running, e.cancel = true, cancel
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		e.running, e.cancel = false, nil
		e.mu.Unlock()
	}()

	id := uuid.NewString()
	logger := e.logger.With("job", id)
	e.progress.Set(0)
	e.advance(StatusPreparing)

	defer func() {
		switch {
		case err == nil:
			e.progress.Set(1)
			e.advance(StatusComplete)
		case errors.Is(err, ErrCancelled):
			logger.Info("export cancelled")
			e.advance(StatusCancelled)
		default:
			logger.Error("export failed", "error", err)
			e.advance(StatusError)
		}
	}()

	j, err := e.prepare(req, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(req.Output), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	lock := flock.New(req.Output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output: %w", err)
	}
	if !locked {
		return ErrOutputLocked
	}
	defer func() {
		lock.Unlock()
		os.Remove(lock.Path())
	}()

	defer j.cleanup()
	return j.run(ctx)
}

// job is the state of one export run.
type job struct {
	e      *Exporter
	req    Request
	logger *slog.Logger

	width, height int
	fps           int
	plan          Plan

	render *renderer.Renderer
	frame  *image.RGBA
	transA *image.RGBA
	transB *image.RGBA
	yuv    []byte

	videoEnc *trackOutput
	audioEnc *trackOutput
	muxer    video.Muxer
	muxing   bool

	frameIndex     int
	sceneIndex     int
	inTransition   bool
	transFor       int // segment whose transition rasters are cached, -1 for none
	voice          *audio.Cursor
	samplesWritten int64

	stats runStats
}

type trackOutput struct {
	enc     video.Encoder
	track   int
	pending []video.Packet
}

func (e *Exporter) prepare(req Request, logger *slog.Logger) (*job, error) {
	if req.Project == nil {
		return nil, fmt.Errorf("engine: no project")
	}
	res := req.Resolution
	if res == "" {
		res = config.Res720p
	}
	aspect := req.Aspect
	if aspect == "" {
		aspect = config.Landscape
	}
	fps := req.FPS
	if fps <= 0 {
		fps = 30
	}
	w, h := config.Dimensions(res, aspect)

	plan := BuildPlan(req.Project.Scenes, fps)
	if plan.Total == 0 {
		return nil, ErrNoFrames
	}
	logger.Info("export planned", "width", w, "height", h, "fps", fps, "frames", plan.Total, "scenes", len(plan.Segments))

	return &job{
		e:          e,
		req:        req,
		logger:     logger,
		width:      w,
		height:     h,
		fps:        fps,
		plan:       plan,
		sceneIndex: -1,
		transFor:   -1,
	}, nil
}

func (j *job) run(ctx context.Context) error {
	started := time.Now()
	if err := j.open(ctx); err != nil {
		return j.classify(ctx, err)
	}
	j.e.advance(StatusEncodingVideo)

	for j.frameIndex = 0; j.frameIndex < j.plan.Total; j.frameIndex++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		if err := j.step(ctx); err != nil {
			return j.classify(ctx, err)
		}
		// Progress counts finished frames: frame k done publishes (k+1)/total.
		j.e.progress.Set(float64(j.frameIndex+1) / float64(j.plan.Total))
	}

	finalize := time.Now()
	if err := j.finish(ctx); err != nil {
		return j.classify(ctx, err)
	}
	j.stats.finalize = time.Since(finalize)
	j.stats.total = time.Since(started)
	j.stats.frames = j.plan.Total

	if j.e.showStats {
		j.e.report(ctx, j)
	}
	j.logger.Info("export complete", "output", j.req.Output, "frames", j.plan.Total, "elapsed", j.stats.total.Round(time.Millisecond))
	return nil
}

// classify turns failures caused by cancellation into ErrCancelled.
func (j *job) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	return err
}

func (j *job) open(ctx context.Context) error {
	r, err := renderer.New(j.logger)
	if err != nil {
		return err
	}
	j.render = r

	bounds := image.Rect(0, 0, j.width, j.height)
	j.frame = j.e.pool.Get(bounds)
	j.transA = j.e.pool.Get(bounds)
	j.transB = j.e.pool.Get(bounds)
	j.yuv = make([]byte, video.I420Size(j.width, j.height))

	venc, err := j.e.backend.NewVideoEncoder(ctx, video.VideoConfig{
		Width:   j.width,
		Height:  j.height,
		FPS:     j.fps,
		BitRate: config.VideoBitRate(j.width, j.height, j.fps),
		GOP:     j.fps,
		Codec:   j.req.VideoCodec,
	})
	if err != nil {
		return fmt.Errorf("video encoder: %w", err)
	}
	j.videoEnc = &trackOutput{enc: venc, track: -1}

	aenc, err := j.e.backend.NewAudioEncoder(ctx, video.AudioConfig{
		SampleRate: config.AudioSampleRate,
		Channels:   config.AudioChannels,
		BitRate:    config.AudioBitRate,
	})
	if err != nil {
		return fmt.Errorf("audio encoder: %w", err)
	}
	j.audioEnc = &trackOutput{enc: aenc, track: -1}

	mux, err := j.e.backend.NewMuxer(j.req.Output)
	if err != nil {
		return fmt.Errorf("muxer: %w", err)
	}
	j.muxer = mux
	return nil
}

// step renders, encodes and drains one frame.
func (j *job) step(ctx context.Context) error {
	pos, ok := j.plan.Locate(j.frameIndex)
	if !ok {
		return fmt.Errorf("frame %d outside plan", j.frameIndex)
	}
	seg := j.plan.Segments[pos.Segment]
	if seg.Scene != j.sceneIndex {
		j.enterScene(seg.Scene)
	}
	j.inTransition = pos.Transition

	t := time.Now()
	if pos.Transition {
		j.renderTransition(pos.Segment, pos.Progress)
	} else {
		j.render.RenderFrame(j.frame, j.input(seg.Scene), pos.Progress)
	}
	j.yuv = video.RGBAToI420(j.frame, j.yuv)
	j.stats.render += time.Since(t)

	t = time.Now()
	defer func() { j.stats.encode += time.Since(t) }()

	pts := int64(j.frameIndex) * 1_000_000 / int64(j.fps)
	if err := j.videoEnc.enc.Submit(ctx, j.yuv, pts); err != nil {
		return fmt.Errorf("submit frame %d: %w", j.frameIndex, err)
	}

	n := samplesThrough(j.frameIndex, config.AudioSampleRate, j.fps) - j.samplesWritten
	if n > 0 {
		apts := j.samplesWritten * 1_000_000 / config.AudioSampleRate
		if err := j.audioEnc.enc.Submit(ctx, j.voice.Next(int(n)), apts); err != nil {
			return fmt.Errorf("submit audio at frame %d: %w", j.frameIndex, err)
		}
		j.samplesWritten += n
	}
	return j.pump()
}

// enterScene loads the scene's voice track; a missing track plays silence.
func (j *job) enterScene(idx int) {
	j.sceneIndex = idx
	sc := &j.req.Project.Scenes[idx]
	var track *audio.PCMTrack
	if sc.VoiceTrack != "" {
		path := sc.VoiceTrack
		if !filepath.IsAbs(path) && j.req.BaseDir != "" {
			path = filepath.Join(j.req.BaseDir, path)
		}
		track = audio.Load(path, config.AudioSampleRate, j.logger)
		if track != nil && track.Duration()*1000 > float64(sc.TotalMs()) {
			j.logger.Info("voice track cut at scene end", "scene", idx, "track_s", track.Duration(), "scene_ms", sc.TotalMs())
		}
	}
	j.voice = audio.NewCursor(track)
	j.logger.Debug("scene started", "scene", idx, "frame", j.frameIndex, "voice", track != nil)
}

func (j *job) input(idx int) renderer.Input {
	sc := &j.req.Project.Scenes[idx]
	in := renderer.Input{
		Scene:  sc,
		Assets: sc.Assets,
		Paths:  sc.Paths,
		Images: j.req.Images,
	}
	if sc.BackgroundImage != "" {
		in.Background = j.req.Images[sc.BackgroundImage]
	}
	if sc.HandStyle != "" {
		in.Hand = j.req.Images[sc.HandStyle]
	}
	return in
}

// renderTransition composites the end of segment seg into the start of the
// next scene. Both rasters are rendered once per window.
func (j *job) renderTransition(seg int, progress float64) {
	s := j.plan.Segments[seg]
	if j.transFor != seg {
		j.render.RenderFrame(j.transA, j.input(s.Scene), 1)
		j.render.RenderFrame(j.transB, j.input(s.Scene+1), 0)
		j.transFor = seg
	}
	effects.Compose(j.frame, j.transA, j.transB, s.Kind, progress)
}

// pump moves encoder output to the muxer. The muxer starts once both
// encoders have announced their format; earlier output is held per track.
func (j *job) pump() error {
	for _, t := range []*trackOutput{j.videoEnc, j.audioEnc} {
		t.pending = append(t.pending, t.enc.Drain()...)
	}
	if !j.muxing {
		vf, vok := j.videoEnc.enc.OutputFormat()
		af, aok := j.audioEnc.enc.OutputFormat()
		if !vok || !aok {
			return nil
		}
		var err error
		if j.videoEnc.track, err = j.muxer.AddTrack(vf); err != nil {
			return fmt.Errorf("add video track: %w", err)
		}
		if j.audioEnc.track, err = j.muxer.AddTrack(af); err != nil {
			return fmt.Errorf("add audio track: %w", err)
		}
		if err := j.muxer.Start(); err != nil {
			return fmt.Errorf("start muxer: %w", err)
		}
		j.muxing = true
		j.logger.Debug("muxer started", "frame", j.frameIndex)
	}
	for _, t := range []*trackOutput{j.videoEnc, j.audioEnc} {
		for _, p := range t.pending {
			if err := j.muxer.WriteSample(t.track, p); err != nil {
				return fmt.Errorf("write sample: %w", err)
			}
		}
		t.pending = t.pending[:0]
	}
	return nil
}

// finish flushes both encoders and finalises the container.
func (j *job) finish(ctx context.Context) error {
	for _, t := range []*trackOutput{j.videoEnc, j.audioEnc} {
		if err := t.enc.SignalEndOfStream(); err != nil {
			return fmt.Errorf("end of stream: %w", err)
		}
	}
	for _, t := range []*trackOutput{j.videoEnc, j.audioEnc} {
		rest, err := t.enc.DrainRemaining(ctx)
		t.pending = append(t.pending, rest...)
		if err != nil {
			return fmt.Errorf("drain encoder: %w", err)
		}
	}
	if err := j.pump(); err != nil {
		return err
	}
	if !j.muxing {
		return fmt.Errorf("encoders produced no output")
	}
	if err := j.muxer.Stop(ctx); err != nil {
		return fmt.Errorf("finalise container: %w", err)
	}
	return nil
}

// cleanup releases everything the job opened. It runs on every exit path.
func (j *job) cleanup() {
	for _, t := range []*trackOutput{j.videoEnc, j.audioEnc} {
		if t != nil {
			if err := t.enc.Close(); err != nil {
				j.logger.Debug("encoder close failed", "error", err)
			}
		}
	}
	if j.muxer != nil {
		if err := j.muxer.Release(); err != nil {
			j.logger.Debug("muxer release failed", "error", err)
		}
	}
	for _, s := range []**image.RGBA{&j.frame, &j.transA, &j.transB} {
		if *s != nil {
			j.e.pool.Put(*s)
			*s = nil
		}
	}
	if j.render != nil {
		j.render.Reset()
		j.render.Close()
	}
}
