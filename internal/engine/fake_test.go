package engine

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/ivlev/sketchreel/internal/video"
)

// fakeEncoder echoes every submission back as one packet and announces its
// format after the first submission.
type fakeEncoder struct {
	format video.Format

	mu        sync.Mutex
	submitted int
	bytes     int64
	queue     []video.Packet
	announced bool
	eos       bool
	closed    bool
	onSubmit  func(n int)
	failAt    int
}

func (f *fakeEncoder) Submit(ctx context.Context, data []byte, pts int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.submitted++
	n := f.submitted
	f.bytes += int64(len(data))
	f.queue = append(f.queue, video.Packet{Data: []byte{byte(n)}, PTS: pts})
	f.announced = true
	hook := f.onSubmit
	fail := f.failAt > 0 && n == f.failAt
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if fail {
		return errors.New("encoder exploded")
	}
	return nil
}

func (f *fakeEncoder) Drain() []video.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.queue
	f.queue = nil
	return out
}

func (f *fakeEncoder) OutputFormat() (video.Format, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.format, f.announced
}

func (f *fakeEncoder) SignalEndOfStream() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eos = true
	return nil
}

func (f *fakeEncoder) DrainRemaining(ctx context.Context) ([]video.Packet, error) {
	return f.Drain(), nil
}

func (f *fakeEncoder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeMuxer struct {
	output string

	mu       sync.Mutex
	formats  []video.Format
	samples  map[int]int
	started  int
	stopped  bool
	released bool
}

func (m *fakeMuxer) AddTrack(f video.Format) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started > 0 {
		return -1, video.ErrMuxerStarted
	}
	m.formats = append(m.formats, f)
	return len(m.formats) - 1, nil
}

func (m *fakeMuxer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
	return nil
}

func (m *fakeMuxer) WriteSample(track int, p video.Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started == 0 {
		return video.ErrMuxerNotActive
	}
	m.samples[track]++
	return nil
}

func (m *fakeMuxer) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return os.WriteFile(m.output, []byte("mp4"), 0644)
}

func (m *fakeMuxer) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	return nil
}

type fakeBackend struct {
	mu     sync.Mutex
	video  *fakeEncoder
	audio  *fakeEncoder
	muxer  *fakeMuxer
	opened int

	videoCfg video.VideoConfig
	audioCfg video.AudioConfig

	onVideoSubmit func(n int)
	failVideoAt   int
	// honorCtx makes encoder creation fail once ctx is done, as starting
	// an ffmpeg process does.
	honorCtx bool
}

func (b *fakeBackend) NewVideoEncoder(ctx context.Context, cfg video.VideoConfig) (video.Encoder, error) {
	if b.honorCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	b.videoCfg = cfg
	b.video = &fakeEncoder{
		format:   video.Format{Kind: video.TrackVideo, Codec: "h264", Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS},
		onSubmit: b.onVideoSubmit,
		failAt:   b.failVideoAt,
	}
	return b.video, nil
}

func (b *fakeBackend) NewAudioEncoder(ctx context.Context, cfg video.AudioConfig) (video.Encoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	b.audioCfg = cfg
	b.audio = &fakeEncoder{format: video.Format{Kind: video.TrackAudio, Codec: "aac", SampleRate: cfg.SampleRate, Channels: cfg.Channels}}
	return b.audio, nil
}

func (b *fakeBackend) NewMuxer(output string) (video.Muxer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	b.muxer = &fakeMuxer{output: output, samples: make(map[int]int)}
	return b.muxer, nil
}
