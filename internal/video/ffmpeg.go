package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/sketchreel/internal/logging"
)

const (
	readChunk     = 64 << 10
	stderrLimit   = 8 << 10
	defaultBinary = "ffmpeg"
)

// FFmpeg creates encoders and muxers backed by ffmpeg processes.
type FFmpeg struct {
	Path    string // ffmpeg binary, "ffmpeg" when empty
	TempDir string // parent for muxer scratch files, os.TempDir when empty
	Logger  *slog.Logger
}

func (f FFmpeg) binary() string {
	if f.Path == "" {
		return defaultBinary
	}
	return f.Path
}

// NewVideoEncoder starts an H.264 encoder process.
func (f FFmpeg) NewVideoEncoder(ctx context.Context, cfg VideoConfig) (Encoder, error) {
	if cfg.Codec == "" {
		cfg.Codec = "libx264"
	}
	format := Format{Kind: TrackVideo, Codec: "h264", Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS, BitRate: cfg.BitRate}
	return startProcess(ctx, "h264", f.binary(), buildH264Args(cfg), format, f.Logger)
}

// NewAudioEncoder starts an AAC encoder process.
func (f FFmpeg) NewAudioEncoder(ctx context.Context, cfg AudioConfig) (Encoder, error) {
	format := Format{Kind: TrackAudio, Codec: "aac", SampleRate: cfg.SampleRate, Channels: cfg.Channels, BitRate: cfg.BitRate}
	return startProcess(ctx, "aac", f.binary(), buildAACArgs(cfg), format, f.Logger)
}

// NewMuxer returns a muxer that writes output when stopped.
func (f FFmpeg) NewMuxer(output string) (Muxer, error) {
	return NewFileMuxer(f.binary(), output, f.TempDir, f.Logger)
}

// processEncoder pipes raw input into a child process and collects its
// stdout. The reader goroutine never blocks on the consumer, so writes to
// stdin cannot deadlock against a full stdout pipe.
type processEncoder struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cancel context.CancelFunc
	group  *errgroup.Group
	stderr *tailBuffer
	logger *slog.Logger

	mu        sync.Mutex
	queue     []Packet
	format    Format
	announced bool
	lastPTS   int64

	eos       bool
	closed    bool
	waitOnce  sync.Once
	waitErr   error
	closeOnce sync.Once
}

func startProcess(ctx context.Context, name, binary string, args []string, format Format, logger *slog.Logger) (*processEncoder, error) {
	pctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(pctx, binary, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s stdin pipe: %w", name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s stdout pipe: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s stderr pipe: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%s start: %w", name, err)
	}

	e := &processEncoder{
		name:   name,
		cmd:    cmd,
		stdin:  stdin,
		cancel: cancel,
		group:  new(errgroup.Group),
		stderr: &tailBuffer{limit: stderrLimit},
		logger: logging.OrDiscard(logger).With("encoder", name),
		format: format,
	}
	e.group.Go(func() error { return e.readOutput(stdout) })
	e.group.Go(func() error {
		_, err := io.Copy(e.stderr, stderr)
		return err
	})
	e.logger.Debug("encoder started", "args", strings.Join(args, " "))
	return e, nil
}

func (e *processEncoder) readOutput(r io.Reader) error {
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			e.mu.Lock()
			e.queue = append(e.queue, Packet{Data: chunk, PTS: e.lastPTS})
			e.announced = true
			e.mu.Unlock()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (e *processEncoder) Submit(ctx context.Context, data []byte, pts int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	eos, closed := e.eos, e.closed
	e.lastPTS = pts
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if eos {
		return ErrEndOfStream
	}
	if _, err := e.stdin.Write(data); err != nil {
		return fmt.Errorf("%s write: %w%s", e.name, err, e.stderr.suffix())
	}
	return nil
}

func (e *processEncoder) Drain() []Packet {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.queue
	e.queue = nil
	return out
}

func (e *processEncoder) OutputFormat() (Format, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.format, e.announced
}

func (e *processEncoder) SignalEndOfStream() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.eos {
		e.mu.Unlock()
		return ErrEndOfStream
	}
	e.eos = true
	e.mu.Unlock()
	return e.stdin.Close()
}

func (e *processEncoder) DrainRemaining(ctx context.Context) ([]Packet, error) {
	done := make(chan error, 1)
	go func() { done <- e.wait() }()
	select {
	case err := <-done:
		if err != nil {
			return e.Drain(), err
		}
		return e.Drain(), nil
	case <-ctx.Done():
		return e.Drain(), ctx.Err()
	}
}

// wait collects the readers, then reaps the process.
func (e *processEncoder) wait() error {
	e.waitOnce.Do(func() {
		readErr := e.group.Wait()
		if err := e.cmd.Wait(); err != nil {
			e.waitErr = fmt.Errorf("%s exited: %w%s", e.name, err, e.stderr.suffix())
			return
		}
		if readErr != nil {
			e.waitErr = fmt.Errorf("%s read: %w", e.name, readErr)
		}
	})
	return e.waitErr
}

// Close kills the process if it is still running and reaps it. The exit
// status is only logged: after a kill it is always an error.
func (e *processEncoder) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		e.stdin.Close()
		e.cancel()
		if err := e.wait(); err != nil {
			e.logger.Debug("encoder exited with error", "error", err)
		}
		e.logger.Debug("encoder closed")
	})
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(t.buf.String())
}

func (t *tailBuffer) suffix() string {
	if s := t.String(); s != "" {
		return ", output: " + s
	}
	return ""
}
