package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/ivlev/sketchreel/internal/logging"
)

// FileMuxer spools each track's elementary stream to a scratch file and
// remuxes them into an MP4 with ffmpeg on Stop.
type FileMuxer struct {
	binary string
	output string
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	tracks  []*spoolTrack
	started bool
	stopped bool
}

type spoolTrack struct {
	format Format
	path   string
	file   *os.File
	bytes  int64
}

// NewFileMuxer creates the scratch directory under tempDir.
func NewFileMuxer(binary, output, tempDir string, logger *slog.Logger) (*FileMuxer, error) {
	dir, err := os.MkdirTemp(tempDir, "sketchreel-mux-*")
	if err != nil {
		return nil, fmt.Errorf("create mux dir: %w", err)
	}
	return &FileMuxer{
		binary: binary,
		output: output,
		dir:    dir,
		logger: logging.OrDiscard(logger),
	}, nil
}

// AddTrack registers a track and returns its index. Tracks must be added before Start.
func (m *FileMuxer) AddTrack(f Format) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return -1, ErrMuxerStarted
	}
	ext := ".h264"
	if f.Kind == TrackAudio {
		ext = ".aac"
	}
	idx := len(m.tracks)
	path := filepath.Join(m.dir, fmt.Sprintf("track%d%s", idx, ext))
	file, err := os.Create(path)
	if err != nil {
		return -1, fmt.Errorf("create track file: %w", err)
	}
	m.tracks = append(m.tracks, &spoolTrack{format: f, path: path, file: file})
	return idx, nil
}

func (m *FileMuxer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrMuxerStarted
	}
	if len(m.tracks) == 0 {
		return fmt.Errorf("mux start: no tracks")
	}
	m.started = true
	return nil
}

func (m *FileMuxer) WriteSample(track int, p Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.stopped {
		return ErrMuxerNotActive
	}
	if track < 0 || track >= len(m.tracks) {
		return fmt.Errorf("mux write: unknown track %d", track)
	}
	t := m.tracks[track]
	n, err := t.file.Write(p.Data)
	t.bytes += int64(n)
	if err != nil {
		return fmt.Errorf("mux write %s: %w", t.format.Kind, err)
	}
	return nil
}

// Stop closes the spool files and runs the final remux into the output.
func (m *FileMuxer) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return ErrMuxerNotActive
	}
	if m.stopped {
		return nil
	}
	m.stopped = true

	var videoPath, audioPath string
	fps := 30
	for _, t := range m.tracks {
		if err := t.file.Close(); err != nil {
			return fmt.Errorf("close %s spool: %w", t.format.Kind, err)
		}
		t.file = nil
		if t.bytes == 0 {
			continue
		}
		switch t.format.Kind {
		case TrackVideo:
			videoPath = t.path
			if t.format.FPS > 0 {
				fps = t.format.FPS
			}
		case TrackAudio:
			audioPath = t.path
		}
	}
	if videoPath == "" && audioPath == "" {
		return fmt.Errorf("mux stop: no samples written")
	}

	if dir := filepath.Dir(m.output); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	args := buildMuxArgs(videoPath, fps, audioPath, m.output)
	cmd := exec.CommandContext(ctx, m.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux error: %v, output: %s", err, string(out))
	}
	m.logger.Debug("container written", "output", m.output)
	return nil
}

// Release closes any open spool files and removes the scratch directory.
func (m *FileMuxer) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracks {
		if t.file != nil {
			t.file.Close()
			t.file = nil
		}
	}
	m.tracks = nil
	if m.dir == "" {
		return nil
	}
	err := os.RemoveAll(m.dir)
	m.dir = ""
	return err
}
