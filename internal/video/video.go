// Package video holds the encoder and muxer abstractions and their ffmpeg
// implementations.
package video

import (
	"context"
	"errors"
)

// TrackKind distinguishes video and audio tracks.
type TrackKind int

const (
	TrackVideo TrackKind = iota
	TrackAudio
)

func (k TrackKind) String() string {
	if k == TrackAudio {
		return "audio"
	}
	return "video"
}

// Format describes an encoder's output stream.
type Format struct {
	Kind  TrackKind
	Codec string // "h264" or "aac"

	Width, Height int
	FPS           int

	SampleRate int
	Channels   int

	BitRate int
}

// Packet is a chunk of encoded output. PTS is in microseconds.
type Packet struct {
	Data []byte
	PTS  int64
}

var (
	ErrClosed         = errors.New("video: encoder closed")
	ErrEndOfStream    = errors.New("video: end of stream already signalled")
	ErrMuxerStarted   = errors.New("video: muxer already started")
	ErrMuxerNotActive = errors.New("video: muxer not started")
)

// Encoder accepts raw input and produces encoded packets.
type Encoder interface {
	// Submit queues one raw input buffer presented at pts microseconds.
	Submit(ctx context.Context, data []byte, pts int64) error
	// Drain returns the packets produced so far without blocking.
	Drain() []Packet
	// OutputFormat reports the output format once the encoder has produced output.
	OutputFormat() (Format, bool)
	SignalEndOfStream() error
	// DrainRemaining blocks until the encoder has flushed after end of stream.
	DrainRemaining(ctx context.Context) ([]Packet, error)
	Close() error
}

// Muxer interleaves encoded tracks into a container file.
type Muxer interface {
	AddTrack(f Format) (int, error)
	Start() error
	WriteSample(track int, p Packet) error
	// Stop finalises the container. Only valid after Start.
	Stop(ctx context.Context) error
	// Release frees temporary resources. Safe to call more than once.
	Release() error
}

// VideoConfig configures an H.264 encoder.
type VideoConfig struct {
	Width, Height int
	FPS           int
	BitRate       int
	GOP           int
	Codec         string // ffmpeg encoder name, e.g. libx264
}

// AudioConfig configures an AAC encoder fed with signed 16-bit little-endian PCM.
type AudioConfig struct {
	SampleRate int
	Channels   int
	BitRate    int
}
