package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// PCMTrack is an immutable mono 16-bit little-endian track.
type PCMTrack struct {
	SampleRate int
	Channels   int
	BitDepth   int
	data       []byte
}

// NewTrack wraps mono samples.
func NewTrack(samples []int16, sampleRate int) *PCMTrack {
	return &PCMTrack{SampleRate: sampleRate, Channels: 1, BitDepth: 16, data: SamplesToBytes(samples)}
}

// Bytes returns a copy of the PCM data.
func (t *PCMTrack) Bytes() []byte {
	return append([]byte(nil), t.data...)
}

// Samples is the number of mono samples.
func (t *PCMTrack) Samples() int {
	return len(t.data) / 2
}

// Duration in seconds.
func (t *PCMTrack) Duration() float64 {
	if t.SampleRate == 0 {
		return 0
	}
	return float64(t.Samples()) / float64(t.SampleRate)
}

// Load builds a track or returns nil; the voice track is then simply omitted.
func Load(path string, targetRate int, logger *slog.Logger) *PCMTrack {
	t, err := LoadTrack(path, targetRate)
	if err != nil {
		if logger != nil {
			logger.Warn("voice track skipped", "path", path, "error", err)
		}
		return nil
	}
	return t
}

// LoadTrack reads a PCM container, downmixes to mono and resamples to
// targetRate.
func LoadTrack(path string, targetRate int) (t *PCMTrack, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("audio: build %s: %v", path, r)
		}
	}()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Build(raw, targetRate)
}

// Build converts a whole container held in memory.
func Build(raw []byte, targetRate int) (*PCMTrack, error) {
	if targetRate <= 0 {
		return nil, fmt.Errorf("audio: invalid target rate %d", targetRate)
	}
	h, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}

	samples := BytesToSamples(raw[h.DataOffset:])
	if h.Channels == 2 {
		samples = Downmix(samples)
	}
	if h.SampleRate != targetRate {
		samples = Resample(samples, h.SampleRate, targetRate)
	}
	return NewTrack(samples, targetRate), nil
}

// Downmix averages interleaved stereo frames into mono. The sum is halved
// with integer truncation; a trailing half frame is dropped.
func Downmix(interleaved []int16) []int16 {
	out := make([]int16, len(interleaved)/2)
	for i := range out {
		l := int32(interleaved[2*i])
		r := int32(interleaved[2*i+1])
		out[i] = int16((l + r) / 2)
	}
	return out
}

// Resample converts mono samples between rates by linear interpolation.
// Source indices are clamped at both ends.
func Resample(src []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(src) == 0 {
		return append([]int16(nil), src...)
	}

	n := int((int64(len(src))*int64(dstRate) + int64(srcRate)/2) / int64(srcRate))
	out := make([]int16, n)
	ratio := float64(srcRate) / float64(dstRate)
	last := len(src) - 1

	for i := range out {
		pos := float64(i) * ratio
		i0 := int(math.Floor(pos))
		frac := pos - float64(i0)
		if i0 > last {
			i0, frac = last, 0
		}
		i1 := i0 + 1
		if i1 > last {
			i1 = last
		}
		s0, s1 := float64(src[i0]), float64(src[i1])
		out[i] = int16(s0 + (s1-s0)*frac)
	}
	return out
}

// BytesToSamples decodes 16-bit little-endian samples; an odd trailing byte is ignored.
func BytesToSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// SamplesToBytes encodes samples as 16-bit little-endian.
func SamplesToBytes(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}
