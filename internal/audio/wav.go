// Package audio builds mono 16-bit PCM tracks from voice recordings.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed size of the PCM container header.
const HeaderSize = 44

var (
	ErrInvalidHeader     = errors.New("audio: invalid PCM container header")
	ErrUnsupportedFormat = errors.New("audio: unsupported sample format")
)

// Header is the subset of the container header the builder relies on.
type Header struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	DataOffset    int
}

// ParseHeader reads the fixed 44-byte header. Only the first three tag bytes
// are checked; the data chunk is assumed to start right after the header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(b))
	}
	if string(b[0:3]) != "RIF" {
		return Header{}, fmt.Errorf("%w: bad tag %q", ErrInvalidHeader, b[0:4])
	}

	h := Header{
		Channels:      int(binary.LittleEndian.Uint16(b[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(b[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(b[34:36])),
		DataOffset:    HeaderSize,
	}
	if h.Channels < 1 || h.Channels > 2 || h.SampleRate <= 0 {
		return Header{}, fmt.Errorf("%w: channels=%d rate=%d", ErrInvalidHeader, h.Channels, h.SampleRate)
	}
	if h.BitsPerSample != 16 {
		return Header{}, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, h.BitsPerSample)
	}
	return h, nil
}

// EncodeWAV builds a canonical 44-byte-header WAV file around 16-bit samples.
// Samples are interleaved when channels is 2.
func EncodeWAV(samples []int16, sampleRate, channels int) []byte {
	dataLen := len(samples) * 2
	b := make([]byte, HeaderSize+dataLen)
	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], uint32(36+dataLen))
	copy(b[8:16], "WAVEfmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16)
	binary.LittleEndian.PutUint16(b[20:22], 1)
	binary.LittleEndian.PutUint16(b[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(b[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(b[28:32], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(b[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(b[34:36], 16)
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], uint32(dataLen))
	copy(b[HeaderSize:], SamplesToBytes(samples))
	return b
}
