package config

import (
	"fmt"
	"strings"
)

// Resolution is an output size preset, expressed for landscape.
type Resolution string

const (
	Res480p  Resolution = "480p"
	Res720p  Resolution = "720p"
	Res1080p Resolution = "1080p"
	Res1440p Resolution = "1440p"
	Res2160p Resolution = "2160p"
)

// AspectRatio selects how the preset is oriented.
type AspectRatio string

const (
	Landscape AspectRatio = "landscape"
	Portrait  AspectRatio = "portrait"
	Square    AspectRatio = "square"
)

// Audio output is fixed: 44.1 kHz mono AAC-LC at 64 kbps.
const (
	AudioSampleRate = 44100
	AudioChannels   = 1
	AudioBitRate    = 64_000
)

const (
	minVideoBitRate = 1_000_000
	maxVideoBitRate = 20_000_000
)

// ParseResolution accepts "720p", "720", "hd" style names.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "480p", "480", "sd":
		return Res480p, nil
	case "720p", "720", "hd":
		return Res720p, nil
	case "1080p", "1080", "fhd":
		return Res1080p, nil
	case "1440p", "1440", "qhd":
		return Res1440p, nil
	case "2160p", "2160", "4k", "uhd":
		return Res2160p, nil
	}
	return "", fmt.Errorf("unknown resolution %q", s)
}

// ParseAspect accepts landscape/portrait/square and the 16:9, 9:16, 1:1 shorthands.
func ParseAspect(s string) (AspectRatio, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "landscape", "16:9":
		return Landscape, nil
	case "portrait", "9:16":
		return Portrait, nil
	case "square", "1:1":
		return Square, nil
	}
	return "", fmt.Errorf("unknown aspect ratio %q", s)
}

// Size returns the landscape dimensions of the preset.
func (r Resolution) Size() (int, int) {
	switch r {
	case Res480p:
		return 854, 480
	case Res1080p:
		return 1920, 1080
	case Res1440p:
		return 2560, 1440
	case Res2160p:
		return 3840, 2160
	default:
		return 1280, 720
	}
}

// Dimensions crosses a resolution preset with an aspect ratio. Odd results
// are rounded up because the encoder needs even dimensions.
func Dimensions(r Resolution, a AspectRatio) (int, int) {
	w, h := r.Size()
	switch a {
	case Portrait:
		w, h = h, w
	case Square:
		m := min(w, h)
		w, h = m, m
	}
	return even(w), even(h)
}

// VideoBitRate is clamp(w·h·4·fps/30, 1 Mbit/s, 20 Mbit/s).
func VideoBitRate(width, height, fps int) int {
	br := int64(width) * int64(height) * 4 * int64(fps) / 30
	if br < minVideoBitRate {
		return minVideoBitRate
	}
	if br > maxVideoBitRate {
		return maxVideoBitRate
	}
	return int(br)
}

func even(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}
