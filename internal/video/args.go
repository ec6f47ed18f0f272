package video

import (
	"fmt"
	"strconv"
)

// buildH264Args returns ffmpeg arguments that read raw I420 frames on stdin
// and write an Annex B H.264 elementary stream to stdout.
func buildH264Args(cfg VideoConfig) []string {
	gop := cfg.GOP
	if gop <= 0 {
		gop = cfg.FPS
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "yuv420p",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", strconv.Itoa(cfg.FPS),
		"-i", "-",
		"-an",
		"-c:v", cfg.Codec,
		"-pix_fmt", "yuv420p",
		"-g", strconv.Itoa(gop),
	}

	bitrate := fmt.Sprintf("%dk", cfg.BitRate/1000)
	switch cfg.Codec {
	case "h264_videotoolbox":
		args = append(args, "-b:v", bitrate, "-realtime", "0")
	case "h264_nvenc":
		args = append(args, "-b:v", bitrate, "-rc", "cbr", "-preset", "p4")
	default: // libx264
		args = append(args,
			"-b:v", bitrate,
			"-maxrate", bitrate,
			"-bufsize", fmt.Sprintf("%dk", cfg.BitRate*2/1000),
			"-keyint_min", strconv.Itoa(gop),
			"-sc_threshold", "0",
			"-preset", "medium",
		)
	}

	return append(args, "-f", "h264", "-")
}

// buildAACArgs returns ffmpeg arguments that read s16le PCM on stdin and
// write AAC-LC in ADTS framing to stdout.
func buildAACArgs(cfg AudioConfig) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
		"-i", "-",
		"-vn",
		"-c:a", "aac",
		"-profile:a", "aac_low",
		"-b:a", fmt.Sprintf("%dk", cfg.BitRate/1000),
		"-f", "adts", "-",
	}
}

// buildMuxArgs copies the elementary streams into an MP4 with the index at the front.
func buildMuxArgs(videoPath string, fps int, audioPath, output string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	if videoPath != "" {
		args = append(args, "-f", "h264", "-framerate", strconv.Itoa(fps), "-i", videoPath)
	}
	if audioPath != "" {
		args = append(args, "-f", "aac", "-i", audioPath)
	}
	n := 0
	if videoPath != "" {
		args = append(args, "-map", "0:v")
		n++
	}
	if audioPath != "" {
		args = append(args, "-map", fmt.Sprintf("%d:a", n))
	}
	return append(args, "-c", "copy", "-movflags", "+faststart", output)
}
