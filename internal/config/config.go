// Package config holds the tool configuration and the export presets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the tool configuration. Zero fields fall back to Default().
type Config struct {
	FFmpegPath    string `toml:"ffmpeg_path"`
	VideoEncoder  string `toml:"video_encoder"` // "auto", "libx264", "h264_videotoolbox", "h264_nvenc"
	Resolution    string `toml:"resolution"`
	Aspect        string `toml:"aspect"`
	FPS           int    `toml:"fps"`
	OutputDir     string `toml:"output_dir"`
	ProjectsDir   string `toml:"projects_dir"`
	PDFDPI        int    `toml:"pdf_dpi"`
	TrimPDFAssets bool   `toml:"trim_pdf_assets"`
	ShowStats     bool   `toml:"show_stats"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		FFmpegPath:    "ffmpeg",
		VideoEncoder:  "auto",
		Resolution:    string(Res720p),
		Aspect:        string(Landscape),
		FPS:           30,
		OutputDir:     "output",
		ProjectsDir:   "input/projects",
		PDFDPI:        150,
		TrimPDFAssets: true,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// DefaultPath is ~/.config/sketchreel/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sketchreel.toml"
	}
	return filepath.Join(home, ".config", "sketchreel", "config.toml")
}

// Load reads path on top of the defaults. A missing file is not an error
// when path is the default location.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, cfg.Validate()
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func (c *Config) normalize() {
	def := Default()
	if strings.TrimSpace(c.FFmpegPath) == "" {
		c.FFmpegPath = def.FFmpegPath
	}
	if c.VideoEncoder == "" {
		c.VideoEncoder = def.VideoEncoder
	}
	if c.Resolution == "" {
		c.Resolution = def.Resolution
	}
	if c.Aspect == "" {
		c.Aspect = def.Aspect
	}
	if c.FPS == 0 {
		c.FPS = def.FPS
	}
	if c.PDFDPI == 0 {
		c.PDFDPI = def.PDFDPI
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if _, err := ParseResolution(c.Resolution); err != nil {
		return err
	}
	if _, err := ParseAspect(c.Aspect); err != nil {
		return err
	}
	if c.FPS < 1 || c.FPS > 120 {
		return fmt.Errorf("fps must be between 1 and 120, got %d", c.FPS)
	}
	if c.PDFDPI < 36 || c.PDFDPI > 1200 {
		return fmt.Errorf("pdf_dpi must be between 36 and 1200, got %d", c.PDFDPI)
	}
	switch c.VideoEncoder {
	case "auto", "libx264", "h264_videotoolbox", "h264_nvenc":
	default:
		return fmt.Errorf("unsupported video_encoder %q", c.VideoEncoder)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}
	return nil
}
