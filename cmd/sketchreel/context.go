package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ivlev/sketchreel/internal/analyzer"
	"github.com/ivlev/sketchreel/internal/config"
	"github.com/ivlev/sketchreel/internal/logging"
	"github.com/ivlev/sketchreel/internal/scene"
	"github.com/ivlev/sketchreel/internal/source"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevel, logFormat *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevel,
		logFormatFlag: logFormat,
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// logger builds the command logger; flags override the config file.
func (c *commandContext) logger(out io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: out}
	if v := flagValue(c.logLevelFlag); v != "" {
		opts.Level = v
	}
	if v := flagValue(c.logFormatFlag); v != "" {
		opts.Format = v
	}
	return logging.New(opts)
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// resolveProject returns the project path from args, or the most recent
// project in the configured directory.
func (c *commandContext) resolveProject(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	latest, err := scene.FindLatestProject(cfg.ProjectsDir)
	if err != nil {
		return "", fmt.Errorf("%w (put a project into %s)", err, cfg.ProjectsDir)
	}
	return latest, nil
}

// newLoader builds the image loader for a project file.
func (c *commandContext) newLoader(projectPath string, logger *slog.Logger) (*source.Loader, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var det analyzer.Detector
	if cfg.TrimPDFAssets {
		det, err = analyzer.NewDetector("contrast")
		if err != nil {
			return nil, err
		}
	}
	return source.NewLoader(source.Options{
		BaseDir:  filepath.Dir(projectPath),
		PDFDPI:   cfg.PDFDPI,
		TrimPDF:  cfg.TrimPDFAssets,
		Detector: det,
		Logger:   logger,
	}), nil
}

// presets resolves resolution and aspect, preferring the flag values.
func presets(cfg config.Config, resFlag, aspectFlag string) (config.Resolution, config.AspectRatio, error) {
	resName := cfg.Resolution
	if strings.TrimSpace(resFlag) != "" {
		resName = resFlag
	}
	aspectName := cfg.Aspect
	if strings.TrimSpace(aspectFlag) != "" {
		aspectName = aspectFlag
	}
	res, err := config.ParseResolution(resName)
	if err != nil {
		return "", "", err
	}
	aspect, err := config.ParseAspect(aspectName)
	if err != nil {
		return "", "", err
	}
	return res, aspect, nil
}
