package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ivlev/sketchreel/internal/config"
	"github.com/ivlev/sketchreel/internal/engine"
	"github.com/ivlev/sketchreel/internal/scene"
	"github.com/ivlev/sketchreel/internal/system"
	"github.com/ivlev/sketchreel/internal/video"
)

const progressSteps = 1000

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var resolution string
	var aspect string
	var fps int
	var encoder string
	var stats bool

	cmd := &cobra.Command{
		Use:   "export [project.yaml]",
		Short: "Render a project to MP4",
		Long: "Render a project to MP4.\n\n" +
			"Without a project argument the most recently modified project in projects_dir is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if limit, err := system.InitResourceLimits(); err != nil {
				logger.Debug("file descriptor limit unchanged", "error", err)
			} else {
				logger.Debug("file descriptor limit", "limit", limit)
			}

			projectPath, err := ctx.resolveProject(args)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Fprintf(out, "[*] Selected project: %s\n", projectPath)
			}
			project, err := scene.ReadProject(projectPath)
			if err != nil {
				return err
			}

			res, asp, err := presets(cfg, resolution, aspect)
			if err != nil {
				return err
			}
			if fps <= 0 {
				fps = cfg.FPS
			}
			if encoder == "" {
				encoder = cfg.VideoEncoder
			}
			if outputPath == "" {
				outputPath = defaultOutputPath(cfg.OutputDir, projectPath, time.Now())
			}

			loader, err := ctx.newLoader(projectPath, logger)
			if err != nil {
				return err
			}
			defer loader.Close()
			images, errs := loader.LoadAll(project)
			for _, e := range errs {
				fmt.Fprintf(out, "[!] Asset skipped: %v\n", e)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			codec := system.ResolveEncoder(runCtx, cfg.FFmpegPath, encoder)
			if codec != "libx264" {
				fmt.Fprintf(out, "[*] Hardware encoder: %s\n", codec)
			}

			w, h := config.Dimensions(res, asp)
			plan := engine.BuildPlan(project.Scenes, fps)
			fmt.Fprintf(out, "[>] Rendering %d frames (%dx%d @ %d fps) to %s\n", plan.Total, w, h, fps, outputPath)

			exporter := engine.NewExporter(engine.Options{
				Backend:   video.FFmpeg{Path: cfg.FFmpegPath, Logger: logger},
				Logger:    logger,
				ShowStats: stats || cfg.ShowStats,
				Report:    out,
			})

			done := watchProgress(exporter, cmd.ErrOrStderr(), isTerminal(os.Stdout))
			err = exporter.Run(runCtx, engine.Request{
				Project:    project,
				Images:     images,
				BaseDir:    filepath.Dir(projectPath),
				Output:     outputPath,
				Resolution: res,
				Aspect:     asp,
				FPS:        fps,
				VideoCodec: codec,
			})
			done()
			if err != nil {
				if exporter.Status() == engine.StatusCancelled {
					fmt.Fprintln(out, "[!] Export cancelled")
				}
				return err
			}

			fmt.Fprintf(out, "[+++] Done! Output: %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output MP4 path (default: <output_dir>/<project>_<timestamp>.mp4)")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Resolution preset (480p, 720p, 1080p, 1440p, 2160p)")
	cmd.Flags().StringVarP(&aspect, "aspect", "a", "", "Aspect ratio (landscape, portrait, square)")
	cmd.Flags().IntVar(&fps, "fps", 0, "Frames per second")
	cmd.Flags().StringVar(&encoder, "encoder", "", "H.264 encoder (auto, libx264, h264_videotoolbox, h264_nvenc)")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print a performance report and append it to benchmark.log")
	return cmd
}

// defaultOutputPath names the output after the project file.
func defaultOutputPath(dir, projectPath string, now time.Time) string {
	if dir == "" {
		dir = config.Default().OutputDir
	}
	base := filepath.Base(projectPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, " ", "_")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.mp4", name, now.Format("2006-01-02_15-04-05")))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// watchProgress mirrors exporter progress onto a progress bar when
// interactive is set. The returned func stops the watcher and waits for it.
func watchProgress(exporter *engine.Exporter, w io.Writer, interactive bool) func() {
	if !interactive {
		return func() {}
	}
	bar := progressbar.NewOptions(progressSteps,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("[*] Rendering"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)

	ch, unsubscribe := exporter.SubscribeProgress()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for p := range ch {
			bar.Set(int(p * progressSteps))
		}
	}()

	return func() {
		unsubscribe()
		<-finished
		if exporter.Status() == engine.StatusComplete {
			bar.Finish()
		}
	}
}

