package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchreel/internal/config"
	"github.com/ivlev/sketchreel/internal/renderer"
	"github.com/ivlev/sketchreel/internal/scene"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var sceneFlag string
	var progress float64
	var outputPath string
	var resolution string
	var aspect string

	cmd := &cobra.Command{
		Use:   "preview <project.yaml>",
		Short: "Render one scene at a given progress to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			project, err := scene.ReadProject(args[0])
			if err != nil {
				return err
			}
			idx, err := findScene(project, sceneFlag)
			if err != nil {
				return err
			}
			res, asp, err := presets(cfg, resolution, aspect)
			if err != nil {
				return err
			}

			loader, err := ctx.newLoader(args[0], logger)
			if err != nil {
				return err
			}
			defer loader.Close()
			images, _ := loader.LoadAll(&scene.Project{Scenes: project.Scenes[idx : idx+1]})

			r, err := renderer.New(logger)
			if err != nil {
				return err
			}
			defer r.Close()

			w, h := config.Dimensions(res, asp)
			frame := image.NewRGBA(image.Rect(0, 0, w, h))
			sc := &project.Scenes[idx]
			in := renderer.Input{Scene: sc, Assets: sc.Assets, Paths: sc.Paths, Images: images}
			if sc.BackgroundImage != "" {
				in.Background = images[sc.BackgroundImage]
			}
			if sc.HandStyle != "" {
				in.Hand = images[sc.HandStyle]
			}
			r.RenderFrame(frame, in, progress)

			if outputPath == "" {
				outputPath = fmt.Sprintf("preview_%d.png", idx+1)
			}
			if err := writePNG(outputPath, frame); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+] Scene %d (%s) at %.2f written to %s\n", idx+1, sc.ID, progress, outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sceneFlag, "scene", "s", "1", "Scene number (1-based) or id")
	cmd.Flags().Float64VarP(&progress, "progress", "p", 1, "Scene progress between 0 and 1")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "PNG path (default: preview_<scene>.png)")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Resolution preset")
	cmd.Flags().StringVarP(&aspect, "aspect", "a", "", "Aspect ratio")
	return cmd
}

// findScene resolves a 1-based scene number or a scene id.
func findScene(p *scene.Project, ref string) (int, error) {
	for i, sc := range p.Scenes {
		if sc.ID != "" && sc.ID == ref {
			return i, nil
		}
	}
	n, err := strconv.Atoi(ref)
	if err != nil || n < 1 || n > len(p.Scenes) {
		return 0, fmt.Errorf("scene %q not found (project has %d scenes)", ref, len(p.Scenes))
	}
	return n - 1, nil
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
