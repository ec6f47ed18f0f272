package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchreel/internal/analyzer"
	"github.com/ivlev/sketchreel/internal/config"
	"github.com/ivlev/sketchreel/internal/director"
	"github.com/ivlev/sketchreel/internal/scene"
	"github.com/ivlev/sketchreel/internal/source"
)

func newDraftCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var title string
	var duration float64
	var transition string
	var resolution string
	var aspect string

	cmd := &cobra.Command{
		Use:   "draft <document.pdf>",
		Short: "Draft a project from a PDF, one scene per page",
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
			doc := args[0]

			res, asp, err := presets(cfg, resolution, aspect)
			if err != nil {
				return err
			}
			w, h := config.Dimensions(res, asp)
			d := director.NewDirector(w, h)
			if transition != "" {
				kind, err := scene.ParseTransitionKind(transition)
				if err != nil {
					return err
				}
				d.Transition = kind
			}

			if outputPath == "" {
				outputPath = director.ProjectPath(cfg.ProjectsDir, doc, time.Now())
			}
			if title == "" {
				base := filepath.Base(doc)
				title = strings.TrimSuffix(base, filepath.Ext(base))
			}

			src, err := source.NewPDFSource(doc)
			if err != nil {
				return err
			}
			defer src.Close()

			det := analyzer.NewContrastDetector()
			ref := director.RelativeRef(outputPath, doc)
			pages := make([]director.Page, 0, src.PageCount())
			for i := 0; i < src.PageCount(); i++ {
				img, err := src.RenderPage(i, cfg.PDFDPI)
				if err != nil {
					return fmt.Errorf("render page %d: %w", i+1, err)
				}
				page, err := draftPage(img, det, cfg.TrimPDFAssets)
				if err != nil {
					return fmt.Errorf("analyze page %d: %w", i+1, err)
				}
				page.Ref = fmt.Sprintf("%s#%d", ref, i+1)
				logger.Debug("page analyzed", "page", i+1, "regions", len(page.Regions), "size", page.Size)
				pages = append(pages, page)
			}

			project, err := d.Draft(title, pages, duration)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
				return fmt.Errorf("create project directory: %w", err)
			}
			if err := scene.WriteProject(project, outputPath); err != nil {
				return fmt.Errorf("write project: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+] Drafted %d scenes to %s\n", len(project.Scenes), outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Project path (default: <projects_dir>/<document>_<timestamp>.yaml)")
	cmd.Flags().StringVar(&title, "title", "", "Project title (default: document name)")
	cmd.Flags().Float64VarP(&duration, "duration", "d", 0, "Total duration in seconds shared between pages")
	cmd.Flags().StringVarP(&transition, "transition", "t", "", "Transition between pages (none, fade, slide, zoom, wipe)")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Resolution preset the layout is planned for")
	cmd.Flags().StringVarP(&aspect, "aspect", "a", "", "Aspect ratio the layout is planned for")
	return cmd
}

// draftPage detects the regions of a rendered page. With trim set, the
// page is described the way the loader will crop it.
func draftPage(img image.Image, det analyzer.Detector, trim bool) (director.Page, error) {
	regions, err := det.Detect(img)
	if err != nil {
		return director.Page{}, err
	}
	frame := img.Bounds()
	if trim {
		if r, ok := analyzer.Union(regions, source.TrimPadding, frame); ok {
			frame = r
		}
	}
	local := make([]analyzer.Region, len(regions))
	for i, r := range regions {
		local[i] = analyzer.Region{Rect: r.Rect.Sub(frame.Min), Pixels: r.Pixels}
	}
	return director.Page{Size: frame.Size(), Regions: local}, nil
}
