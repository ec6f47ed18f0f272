package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchreel/internal/config"
	"github.com/ivlev/sketchreel/internal/engine"
	"github.com/ivlev/sketchreel/internal/scene"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var fps int

	cmd := &cobra.Command{
		Use:   "inspect [project.yaml]",
		Short: "Show the frame plan of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			projectPath, err := ctx.resolveProject(args)
			if err != nil {
				return err
			}
			project, err := scene.ReadProject(projectPath)
			if err != nil {
				return err
			}
			if fps <= 0 {
				fps = cfg.FPS
			}

			plan := engine.BuildPlan(project.Scenes, fps)
			out := cmd.OutOrStdout()
			title := project.Title
			if title == "" {
				title = projectPath
			}
			fmt.Fprintf(out, "%s: %d scenes, %d frames at %d fps (%s)\n",
				title, len(project.Scenes), plan.Total, fps, frameDuration(plan.Total, fps))
			fmt.Fprint(out, renderTable(
				[]string{"#", "Scene", "Start", "Frames", "Duration", "Transition", "Assets", "Paths", "Voice"},
				planRows(project, plan),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&fps, "fps", 0, "Frames per second (default from config)")
	return cmd
}

func planRows(project *scene.Project, plan engine.Plan) [][]string {
	rows := make([][]string, 0, len(plan.Segments))
	for _, seg := range plan.Segments {
		sc := project.Scenes[seg.Scene]
		transition := "-"
		if seg.Transition > 0 {
			kind := seg.Kind
			if kind == "" {
				kind = scene.TransitionNone
			}
			transition = fmt.Sprintf("%s %d", kind, seg.Transition)
		}
		voice := sc.VoiceTrack
		if voice == "" {
			voice = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(seg.Scene + 1),
			sc.ID,
			strconv.Itoa(seg.Start),
			strconv.Itoa(seg.Frames),
			frameDuration(seg.Frames, plan.FPS),
			transition,
			strconv.Itoa(len(sc.Assets)),
			strconv.Itoa(len(sc.Paths)),
			voice,
		})
	}
	return rows
}

func frameDuration(frames, fps int) string {
	if fps <= 0 {
		fps = config.Default().FPS
	}
	d := time.Duration(frames) * time.Second / time.Duration(fps)
	return d.Round(time.Millisecond).String()
}
