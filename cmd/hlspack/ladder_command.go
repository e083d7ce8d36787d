package main

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"hlspack/internal/ladder"
	"hlspack/internal/media/ffprobe"
	"hlspack/internal/services"
	"hlspack/internal/workflow"
)

var dimensionsPattern = regexp.MustCompile(`^(\d+)[xX](\d+)$`)

func newLadderCommand(ctx *commandContext) *cobra.Command {
	var preset string
	var includeSource, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ladder <WIDTHxHEIGHT | input>",
		Short: "Show the rendition ladder for a size or a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := requireArg(args, "size or input")
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pc, err := workflow.JobConfig(cfg, "")
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "ladder config", "", err)
			}
			if preset != "" {
				p, err := ladder.ParsePreset(preset)
				if err != nil {
					return services.Wrap(services.ErrConfiguration, "cli", "preset", preset, err)
				}
				pc.Ladder.Preset = p
				pc.Ladder.ScaleFactors = nil
			}
			if cmd.Flags().Changed("include-source") {
				pc.Ladder.IncludeSource = includeSource
			}

			width, height, err := ctx.sourceDimensions(cmd, target)
			if err != nil {
				return err
			}
			rungs := workflow.DeriveLadder(width, height, pc.Ladder)
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), rungs)
			}
			rows := make([][]string, 0, len(rungs))
			for _, r := range rungs {
				rows = append(rows, []string{r.Name, strconv.Itoa(r.Width), strconv.Itoa(r.Height), r.Bitrate})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
				Title:   fmt.Sprintf("Ladder for %dx%d", width, height),
				Headers: []string{"Name", "Width", "Height", "Bitrate"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			}))
			if len(rungs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No renditions: the source is below the configured minimum size.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Ladder preset (low, medium, high, mobile)")
	cmd.Flags().BoolVar(&includeSource, "include-source", false, "Add an unscaled rendition at the source resolution")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the ladder as JSON")
	return cmd
}

// sourceDimensions parses WIDTHxHEIGHT or probes target as a media file.
func (c *commandContext) sourceDimensions(cmd *cobra.Command, target string) (int, int, error) {
	if m := dimensionsPattern.FindStringSubmatch(target); m != nil {
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		if w <= 0 || h <= 0 {
			return 0, 0, services.Wrap(services.ErrConfiguration, "cli", "dimensions", target, nil)
		}
		return w, h, nil
	}
	result, err := c.probe(cmd, target)
	if err != nil {
		return 0, 0, err
	}
	video, ok := result.VideoStream()
	if !ok {
		return 0, 0, services.Wrap(services.ErrProbeFailure, "cli", "probe", "no video stream in "+target, nil)
	}
	return video.Width, video.Height, nil
}

func (c *commandContext) probe(cmd *cobra.Command, path string) (ffprobe.Result, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return ffprobe.Result{}, err
	}
	prober := c.prober
	if prober == nil {
		prober = ffprobe.Command{Binary: cfg.FFprobeBinary()}
	}
	result, err := prober.Probe(cmd.Context(), path)
	if err != nil {
		return ffprobe.Result{}, services.Wrap(services.ErrProbeFailure, "cli", "probe", path, err)
	}
	return result, nil
}
