package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hlspack/internal/ladder"
	"hlspack/internal/services"
	"hlspack/internal/subtitles"
	"hlspack/internal/textutil"
	"hlspack/internal/workflow"
)

type packageFlags struct {
	runOptions
	outputDir       string
	name            string
	preset          string
	includeSource   bool
	segmentDuration float64
	sequential      bool
	maxConcurrency  int
	subtitles       []string
	noAudio         bool
	muxAudio        bool
	noSubtitles     bool
}

func newPackageCommand(ctx *commandContext) *cobra.Command {
	var flags packageFlags

	cmd := &cobra.Command{
		Use:   "package <input>",
		Short: "Package one media file into an HLS tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := requireArg(args, "input")
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pc, err := workflow.JobConfig(cfg, input)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "job config", input, err)
			}
			if err := flags.apply(cmd, &pc, cfg.Paths.OutputDir); err != nil {
				return err
			}

			s, err := ctx.openSession(cmd.Context(), flags.runOptions, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			onProgress, view := s.progressFor("")
			result, runErr := s.manager.Process(cmd.Context(), pc, onProgress)
			if view != nil {
				view.finish()
			}
			if closeErr := s.close(); closeErr != nil && runErr == nil {
				runErr = closeErr
			}

			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				renderResult(out, result)
			}
			if runErr != nil {
				return runErr
			}
			if !result.Success {
				return errJobFailed
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.outputDir, "output", "o", "", "Output directory for this job (default: <paths.output_dir>/<input name>)")
	f.StringVar(&flags.name, "name", "", "Directory name under paths.output_dir")
	f.StringVar(&flags.preset, "preset", "", "Ladder preset (low, medium, high, mobile)")
	f.BoolVar(&flags.includeSource, "include-source", false, "Add an unscaled rendition at the source resolution")
	f.Float64Var(&flags.segmentDuration, "segment-duration", 0, "Target segment duration in seconds")
	f.BoolVar(&flags.sequential, "sequential", false, "Process renditions and tracks one at a time")
	f.IntVar(&flags.maxConcurrency, "max-concurrency", 0, "Maximum concurrent ffmpeg processes per phase")
	f.StringArrayVar(&flags.subtitles, "subtitle", nil, "External subtitle file as path[:language] (repeatable)")
	f.BoolVar(&flags.noAudio, "no-audio", false, "Skip audio track extraction")
	f.BoolVar(&flags.muxAudio, "mux-audio", false, "Mux the first audio stream into renditions instead of separate tracks")
	f.BoolVar(&flags.noSubtitles, "no-subtitles", false, "Skip subtitle extraction")
	addRunFlags(cmd, &flags.runOptions)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	f.BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON")
	f.BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip ffmpeg/ffprobe and directory checks")
	f.BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in the history ledger")
}

func (f packageFlags) apply(cmd *cobra.Command, pc *workflow.ProcessingConfig, outputBase string) error {
	switch {
	case strings.TrimSpace(f.outputDir) != "":
		abs, err := filepath.Abs(strings.TrimSpace(f.outputDir))
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "cli", "output", f.outputDir, err)
		}
		pc.OutputDir = abs
	case strings.TrimSpace(f.name) != "":
		pc.OutputDir = filepath.Join(outputBase, textutil.SanitizeFileName(f.name))
	}
	if f.preset != "" {
		preset, err := ladder.ParsePreset(f.preset)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "cli", "preset", f.preset, err)
		}
		pc.Ladder.Preset = preset
		pc.Ladder.ScaleFactors = nil
	}
	if cmd.Flags().Changed("include-source") {
		pc.Ladder.IncludeSource = f.includeSource
	}
	if f.segmentDuration < 0 {
		return services.Wrap(services.ErrConfiguration, "cli", "segment duration", "must be positive", nil)
	}
	if f.segmentDuration > 0 {
		pc.HLS.SegmentDuration = f.segmentDuration
	}
	if f.sequential {
		pc.Parallel = false
	}
	if f.maxConcurrency > 0 {
		pc.MaxConcurrency = f.maxConcurrency
	}
	if f.noAudio {
		pc.Audio.Enabled = false
	}
	if f.muxAudio {
		pc.Audio.Segment = false
	}
	if f.noSubtitles {
		pc.Subtitles.Enabled = false
	}
	if len(f.subtitles) > 0 {
		if f.noSubtitles {
			return services.Wrap(services.ErrConfiguration, "cli", "subtitle", "--subtitle cannot be combined with --no-subtitles", nil)
		}
		pc.Subtitles.Enabled = true
	}
	for _, spec := range f.subtitles {
		ext, err := parseSubtitleFlag(spec)
		if err != nil {
			return err
		}
		pc.Subtitles.External = append(pc.Subtitles.External, ext)
	}
	return nil
}

// parseSubtitleFlag accepts "path" or "path:lang". A trailing segment is
// only treated as a language when it is 2 or 3 letters.
func parseSubtitleFlag(spec string) (subtitles.ExternalSubtitle, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return subtitles.ExternalSubtitle{}, services.Wrap(services.ErrConfiguration, "cli", "subtitle", "empty --subtitle value", nil)
	}
	path, lang := spec, ""
	if i := strings.LastIndex(spec, ":"); i > 0 {
		candidate := spec[i+1:]
		if n := len(candidate); (n == 2 || n == 3) && isLetters(candidate) {
			path, lang = spec[:i], candidate
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return subtitles.ExternalSubtitle{Path: abs, Language: lang}, nil
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func renderResult(out io.Writer, result workflow.ProcessingResult) {
	state := "succeeded"
	if !result.Success {
		state = "failed"
	}
	fmt.Fprintf(out, "Job %s %s in %s\n", result.JobID, state, result.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(out, "Output:  %s\n", result.OutputDir)
	if result.MasterPlaylist != "" {
		fmt.Fprintf(out, "Master:  %s\n", result.MasterPlaylist)
	}
	fmt.Fprintf(out, "Size:    %s\n", formatBytes(result.TotalBytes))

	if len(result.Renditions) > 0 {
		rows := make([][]string, 0, len(result.Renditions))
		var total int64
		for _, r := range result.Renditions {
			rows = append(rows, []string{
				r.Resolution.Name,
				r.Resolution.Key(),
				r.Resolution.Bitrate,
				strconv.Itoa(r.SegmentCount),
				formatBytes(r.FileSize),
			})
			total += r.FileSize
		}
		fmt.Fprintln(out, renderTable(tableSpec{
			Title:   "Renditions",
			Headers: []string{"Name", "Size", "Bitrate", "Segments", "Bytes"},
			Rows:    rows,
			Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
			Footer:  []string{"", "", "", "", formatBytes(total)},
		}))
	}

	if len(result.AudioTracks) > 0 {
		rows := make([][]string, 0, len(result.AudioTracks))
		for _, t := range result.AudioTracks {
			segments := "-"
			if t.Segments != nil {
				segments = strconv.Itoa(t.Segments.SegmentCount)
			}
			rows = append(rows, []string{t.Key, t.Track.Language, strconv.Itoa(t.Track.Channels), yesNo(t.Track.Default), segments})
		}
		fmt.Fprintln(out, renderTable(tableSpec{
			Title:   "Audio",
			Headers: []string{"Track", "Language", "Channels", "Default", "Segments"},
			Rows:    rows,
			Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight},
		}))
	}

	if len(result.Subtitles) > 0 {
		rows := make([][]string, 0, len(result.Subtitles))
		for _, sub := range result.Subtitles {
			playlist := "-"
			if sub.PlaylistPath != "" {
				playlist = filepath.Base(sub.PlaylistPath)
			}
			rows = append(rows, []string{sub.Key, sub.Language, string(sub.Format), yesNo(sub.Forced), playlist})
		}
		fmt.Fprintln(out, renderTable(tableSpec{
			Title:   "Subtitles",
			Headers: []string{"Track", "Language", "Format", "Forced", "Playlist"},
			Rows:    rows,
		}))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(out, renderErrorTable(result.Errors))
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}

func renderErrorTable(errs []workflow.ProcessingError) string {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []string{e.Phase, e.Item, e.Kind, yesNo(e.Critical), e.Message})
	}
	return renderTable(tableSpec{
		Title:   "Errors",
		Headers: []string{"Phase", "Item", "Kind", "Critical", "Message"},
		Rows:    rows,
	})
}
