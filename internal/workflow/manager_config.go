package workflow

import (
	"fmt"
	"path/filepath"
	"strings"

	"hlspack/internal/config"
	"hlspack/internal/ladder"
	"hlspack/internal/media/audio"
	"hlspack/internal/segmenter"
	"hlspack/internal/textutil"
)

// JobConfig builds the ProcessingConfig for input from the configuration
// defaults. The output base is <output_dir>/<input name>.
func JobConfig(cfg *config.Config, input string) (ProcessingConfig, error) {
	if cfg == nil {
		return ProcessingConfig{}, fmt.Errorf("config is required")
	}
	preset, err := ladder.ParsePreset(cfg.Ladder.Preset)
	if err != nil {
		return ProcessingConfig{}, err
	}
	selection, err := audio.ParseSelection(cfg.Audio.Selection)
	if err != nil {
		return ProcessingConfig{}, err
	}
	input = strings.TrimSpace(input)
	if input != "" {
		if abs, err := filepath.Abs(input); err == nil {
			input = abs
		}
	}
	return ProcessingConfig{
		Input:     input,
		OutputDir: filepath.Join(cfg.Paths.OutputDir, textutil.JobName(input)),
		Ladder: LadderOptions{
			Preset:           preset,
			ScaleFactors:     append([]float64(nil), cfg.Ladder.ScaleFactors...),
			MinWidth:         cfg.Ladder.MinWidth,
			MinHeight:        cfg.Ladder.MinHeight,
			IncludeSource:    cfg.Ladder.IncludeSource,
			BitrateOverrides: cfg.Ladder.BitrateOverrides,
		},
		Video: segmenter.VideoDefaults{
			Codec:       cfg.Video.Codec,
			Preset:      cfg.Video.Preset,
			PixelFormat: cfg.Video.PixelFormat,
			FrameRate:   cfg.Video.FrameRate,
			GOPSize:     cfg.Video.GOPSize,
		},
		HLS: segmenter.HLSConfig{
			SegmentDuration: cfg.HLS.SegmentDuration,
			SegmentPattern:  cfg.HLS.SegmentPattern,
			Flags:           cfg.HLS.Flags,
			PlaylistType:    cfg.HLS.PlaylistType,
		},
		Audio: AudioOptions{
			Enabled:    cfg.Audio.Enabled,
			Selection:  selection,
			Languages:  append([]string(nil), cfg.Audio.Languages...),
			Codec:      cfg.Audio.Codec,
			Bitrate:    cfg.Audio.Bitrate,
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
			Segment:    cfg.Audio.Segment,
		},
		Subtitles: SubtitleOptions{
			Enabled:         cfg.Subtitles.Enabled,
			ConvertToWebVTT: cfg.Subtitles.ConvertToWebVTT,
			Languages:       append([]string(nil), cfg.Subtitles.Languages...),
		},
		Parallel:       cfg.Processing.Parallel,
		MaxConcurrency: cfg.Processing.MaxConcurrency,
	}, nil
}
