package batch

import (
	"fmt"
	"path/filepath"

	"hlspack/internal/config"
	"hlspack/internal/ladder"
	"hlspack/internal/media/audio"
	"hlspack/internal/textutil"
	"hlspack/internal/workflow"
)

// Planned is a job ready to hand to the workflow manager.
type Planned struct {
	Index  int
	Name   string
	Config workflow.ProcessingConfig
}

// Plan expands every job in f into a ProcessingConfig. File defaults apply
// first, then the job's own overrides.
func Plan(cfg *config.Config, f *File) ([]Planned, error) {
	if f == nil {
		return nil, fmt.Errorf("job file is required")
	}
	base := cfg.Paths.OutputDir
	if f.OutputDir != "" {
		base = f.OutputDir
	}

	out := make([]Planned, 0, len(f.Jobs))
	for i, job := range f.Jobs {
		pc, err := workflow.JobConfig(cfg, job.Input)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		if err := apply(&pc, f.Defaults); err != nil {
			return nil, fmt.Errorf("job %d defaults: %w", i+1, err)
		}
		if err := apply(&pc, job.Overrides); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}

		name := textutil.JobName(job.Input)
		if job.Name != "" {
			name = textutil.SanitizeFileName(job.Name)
		}
		switch {
		case job.OutputDir != "":
			pc.OutputDir = job.OutputDir
		default:
			pc.OutputDir = filepath.Join(base, name)
		}
		if len(job.Subtitles) > 0 {
			pc.Subtitles.Enabled = true
			pc.Subtitles.External = append(pc.Subtitles.External, job.Subtitles...)
		}
		out = append(out, Planned{Index: i, Name: name, Config: pc})
	}

	seen := make(map[string]string, len(out))
	for _, p := range out {
		if prev, ok := seen[p.Config.OutputDir]; ok {
			return nil, fmt.Errorf("jobs %q and %q write to the same output %s", prev, p.Name, p.Config.OutputDir)
		}
		seen[p.Config.OutputDir] = p.Name
	}
	return out, nil
}

func apply(pc *workflow.ProcessingConfig, o Overrides) error {
	if o.LadderPreset != nil {
		preset, err := ladder.ParsePreset(*o.LadderPreset)
		if err != nil {
			return err
		}
		pc.Ladder.Preset = preset
		pc.Ladder.ScaleFactors = nil
	}
	if o.IncludeSource != nil {
		pc.Ladder.IncludeSource = *o.IncludeSource
	}
	if o.SegmentDuration != nil {
		pc.HLS.SegmentDuration = *o.SegmentDuration
	}
	if o.AudioSelection != nil {
		sel, err := audio.ParseSelection(*o.AudioSelection)
		if err != nil {
			return err
		}
		pc.Audio.Selection = sel
	}
	if o.AudioLanguages != nil {
		pc.Audio.Languages = append([]string(nil), o.AudioLanguages...)
	}
	if o.SegmentAudio != nil {
		pc.Audio.Segment = *o.SegmentAudio
	}
	if o.ExtractSubtitles != nil {
		pc.Subtitles.Enabled = *o.ExtractSubtitles
	}
	if o.SubtitleLanguages != nil {
		pc.Subtitles.Languages = append([]string(nil), o.SubtitleLanguages...)
	}
	if o.Parallel != nil {
		pc.Parallel = *o.Parallel
	}
	if o.MaxConcurrency != nil {
		pc.MaxConcurrency = *o.MaxConcurrency
	}
	return nil
}
