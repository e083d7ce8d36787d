package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"hlspack/internal/config"
	"hlspack/internal/services"
	"hlspack/internal/subtitles"
)

// Overrides adjusts the configured defaults for one job or the whole file.
// Nil fields keep the configured value.
type Overrides struct {
	LadderPreset      *string  `yaml:"ladder_preset"`
	IncludeSource     *bool    `yaml:"include_source"`
	SegmentDuration   *float64 `yaml:"segment_duration"`
	AudioSelection    *string  `yaml:"audio_selection"`
	AudioLanguages    []string `yaml:"audio_languages"`
	SegmentAudio      *bool    `yaml:"segment_audio"`
	ExtractSubtitles  *bool    `yaml:"extract_subtitles"`
	SubtitleLanguages []string `yaml:"subtitle_languages"`
	Parallel          *bool    `yaml:"parallel"`
	MaxConcurrency    *int     `yaml:"max_concurrency"`
}

// Job is one input in a job file.
type Job struct {
	Input     string                       `yaml:"input"`
	Name      string                       `yaml:"name"`
	OutputDir string                       `yaml:"output_dir"`
	Subtitles []subtitles.ExternalSubtitle `yaml:"subtitles"`
	Overrides `yaml:",inline"`
}

// File is a parsed job file.
type File struct {
	OutputDir       string    `yaml:"output_dir"`
	ContinueOnError *bool     `yaml:"continue_on_error"`
	Defaults        Overrides `yaml:"defaults"`
	Jobs            []Job     `yaml:"jobs"`

	path string
}

// Path returns the file the jobs were loaded from.
func (f *File) Path() string {
	return f.path
}

// KeepGoing reports whether later jobs run after one fails. It defaults to true.
func (f *File) KeepGoing() bool {
	return f.ContinueOnError == nil || *f.ContinueOnError
}

// Load reads and validates a job file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "read job file", path, err)
	}
	file, err := Parse(data)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "parse job file", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	file.path = abs
	file.resolve(filepath.Dir(abs))
	if err := file.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "validate job file", path, err)
	}
	return file, nil
}

// Parse decodes a job file without resolving paths. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("job file is empty")
		}
		return nil, err
	}
	return &file, nil
}

// Validate checks that every job names an input and that no two jobs share
// an explicit name or output directory.
func (f *File) Validate() error {
	if len(f.Jobs) == 0 {
		return errors.New("no jobs listed")
	}
	names := make(map[string]int, len(f.Jobs))
	outputs := make(map[string]int, len(f.Jobs))
	for i, job := range f.Jobs {
		if strings.TrimSpace(job.Input) == "" {
			return fmt.Errorf("job %d: input is required", i+1)
		}
		if job.Name != "" {
			if prev, ok := names[job.Name]; ok {
				return fmt.Errorf("job %d: name %q already used by job %d", i+1, job.Name, prev)
			}
			names[job.Name] = i + 1
		}
		if job.OutputDir != "" {
			if prev, ok := outputs[job.OutputDir]; ok {
				return fmt.Errorf("job %d: output_dir %q already used by job %d", i+1, job.OutputDir, prev)
			}
			outputs[job.OutputDir] = i + 1
		}
		for _, sub := range job.Subtitles {
			if strings.TrimSpace(sub.Path) == "" {
				return fmt.Errorf("job %d: subtitle path is required", i+1)
			}
		}
		if len(job.Subtitles) > 0 && job.Overrides.ExtractSubtitles != nil && !*job.Overrides.ExtractSubtitles {
			return fmt.Errorf("job %d: subtitles listed while extract_subtitles is false", i+1)
		}
		if err := job.Overrides.validate(); err != nil {
			return fmt.Errorf("job %d: %w", i+1, err)
		}
	}
	return f.Defaults.validate()
}

func (o Overrides) validate() error {
	if o.SegmentDuration != nil && *o.SegmentDuration <= 0 {
		return errors.New("segment_duration must be positive")
	}
	if o.MaxConcurrency != nil && *o.MaxConcurrency < 1 {
		return errors.New("max_concurrency must be at least 1")
	}
	return nil
}

func (f *File) resolve(base string) {
	f.OutputDir = resolvePath(base, f.OutputDir)
	for i := range f.Jobs {
		job := &f.Jobs[i]
		job.Input = resolvePath(base, job.Input)
		job.OutputDir = resolvePath(base, job.OutputDir)
		for j := range job.Subtitles {
			job.Subtitles[j].Path = resolvePath(base, job.Subtitles[j].Path)
		}
	}
}

func resolvePath(base, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "~") {
		if expanded, err := config.ExpandPath(value); err == nil {
			return expanded
		}
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(base, value)
}

// ErrSkipped marks jobs that never ran because an earlier job failed.
var ErrSkipped = errors.New("skipped after earlier failure")
