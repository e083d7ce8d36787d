package workflow

import (
	"time"

	"hlspack/internal/ladder"
	"hlspack/internal/media/audio"
	"hlspack/internal/segmenter"
	"hlspack/internal/stageexec"
	"hlspack/internal/subtitles"
)

// Phase names used in errors, logs, and progress.
const (
	PhasePrepare   = "prepare"
	PhaseVideo     = "video"
	PhaseAudio     = "audio"
	PhaseSubtitles = "subtitles"
	PhaseMaster    = "master"
)

// Progress is an aggregated phase update delivered to the caller.
type Progress = stageexec.Progress

// ProgressFunc receives progress. It is called from one goroutine at a time.
type ProgressFunc func(Progress)

// LadderOptions controls rendition derivation for a job.
type LadderOptions struct {
	Preset           ladder.Preset
	ScaleFactors     []float64
	MinWidth         int
	MinHeight        int
	IncludeSource    bool
	BitrateOverrides map[string]string
}

// AudioOptions controls the audio phase.
type AudioOptions struct {
	Enabled    bool
	Selection  audio.Selection
	Languages  []string
	Codec      string
	Bitrate    string
	SampleRate int
	Channels   int
	// Segment packages each track as its own HLS playlist referenced from the
	// master. Without it, renditions carry the first audio stream muxed in.
	Segment bool
}

// SubtitleOptions controls the subtitle phase.
type SubtitleOptions struct {
	Enabled         bool
	ConvertToWebVTT bool
	Languages       []string
	External        []subtitles.ExternalSubtitle
}

// ProcessingConfig is the input of one packaging job.
type ProcessingConfig struct {
	JobID string
	Input string
	// OutputDir is the job's output base. Empty means a directory named after
	// the input under the configured output root.
	OutputDir string

	Ladder    LadderOptions
	Video     segmenter.VideoDefaults
	HLS       segmenter.HLSConfig
	Audio     AudioOptions
	Subtitles SubtitleOptions

	Parallel       bool
	MaxConcurrency int
}

// ProcessingError is one entry of ProcessingResult.Errors.
type ProcessingError struct {
	Phase    string `json:"phase"`
	Item     string `json:"item,omitempty"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Critical bool   `json:"critical"`
	Err      error  `json:"-"`
}

func (e ProcessingError) Error() string {
	if e.Item != "" {
		return e.Phase + " " + e.Item + ": " + e.Message
	}
	return e.Phase + ": " + e.Message
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// RenditionResult describes one packaged rendition.
type RenditionResult struct {
	Resolution   ladder.Resolution     `json:"resolution"`
	Video        segmenter.VideoConfig `json:"-"`
	PlaylistPath string                `json:"playlist_path"`
	Segments     segmenter.Result      `json:"-"`
	SegmentCount int                   `json:"segment_count"`
	FileSize     int64                 `json:"file_size"`
}

// ProcessingResult is the outcome of a job. Errors is never nil and Success
// is true exactly when no error is critical.
type ProcessingResult struct {
	JobID          string               `json:"job_id"`
	Input          string               `json:"input"`
	OutputDir      string               `json:"output_dir"`
	MasterPlaylist string               `json:"master_playlist,omitempty"`
	SourceDuration float64              `json:"source_duration"`
	Ladder         []ladder.Resolution  `json:"ladder"`
	Renditions     []RenditionResult    `json:"renditions"`
	AudioTracks    []audio.TrackResult  `json:"-"`
	Subtitles      []subtitles.Subtitle `json:"-"`
	Errors         []ProcessingError    `json:"errors"`
	Warnings       []string             `json:"warnings"`
	Success        bool                 `json:"success"`
	StartedAt      time.Time            `json:"started_at"`
	FinishedAt     time.Time            `json:"finished_at"`
	TotalBytes     int64                `json:"total_bytes"`
}

// Elapsed returns the wall-clock time the job took.
func (r ProcessingResult) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CriticalError returns the first critical error, if any.
func (r ProcessingResult) CriticalError() (ProcessingError, bool) {
	for _, e := range r.Errors {
		if e.Critical {
			return e, true
		}
	}
	return ProcessingError{}, false
}

// NonCriticalErrors returns the errors that did not fail the job.
func (r ProcessingResult) NonCriticalErrors() []ProcessingError {
	var out []ProcessingError
	for _, e := range r.Errors {
		if !e.Critical {
			out = append(out, e)
		}
	}
	return out
}
