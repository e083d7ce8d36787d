package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"hlspack/internal/encoder"
	"hlspack/internal/language"
	"hlspack/internal/logging"
	"hlspack/internal/media/ffprobe"
	"hlspack/internal/segmenter"
	"hlspack/internal/services"
)

const phaseAudio = "audio"

// Config controls extraction and packaging of audio tracks.
type Config struct {
	OutputDir  string
	Codec      string
	Bitrate    string
	SampleRate int
	Channels   int
	Selection  Selection
	Languages  []string
	Segment    bool
	// HLS supplies segment duration, pattern, flags, and playlist type;
	// OutputDir and PlaylistName are set per track.
	HLS segmenter.HLSConfig
	// TotalDuration drives progress; probed from the input when zero.
	TotalDuration time.Duration
}

// TrackResult describes the files produced for one track.
type TrackResult struct {
	Track        TrackInfo
	Key          string
	FilePath     string
	FileSize     int64
	PlaylistPath string
	Segments     *segmenter.Result
}

// TrackError records a failed track.
type TrackError struct {
	Track TrackInfo
	Err   error
}

// Result is the outcome of Process. Tracks and Errors are never nil.
type Result struct {
	Tracks []TrackResult
	Errors []TrackError
}

// Processor extracts and packages audio tracks.
type Processor struct {
	prober           ffprobe.Prober
	runner           encoder.Runner
	engine           *segmenter.Engine
	logger           *slog.Logger
	progressInterval time.Duration
}

// Option customises a Processor.
type Option func(*Processor)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProgressInterval sets the minimum spacing between extraction updates.
func WithProgressInterval(d time.Duration) Option {
	return func(p *Processor) {
		if d >= 0 {
			p.progressInterval = d
		}
	}
}

// NewProcessor wires a processor. engine may be nil when segmentation is
// never requested.
func NewProcessor(prober ffprobe.Prober, runner encoder.Runner, engine *segmenter.Engine, opts ...Option) *Processor {
	p := &Processor{
		prober:           prober,
		runner:           runner,
		engine:           engine,
		logger:           logging.NewNop(),
		progressInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.logger = logging.NewComponentLogger(p.logger, "audio")
	return p
}

// DetectTracks probes input with the processor's prober.
func (p *Processor) DetectTracks(ctx context.Context, input string) ([]TrackInfo, error) {
	return DetectTracks(ctx, p.prober, input)
}

// Process detects, selects, and processes every track. Only detection
// failures are returned as errors; per-track failures land in Result.Errors.
func (p *Processor) Process(ctx context.Context, input string, cfg Config) (Result, error) {
	result := Result{Tracks: []TrackResult{}, Errors: []TrackError{}}
	tracks, err := p.DetectTracks(ctx, input)
	if err != nil {
		return result, err
	}
	if cfg.TotalDuration <= 0 {
		cfg.TotalDuration = probeDuration(ctx, p.prober, input)
	}
	for _, track := range Select(tracks, cfg.Selection, cfg.Languages) {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		tr, err := p.ProcessTrack(ctx, input, track, cfg, nil)
		if err != nil {
			result.Errors = append(result.Errors, TrackError{Track: track, Err: err})
			continue
		}
		result.Tracks = append(result.Tracks, tr)
	}
	return result, nil
}

// ProcessTrack extracts one track to <OutputDir>/<key>/audio_<lang>.m4a and,
// when cfg.Segment is set, packages it as audio_<lang>.m3u8 beside it.
// Failures are tagged as track extraction errors.
func (p *Processor) ProcessTrack(ctx context.Context, input string, track TrackInfo, cfg Config, progress chan<- segmenter.Update) (TrackResult, error) {
	key := track.Key()
	ctx = services.WithItem(ctx, key)
	logger := logging.WithContext(ctx, p.logger)

	if p.runner == nil {
		return TrackResult{}, services.Wrap(services.ErrConfiguration, phaseAudio, "extract", "encoder runner unavailable", nil)
	}
	dir := filepath.Join(cfg.OutputDir, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return TrackResult{}, services.Wrap(services.ErrTrackExtraction, phaseAudio, "create output dir", dir, err)
	}
	base := "audio_" + track.Language
	out := TrackResult{Track: track, Key: key, FilePath: filepath.Join(dir, base+".m4a")}

	extractSpan := 100.0
	if cfg.Segment {
		extractSpan = 50
	}
	extractCh, stopExtract := segmenter.Rescale(progress, 0, extractSpan, "extracting")
	rep := segmenter.NewReporter(extractCh, key, cfg.TotalDuration, p.progressInterval)
	err := p.runner.Run(ctx, ExtractArgs(input, track, cfg, out.FilePath), rep.Observe)
	stopExtract()
	if err != nil {
		return TrackResult{}, trackError(ctx, "extract", key, err)
	}
	info, err := os.Stat(out.FilePath)
	if err != nil {
		return TrackResult{}, services.Wrap(services.ErrTrackExtraction, phaseAudio, "extract", key+": output missing", err)
	}
	out.FileSize = info.Size()

	if cfg.Segment {
		if p.engine == nil {
			return TrackResult{}, services.Wrap(services.ErrConfiguration, phaseAudio, "segment", "segmenter unavailable", nil)
		}
		hls := cfg.HLS
		hls.OutputDir = dir
		hls.PlaylistName = base + ".m3u8"
		segCh, stopSegment := segmenter.Rescale(progress, extractSpan, 100-extractSpan, "segmenting")
		seg, err := p.engine.SegmentAudio(ctx, out.FilePath, hls, segmenter.AudioConfig{Codec: "copy", StreamIndex: -1}, cfg.TotalDuration, segCh)
		stopSegment()
		if err != nil {
			return TrackResult{}, trackError(ctx, "segment", key, err)
		}
		out.Segments = &seg
		out.PlaylistPath = seg.PlaylistPath
	}

	if progress != nil {
		select {
		case progress <- segmenter.Update{Item: key, Percent: 100, Message: segmenter.MessageFinalizing}:
		case <-ctx.Done():
		}
	}
	logger.Info("audio track processed",
		logging.String(logging.FieldEventType, "audio_track_complete"),
		logging.String("track", track.String()),
		logging.String("file", out.FilePath),
		logging.Int64("bytes", out.FileSize),
		logging.Bool("segmented", out.Segments != nil),
	)
	return out, nil
}

// ExtractArgs builds the ffmpeg arguments that transcode one track to an
// m4a file tagged with language and title metadata.
func ExtractArgs(input string, track TrackInfo, cfg Config, output string) []string {
	args := []string{
		"-y",
		"-i", input,
		"-map", "0:" + strconv.Itoa(track.StreamIndex),
		"-vn", "-sn", "-dn",
		"-c:a", firstNonEmpty(cfg.Codec, "aac"),
	}
	if cfg.Bitrate != "" {
		args = append(args, "-b:a", cfg.Bitrate)
	}
	if cfg.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(cfg.SampleRate))
	}
	if cfg.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(cfg.Channels))
	}
	args = append(args, "-metadata:s:a:0", "language="+language.ToISO3(track.Language))
	if name := track.Name(); name != "" {
		args = append(args, "-metadata:s:a:0", "title="+name)
	}
	return append(args, "-movflags", "+faststart", output)
}

func trackError(ctx context.Context, operation, key string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return fmt.Errorf("audio %s %s: %w", operation, key, err)
	}
	return services.Wrap(services.ErrTrackExtraction, phaseAudio, operation, key, err)
}

func probeDuration(ctx context.Context, prober ffprobe.Prober, input string) time.Duration {
	if prober == nil {
		return 0
	}
	probe, err := prober.Probe(ctx, input)
	if err != nil {
		return 0
	}
	return time.Duration(probe.DurationSeconds() * float64(time.Second))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
