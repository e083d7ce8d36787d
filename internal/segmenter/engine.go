package segmenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hlspack/internal/encoder"
	"hlspack/internal/logging"
	"hlspack/internal/playlist"
	"hlspack/internal/services"
)

const phaseSegment = "segment"

// Request describes one segmentation run. Exactly one of Video or Audio may be
// nil; a nil Video produces an audio-only output.
type Request struct {
	Input         string
	Item          string
	HLS           HLSConfig
	Video         *VideoConfig
	Audio         *AudioConfig
	StartTime     time.Duration
	Duration      time.Duration
	TotalDuration time.Duration
	Progress      chan<- Update
}

func (r Request) item() string {
	if item := strings.TrimSpace(r.Item); item != "" {
		return item
	}
	return strings.TrimSuffix(r.HLS.PlaylistName, filepath.Ext(r.HLS.PlaylistName))
}

// progressTotal is the output length progress is measured against.
func (r Request) progressTotal() time.Duration {
	if r.Duration > 0 {
		return r.Duration
	}
	return r.TotalDuration - r.StartTime
}

// Result describes the files a segmentation run left on disk.
type Result struct {
	PlaylistPath string
	SegmentPaths []string
	Segments     []playlist.Segment
	Duration     float64
	FileSize     int64
	SegmentCount int
	Warnings     []string
}

// Engine runs segmentation requests through an encoder runner.
type Engine struct {
	runner           encoder.Runner
	logger           *slog.Logger
	progressInterval time.Duration
	timeout          time.Duration
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgressInterval sets the minimum spacing between intermediate
// progress updates. Zero disables throttling.
func WithProgressInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.progressInterval = d
		}
	}
}

// WithTimeout bounds each encoder invocation. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// NewEngine constructs an engine around runner.
func NewEngine(runner encoder.Runner, opts ...Option) *Engine {
	e := &Engine{
		runner:           runner,
		logger:           logging.NewNop(),
		progressInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = logging.NewComponentLogger(e.logger, "segmenter")
	return e
}

// Segment encodes req.Input into HLS segments and returns what was produced.
func (e *Engine) Segment(ctx context.Context, req Request) (Result, error) {
	item := req.item()
	ctx = services.WithItem(ctx, item)
	logger := logging.WithContext(ctx, e.logger)

	if _, err := os.Stat(req.Input); err != nil {
		return Result{}, services.Wrap(services.ErrInputNotFound, phaseSegment, "stat input", req.Input, err)
	}
	if err := validateRequest(req); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, phaseSegment, "validate request", item, err)
	}
	if e.runner == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, phaseSegment, "run encoder", "encoder runner unavailable", nil)
	}
	if err := os.MkdirAll(req.HLS.OutputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrEncodeFailure, phaseSegment, "create output dir", req.HLS.OutputDir, err)
	}

	args := BuildArgs(req)
	rep := NewReporter(req.Progress, item, req.progressTotal(), e.progressInterval)

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	started := time.Now()
	logger.Debug("segmentation started",
		logging.String(logging.FieldEventType, "segment_start"),
		logging.String("input", req.Input),
		logging.String("output_dir", req.HLS.OutputDir),
	)
	runErr := e.runner.Run(runCtx, args, rep.Observe)
	if runErr != nil {
		return Result{}, e.classify(ctx, runCtx, item, runErr)
	}
	rep.Finish(ctx)

	result, err := Collect(req.HLS)
	if err != nil {
		return Result{}, err
	}
	for _, warning := range result.Warnings {
		logging.WarnWithContext(logger, "segment file missing after encode", "segment_missing",
			logging.String("detail", warning),
			logging.String(logging.FieldImpact, "segment excluded from size accounting"),
			logging.String(logging.FieldErrorHint, "check hls flags that delete flushed segments"),
		)
	}
	logger.Info("segmentation complete",
		logging.String(logging.FieldEventType, "segment_complete"),
		logging.Int("segments", result.SegmentCount),
		logging.Int64("bytes", result.FileSize),
		logging.Duration(logging.FieldDuration, time.Since(started)),
	)
	return result, nil
}

// SegmentAudio packages one audio stream without video.
func (e *Engine) SegmentAudio(ctx context.Context, input string, hls HLSConfig, audio AudioConfig, total time.Duration, progress chan<- Update) (Result, error) {
	return e.Segment(ctx, Request{
		Input:         input,
		HLS:           hls,
		Audio:         &audio,
		TotalDuration: total,
		Progress:      progress,
	})
}

func (e *Engine) classify(parent, runCtx context.Context, item string, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return fmt.Errorf("segment %s: %w", item, parentErr)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, phaseSegment, "run encoder", fmt.Sprintf("%s exceeded %s", item, e.timeout), err)
	}
	var exitErr *encoder.ExitError
	if errors.As(err, &exitErr) {
		return services.Wrap(services.ErrEncodeFailure, phaseSegment, "run encoder", fmt.Sprintf("%s: exit code %d", item, exitErr.ExitCode), err)
	}
	return services.Wrap(services.ErrEncodeFailure, phaseSegment, "run encoder", item, err)
}

func validateRequest(req Request) error {
	if req.Video == nil && req.Audio == nil {
		return errors.New("request needs video or audio parameters")
	}
	if err := req.HLS.Validate(); err != nil {
		return err
	}
	if req.Video != nil {
		if err := req.Video.Validate(); err != nil {
			return err
		}
	}
	if req.Audio != nil {
		if err := req.Audio.Validate(); err != nil {
			return err
		}
	}
	if req.StartTime < 0 || req.Duration < 0 {
		return errors.New("start time and duration must not be negative")
	}
	return nil
}

// Collect re-reads the playlist described by hls and builds a Result from
// the segments whose files exist. Each listed but missing file becomes a
// warning.
func Collect(hls HLSConfig) (Result, error) {
	playlistPath := filepath.Join(hls.OutputDir, hls.PlaylistName)
	parsed, err := playlist.ReadFile(playlistPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrPlaylistParse, phaseSegment, "read variant playlist", playlistPath, err)
	}
	if parsed.Type != playlist.TypeMedia {
		return Result{}, services.Wrap(services.ErrPlaylistParse, phaseSegment, "read variant playlist", playlistPath+" is not a media playlist", nil)
	}

	result := Result{
		PlaylistPath: playlistPath,
		SegmentPaths: []string{},
		Segments:     []playlist.Segment{},
	}
	for _, seg := range parsed.Segments {
		path := seg.URI
		if !filepath.IsAbs(path) {
			path = filepath.Join(hls.OutputDir, filepath.FromSlash(path))
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			result.Warnings = append(result.Warnings, fmt.Sprintf("segment %s listed in %s is missing", seg.URI, hls.PlaylistName))
			continue
		}
		result.SegmentPaths = append(result.SegmentPaths, path)
		result.Segments = append(result.Segments, seg)
		result.FileSize += info.Size()
		result.Duration += seg.Duration
	}
	result.SegmentCount = len(result.Segments)
	return result, nil
}
