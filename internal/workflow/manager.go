package workflow

import (
	"context"
	"log/slog"

	"hlspack/internal/config"
	"hlspack/internal/encoder"
	"hlspack/internal/logging"
	"hlspack/internal/media/audio"
	"hlspack/internal/media/ffprobe"
	"hlspack/internal/segmenter"
	"hlspack/internal/subtitles"
)

// Recorder observes finished jobs. The job history ledger and the metrics
// registry implement it.
type Recorder interface {
	RecordJob(ctx context.Context, result ProcessingResult) error
}

// Manager runs packaging jobs.
type Manager struct {
	cfg       *config.Config
	prober    ffprobe.Prober
	runner    encoder.Runner
	logger    *slog.Logger
	recorders []Recorder

	engine    *segmenter.Engine
	audio     *audio.Processor
	subtitles *subtitles.Extractor
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithProber replaces the ffprobe-backed prober (used in tests).
func WithProber(prober ffprobe.Prober) Option {
	return func(m *Manager) {
		if prober != nil {
			m.prober = prober
		}
	}
}

// WithRunner replaces the ffmpeg-backed runner (used in tests).
func WithRunner(runner encoder.Runner) Option {
	return func(m *Manager) {
		if runner != nil {
			m.runner = runner
		}
	}
}

// WithRecorder registers recorders notified after every job.
func WithRecorder(recorders ...Recorder) Option {
	return func(m *Manager) {
		for _, r := range recorders {
			if r != nil {
				m.recorders = append(m.recorders, r)
			}
		}
	}
}

// NewManager wires a manager from configuration.
func NewManager(cfg *config.Config, opts ...Option) *Manager {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	m := &Manager{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.prober == nil {
		m.prober = ffprobe.Command{Binary: cfg.FFprobeBinary()}
	}
	if m.runner == nil {
		m.runner = encoder.NewFFmpeg(cfg.FFmpegBinary(),
			encoder.WithLogger(m.logger),
			encoder.WithKillGrace(cfg.KillGrace()),
		)
	}

	interval := cfg.ProgressInterval()
	m.engine = segmenter.NewEngine(m.runner,
		segmenter.WithLogger(m.logger),
		segmenter.WithProgressInterval(interval),
		segmenter.WithTimeout(cfg.EncodeTimeout()),
	)
	m.audio = audio.NewProcessor(m.prober, m.runner, m.engine,
		audio.WithLogger(m.logger),
		audio.WithProgressInterval(interval),
	)
	m.subtitles = subtitles.NewExtractor(m.prober, m.runner, subtitles.WithLogger(m.logger))
	m.logger = logging.NewComponentLogger(m.logger, "workflow")
	return m
}

// Config returns the manager's configuration.
func (m *Manager) Config() *config.Config {
	return m.cfg
}
