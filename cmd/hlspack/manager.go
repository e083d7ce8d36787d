package main

import (
	"context"
	"io"
	"log/slog"

	"hlspack/internal/history"
	"hlspack/internal/logging"
	"hlspack/internal/metrics"
	"hlspack/internal/preflight"
	"hlspack/internal/workflow"
)

// runOptions are the flags shared by package and batch.
type runOptions struct {
	metricsFile   string
	jsonOutput    bool
	skipPreflight bool
	noHistory     bool
}

// session owns the manager and its recorders for one CLI invocation.
type session struct {
	manager     *workflow.Manager
	logger      *slog.Logger
	store       *history.Store
	metrics     *metrics.Metrics
	metricsFile string
	progressOut io.Writer
	terminal    bool
	quiet       bool
}

// openSession builds the workflow manager with the history ledger and the
// metrics recorder wired in, after running preflight checks.
func (c *commandContext) openSession(ctx context.Context, opts runOptions, stderr io.Writer) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !opts.skipPreflight {
		if err := preflight.Err(preflight.RunAll(ctx, cfg)); err != nil {
			return nil, err
		}
	}

	terminal := !opts.jsonOutput && isTerminal(stderr)
	logger, err := c.newLogger(!terminal)
	if err != nil {
		return nil, err
	}

	s := &session{
		logger:      logger,
		metricsFile: opts.metricsFile,
		progressOut: stderr,
		terminal:    terminal,
		quiet:       opts.jsonOutput,
	}
	var recorders []workflow.Recorder
	if cfg.History.Enabled && !opts.noHistory {
		store, err := history.OpenFromConfig(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "history ledger unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run will not be recorded"),
			)
		} else {
			s.store = store
			recorders = append(recorders, store)
		}
	}
	if opts.metricsFile != "" {
		s.metrics = metrics.New()
		recorders = append(recorders, s.metrics)
	}

	managerOpts := []workflow.Option{workflow.WithLogger(logger), workflow.WithRecorder(recorders...)}
	managerOpts = append(managerOpts, c.managerOptions...)
	s.manager = workflow.NewManager(cfg, managerOpts...)
	return s, nil
}

// progressFor returns the progress callback for one job, or nil in JSON mode.
func (s *session) progressFor(label string) (workflow.ProgressFunc, *progressView) {
	if s.quiet {
		return nil, nil
	}
	view := newProgressView(s.progressOut, s.terminal, label)
	return view.update, view
}

// close writes the metrics textfile and closes the ledger.
func (s *session) close() error {
	var err error
	if s.metrics != nil && s.metricsFile != "" {
		err = s.metrics.WriteTextfile(s.metricsFile)
	}
	if s.store != nil {
		if closeErr := s.store.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
