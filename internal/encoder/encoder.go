package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"hlspack/internal/logging"
)

// Runner executes one encoder invocation. onProgress may be nil; when set it
// is called from a single goroutine for every progress block ffmpeg reports.
type Runner interface {
	Run(ctx context.Context, args []string, onProgress func(Progress)) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, args []string, onProgress func(Progress)) error

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, args []string, onProgress func(Progress)) error {
	return f(ctx, args, onProgress)
}

// ExitError reports a non-zero encoder exit.
type ExitError struct {
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	tail := strings.TrimSpace(e.Stderr)
	if tail == "" {
		return fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	}
	if idx := strings.LastIndex(tail, "\n"); idx >= 0 {
		tail = tail[idx+1:]
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, tail)
}

const (
	defaultStderrLimit = 8 * 1024
	defaultKillGrace   = 5 * time.Second
)

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	binary      string
	logger      *slog.Logger
	killGrace   time.Duration
	stderrLimit int
}

// Option customises an FFmpeg runner.
type Option func(*FFmpeg)

// WithLogger attaches a logger for process lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FFmpeg) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithKillGrace sets how long a cancelled process may take to exit after
// SIGTERM before it is killed.
func WithKillGrace(d time.Duration) Option {
	return func(f *FFmpeg) {
		if d > 0 {
			f.killGrace = d
		}
	}
}

// WithStderrLimit bounds how many trailing stderr bytes are retained.
func WithStderrLimit(n int) Option {
	return func(f *FFmpeg) {
		if n > 0 {
			f.stderrLimit = n
		}
	}
}

// NewFFmpeg constructs a runner for the given binary ("ffmpeg" when empty).
func NewFFmpeg(binary string, opts ...Option) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	f := &FFmpeg{
		binary:      binary,
		logger:      logging.NewNop(),
		killGrace:   defaultKillGrace,
		stderrLimit: defaultStderrLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Binary returns the executable the runner invokes.
func (f *FFmpeg) Binary() string {
	return f.binary
}

// Run implements Runner.
func (f *FFmpeg) Run(ctx context.Context, args []string, onProgress func(Progress)) error {
	full := make([]string, 0, len(args)+6)
	full = append(full, "-hide_banner", "-nostdin", "-nostats", "-progress", "pipe:1")
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, f.binary, full...)
	configureProcessGroup(cmd)
	cmd.WaitDelay = f.killGrace

	stderr := newTailBuffer(f.stderrLimit)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	f.logger.Debug("ffmpeg started",
		logging.String(logging.FieldEventType, "encoder_start"),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("command", f.binary+" "+strings.Join(full, " ")),
	)

	parseErr := ParseProgress(stdout, func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	})
	if parseErr != nil {
		// Drain so ffmpeg never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(started)
	if waitErr == nil {
		f.logger.Debug("ffmpeg finished",
			logging.String(logging.FieldEventType, "encoder_complete"),
			logging.Duration("elapsed", elapsed),
		)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ExitError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return fmt.Errorf("wait ffmpeg: %w", waitErr)
}
