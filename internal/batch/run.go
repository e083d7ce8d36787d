package batch

import (
	"context"
	"log/slog"

	"hlspack/internal/logging"
	"hlspack/internal/workflow"
)

// Processor packages one job. *workflow.Manager satisfies it.
type Processor interface {
	Process(ctx context.Context, pc workflow.ProcessingConfig, onProgress workflow.ProgressFunc) (workflow.ProcessingResult, error)
}

// Outcome pairs a planned job with its result.
type Outcome struct {
	Job    Planned
	Result workflow.ProcessingResult
	Err    error
}

// RunOptions controls Run.
type RunOptions struct {
	// KeepGoing runs the remaining jobs after a failure.
	KeepGoing bool
	Logger    *slog.Logger
	// OnJobStart is called before each job starts.
	OnJobStart func(Planned, int)
	// Progress returns the progress callback for a job; nil disables it.
	Progress func(Planned) workflow.ProgressFunc
}

// Summary counts outcomes.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Run packages jobs one after another. It returns every outcome, including
// jobs that were skipped after a failure or cancellation, and the context
// error when ctx ended early.
func Run(ctx context.Context, p Processor, jobs []Planned, opts RunOptions) ([]Outcome, Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "batch")

	outcomes := make([]Outcome, 0, len(jobs))
	var sum Summary
	stop := false
	for _, job := range jobs {
		if stop || ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{Job: job, Err: errSkipped(ctx)})
			sum.Skipped++
			continue
		}
		if opts.OnJobStart != nil {
			opts.OnJobStart(job, len(jobs))
		}
		var progress workflow.ProgressFunc
		if opts.Progress != nil {
			progress = opts.Progress(job)
		}

		result, err := p.Process(ctx, job.Config, progress)
		outcomes = append(outcomes, Outcome{Job: job, Result: result, Err: err})
		if err == nil && result.Success {
			sum.Succeeded++
			continue
		}
		sum.Failed++
		cause := err
		if cause == nil {
			if critical, ok := result.CriticalError(); ok {
				cause = critical
			}
		}
		logging.WarnWithContext(logger, "batch job failed", "batch_job_failed",
			logging.String("job", job.Name),
			logging.String("input", job.Config.Input),
			logging.Error(cause),
			logging.String(logging.FieldImpact, "outputs for this input are incomplete"),
		)
		if !opts.KeepGoing {
			stop = true
		}
	}

	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("succeeded", sum.Succeeded),
		logging.Int("failed", sum.Failed),
		logging.Int("skipped", sum.Skipped),
	)
	return outcomes, sum, ctx.Err()
}

func errSkipped(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrSkipped
}
