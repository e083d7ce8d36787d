// Package stageexec fans one processing phase out over its items, either
// sequentially or with bounded parallelism, and aggregates per-item progress
// into a single phase percentage.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hlspack/internal/logging"
	"hlspack/internal/segmenter"
	"hlspack/internal/services"
)

// DefaultBufferSize is the per-task progress channel capacity.
const DefaultBufferSize = 16

// Task is one item of a phase. Run must send progress on the provided
// channel without closing it.
type Task struct {
	Item string
	Run  func(ctx context.Context, progress chan<- segmenter.Update) error
}

// Progress is an aggregated phase update. Percent is base(i)+weight*ItemPercent
// where base(i)=i/T*100 and weight=100/T.
type Progress struct {
	Phase       string
	Item        string
	Index       int
	Total       int
	ItemPercent float64
	Percent     float64
	Message     string
}

// Outcome records how one task finished.
type Outcome struct {
	Index    int
	Item     string
	Err      error
	Duration time.Duration
}

// Options controls Run.
type Options struct {
	Phase          string
	Parallel       bool
	MaxConcurrency int
	// Critical cancels the remaining tasks on the first failure and makes Run
	// return that failure.
	Critical bool
	// BufferSize overrides DefaultBufferSize.
	BufferSize int
	Logger     *slog.Logger
	// OnProgress is called from a single goroutine.
	OnProgress func(Progress)
}

type indexedUpdate struct {
	index  int
	update segmenter.Update
}

// collector is the single append point for task outcomes.
type collector struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (c *collector) record(o Outcome) {
	c.mu.Lock()
	c.outcomes[o.Index] = o
	c.mu.Unlock()
}

// Run executes tasks and returns one Outcome per task in task order. The
// returned error is the first failure for critical phases, the parent
// context's error on cancellation, and nil otherwise.
func Run(ctx context.Context, tasks []Task, opts Options) ([]Outcome, error) {
	base := opts.Logger
	if base == nil {
		base = logging.NewNop()
	}
	ctx = services.WithPhase(ctx, opts.Phase)
	logger := logging.WithContext(ctx, base)

	total := len(tasks)
	results := &collector{outcomes: make([]Outcome, total)}
	for i, task := range tasks {
		results.outcomes[i] = Outcome{Index: i, Item: task.Item}
	}
	if total == 0 {
		return results.outcomes, nil
	}

	limit := 1
	if opts.Parallel {
		limit = opts.MaxConcurrency
		if limit <= 0 || limit > total {
			limit = total
		}
	}
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	aggregate := make(chan indexedUpdate, bufSize)
	aggregatorDone := make(chan struct{})
	go func() {
		defer close(aggregatorDone)
		weight := 100 / float64(total)
		for msg := range aggregate {
			if opts.OnProgress == nil {
				continue
			}
			opts.OnProgress(Progress{
				Phase:       opts.Phase,
				Item:        msg.update.Item,
				Index:       msg.index,
				Total:       total,
				ItemPercent: msg.update.Percent,
				Percent:     float64(msg.index)*weight + weight*msg.update.Percent/100,
				Message:     msg.update.Message,
			})
		}
	}()

	logger.Info("phase started",
		logging.String(logging.FieldEventType, "phase_start"),
		logging.Int("items", total),
		logging.Bool("parallel", opts.Parallel),
		logging.Int("max_concurrency", limit),
	)
	phaseStart := time.Now()

	// Only critical failures reach the group and cancel runCtx.
	group, runCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	notStarted := func(i int, err error) {
		results.record(Outcome{Index: i, Item: tasks[i].Item, Err: fmt.Errorf("%s not started: %w", tasks[i].Item, err)})
	}

	for i, task := range tasks {
		if err := runCtx.Err(); err != nil {
			for j := i; j < total; j++ {
				notStarted(j, err)
			}
			break
		}
		group.Go(func() error {
			if err := runCtx.Err(); err != nil {
				notStarted(i, err)
				return nil
			}
			progress := make(chan segmenter.Update, bufSize)
			forwarded := make(chan struct{})
			go func() {
				defer close(forwarded)
				for u := range progress {
					aggregate <- indexedUpdate{index: i, update: u}
				}
			}()

			itemCtx := services.WithItem(runCtx, task.Item)
			started := time.Now()
			err := runTask(itemCtx, task, progress)
			close(progress)
			<-forwarded
			results.record(Outcome{Index: i, Item: task.Item, Err: err, Duration: time.Since(started)})
			if err == nil {
				return nil
			}
			logging.WithContext(itemCtx, base).Debug("phase item failed",
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
			)
			if opts.Critical {
				return err
			}
			return nil
		})
	}

	groupErr := group.Wait()
	close(aggregate)
	<-aggregatorDone

	failed := 0
	for _, o := range results.outcomes {
		if o.Err != nil {
			failed++
		}
	}
	logger.Info("phase finished",
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.Int("items", total),
		logging.Int("failed", failed),
		logging.Duration(logging.FieldDuration, time.Since(phaseStart)),
	)

	if err := ctx.Err(); err != nil {
		return results.outcomes, err
	}
	if groupErr != nil {
		return results.outcomes, groupErr
	}
	return results.outcomes, nil
}

func runTask(ctx context.Context, task Task, progress chan<- segmenter.Update) error {
	if task.Run == nil {
		phase, _ := services.PhaseFromContext(ctx)
		return services.Wrap(services.ErrConfiguration, phase, "run", "task has no runner: "+task.Item, nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return task.Run(ctx, progress)
}
