package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hlspack/internal/batch"
	"hlspack/internal/workflow"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	var keepGoing, stopOnError bool

	cmd := &cobra.Command{
		Use:   "batch <jobs.yaml>",
		Short: "Package every input listed in a YAML job file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := requireArg(args, "job file")
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			file, err := batch.Load(path)
			if err != nil {
				return err
			}
			plans, err := batch.Plan(cfg, file)
			if err != nil {
				return err
			}

			s, err := ctx.openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			cont := file.KeepGoing()
			switch {
			case keepGoing:
				cont = true
			case stopOnError:
				cont = false
			}
			var current *progressView
			outcomes, sum, runErr := batch.Run(cmd.Context(), s.manager, plans, batch.RunOptions{
				KeepGoing: cont,
				Logger:    s.logger,
				OnJobStart: func(p batch.Planned, total int) {
					if current != nil {
						current.finish()
					}
					if !opts.jsonOutput {
						fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", p.Index+1, total, p.Config.Input)
					}
				},
				Progress: func(p batch.Planned) workflow.ProgressFunc {
					fn, view := s.progressFor(p.Name)
					current = view
					return fn
				},
			})
			if current != nil {
				current.finish()
			}
			if closeErr := s.close(); closeErr != nil && runErr == nil {
				runErr = closeErr
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				results := make([]workflow.ProcessingResult, 0, len(outcomes))
				for _, o := range outcomes {
					if o.Result.JobID != "" {
						results = append(results, o.Result)
					}
				}
				if err := writeJSON(out, results); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, renderBatchTable(outcomes))
				fmt.Fprintf(out, "%d succeeded, %d failed, %d skipped\n", sum.Succeeded, sum.Failed, sum.Skipped)
			}
			if runErr != nil {
				return runErr
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%w: %d of %d jobs", errJobFailed, sum.Failed, len(plans))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue after a failed job (overrides continue_on_error)")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop at the first failed job (overrides continue_on_error)")
	cmd.MarkFlagsMutuallyExclusive("keep-going", "stop-on-error")
	addRunFlags(cmd, &opts)
	return cmd
}

func renderBatchTable(outcomes []batch.Outcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		state := "ok"
		switch {
		case o.Result.JobID == "":
			state = "skipped"
		case o.Err != nil || !o.Result.Success:
			state = "failed"
		}
		rows = append(rows, []string{
			strconv.Itoa(o.Job.Index + 1),
			o.Job.Name,
			state,
			strconv.Itoa(len(o.Result.Renditions)),
			strconv.Itoa(len(o.Result.Errors)),
			formatBytes(o.Result.TotalBytes),
		})
	}
	return renderTable(tableSpec{
		Title:   "Batch",
		Headers: []string{"#", "Job", "State", "Renditions", "Errors", "Bytes"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	})
}
