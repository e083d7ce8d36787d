package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hlspack/internal/history"
	"hlspack/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var failedOnly, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List packaging jobs recorded in the history ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				jobs, err := store.List(cmd.Context(), history.ListOptions{Limit: limit, FailedOnly: failedOnly})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					if jobs == nil {
						jobs = []history.Job{}
					}
					return writeJSON(out, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(jobs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list (0 for all)")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only list failed jobs")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print jobs as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job and its errors (a unique ID prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				job, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("no job matches %q", args[0])
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return writeJSON(out, job)
				}
				renderJob(out, job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job as JSON")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete jobs older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return services.Wrap(services.ErrConfiguration, "cli", "prune", "--older-than must be positive", nil)
			}
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff, e.g. 720h")
	return cmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func renderHistoryTable(jobs []history.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		state := "ok"
		if !j.Success {
			state = "failed"
		}
		rows = append(rows, []string{
			shortID(j.JobID),
			j.FinishedAt.Local().Format("2006-01-02 15:04"),
			state,
			j.Input,
			strings.Join(j.Ladder, ","),
			j.Elapsed().Round(time.Second).String(),
			formatBytes(j.TotalBytes),
		})
	}
	return renderTable(tableSpec{
		Headers: []string{"Job", "Finished", "State", "Input", "Ladder", "Took", "Bytes"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	})
}

func renderJob(out io.Writer, j history.Job) {
	state := "succeeded"
	if !j.Success {
		state = "failed"
	}
	fmt.Fprintf(out, "Job:       %s (%s)\n", j.JobID, state)
	fmt.Fprintf(out, "Input:     %s\n", j.Input)
	fmt.Fprintf(out, "Output:    %s\n", j.OutputDir)
	if j.MasterPlaylist != "" {
		fmt.Fprintf(out, "Master:    %s\n", j.MasterPlaylist)
	}
	fmt.Fprintf(out, "Started:   %s\n", j.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Took:      %s\n", j.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(out, "Source:    %s\n", formatSeconds(j.SourceDuration))
	fmt.Fprintf(out, "Ladder:    %s\n", strings.Join(j.Ladder, ", "))
	fmt.Fprintf(out, "Tracks:    %d renditions, %d audio, %d subtitles\n", j.Renditions, j.AudioTracks, j.Subtitles)
	fmt.Fprintf(out, "Warnings:  %d\n", j.Warnings)
	fmt.Fprintf(out, "Size:      %s\n", formatBytes(j.TotalBytes))
	if len(j.Errors) == 0 {
		return
	}
	rows := make([][]string, 0, len(j.Errors))
	for _, e := range j.Errors {
		rows = append(rows, []string{e.Phase, e.Item, e.Kind, yesNo(e.Critical), e.Message})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		Title:   "Errors",
		Headers: []string{"Phase", "Item", "Kind", "Critical", "Message"},
		Rows:    rows,
	}))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

