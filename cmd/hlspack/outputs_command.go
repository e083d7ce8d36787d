package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hlspack/internal/outputs"
	"hlspack/internal/services"
)

func newOutputsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "List job trees under the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			trees, err := outputs.List(cfg.Paths.OutputDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				if trees == nil {
					trees = []outputs.Tree{}
				}
				return writeJSON(out, trees)
			}
			if len(trees) == 0 {
				fmt.Fprintf(out, "No job trees under %s\n", cfg.Paths.OutputDir)
				return nil
			}
			rows := make([][]string, 0, len(trees))
			for _, tree := range trees {
				state := "complete"
				switch {
				case tree.Active:
					state = "running"
				case !tree.Complete:
					state = "incomplete"
				}
				rows = append(rows, []string{tree.Name, state, humanize.Time(tree.ModTime), formatBytes(tree.Size)})
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				Title:   cfg.Paths.OutputDir,
				Headers: []string{"Name", "State", "Modified", "Bytes"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print trees as JSON")
	cmd.AddCommand(newOutputsCleanCommand(ctx))
	return cmd
}

func newOutputsCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove incomplete job trees left by failed or interrupted runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return services.Wrap(services.ErrConfiguration, "cli", "clean", "--older-than must not be negative", nil)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(false)
			if err != nil {
				return err
			}
			result, err := outputs.CleanIncomplete(cmd.Context(), cfg.Paths.OutputDir, olderThan, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range result.Removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			fmt.Fprintf(out, "Removed %d tree(s), %d failure(s)\n", len(result.Removed), len(result.Errors))
			if len(result.Errors) > 0 {
				return fmt.Errorf("remove %s: %w", result.Errors[0].Path, result.Errors[0].Error)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Only remove trees not modified within this duration")
	return cmd
}
