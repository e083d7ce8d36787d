package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"hlspack/internal/config"
	"hlspack/internal/history"
	"hlspack/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label  string
	colors text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

const statusLabelWidth = 20

// statusPrinter writes aligned "label: [KIND] detail" lines grouped under
// section headings.
type statusPrinter struct {
	out      io.Writer
	colorize bool
	sections int
}

func (p *statusPrinter) section(title string) {
	if p.sections > 0 {
		fmt.Fprintln(p.out)
	}
	p.sections++
	heading := strings.TrimSpace(title)
	if p.colorize {
		heading = text.Colors{text.Bold, text.FgBlue}.Sprint(heading)
	}
	fmt.Fprintln(p.out, heading)
}

func (p *statusPrinter) line(label string, kind statusKind, detail string) {
	style := statusStyles[kind]
	tag := "[" + style.label + "]"
	if p.colorize {
		tag = style.colors.Sprint(tag)
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", tag)
	if detail != "" {
		line += " " + detail
	}
	fmt.Fprintln(p.out, line)
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check ffmpeg, ffprobe, and output directory readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p := &statusPrinter{out: out, colorize: isTerminal(out)}

			p.section("Configuration")
			source := ctx.configPath
			if !ctx.configExists {
				source += " (not found, using defaults)"
			}
			p.line("Config", statusInfo, source)
			p.line("Output", statusInfo, cfg.Paths.OutputDir)
			p.line("Ladder preset", statusInfo, cfg.Ladder.Preset)
			p.line("Parallel", statusInfo, fmt.Sprintf("%s (max %d)", yesNo(cfg.Processing.Parallel), cfg.Processing.MaxConcurrency))

			results := preflight.RunAll(cmd.Context(), cfg)
			p.section("Environment")
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				p.line(r.Name, kind, r.Detail)
			}

			if cfg.History.Enabled {
				p.section("History")
				kind, detail := ledgerStatus(cmd.Context(), cfg)
				p.line("Ledger", kind, detail)
			}
			return preflight.Err(results)
		},
	}
}

func ledgerStatus(ctx context.Context, cfg *config.Config) (statusKind, string) {
	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		return statusWarn, err.Error()
	}
	defer store.Close()
	sum, err := store.Summary(ctx)
	if err != nil {
		return statusWarn, err.Error()
	}
	return statusOK, fmt.Sprintf("%d jobs (%d succeeded, %d failed), %s written",
		sum.Total, sum.Succeeded, sum.Failed, formatBytes(sum.TotalBytes))
}
