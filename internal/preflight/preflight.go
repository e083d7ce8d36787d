package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hlspack/internal/config"
	"hlspack/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check that applies to cfg: the output tree, the
// state directory, the history ledger location when enabled, and the
// ffmpeg/ffprobe binaries.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckWritableTarget("Output directory", cfg.Paths.OutputDir))
	if cfg.Paths.StateDir != "" {
		results = append(results, CheckWritableTarget("State directory", cfg.Paths.StateDir))
	}
	if cfg.History.Enabled && cfg.History.Path != "" {
		results = append(results, CheckHistoryPath(cfg.History.Path))
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available}
		switch {
		case !status.Available:
			result.Detail = status.Detail
		case status.Version != "":
			result.Detail = fmt.Sprintf("%s (%s)", status.Path, status.Version)
		default:
			result.Detail = status.Path
		}
		results = append(results, result)
	}
	return results
}

// Err summarizes failed results as a configuration error, or returns nil
// when everything passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", "environment not ready",
		errors.New(strings.Join(failed, "; ")))
}
