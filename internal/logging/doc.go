// Package logging builds the slog loggers used by hlspack.
//
// Two handlers are available: a console handler that renders one line per
// record with the component, job, and phase up front, and a JSON handler with
// short keys (ts, level, msg) for log shipping. Helpers tag loggers with a
// component name or with the job metadata carried on a context.
package logging
