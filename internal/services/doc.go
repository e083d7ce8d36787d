// Package services defines the shared error taxonomy and context helpers used
// by every packaging phase.
//
// Key responsibilities:
//   - Sentinel error markers (input missing, probe failure, encode failure,
//     timeout, playlist parse/validation, track extraction) plus the Wrap
//     helper that prefixes failures with phase and operation context.
//   - Kind, which maps a wrapped error back to the stable code stored in
//     processing results and the job history ledger.
//   - Context helpers that stamp job IDs, phases, and item labels so loggers
//     can tag lines without threading extra parameters.
//
// Use these helpers when wiring new phase logic so failure classification and
// observability stay uniform across the pipeline.
package services
