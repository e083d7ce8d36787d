// Package workflow packages one source file into an HLS tree.
//
// The Manager runs a job as three phases. The video phase derives the
// rendition ladder and segments every rendition; it is critical, so the
// first failure cancels the sibling encodes and aborts the job. The audio and
// subtitle phases process each track independently and record per-item
// failures as non-critical errors. Each phase fans out through stageexec,
// which aggregates per-item progress into a phase percentage.
//
// After the phases finish, the manager assembles master.m3u8 from whatever
// was produced, validates it, and writes it. The output base is guarded by a
// lock file so two jobs cannot package into the same tree.
package workflow
