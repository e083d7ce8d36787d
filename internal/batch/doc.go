// Package batch loads YAML job files and packages each listed input in turn.
//
// A job file names the inputs, optional per-job output locations, sidecar
// subtitles, and a small set of overrides applied on top of the TOML
// configuration. Relative paths resolve against the job file's directory.
package batch
