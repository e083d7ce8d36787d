// Package config loads, normalizes, and validates hlspack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// HLSPACK_FFMPEG and HLSPACK_OUTPUT_DIR. The Config type centralizes every
// knob the packager needs: encoder binaries, ladder shape, encode and HLS
// parameters, track handling, concurrency, logging, and the history ledger.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
