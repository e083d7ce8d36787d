// Package preflight provides readiness checks for the external binaries and
// filesystem paths hlspack depends on.
//
// These checks run in two contexts:
//   - The CLI package and batch commands call RunAll before starting work so
//     a missing ffmpeg or read-only output tree fails fast.
//   - The CLI "hlspack status" command renders every result, including the
//     detected ffmpeg/ffprobe versions.
package preflight
