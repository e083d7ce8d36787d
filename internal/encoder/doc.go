// Package encoder runs ffmpeg and streams its progress.
//
// The Runner contract is the only way the rest of hlspack spawns the
// encoder: callers hand over an argument list and an optional progress
// callback and get back nil or an *ExitError. The FFmpeg implementation
// requests machine-readable progress on stdout (-progress pipe:1), keeps a
// bounded tail of stderr for diagnostics, and runs each process in its own
// process group so cancelling the context terminates ffmpeg together with
// any helpers it spawned.
package encoder
