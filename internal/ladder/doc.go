// Package ladder derives the adaptive-bitrate rendition ladder for a source.
//
// Derive is a pure function: given source dimensions and scale factors it
// returns the ordered renditions, each with even dimensions strictly smaller
// than the source, a canonical rung name, and an ffmpeg bitrate string.
package ladder
