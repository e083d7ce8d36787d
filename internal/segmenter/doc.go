// Package segmenter encodes one rendition or one audio track into fixed-length
// HLS segments plus a variant playlist.
//
// The Engine drives ffmpeg's HLS muxer through an encoder.Runner. After the
// process exits it re-reads the produced playlist to recover the authoritative
// segment list, drops entries whose files no longer exist (recording a
// warning for each), and reports throttled, monotonic progress on a
// caller-owned channel.
package segmenter
