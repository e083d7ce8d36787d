// Package subtitles extracts embedded subtitle streams and ingests external
// subtitle files for HLS packaging.
//
// Streams are always copied in their native format; nothing here re-encodes
// audio or video. Text formats can additionally be converted to WebVTT and
// wrapped in a single-segment subtitle playlist. Bitmap formats (PGS, VobSub,
// DVB) are kept as opaque files and never converted. Each item is processed
// independently and failures are reported per item.
package subtitles
