// Package audio detects, selects, and packages the audio tracks of a source
// file.
//
// Each selected track is extracted and transcoded to its own file under
// <out>/audio/<key>/ and, when segmentation is enabled, packaged into an
// audio-only HLS rendition by the segmenter. Tracks are independent: one
// track failing is reported in Result.Errors and never stops its siblings.
package audio
