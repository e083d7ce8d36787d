package subtitles

import (
	"path/filepath"
	"strings"
)

// Format is a subtitle file format.
type Format string

const (
	FormatSRT    Format = "srt"
	FormatASS    Format = "ass"
	FormatSSA    Format = "ssa"
	FormatWebVTT Format = "webvtt"
	FormatTTML   Format = "ttml"
	FormatSUB    Format = "sub"
)

var codecFormats = map[string]Format{
	"subrip":            FormatSRT,
	"srt":               FormatSRT,
	"mov_text":          FormatSRT,
	"ass":               FormatASS,
	"ssa":               FormatSSA,
	"webvtt":            FormatWebVTT,
	"ttml":              FormatTTML,
	"dvd_subtitle":      FormatSUB,
	"hdmv_pgs_subtitle": FormatSUB,
	"dvb_subtitle":      FormatSUB,
}

var extensionFormats = map[string]Format{
	".srt":    FormatSRT,
	".ass":    FormatASS,
	".ssa":    FormatSSA,
	".vtt":    FormatWebVTT,
	".webvtt": FormatWebVTT,
	".ttml":   FormatTTML,
	".dfxp":   FormatTTML,
	".sub":    FormatSUB,
	".idx":    FormatSUB,
	".sup":    FormatSUB,
}

// FormatForCodec maps an ffprobe codec name to a format.
func FormatForCodec(codec string) (Format, bool) {
	f, ok := codecFormats[strings.ToLower(strings.TrimSpace(codec))]
	return f, ok
}

// FormatForPath sniffs the format of an external file from its extension.
func FormatForPath(path string) (Format, bool) {
	f, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// IsBitmap reports whether the format carries images rather than text.
func (f Format) IsBitmap() bool {
	return f == FormatSUB
}

// RequiresCustomRenderer reports whether players need styling-aware
// rendering rather than native HLS text tracks.
func (f Format) RequiresCustomRenderer() bool {
	switch f {
	case FormatASS, FormatSSA, FormatTTML:
		return true
	default:
		return false
	}
}

// ConvertibleToWebVTT reports whether ffmpeg can decode the format into WebVTT.
func (f Format) ConvertibleToWebVTT() bool {
	switch f {
	case FormatSRT, FormatASS, FormatSSA:
		return true
	default:
		return false
	}
}

// nativeExtension returns the file extension used when copying a stream of
// the given codec without re-encoding.
func nativeExtension(f Format, codec string) string {
	switch f {
	case FormatSRT:
		return ".srt"
	case FormatASS:
		return ".ass"
	case FormatSSA:
		return ".ssa"
	case FormatWebVTT:
		return ".vtt"
	case FormatTTML:
		return ".ttml"
	}
	if strings.EqualFold(codec, "hdmv_pgs_subtitle") {
		return ".sup"
	}
	// VobSub and DVB bitmaps have no standalone muxer; keep them in Matroska.
	return ".mks"
}
