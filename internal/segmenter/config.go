package segmenter

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"hlspack/internal/ladder"
)

// H.264 profiles chosen by rendition height.
const (
	ProfileHigh     = "high"
	ProfileMain     = "main"
	ProfileBaseline = "baseline"
)

// AACCodec is the RFC 6381 identifier for AAC-LC.
const AACCodec = "mp4a.40.2"

// DefaultGOPSize is the keyframe interval in frames (two seconds at 30 fps).
const DefaultGOPSize = 60

var segmentPatternDirective = regexp.MustCompile(`%0?\d*d`)

// VideoConfig is the closed set of video encode parameters for one rendition.
type VideoConfig struct {
	Codec       string
	Preset      string
	Profile     string
	Level       string
	Width       int
	Height      int
	Bitrate     string
	MaxRate     string
	BufSize     string
	GOPSize     int
	BFrames     int
	PixelFormat string
	FrameRate   float64
}

// VideoDefaults carries the encoder-wide settings a rendition inherits.
type VideoDefaults struct {
	Codec       string
	Preset      string
	PixelFormat string
	FrameRate   float64
	GOPSize     int
}

// VideoFromResolution derives encode parameters for res. Maxrate is 1.07x and
// the VBV buffer 1.5x the target bitrate.
func VideoFromResolution(res ladder.Resolution, defaults VideoDefaults) VideoConfig {
	cfg := VideoConfig{
		Codec:       firstNonEmpty(defaults.Codec, "libx264"),
		Preset:      firstNonEmpty(defaults.Preset, "medium"),
		Profile:     ProfileForHeight(res.Height),
		Level:       LevelForHeight(res.Height),
		Width:       res.Width,
		Height:      res.Height,
		Bitrate:     res.Bitrate,
		GOPSize:     defaults.GOPSize,
		PixelFormat: firstNonEmpty(defaults.PixelFormat, "yuv420p"),
		FrameRate:   defaults.FrameRate,
	}
	if cfg.GOPSize <= 0 {
		cfg.GOPSize = DefaultGOPSize
	}
	if cfg.Profile != ProfileBaseline {
		cfg.BFrames = 3
	}
	if kbps := ladder.ParseBitrateKbps(res.Bitrate); kbps > 0 {
		cfg.MaxRate = strconv.Itoa(int(math.Round(float64(kbps)*1.07))) + "k"
		cfg.BufSize = strconv.Itoa(int(math.Round(float64(kbps)*1.5))) + "k"
	}
	return cfg
}

// ProfileForHeight returns high for 1080 lines and up, main from 720, else baseline.
func ProfileForHeight(height int) string {
	switch {
	case height >= 1080:
		return ProfileHigh
	case height >= 720:
		return ProfileMain
	default:
		return ProfileBaseline
	}
}

// LevelForHeight returns the H.264 level needed for a rendition of the given height.
func LevelForHeight(height int) string {
	switch {
	case height >= 2160:
		return "5.1"
	case height >= 1440:
		return "5.0"
	case height >= 1080:
		return "4.1"
	case height >= 720:
		return "3.1"
	default:
		return "3.0"
	}
}

// Codecs returns the RFC 6381 codec identifier for the configured profile and
// level, e.g. "avc1.64001f".
func (v VideoConfig) Codecs() string {
	var prefix string
	switch v.Profile {
	case ProfileHigh:
		prefix = "6400"
	case ProfileMain:
		prefix = "4d40"
	default:
		prefix = "42e0"
	}
	level := 30
	if major, minor, ok := strings.Cut(v.Level, "."); ok {
		m, _ := strconv.Atoi(major)
		n, _ := strconv.Atoi(minor)
		level = m*10 + n
	} else if m, err := strconv.Atoi(v.Level); err == nil {
		level = m * 10
	}
	return fmt.Sprintf("avc1.%s%02x", prefix, level)
}

// IsH264Encoder reports whether codec names an ffmpeg H.264 encoder, the
// only family Codecs can describe.
func IsH264Encoder(codec string) bool {
	codec = strings.ToLower(strings.TrimSpace(codec))
	return codec == "libx264" || codec == "h264" || strings.HasPrefix(codec, "h264_")
}

// IsAACEncoder reports whether codec names an ffmpeg AAC encoder.
func IsAACEncoder(codec string) bool {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "aac", "libfdk_aac", "aac_at":
		return true
	}
	return false
}

// SourceAudioCodecs maps an ffprobe audio codec name to its RFC 6381
// identifier. Unknown codecs yield "".
func SourceAudioCodecs(codecName string) string {
	switch strings.ToLower(strings.TrimSpace(codecName)) {
	case "aac":
		return AACCodec
	case "mp3":
		return "mp4a.40.34"
	case "ac3":
		return "ac-3"
	case "eac3":
		return "ec-3"
	case "opus":
		return "Opus"
	case "flac":
		return "fLaC"
	case "alac":
		return "alac"
	}
	return ""
}

// Validate reports the first invalid field.
func (v VideoConfig) Validate() error {
	switch {
	case strings.TrimSpace(v.Codec) == "":
		return errors.New("video codec is required")
	case !IsH264Encoder(v.Codec):
		return fmt.Errorf("video codec %q is not an H.264 encoder", v.Codec)
	case v.Width <= 0 || v.Height <= 0:
		return fmt.Errorf("video dimensions must be positive (got %dx%d)", v.Width, v.Height)
	case v.Width%2 != 0 || v.Height%2 != 0:
		return fmt.Errorf("video dimensions must be even (got %dx%d)", v.Width, v.Height)
	case v.GOPSize <= 0:
		return errors.New("gop size must be positive")
	case v.BFrames < 0:
		return errors.New("b-frames must not be negative")
	case v.FrameRate < 0:
		return errors.New("frame rate must not be negative")
	}
	if ladder.ParseBitrateKbps(v.Bitrate) <= 0 {
		return fmt.Errorf("invalid video bitrate %q", v.Bitrate)
	}
	switch v.Profile {
	case ProfileHigh, ProfileMain, ProfileBaseline:
	default:
		return fmt.Errorf("unsupported profile %q", v.Profile)
	}
	return nil
}

// AudioConfig is the closed set of audio encode parameters for one output.
// StreamIndex is the absolute input stream index; negative means let ffmpeg
// pick the first audio stream.
type AudioConfig struct {
	Codec       string
	Bitrate     string
	SampleRate  int
	Channels    int
	StreamIndex int
}

// Validate reports the first invalid field.
func (a AudioConfig) Validate() error {
	switch {
	case strings.TrimSpace(a.Codec) == "":
		return errors.New("audio codec is required")
	case a.Codec != "copy" && !IsAACEncoder(a.Codec):
		return fmt.Errorf("audio codec %q must be an AAC encoder or copy", a.Codec)
	case a.SampleRate < 0:
		return errors.New("sample rate must not be negative")
	case a.Channels < 0:
		return errors.New("channel count must not be negative")
	}
	if a.Codec != "copy" {
		if ladder.ParseBitrateKbps(a.Bitrate) <= 0 {
			return fmt.Errorf("invalid audio bitrate %q", a.Bitrate)
		}
	}
	return nil
}

// Codecs returns the RFC 6381 identifier of the audio this config produces.
// A copy takes sourceCodec, the ffprobe name of the input stream.
func (a AudioConfig) Codecs(sourceCodec string) string {
	if a.Codec == "copy" {
		return SourceAudioCodecs(sourceCodec)
	}
	return AACCodec
}

// BitsPerSecond returns the configured audio bitrate in bits per second.
func (a AudioConfig) BitsPerSecond() int {
	return ladder.ParseBitrateKbps(a.Bitrate) * 1000
}

// HLSConfig describes one HLS output: where the playlist and its segments go
// and how ffmpeg should cut them.
type HLSConfig struct {
	SegmentDuration float64
	SegmentPattern  string
	PlaylistName    string
	OutputDir       string
	Flags           []string
	PlaylistType    string
}

// Validate rejects non-positive durations, empty names, and segment patterns
// without a %d directive.
func (h HLSConfig) Validate() error {
	switch {
	case h.SegmentDuration <= 0 || math.IsNaN(h.SegmentDuration) || math.IsInf(h.SegmentDuration, 0):
		return fmt.Errorf("segment duration must be positive (got %v)", h.SegmentDuration)
	case strings.TrimSpace(h.PlaylistName) == "":
		return errors.New("playlist name is required")
	case strings.TrimSpace(h.OutputDir) == "":
		return errors.New("output directory is required")
	case strings.TrimSpace(h.SegmentPattern) == "":
		return errors.New("segment pattern is required")
	case !segmentPatternDirective.MatchString(h.SegmentPattern):
		return fmt.Errorf("segment pattern %q must contain a %%d directive", h.SegmentPattern)
	}
	switch strings.ToLower(h.PlaylistType) {
	case "", "vod", "event":
	default:
		return fmt.Errorf("unsupported playlist type %q", h.PlaylistType)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
