package segmenter

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultFlags are passed to -hls_flags when HLSConfig.Flags is nil.
var DefaultFlags = []string{"delete_segments"}

// BuildArgs returns the ffmpeg arguments for req, excluding the global
// options the encoder runner adds itself.
func BuildArgs(req Request) []string {
	args := []string{"-y"}
	if req.StartTime > 0 {
		args = append(args, "-ss", formatSeconds(req.StartTime))
	}
	args = append(args, "-i", req.Input)
	if req.Duration > 0 {
		args = append(args, "-t", formatSeconds(req.Duration))
	}

	if v := req.Video; v != nil {
		args = append(args, "-map", "0:v:0")
		if req.Audio != nil {
			args = append(args, "-map", audioMap(*req.Audio))
		}
		args = append(args, videoArgs(*v)...)
	} else {
		args = append(args, "-vn", "-map", audioMap(*req.Audio))
	}
	if a := req.Audio; a != nil {
		args = append(args, audioArgs(*a)...)
	} else {
		args = append(args, "-an")
	}
	args = append(args, "-sn", "-dn")

	return append(args, hlsArgs(req.HLS)...)
}

func videoArgs(v VideoConfig) []string {
	gop := strconv.Itoa(v.GOPSize)
	args := []string{
		"-c:v", v.Codec,
		"-vf", "scale=" + strconv.Itoa(v.Width) + ":" + strconv.Itoa(v.Height),
	}
	if v.Preset != "" {
		args = append(args, "-preset", v.Preset)
	}
	if v.Profile != "" {
		args = append(args, "-profile:v", v.Profile)
	}
	if v.Level != "" {
		args = append(args, "-level:v", v.Level)
	}
	args = append(args, "-b:v", v.Bitrate)
	if v.MaxRate != "" {
		args = append(args, "-maxrate", v.MaxRate)
	}
	if v.BufSize != "" {
		args = append(args, "-bufsize", v.BufSize)
	}
	args = append(args,
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-bf", strconv.Itoa(v.BFrames),
	)
	if v.PixelFormat != "" {
		args = append(args, "-pix_fmt", v.PixelFormat)
	}
	if v.FrameRate > 0 {
		args = append(args, "-r", strconv.FormatFloat(v.FrameRate, 'f', -1, 64))
	}
	return args
}

func audioArgs(a AudioConfig) []string {
	args := []string{"-c:a", a.Codec}
	if a.Codec == "copy" {
		return args
	}
	if a.Bitrate != "" {
		args = append(args, "-b:a", a.Bitrate)
	}
	if a.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(a.SampleRate))
	}
	if a.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(a.Channels))
	}
	return args
}

func audioMap(a AudioConfig) string {
	if a.StreamIndex >= 0 {
		return "0:" + strconv.Itoa(a.StreamIndex)
	}
	return "0:a:0?"
}

func hlsArgs(h HLSConfig) []string {
	playlistType := strings.ToLower(strings.TrimSpace(h.PlaylistType))
	if playlistType == "" {
		playlistType = "vod"
	}
	flags := h.Flags
	if flags == nil {
		flags = DefaultFlags
	}
	args := []string{
		"-f", "hls",
		"-hls_time", strconv.FormatFloat(h.SegmentDuration, 'f', -1, 64),
		"-hls_list_size", "0",
		"-hls_segment_type", "mpegts",
		"-hls_playlist_type", playlistType,
	}
	if len(flags) > 0 {
		args = append(args, "-hls_flags", strings.Join(flags, "+"))
	}
	return append(args,
		"-hls_segment_filename", filepath.Join(h.OutputDir, h.SegmentPattern),
		filepath.Join(h.OutputDir, h.PlaylistName),
	)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
