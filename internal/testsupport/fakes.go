package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"hlspack/internal/encoder"
	"hlspack/internal/media/ffprobe"
)

// FakeProber returns a canned probe result.
type FakeProber struct {
	Result ffprobe.Result
	Err    error
}

// Probe implements ffprobe.Prober.
func (p FakeProber) Probe(ctx context.Context, _ string) (ffprobe.Result, error) {
	if err := ctx.Err(); err != nil {
		return ffprobe.Result{}, err
	}
	return p.Result, p.Err
}

// SourceProbe builds a probe result for a video with the given dimensions,
// duration, and audio/subtitle streams appended in order.
func SourceProbe(width, height int, duration time.Duration, extra ...ffprobe.Stream) ffprobe.Result {
	streams := []ffprobe.Stream{{
		Index:        0,
		CodecType:    "video",
		CodecName:    "h264",
		Width:        width,
		Height:       height,
		AvgFrameRate: "30/1",
	}}
	for i, stream := range extra {
		stream.Index = i + 1
		streams = append(streams, stream)
	}
	return ffprobe.Result{
		Streams: streams,
		Format: ffprobe.Format{
			Duration:  strconv.FormatFloat(duration.Seconds(), 'f', 3, 64),
			NBStreams: len(streams),
		},
	}
}

// AudioStream builds an audio stream description.
func AudioStream(lang string, channels int, isDefault bool) ffprobe.Stream {
	disposition := map[string]int{"default": 0}
	if isDefault {
		disposition["default"] = 1
	}
	return ffprobe.Stream{
		CodecType:   "audio",
		CodecName:   "ac3",
		SampleRate:  "48000",
		Channels:    channels,
		Tags:        map[string]string{"language": lang},
		Disposition: disposition,
	}
}

// SubtitleStream builds a subtitle stream description.
func SubtitleStream(codec, lang string) ffprobe.Stream {
	return ffprobe.Stream{
		CodecType:   "subtitle",
		CodecName:   codec,
		Tags:        map[string]string{"language": lang},
		Disposition: map[string]int{},
	}
}

// FakeFFmpeg emulates the ffmpeg invocations hlspack issues. HLS outputs get
// one segment file per segment duration plus a VOD playlist; every other
// output gets a small placeholder file.
type FakeFFmpeg struct {
	// Clip is the media length used for progress and segment durations.
	Clip time.Duration
	// Fail, when set, can reject an invocation before any output is written.
	Fail func(args []string) error

	mu    sync.Mutex
	calls [][]string
}

// Calls returns a copy of every argument list received.
func (f *FakeFFmpeg) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	for i, call := range f.calls {
		out[i] = slices.Clone(call)
	}
	return out
}

// Run implements encoder.Runner.
func (f *FakeFFmpeg) Run(ctx context.Context, args []string, onProgress func(encoder.Progress)) error {
	f.mu.Lock()
	f.calls = append(f.calls, slices.Clone(args))
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Fail != nil {
		if err := f.Fail(args); err != nil {
			return err
		}
	}
	if len(args) == 0 {
		return &encoder.ExitError{ExitCode: 1, Stderr: "no output file specified"}
	}
	clip := f.Clip
	if clip <= 0 {
		clip = 10 * time.Second
	}
	if onProgress != nil {
		onProgress(encoder.Progress{OutTime: clip / 2})
	}

	output := args[len(args)-1]
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	var err error
	if ArgValue(args, "-f") == "hls" {
		err = writeHLS(args, output, clip)
	} else {
		err = os.WriteFile(output, placeholder(output), 0o644)
	}
	if err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(encoder.Progress{OutTime: clip, Done: true})
	}
	return nil
}

// ArgValue returns the value following flag in args, or "".
func ArgValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// HasArgPair reports whether flag is immediately followed by value in args.
func HasArgPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func writeHLS(args []string, playlistPath string, clip time.Duration) error {
	segDur, err := strconv.ParseFloat(ArgValue(args, "-hls_time"), 64)
	if err != nil || segDur <= 0 {
		return &encoder.ExitError{ExitCode: 1, Stderr: "invalid -hls_time"}
	}
	pattern := ArgValue(args, "-hls_segment_filename")
	var b strings.Builder
	fmt.Fprintf(&b, "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:%d\n#EXT-X-MEDIA-SEQUENCE:0\n#EXT-X-PLAYLIST-TYPE:VOD\n", int(segDur+0.999))
	remaining := clip.Seconds()
	for i := 0; remaining > 0.001; i++ {
		d := min(segDur, remaining)
		remaining -= d
		name := fmt.Sprintf(filepath.Base(pattern), i)
		if err := os.WriteFile(filepath.Join(filepath.Dir(pattern), name), make([]byte, 188*10), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(&b, "#EXTINF:%.6f,\n%s\n", d, name)
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	return os.WriteFile(playlistPath, []byte(b.String()), 0o644)
}

func placeholder(path string) []byte {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt":
		return []byte("WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nhello\n")
	case ".srt":
		return []byte("1\n00:00:01,000 --> 00:00:02,000\nhello\n")
	default:
		return []byte("fake media payload")
	}
}
