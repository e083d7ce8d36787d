package segmenter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"hlspack/internal/encoder"
	"hlspack/internal/ladder"
	"hlspack/internal/services"
)

// fakeHLS emulates ffmpeg's HLS muxer: it writes one segment file per
// segment duration of a clip and a VOD playlist listing them.
type fakeHLS struct {
	clip     time.Duration
	progress []time.Duration
	skip     map[int]bool // segments listed in the playlist but not written
	args     []string
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func (f *fakeHLS) Run(ctx context.Context, args []string, onProgress func(encoder.Progress)) error {
	f.args = args
	segDur, err := strconv.ParseFloat(argValue(args, "-hls_time"), 64)
	if err != nil {
		return err
	}
	pattern := argValue(args, "-hls_segment_filename")
	playlistPath := args[len(args)-1]

	for _, out := range f.progress {
		if onProgress != nil {
			onProgress(encoder.Progress{OutTime: out})
		}
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:" + strconv.Itoa(int(segDur)) + "\n#EXT-X-MEDIA-SEQUENCE:0\n#EXT-X-PLAYLIST-TYPE:VOD\n")
	remaining := f.clip.Seconds()
	for i := 0; remaining > 0.001; i++ {
		d := min(segDur, remaining)
		remaining -= d
		name := fmt.Sprintf(filepath.Base(pattern), i)
		if !f.skip[i] {
			if err := os.WriteFile(filepath.Join(filepath.Dir(pattern), name), make([]byte, 188*(i+1)), 0o644); err != nil {
				return err
			}
		}
		fmt.Fprintf(&b, "#EXTINF:%.6f,\n%s\n", d, name)
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	if onProgress != nil {
		onProgress(encoder.Progress{OutTime: f.clip, Done: true})
	}
	return os.WriteFile(playlistPath, []byte(b.String()), 0o644)
}

func touchInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func testHLS(t *testing.T, name string, duration float64) HLSConfig {
	t.Helper()
	return HLSConfig{
		SegmentDuration: duration,
		SegmentPattern:  "segment_%03d.ts",
		PlaylistName:    "quality_" + name + ".m3u8",
		OutputDir:       filepath.Join(t.TempDir(), "video", name),
	}
}

func testVideo() *VideoConfig {
	v := VideoFromResolution(ladder.Resolution{Width: 1280, Height: 720, Name: "720p", Bitrate: "2800k"}, VideoDefaults{})
	return &v
}

func TestSegmentTwelveSecondsIntoFourSecondSegments(t *testing.T) {
	runner := &fakeHLS{clip: 12 * time.Second}
	engine := NewEngine(runner, WithProgressInterval(0))

	result, err := engine.Segment(context.Background(), Request{
		Input:         touchInput(t),
		HLS:           testHLS(t, "720p", 4),
		Video:         testVideo(),
		Audio:         &AudioConfig{Codec: "aac", Bitrate: "128k", StreamIndex: -1},
		TotalDuration: 12 * time.Second,
	})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if result.SegmentCount < 2 || result.SegmentCount > 4 {
		t.Fatalf("segment count = %d, want 3±1", result.SegmentCount)
	}
	if result.SegmentCount != len(result.Segments) || len(result.SegmentPaths) != result.SegmentCount {
		t.Fatalf("inconsistent result: %+v", result)
	}
	var total float64
	for _, seg := range result.Segments {
		if seg.Duration <= 3 || seg.Duration >= 5 {
			t.Errorf("segment %s duration %v outside (3,5)", seg.URI, seg.Duration)
		}
		total += seg.Duration
	}
	if total != result.Duration {
		t.Errorf("duration %v != sum %v", result.Duration, total)
	}
	if result.FileSize != 188*(1+2+3) {
		t.Errorf("file size = %d", result.FileSize)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestSegmentWarnsAboutMissingFiles(t *testing.T) {
	runner := &fakeHLS{clip: 12 * time.Second, skip: map[int]bool{0: true}}
	result, err := NewEngine(runner).Segment(context.Background(), Request{
		Input: touchInput(t),
		HLS:   testHLS(t, "480p", 4),
		Video: testVideo(),
	})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if result.SegmentCount != 2 || len(result.SegmentPaths) != 2 {
		t.Fatalf("expected 2 surviving segments, got %+v", result)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "segment_000.ts") {
		t.Fatalf("warnings = %v", result.Warnings)
	}
	if result.Duration != 8 {
		t.Fatalf("duration = %v, want 8", result.Duration)
	}
}

func TestSegmentProgressIsMonotonicAndFinalizes(t *testing.T) {
	runner := &fakeHLS{
		clip:     10 * time.Second,
		progress: []time.Duration{2 * time.Second, time.Second, 5 * time.Second, 5 * time.Second, 20 * time.Second},
	}
	updates := make(chan Update, 32)
	_, err := NewEngine(runner, WithProgressInterval(0)).Segment(context.Background(), Request{
		Input:         touchInput(t),
		Item:          "720p",
		HLS:           testHLS(t, "720p", 4),
		Video:         testVideo(),
		TotalDuration: 10 * time.Second,
		Progress:      updates,
	})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	close(updates)

	var got []Update
	for u := range updates {
		got = append(got, u)
	}
	if len(got) < 2 {
		t.Fatalf("expected several updates, got %v", got)
	}
	last := -1.0
	for _, u := range got {
		if u.Item != "720p" {
			t.Errorf("item = %q", u.Item)
		}
		if u.Percent < last || u.Percent < 0 || u.Percent > 100 {
			t.Fatalf("non-monotonic or out of range progress: %v", got)
		}
		last = u.Percent
	}
	final := got[len(got)-1]
	if final.Percent != 100 || final.Message != MessageFinalizing {
		t.Fatalf("final update = %+v", final)
	}
	wantPercents := []float64{20, 50, 100, 100}
	var percents []float64
	for _, u := range got {
		percents = append(percents, u.Percent)
	}
	if !slices.Equal(percents, wantPercents) {
		t.Fatalf("percents = %v, want %v", percents, wantPercents)
	}
}

func TestSegmentDropsIntermediateUpdatesWhenBufferFull(t *testing.T) {
	fake := &fakeHLS{clip: 4 * time.Second, progress: []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}}
	emitted := make(chan struct{})
	runner := encoder.RunnerFunc(func(ctx context.Context, args []string, onProgress func(encoder.Progress)) error {
		err := fake.Run(ctx, args, onProgress)
		close(emitted)
		return err
	})
	updates := make(chan Update, 1)
	done := make(chan error, 1)
	go func() {
		_, err := NewEngine(runner, WithProgressInterval(0)).Segment(context.Background(), Request{
			Input:         touchInput(t),
			HLS:           testHLS(t, "360p", 4),
			Video:         testVideo(),
			TotalDuration: 4 * time.Second,
			Progress:      updates,
		})
		done <- err
	}()

	<-emitted
	first := <-updates
	if first.Percent != 25 {
		t.Fatalf("first update = %+v", first)
	}
	final := <-updates
	if final.Message != MessageFinalizing {
		t.Fatalf("expected final update, got %+v", final)
	}
	if err := <-done; err != nil {
		t.Fatalf("Segment: %v", err)
	}
}

func TestSegmentAudioOnly(t *testing.T) {
	runner := &fakeHLS{clip: 6 * time.Second}
	hls := testHLS(t, "eng", 6)
	hls.PlaylistName = "audio_en.m3u8"
	result, err := NewEngine(runner).SegmentAudio(context.Background(), touchInput(t), hls,
		AudioConfig{Codec: "aac", Bitrate: "128k", SampleRate: 48000, Channels: 2, StreamIndex: 2}, 6*time.Second, nil)
	if err != nil {
		t.Fatalf("SegmentAudio: %v", err)
	}
	if result.SegmentCount != 1 {
		t.Fatalf("segment count = %d", result.SegmentCount)
	}
	if !slices.Contains(runner.args, "-vn") || argValue(runner.args, "-map") != "0:2" {
		t.Fatalf("unexpected args: %v", runner.args)
	}
	if slices.Contains(runner.args, "-c:v") {
		t.Fatalf("audio-only request encoded video: %v", runner.args)
	}
}

func TestSegmentErrors(t *testing.T) {
	input := touchInput(t)
	tests := []struct {
		name   string
		runner encoder.Runner
		req    func(t *testing.T) Request
		opts   []Option
		kind   string
	}{
		{
			name:   "missing input",
			runner: &fakeHLS{clip: time.Second},
			req: func(t *testing.T) Request {
				return Request{Input: filepath.Join(t.TempDir(), "nope.mp4"), HLS: testHLS(t, "a", 4), Video: testVideo()}
			},
			kind: "InputNotFound",
		},
		{
			name: "encoder exit",
			runner: encoder.RunnerFunc(func(context.Context, []string, func(encoder.Progress)) error {
				return &encoder.ExitError{ExitCode: 1, Stderr: "Invalid data found"}
			}),
			req: func(t *testing.T) Request {
				return Request{Input: input, HLS: testHLS(t, "a", 4), Video: testVideo()}
			},
			kind: "EncodeFailure",
		},
		{
			name: "unparseable playlist",
			runner: encoder.RunnerFunc(func(_ context.Context, args []string, _ func(encoder.Progress)) error {
				return os.WriteFile(args[len(args)-1], []byte("not a playlist"), 0o644)
			}),
			req: func(t *testing.T) Request {
				return Request{Input: input, HLS: testHLS(t, "a", 4), Video: testVideo()}
			},
			kind: "PlaylistParseError",
		},
		{
			name: "timeout",
			runner: encoder.RunnerFunc(func(ctx context.Context, _ []string, _ func(encoder.Progress)) error {
				<-ctx.Done()
				return ctx.Err()
			}),
			req: func(t *testing.T) Request {
				return Request{Input: input, HLS: testHLS(t, "a", 4), Video: testVideo()}
			},
			opts: []Option{WithTimeout(20 * time.Millisecond)},
			kind: "Timeout",
		},
		{
			name:   "invalid hls config",
			runner: &fakeHLS{clip: time.Second},
			req: func(t *testing.T) Request {
				hls := testHLS(t, "a", 4)
				hls.SegmentPattern = "segment.ts"
				return Request{Input: input, HLS: hls, Video: testVideo()}
			},
			kind: "ConfigurationError",
		},
		{
			name:   "no streams requested",
			runner: &fakeHLS{clip: time.Second},
			req: func(t *testing.T) Request {
				return Request{Input: input, HLS: testHLS(t, "a", 4)}
			},
			kind: "ConfigurationError",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.runner, tt.opts...).Segment(context.Background(), tt.req(t))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := services.Kind(err); got != tt.kind {
				t.Fatalf("Kind = %s, want %s (err=%v)", got, tt.kind, err)
			}
		})
	}
}

func TestSegmentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := encoder.RunnerFunc(func(ctx context.Context, _ []string, _ func(encoder.Progress)) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	_, err := NewEngine(runner).Segment(ctx, Request{Input: touchInput(t), HLS: testHLS(t, "a", 4), Video: testVideo()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if services.Kind(err) != "Canceled" {
		t.Fatalf("Kind = %s", services.Kind(err))
	}
}
