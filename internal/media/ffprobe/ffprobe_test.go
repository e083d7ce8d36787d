package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
			{CodecType: "subtitle"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.SubtitleStreamCount() != 1 {
		t.Fatalf("expected 1 subtitle stream, got %d", result.SubtitleStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestDecodeStreams(t *testing.T) {
	payload := []byte(`{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "mjpeg", "disposition": {"attached_pic": 1}},
    {"index": 1, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001", "r_frame_rate": "30/1"},
    {"index": 2, "codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2, "bit_rate": "192000",
     "tags": {"LANGUAGE": "eng", "title": "Stereo"}, "disposition": {"default": 1}}
  ],
  "format": {"duration": "12.000", "size": "2048", "bit_rate": "1365"}
}`)
	result, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	video, ok := result.VideoStream()
	if !ok || video.Index != 1 {
		t.Fatalf("expected artwork to be skipped, got %+v", video)
	}
	if rate := video.FrameRate(); math.Abs(rate-29.97) > 0.01 {
		t.Fatalf("unexpected frame rate %v", rate)
	}
	audio := result.StreamsOfType("audio")[0]
	if audio.SampleRateHz() != 48000 || audio.BitRateBps() != 192000 || !audio.IsDefault() {
		t.Fatalf("unexpected audio helpers: %+v", audio)
	}
	if audio.Tag("language") != "eng" {
		t.Fatalf("expected case-insensitive tag lookup, got %q", audio.Tag("language"))
	}
	if len(result.RawJSON()) != len(payload) {
		t.Fatal("expected raw payload retained")
	}
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFrameRateFallback(t *testing.T) {
	if got := (Stream{RFrameRate: "25/1", AvgFrameRate: "0/0"}).FrameRate(); got != 25 {
		t.Fatalf("expected fallback to r_frame_rate, got %v", got)
	}
}
