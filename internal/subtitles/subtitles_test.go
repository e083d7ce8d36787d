package subtitles_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hlspack/internal/playlist"
	"hlspack/internal/services"
	"hlspack/internal/subtitles"
	"hlspack/internal/testsupport"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func subtitleProber() testsupport.FakeProber {
	forced := testsupport.SubtitleStream("subrip", "fre")
	forced.Disposition["forced"] = 1
	return testsupport.FakeProber{Result: testsupport.SourceProbe(1920, 1080, 30*time.Second,
		testsupport.AudioStream("eng", 2, true),
		testsupport.SubtitleStream("subrip", "eng"),
		forced,
		testsupport.SubtitleStream("hdmv_pgs_subtitle", "eng"),
		testsupport.SubtitleStream("mystery", "eng"),
	)}
}

func TestDetectEmbedded(t *testing.T) {
	input := writeFile(t, t.TempDir(), "movie.mkv", "source")
	ex := subtitles.NewExtractor(subtitleProber(), &testsupport.FakeFFmpeg{})

	subs, err := ex.DetectEmbedded(context.Background(), input)
	if err != nil {
		t.Fatalf("DetectEmbedded: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 subtitles (unknown codec skipped), got %d", len(subs))
	}
	if subs[0].StreamIndex != 2 || subs[0].Language != "en" || subs[0].Format != subtitles.FormatSRT {
		t.Fatalf("unexpected first subtitle: %+v", subs[0])
	}
	if !subs[1].Forced || subs[1].Language != "fr" || subs[1].Name() != "French (Forced)" {
		t.Fatalf("unexpected forced subtitle: %+v name=%s", subs[1], subs[1].Name())
	}
	if !subs[2].Format.IsBitmap() {
		t.Fatalf("expected bitmap format for pgs, got %s", subs[2].Format)
	}
}

func TestDetectEmbeddedErrors(t *testing.T) {
	ex := subtitles.NewExtractor(subtitleProber(), &testsupport.FakeFFmpeg{})
	_, err := ex.DetectEmbedded(context.Background(), filepath.Join(t.TempDir(), "missing.mkv"))
	if services.Kind(err) != "InputNotFound" {
		t.Fatalf("expected InputNotFound, got %v", err)
	}

	input := writeFile(t, t.TempDir(), "movie.mkv", "source")
	ex = subtitles.NewExtractor(testsupport.FakeProber{Err: errors.New("moov atom not found")}, &testsupport.FakeFFmpeg{})
	_, err = ex.DetectEmbedded(context.Background(), input)
	if services.Kind(err) != "ProbeFailure" {
		t.Fatalf("expected ProbeFailure, got %v", err)
	}
}

func TestExtractConvertsToWebVTT(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "movie.mkv", "source")
	ff := &testsupport.FakeFFmpeg{}
	ex := subtitles.NewExtractor(subtitleProber(), ff)

	sub := subtitles.Subtitle{StreamIndex: 2, Codec: "subrip", Format: subtitles.FormatSRT, Language: "en"}
	out, err := ex.Extract(context.Background(), input, sub, subtitles.ExtractOptions{
		OutputDir:       filepath.Join(dir, "subtitles"),
		ConvertToWebVTT: true,
		Duration:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Key != "en_2" {
		t.Fatalf("key = %s", out.Key)
	}
	if filepath.Base(out.FilePath) != "en_2.srt" || filepath.Base(out.WebVTTPath) != "en_2.vtt" {
		t.Fatalf("unexpected paths: %s %s", out.FilePath, out.WebVTTPath)
	}

	calls := ff.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected copy + convert, got %d calls", len(calls))
	}
	if !testsupport.HasArgPair(calls[0], "-map", "0:2") || !testsupport.HasArgPair(calls[0], "-c:s", "copy") {
		t.Fatalf("copy args = %v", calls[0])
	}
	if !testsupport.HasArgPair(calls[1], "-c:s", "webvtt") {
		t.Fatalf("convert args = %v", calls[1])
	}

	pl, err := playlist.ReadFile(out.PlaylistPath)
	if err != nil {
		t.Fatalf("read subtitle playlist: %v", err)
	}
	if len(pl.Segments) != 1 || pl.Segments[0].URI != "en_2.vtt" {
		t.Fatalf("unexpected subtitle playlist segments: %+v", pl.Segments)
	}
	if pl.Segments[0].Duration != 30 {
		t.Fatalf("segment duration = %v", pl.Segments[0].Duration)
	}
}

func TestExtractMovTextAndBitmap(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "movie.mp4", "source")
	ff := &testsupport.FakeFFmpeg{}
	ex := subtitles.NewExtractor(subtitleProber(), ff)
	opts := subtitles.ExtractOptions{OutputDir: filepath.Join(dir, "subtitles"), ConvertToWebVTT: true, Duration: time.Minute}

	_, err := ex.Extract(context.Background(), input, subtitles.Subtitle{StreamIndex: 3, Codec: "mov_text", Format: subtitles.FormatSRT, Language: "en"}, opts)
	if err != nil {
		t.Fatalf("Extract mov_text: %v", err)
	}
	if !testsupport.HasArgPair(ff.Calls()[0], "-c:s", "srt") {
		t.Fatalf("expected mov_text to be rewrapped as srt: %v", ff.Calls()[0])
	}

	before := len(ff.Calls())
	out, err := ex.Extract(context.Background(), input, subtitles.Subtitle{StreamIndex: 4, Codec: "hdmv_pgs_subtitle", Format: subtitles.FormatSUB, Language: "en"}, opts)
	if err != nil {
		t.Fatalf("Extract pgs: %v", err)
	}
	if len(ff.Calls())-before != 1 {
		t.Fatalf("bitmap subtitles must not be converted")
	}
	if filepath.Ext(out.FilePath) != ".sup" || out.WebVTTPath != "" || out.PlaylistPath != "" {
		t.Fatalf("unexpected bitmap outputs: %+v", out)
	}
}

func TestExtractFailureIsTrackExtraction(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "movie.mkv", "source")
	ff := &testsupport.FakeFFmpeg{Fail: func([]string) error { return errors.New("boom") }}
	ex := subtitles.NewExtractor(subtitleProber(), ff)
	_, err := ex.Extract(context.Background(), input, subtitles.Subtitle{StreamIndex: 2, Codec: "subrip", Format: subtitles.FormatSRT, Language: "en"},
		subtitles.ExtractOptions{OutputDir: filepath.Join(dir, "subtitles")})
	if !errors.Is(err, services.ErrTrackExtraction) {
		t.Fatalf("expected ErrTrackExtraction, got %v", err)
	}
}

func TestIngestExternal(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "Movie.de.srt", "1\n00:00:01,000 --> 00:00:02,000\nhallo\n")
	ff := &testsupport.FakeFFmpeg{}
	ex := subtitles.NewExtractor(subtitleProber(), ff)

	out, err := ex.IngestExternal(context.Background(), subtitles.ExternalSubtitle{Path: src, Language: "ger"}, subtitles.ExtractOptions{
		OutputDir:       filepath.Join(dir, "subtitles"),
		ConvertToWebVTT: true,
		Duration:        10 * time.Second,
	})
	if err != nil {
		t.Fatalf("IngestExternal: %v", err)
	}
	if !out.External() || out.Language != "de" || out.Format != subtitles.FormatSRT {
		t.Fatalf("unexpected subtitle: %+v", out)
	}
	if !strings.HasPrefix(out.Key, "external_") {
		t.Fatalf("key = %s", out.Key)
	}
	copied, err := os.ReadFile(out.FilePath)
	if err != nil || !strings.Contains(string(copied), "hallo") {
		t.Fatalf("copied file missing or wrong: %v", err)
	}
	if out.PlaylistPath == "" {
		t.Fatal("expected a subtitle playlist")
	}
}

func TestIngestExternalSameBasename(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	first := writeFile(t, dir, "a/movie.srt", "1\n00:00:01,000 --> 00:00:02,000\nhello\n")
	second := writeFile(t, dir, "b/movie.srt", "1\n00:00:01,000 --> 00:00:02,000\nbonjour\n")
	opts := subtitles.ExtractOptions{OutputDir: filepath.Join(dir, "subtitles"), ConvertToWebVTT: true, Duration: 10 * time.Second}

	tests := []struct {
		name string
		exts []subtitles.ExternalSubtitle
	}{
		{"different languages", []subtitles.ExternalSubtitle{{Path: first, Language: "en"}, {Path: second, Language: "fr"}}},
		{"same language", []subtitles.ExternalSubtitle{{Path: first, Language: "en"}, {Path: second, Language: "en"}}},
		{"no language", []subtitles.ExternalSubtitle{{Path: first}, {Path: second}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := subtitles.NewExtractor(subtitleProber(), &testsupport.FakeFFmpeg{})
			exts := subtitles.UniqueExternal(tt.exts)
			a, err := ex.IngestExternal(context.Background(), exts[0], opts)
			if err != nil {
				t.Fatalf("IngestExternal a: %v", err)
			}
			b, err := ex.IngestExternal(context.Background(), exts[1], opts)
			if err != nil {
				t.Fatalf("IngestExternal b: %v", err)
			}
			if a.Key == b.Key {
				t.Fatalf("keys collide: %s", a.Key)
			}
			if a.FilePath == b.FilePath || a.PlaylistPath == b.PlaylistPath || a.WebVTTPath == b.WebVTTPath {
				t.Fatalf("outputs collide: %+v / %+v", a, b)
			}
			copied, err := os.ReadFile(a.FilePath)
			if err != nil || !strings.Contains(string(copied), "hello") {
				t.Fatalf("first subtitle overwritten: %q %v", copied, err)
			}
		})
	}
}

func TestUniqueExternal(t *testing.T) {
	exts := subtitles.UniqueExternal([]subtitles.ExternalSubtitle{
		{Path: "/a/movie.srt", Language: "eng"},
		{Path: "/b/movie.srt", Language: "en"},
		{Path: "/c/movie.vtt", Language: "en"},
		{Path: "/d/movie.srt", Language: "fr"},
	})
	want := []string{"external_movie_en", "external_movie_en_2", "external_movie_en_3", "external_movie_fr"}
	for i, ext := range exts {
		if ext.Key != want[i] {
			t.Errorf("key[%d] = %s, want %s", i, ext.Key, want[i])
		}
	}
}

func TestIngestExternalWebVTTNeedsNoConversion(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "extra.vtt", "WEBVTT\n")
	ff := &testsupport.FakeFFmpeg{}
	ex := subtitles.NewExtractor(subtitleProber(), ff)

	out, err := ex.IngestExternal(context.Background(), subtitles.ExternalSubtitle{Path: src, Language: "en"},
		subtitles.ExtractOptions{OutputDir: filepath.Join(dir, "subtitles"), ConvertToWebVTT: true, Duration: time.Second})
	if err != nil {
		t.Fatalf("IngestExternal: %v", err)
	}
	if len(ff.Calls()) != 0 {
		t.Fatalf("expected no ffmpeg calls, got %v", ff.Calls())
	}
	if out.WebVTTPath != out.FilePath {
		t.Fatalf("webvtt path = %s, file = %s", out.WebVTTPath, out.FilePath)
	}
}

func TestIngestExternalMissing(t *testing.T) {
	ex := subtitles.NewExtractor(subtitleProber(), &testsupport.FakeFFmpeg{})
	_, err := ex.IngestExternal(context.Background(), subtitles.ExternalSubtitle{Path: filepath.Join(t.TempDir(), "nope.srt")},
		subtitles.ExtractOptions{OutputDir: t.TempDir()})
	if services.Kind(err) != "ExternalSubtitleMissing" {
		t.Fatalf("expected ExternalSubtitleMissing, got %v", err)
	}
}

func TestProcessCollectsItemErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "movie.mkv", "source")
	ff := &testsupport.FakeFFmpeg{Fail: func(args []string) error {
		if testsupport.HasArgPair(args, "-map", "0:3") {
			return errors.New("corrupt stream")
		}
		return nil
	}}
	ex := subtitles.NewExtractor(subtitleProber(), ff)

	res, err := ex.Process(context.Background(), input, subtitles.Config{
		ExtractOptions: subtitles.ExtractOptions{OutputDir: filepath.Join(dir, "subtitles"), ConvertToWebVTT: true, Duration: 30 * time.Second},
		External:       []subtitles.ExternalSubtitle{{Path: filepath.Join(dir, "gone.srt"), Language: "es"}},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Subtitles) != 2 {
		t.Fatalf("expected 2 subtitles, got %d", len(res.Subtitles))
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 item errors, got %d: %v", len(res.Errors), res.Errors)
	}
	if !errors.Is(res.Errors[0].Err, services.ErrTrackExtraction) {
		t.Fatalf("first error = %v", res.Errors[0].Err)
	}
	if !errors.Is(res.Errors[1].Err, services.ErrExternalSubtitleMissing) {
		t.Fatalf("second error = %v", res.Errors[1].Err)
	}
}

func TestProcessLanguageFilter(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "movie.mkv", "source")
	ex := subtitles.NewExtractor(subtitleProber(), &testsupport.FakeFFmpeg{})

	res, err := ex.Process(context.Background(), input, subtitles.Config{
		ExtractOptions: subtitles.ExtractOptions{OutputDir: filepath.Join(dir, "subtitles")},
		Languages:      []string{"fra"},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Subtitles) != 1 || res.Subtitles[0].Language != "fr" {
		t.Fatalf("unexpected selection: %+v", res.Subtitles)
	}
	if res.Errors == nil {
		t.Fatal("Errors must never be nil")
	}
}

func TestFormatHelpers(t *testing.T) {
	if f, ok := subtitles.FormatForPath("x.ASS"); !ok || f != subtitles.FormatASS || !f.RequiresCustomRenderer() {
		t.Fatalf("ass detection failed: %v %v", f, ok)
	}
	if _, ok := subtitles.FormatForCodec("nope"); ok {
		t.Fatal("unknown codec should not resolve")
	}
}
