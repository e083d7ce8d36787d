package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"hlspack/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrEncodeFailure, "video", "segment", "ffmpeg exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEncodeFailure) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"video", "segment", "ffmpeg exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrInputNotFound, "video", "stat", "", nil), "InputNotFound"},
		{services.Wrap(services.ErrProbeFailure, "video", "probe", "", nil), "ProbeFailure"},
		{services.Wrap(services.ErrTimeout, "video", "segment", "", context.DeadlineExceeded), "Timeout"},
		{services.Wrap(services.ErrEncodeFailure, "video", "segment", "", nil), "EncodeFailure"},
		{services.Wrap(services.ErrPlaylistParse, "video", "collect", "", nil), "PlaylistParseError"},
		{services.Wrap(services.ErrPlaylistValidation, "master", "validate", "", nil), "PlaylistValidationError"},
		{services.Wrap(services.ErrTrackExtraction, "audio", "extract", "", nil), "TrackExtractionError"},
		{services.Wrap(services.ErrExternalSubtitleMissing, "subtitles", "ingest", "", nil), "ExternalSubtitleMissing"},
		{services.Wrap(services.ErrTrackExtraction, "audio", "segment", "en_1",
			services.Wrap(services.ErrEncodeFailure, "segment", "run encoder", "", nil)), "TrackExtractionError"},
		{fmt.Errorf("stopped: %w", context.Canceled), "Canceled"},
		{errors.New("other"), "Unknown"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWrapWithoutMarkerDefaultsToEncodeFailure(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrEncodeFailure) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}
