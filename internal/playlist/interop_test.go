package playlist

import (
	"math"
	"strings"
	"testing"

	"github.com/grafov/m3u8"
)

func TestGeneratedMediaDecodesWithM3U8(t *testing.T) {
	decoded, listType, err := m3u8.DecodeFrom(strings.NewReader(Generate(sampleMedia())), true)
	if err != nil {
		t.Fatalf("m3u8 decode failed: %v", err)
	}
	if listType != m3u8.MEDIA {
		t.Fatalf("expected media playlist, got %v", listType)
	}
	media := decoded.(*m3u8.MediaPlaylist)
	if media.Count() != 3 {
		t.Fatalf("expected 3 segments, got %d", media.Count())
	}
	if !media.Closed {
		t.Fatal("expected ENDLIST to be recognized")
	}
	for i, want := range sampleMedia().Segments {
		seg := media.Segments[i]
		if seg.URI != want.URI || math.Abs(seg.Duration-want.Duration) > 1e-9 {
			t.Fatalf("segment %d = %s/%f, want %s/%f", i, seg.URI, seg.Duration, want.URI, want.Duration)
		}
	}
}

func TestGeneratedMasterDecodesWithM3U8(t *testing.T) {
	decoded, listType, err := m3u8.DecodeFrom(strings.NewReader(Generate(sampleMaster())), false)
	if err != nil {
		t.Fatalf("m3u8 decode failed: %v", err)
	}
	if listType != m3u8.MASTER {
		t.Fatalf("expected master playlist, got %v", listType)
	}
	master := decoded.(*m3u8.MasterPlaylist)
	if len(master.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(master.Variants))
	}
	first := master.Variants[0]
	if first.URI != "video/720p/quality_720p.m3u8" || first.Bandwidth != 2928000 {
		t.Fatalf("unexpected first variant: %s %d", first.URI, first.Bandwidth)
	}
	if first.Audio != "audio" || first.Resolution != "1440x810" {
		t.Fatalf("unexpected variant params: audio=%q resolution=%q", first.Audio, first.Resolution)
	}
}
