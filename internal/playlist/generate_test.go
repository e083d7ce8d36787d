package playlist

import (
	"reflect"
	"strings"
	"testing"
)

func sampleMedia() *Playlist {
	return &Playlist{
		Type:           TypeMedia,
		Version:        3,
		TargetDuration: 6,
		PlaylistType:   PlaylistTypeVOD,
		EndList:        true,
		Segments: []Segment{
			{Duration: 6, URI: "segment_000.ts"},
			{Duration: 6.006, URI: "segment_001.ts"},
			{Duration: 4.5, URI: "segment_002.ts"},
		},
	}
}

func sampleMaster() *Playlist {
	return &Playlist{
		Type:                TypeMaster,
		Version:             3,
		IndependentSegments: true,
		AudioTracks: []MediaTrack{
			{Type: MediaAudio, GroupID: "audio", Name: "English", Language: "en", Default: true, AutoSelect: true, Channels: "2", URI: "audio/eng/audio_en.m3u8"},
			{Type: MediaAudio, GroupID: "audio", Name: "Deutsch", Language: "de", AutoSelect: true, Channels: "6", URI: "audio/ger/audio_de.m3u8"},
		},
		Subtitles: []MediaTrack{
			{Type: MediaSubtitles, GroupID: "subs", Name: "English", Language: "en", AutoSelect: true, Forced: true, URI: "subtitles/eng.m3u8"},
		},
		Variants: []Variant{
			{Bandwidth: 2928000, AverageBandwidth: 2800000, Resolution: "1440x810", Codecs: "avc1.4d4028,mp4a.40.2", FrameRate: 29.97, AudioGroup: "audio", SubtitleGroup: "subs", URI: "video/720p/quality_720p.m3u8"},
			{Bandwidth: 528000, Resolution: "480x270", Codecs: "avc1.42e015,mp4a.40.2", FrameRate: 30, AudioGroup: "audio", URI: "video/240p/quality_240p.m3u8"},
		},
	}
}

func TestGenerateParseRoundTrip(t *testing.T) {
	withExtras := sampleMedia()
	withExtras.AllowCache = "NO"
	withExtras.MediaSequence = 7
	withExtras.Segments[0].ByteRange = "1024@0"
	withExtras.Segments[1].Title = "middle"

	for name, model := range map[string]*Playlist{
		"media":        sampleMedia(),
		"media extras": withExtras,
		"master":       sampleMaster(),
	} {
		t.Run(name, func(t *testing.T) {
			parsed, err := Parse(Generate(model))
			if err != nil {
				t.Fatalf("Parse(Generate()) error: %v", err)
			}
			if !reflect.DeepEqual(parsed, model) {
				t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", parsed, model)
			}
		})
	}
}

func TestGeneratedPlaylistsValidate(t *testing.T) {
	for name, model := range map[string]*Playlist{
		"media":  sampleMedia(),
		"master": sampleMaster(),
	} {
		result := Validate(Generate(model))
		if !result.Valid {
			t.Fatalf("%s: expected generated playlist to validate, got %+v", name, result.Errors)
		}
	}
}

func TestGenerateMediaComputesTargetDuration(t *testing.T) {
	model := sampleMedia()
	model.TargetDuration = 0
	model.Version = 0
	out := GenerateMedia(model)
	if !strings.HasPrefix(out, "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:7\n#EXT-X-MEDIA-SEQUENCE:0\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "#EXTINF:6.0,\nsegment_000.ts\n") {
		t.Fatalf("expected integral duration with fractional part:\n%s", out)
	}
	if !strings.HasSuffix(out, "#EXT-X-ENDLIST\n") {
		t.Fatalf("expected ENDLIST for VOD playlist:\n%s", out)
	}
}

func TestGenerateMediaOmitsEndListForEvent(t *testing.T) {
	model := sampleMedia()
	model.PlaylistType = PlaylistTypeEvent
	model.EndList = false
	if out := GenerateMedia(model); strings.Contains(out, tagEndList) {
		t.Fatalf("expected no ENDLIST for event playlist:\n%s", out)
	}
}

func TestGenerateMasterOrdering(t *testing.T) {
	out := GenerateMaster(sampleMaster())
	audio := strings.Index(out, "TYPE=AUDIO")
	subs := strings.Index(out, "TYPE=SUBTITLES")
	variant := strings.Index(out, tagStreamInf)
	if !(audio >= 0 && audio < subs && subs < variant) {
		t.Fatalf("expected audio, subtitles, then variants:\n%s", out)
	}
	if !strings.Contains(out, "FRAME-RATE=29.970,AUDIO=\"audio\",SUBTITLES=\"subs\"\nvideo/720p/quality_720p.m3u8\n") {
		t.Fatalf("expected stream-inf immediately followed by URI:\n%s", out)
	}
}

func TestGenerateSubtitle(t *testing.T) {
	out := GenerateSubtitle("eng.vtt", 5400.25)
	p, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(p.Segments) != 1 || p.Segments[0].URI != "eng.vtt" || p.Segments[0].Duration != 5400.25 {
		t.Fatalf("unexpected subtitle segments: %+v", p.Segments)
	}
	if p.TargetDuration != 5401 || !p.EndList || p.PlaylistType != PlaylistTypeVOD {
		t.Fatalf("unexpected subtitle playlist: %+v", p)
	}
	if result := Validate(out); !result.Valid {
		t.Fatalf("expected subtitle playlist to validate: %+v", result.Errors)
	}
}
