package playlist

import (
	"errors"
	"testing"
)

func TestParseMediaPlaylist(t *testing.T) {
	content := "#EXTM3U\r\n" +
		"#EXT-X-VERSION:3\r\n" +
		"#EXT-X-TARGETDURATION:6\r\n" +
		"#EXT-X-MEDIA-SEQUENCE:2\r\n" +
		"#EXT-X-PLAYLIST-TYPE:VOD\r\n" +
		"#EXT-X-ALLOW-CACHE:YES\r\n" +
		"#EXTINF:6.006,\r\n" +
		"segment_000.ts\r\n" +
		"# plain comment\r\n" +
		"#EXT-X-BYTERANGE:1024@0\r\n" +
		"#EXTINF:4.5,closing\r\n" +
		"segment_001.ts\r\n" +
		"#EXT-X-ENDLIST\r\n"

	p, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if p.Type != TypeMedia || p.Version != 3 || p.TargetDuration != 6 || p.MediaSequence != 2 {
		t.Fatalf("unexpected header fields: %+v", p)
	}
	if p.PlaylistType != PlaylistTypeVOD || p.AllowCache != "YES" || !p.EndList {
		t.Fatalf("unexpected media flags: %+v", p)
	}
	if len(p.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(p.Segments))
	}
	if p.Segments[0].Duration != 6.006 || p.Segments[0].URI != "segment_000.ts" {
		t.Fatalf("unexpected first segment: %+v", p.Segments[0])
	}
	second := p.Segments[1]
	if second.ByteRange != "1024@0" || second.Title != "closing" || second.URI != "segment_001.ts" {
		t.Fatalf("unexpected second segment: %+v", second)
	}
	if !p.IsComplete() {
		t.Fatal("expected complete playlist")
	}
}

func TestParseMasterPlaylist(t *testing.T) {
	content := `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-INDEPENDENT-SEGMENTS
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",LANGUAGE="en",NAME="English",DEFAULT=YES,AUTOSELECT=YES,CHANNELS="2",URI="audio/eng/audio_en.m3u8"
#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="subs",LANGUAGE="fr",NAME="Francais",DEFAULT=NO,AUTOSELECT=YES,FORCED=YES,URI="subtitles/fr.m3u8"
#EXT-X-MEDIA:TYPE=CLOSED-CAPTIONS,GROUP-ID="cc",NAME="CC1",INSTREAM-ID="CC1"
#EXT-X-STREAM-INF:BANDWIDTH=2928000,AVERAGE-BANDWIDTH=2800000,RESOLUTION=1440x810,CODECS="avc1.4d401f,mp4a.40.2",FRAME-RATE=29.970,AUDIO="audio",SUBTITLES="subs"
video/720p/quality_720p.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=528000
video/240p/quality_240p.m3u8
`
	p, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if p.Type != TypeMaster || p.Version != 4 || !p.IndependentSegments {
		t.Fatalf("unexpected master header: %+v", p)
	}
	if len(p.AudioTracks) != 1 || len(p.Subtitles) != 1 {
		t.Fatalf("expected one audio and one subtitle track, got %d/%d", len(p.AudioTracks), len(p.Subtitles))
	}
	audio := p.AudioTracks[0]
	if audio.GroupID != "audio" || !audio.Default || audio.Channels != "2" || audio.URI != "audio/eng/audio_en.m3u8" {
		t.Fatalf("unexpected audio track: %+v", audio)
	}
	if sub := p.Subtitles[0]; !sub.Forced || sub.Default || sub.Language != "fr" {
		t.Fatalf("unexpected subtitle track: %+v", sub)
	}
	if len(p.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(p.Variants))
	}
	v := p.Variants[0]
	if v.Bandwidth != 2928000 || v.AverageBandwidth != 2800000 || v.Resolution != "1440x810" {
		t.Fatalf("unexpected variant: %+v", v)
	}
	if v.Codecs != "avc1.4d401f,mp4a.40.2" || v.FrameRate != 29.97 {
		t.Fatalf("unexpected variant codecs/frame rate: %+v", v)
	}
	if v.AudioGroup != "audio" || v.SubtitleGroup != "subs" || v.URI != "video/720p/quality_720p.m3u8" {
		t.Fatalf("unexpected variant references: %+v", v)
	}
	if p.Variants[1].URI != "video/240p/quality_240p.m3u8" {
		t.Fatalf("unexpected second variant: %+v", p.Variants[1])
	}
}

func TestParseDefaultsVersionToOne(t *testing.T) {
	p, err := Parse("#EXTM3U\n#EXT-X-TARGETDURATION:6\n#EXTINF:6.0,\nseg0.ts\n")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if p.Version != 1 {
		t.Fatalf("expected default version 1, got %d", p.Version)
	}
	if p.IsComplete() {
		t.Fatal("expected in-progress playlist without ENDLIST")
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"whitespace":     "  \n\n",
		"no header":      "#EXT-X-VERSION:3\n",
		"bad duration":   "#EXTM3U\n#EXTINF:abc,\nseg.ts\n",
		"dangling uri":   "#EXTM3U\nseg.ts\n",
		"missing uri":    "#EXTM3U\n#EXTINF:4.0,\n",
		"no bandwidth":   "#EXTM3U\n#EXT-X-STREAM-INF:RESOLUTION=640x360\nlow.m3u8\n",
		"bad version":    "#EXTM3U\n#EXT-X-VERSION:x\n",
		"variant no uri": "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(content)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
		})
	}
}

func TestParseAttributesQuotedCommas(t *testing.T) {
	attrs := parseAttributes(`BANDWIDTH=800000,CODECS="avc1.42e01e,mp4a.40.2",NAME="A, B"`)
	if attrs["BANDWIDTH"] != "800000" {
		t.Fatalf("unexpected bandwidth: %q", attrs["BANDWIDTH"])
	}
	if attrs["CODECS"] != "avc1.42e01e,mp4a.40.2" {
		t.Fatalf("unexpected codecs: %q", attrs["CODECS"])
	}
	if attrs["NAME"] != "A, B" {
		t.Fatalf("unexpected name: %q", attrs["NAME"])
	}
}
