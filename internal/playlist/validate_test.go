package playlist

import (
	"fmt"
	"strings"
	"testing"
)

func codes(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Code)
	}
	return out
}

func TestValidateMissingVersion(t *testing.T) {
	result := Validate("#EXTM3U\n#EXT-X-TARGETDURATION:6\n#EXTINF:6.0,\nseg0.ts\n#EXT-X-ENDLIST")
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if got := codes(result.Errors); len(got) != 1 || got[0] != CodeMissingVersion {
		t.Fatalf("expected only MISSING_VERSION, got %v", got)
	}
	if !result.Has(CodePlaylistSummary) {
		t.Fatalf("expected summary info, got %+v", result.Info)
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		code     string
		severity Severity
	}{
		{"missing header", "#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n", CodeMissingHeader, SeverityError},
		{"parse failure", "#EXTM3U\n#EXT-X-VERSION:3\n#EXTINF:oops,\nseg.ts\n", CodeParseFailure, SeverityError},
		{"missing target", "#EXTM3U\n#EXT-X-VERSION:3\n#EXTINF:4.0,\nseg.ts\n", CodeMissingTargetDuration, SeverityError},
		{"no segments", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXT-X-ENDLIST\n", CodeNoSegments, SeverityError},
		{"exceeds target", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXTINF:4.6,\nseg.ts\n", CodeSegmentExceedsTarget, SeverityError},
		{"negative sequence", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXT-X-MEDIA-SEQUENCE:-1\n#EXTINF:4.0,\nseg.ts\n", CodeNegativeMediaSequence, SeverityError},
		{"unknown audio group", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-STREAM-INF:BANDWIDTH=1000,AUDIO=\"aac\"\nlow.m3u8\n", CodeUnknownAudioGroup, SeverityError},
		{"unknown subtitle group", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-STREAM-INF:BANDWIDTH=1000,SUBTITLES=\"subs\"\nlow.m3u8\n", CodeUnknownSubtitleGroup, SeverityError},
		{"valid master", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-STREAM-INF:BANDWIDTH=1000\nlow.m3u8\n", "", ""},
		{"no variants", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"audio\",NAME=\"English\",URI=\"a.m3u8\"\n", CodeNoVariants, SeverityError},
		{"old version", "#EXTM3U\n#EXT-X-VERSION:2\n#EXT-X-TARGETDURATION:4\n#EXTINF:4.0,\nseg.ts\n", CodeOldVersion, SeverityWarning},
		{"invalid codec", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-STREAM-INF:BANDWIDTH=1000,CODECS=\"avc1.64001,mp4a.40.2\"\nlow.m3u8\n", CodeInvalidCodec, SeverityWarning},
		{"short segments", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:1\n#EXTINF:1.0,\na.ts\n#EXTINF:1.0,\nb.ts\n", CodeSegmentDurationOutside, SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.content)
			if tt.code == "" {
				if !result.Valid {
					t.Fatalf("expected valid, got %v", codes(result.Errors))
				}
				return
			}
			var bucket []Finding
			switch tt.severity {
			case SeverityError:
				bucket = result.Errors
				if result.Valid {
					t.Fatal("expected invalid result")
				}
			case SeverityWarning:
				bucket = result.Warnings
				if !result.Valid {
					t.Fatalf("warnings should not invalidate, got errors %v", codes(result.Errors))
				}
			}
			found := false
			for _, f := range bucket {
				if f.Code == tt.code {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %s in %s findings, got errors=%v warnings=%v", tt.code, tt.severity, codes(result.Errors), codes(result.Warnings))
			}
		})
	}
}

func TestValidateSegmentExceedsUsesRounding(t *testing.T) {
	result := Validate("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXTINF:4.4,\nseg.ts\n#EXTINF:4.0,\nseg2.ts\n")
	if !result.Valid {
		t.Fatalf("expected 4.4s segment to fit target 4, got %v", codes(result.Errors))
	}
}

func TestValidateReportsLineNumbers(t *testing.T) {
	result := Validate("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXTINF:4.0,\na.ts\n#EXTINF:9.0,\nb.ts\n")
	if len(result.Errors) != 1 || result.Errors[0].Line != 6 {
		t.Fatalf("expected exceeds finding on line 6, got %+v", result.Errors)
	}
}

func TestValidatePerformanceLimits(t *testing.T) {
	var media strings.Builder
	media.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n")
	for i := 0; i <= MaxSegments; i++ {
		fmt.Fprintf(&media, "#EXTINF:4.0,\nseg%d.ts\n", i)
	}
	if result := Validate(media.String()); !result.Has(CodeTooManySegments) || !result.Valid {
		t.Fatalf("expected TOO_MANY_SEGMENTS warning, got %+v", result.Warnings)
	}

	var master strings.Builder
	master.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	for i := 0; i <= MaxVariants; i++ {
		fmt.Fprintf(&master, "#EXT-X-STREAM-INF:BANDWIDTH=%d\nv%d.m3u8\n", 100000*(i+1), i)
	}
	if result := Validate(master.String()); !result.Has(CodeTooManyVariants) || !result.Valid {
		t.Fatalf("expected TOO_MANY_VARIANTS warning, got %+v", result.Warnings)
	}
}

func TestValidateEmptyInput(t *testing.T) {
	result := Validate("")
	if result.Valid || !result.Has(CodeMissingHeader) || !result.Has(CodeMissingVersion) {
		t.Fatalf("expected header and version errors, got %v", codes(result.Errors))
	}
	if result.Errors == nil || result.Warnings == nil || result.Info == nil {
		t.Fatal("expected non-nil finding slices")
	}
}
