package playlist

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups findings by the rule family that produced them.
type Category string

const (
	CategorySyntax        Category = "syntax"
	CategoryStructure     Category = "structure"
	CategoryCompatibility Category = "compatibility"
	CategoryPerformance   Category = "performance"
	CategorySummary       Category = "summary"
)

// Stable finding codes.
const (
	CodeMissingHeader          = "MISSING_HEADER"
	CodeMissingVersion         = "MISSING_VERSION"
	CodeParseFailure           = "PARSE_FAILURE"
	CodeMissingTargetDuration  = "MISSING_TARGET_DURATION"
	CodeNoSegments             = "NO_SEGMENTS"
	CodeNoVariants             = "NO_VARIANTS"
	CodeSegmentExceedsTarget   = "SEGMENT_EXCEEDS_TARGET"
	CodeNegativeMediaSequence  = "NEGATIVE_MEDIA_SEQUENCE"
	CodeUnknownAudioGroup      = "UNKNOWN_AUDIO_GROUP"
	CodeUnknownSubtitleGroup   = "UNKNOWN_SUBTITLE_GROUP"
	CodeOldVersion             = "OLD_VERSION"
	CodeInvalidCodec           = "INVALID_CODEC"
	CodeTooManySegments        = "TOO_MANY_SEGMENTS"
	CodeTooManyVariants        = "TOO_MANY_VARIANTS"
	CodeSegmentDurationOutside = "SEGMENT_DURATION_OUT_OF_RANGE"
	CodePlaylistSummary        = "PLAYLIST_SUMMARY"
)

// Performance thresholds.
const (
	MaxSegments           = 1000
	MaxVariants           = 10
	MinAvgSegmentDuration = 2.0
	MaxAvgSegmentDuration = 10.0
)

// Finding is one validation observation. Line is 1-based and zero when the
// finding is not tied to a specific line.
type Finding struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Line     int      `json:"line,omitempty"`
}

// ValidationResult collects findings by severity. Valid is true exactly when
// Errors is empty.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
	Info     []Finding `json:"info"`
}

// Has reports whether any finding carries code.
func (r ValidationResult) Has(code string) bool {
	for _, group := range [][]Finding{r.Errors, r.Warnings, r.Info} {
		for _, f := range group {
			if f.Code == code {
				return true
			}
		}
	}
	return false
}

func (r *ValidationResult) add(f Finding) {
	switch f.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, f)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, f)
	default:
		r.Info = append(r.Info, f)
	}
}

var (
	avcCodecPattern = regexp.MustCompile(`^avc1\.[0-9A-Fa-f]{6}$`)
	aacCodecPattern = regexp.MustCompile(`^mp4a\.(40\.\d{1,2}|69|6[Bb])$`)
)

// Validate checks manifest text. Syntax checks run on the raw text so that
// missing tags are reported even though the parser tolerates them.
func Validate(content string) (result ValidationResult) {
	result = ValidationResult{Errors: []Finding{}, Warnings: []Finding{}, Info: []Finding{}}
	defer func() { result.Valid = len(result.Errors) == 0 }()

	scan := scanLines(content)
	if !scan.hasHeader {
		result.add(Finding{Code: CodeMissingHeader, Message: "playlist must start with #EXTM3U", Severity: SeverityError, Category: CategorySyntax, Line: 1})
	}
	if scan.versionLine == 0 {
		result.add(Finding{Code: CodeMissingVersion, Message: "playlist has no #EXT-X-VERSION tag", Severity: SeverityError, Category: CategorySyntax})
	}
	if !scan.hasHeader {
		return result
	}

	p, err := Parse(content)
	if err != nil {
		f := Finding{Code: CodeParseFailure, Message: err.Error(), Severity: SeverityError, Category: CategorySyntax}
		if pe, ok := err.(*ParseError); ok {
			f.Line = pe.Line
		}
		result.add(f)
		return result
	}

	if p.Type == TypeMaster {
		validateMaster(p, &result)
	} else {
		validateMedia(p, scan, &result)
	}

	if scan.versionLine > 0 && p.Version < 3 {
		result.add(Finding{
			Code:     CodeOldVersion,
			Message:  fmt.Sprintf("version %d predates widely supported version 3", p.Version),
			Severity: SeverityWarning,
			Category: CategoryCompatibility,
			Line:     scan.versionLine,
		})
	}
	return result
}

func validateMedia(p *Playlist, scan lineScan, result *ValidationResult) {
	if scan.targetLine == 0 {
		result.add(Finding{Code: CodeMissingTargetDuration, Message: "media playlist has no #EXT-X-TARGETDURATION tag", Severity: SeverityError, Category: CategoryStructure})
	}
	if len(p.Segments) == 0 {
		result.add(Finding{Code: CodeNoSegments, Message: "media playlist lists no segments", Severity: SeverityError, Category: CategoryStructure})
	}
	if scan.targetLine > 0 {
		for i, seg := range p.Segments {
			if int(math.Round(seg.Duration)) <= p.TargetDuration {
				continue
			}
			f := Finding{
				Code:     CodeSegmentExceedsTarget,
				Message:  fmt.Sprintf("segment %d (%s) lasts %s s, exceeding target duration %d", i, seg.URI, formatDuration(seg.Duration), p.TargetDuration),
				Severity: SeverityError,
				Category: CategoryStructure,
			}
			if i < len(scan.extinfLines) {
				f.Line = scan.extinfLines[i]
			}
			result.add(f)
		}
	}
	if p.MediaSequence < 0 {
		result.add(Finding{
			Code:     CodeNegativeMediaSequence,
			Message:  fmt.Sprintf("media sequence %d is negative", p.MediaSequence),
			Severity: SeverityError,
			Category: CategoryStructure,
			Line:     scan.sequenceLine,
		})
	}

	if len(p.Segments) > MaxSegments {
		result.add(Finding{
			Code:     CodeTooManySegments,
			Message:  fmt.Sprintf("%d segments exceeds recommended maximum of %d", len(p.Segments), MaxSegments),
			Severity: SeverityWarning,
			Category: CategoryPerformance,
		})
	}
	total := p.TotalDuration()
	if n := len(p.Segments); n > 0 {
		avg := total / float64(n)
		if avg < MinAvgSegmentDuration || avg > MaxAvgSegmentDuration {
			result.add(Finding{
				Code:     CodeSegmentDurationOutside,
				Message:  fmt.Sprintf("average segment duration %.2f s outside recommended range [%.0f, %.0f]", avg, MinAvgSegmentDuration, MaxAvgSegmentDuration),
				Severity: SeverityWarning,
				Category: CategoryPerformance,
			})
		}
	}
	result.add(Finding{
		Code:     CodePlaylistSummary,
		Message:  fmt.Sprintf("media playlist: %d segments, %.3f s total", len(p.Segments), total),
		Severity: SeverityInfo,
		Category: CategorySummary,
	})
}

func validateMaster(p *Playlist, result *ValidationResult) {
	if len(p.Variants) == 0 {
		result.add(Finding{Code: CodeNoVariants, Message: "master playlist lists no variants", Severity: SeverityError, Category: CategoryStructure})
	}
	audioGroups := groupSet(p.AudioTracks)
	subtitleGroups := groupSet(p.Subtitles)
	for i, v := range p.Variants {
		if v.AudioGroup != "" {
			if _, ok := audioGroups[v.AudioGroup]; !ok {
				result.add(Finding{
					Code:     CodeUnknownAudioGroup,
					Message:  fmt.Sprintf("variant %d (%s) references undeclared audio group %q", i, v.URI, v.AudioGroup),
					Severity: SeverityError,
					Category: CategoryStructure,
				})
			}
		}
		if v.SubtitleGroup != "" {
			if _, ok := subtitleGroups[v.SubtitleGroup]; !ok {
				result.add(Finding{
					Code:     CodeUnknownSubtitleGroup,
					Message:  fmt.Sprintf("variant %d (%s) references undeclared subtitle group %q", i, v.URI, v.SubtitleGroup),
					Severity: SeverityError,
					Category: CategoryStructure,
				})
			}
		}
		for _, codec := range strings.Split(v.Codecs, ",") {
			codec = strings.TrimSpace(codec)
			if !validCodec(codec) {
				result.add(Finding{
					Code:     CodeInvalidCodec,
					Message:  fmt.Sprintf("variant %d (%s) has malformed codec %q", i, v.URI, codec),
					Severity: SeverityWarning,
					Category: CategoryCompatibility,
				})
			}
		}
	}
	if len(p.Variants) > MaxVariants {
		result.add(Finding{
			Code:     CodeTooManyVariants,
			Message:  fmt.Sprintf("%d variants exceeds recommended maximum of %d", len(p.Variants), MaxVariants),
			Severity: SeverityWarning,
			Category: CategoryPerformance,
		})
	}
	result.add(Finding{
		Code:     CodePlaylistSummary,
		Message:  fmt.Sprintf("master playlist: %d variants, %d audio tracks, %d subtitle tracks", len(p.Variants), len(p.AudioTracks), len(p.Subtitles)),
		Severity: SeverityInfo,
		Category: CategorySummary,
	})
}

// validCodec checks H.264 and AAC codec strings; other codec families pass.
func validCodec(codec string) bool {
	lower := strings.ToLower(codec)
	switch {
	case strings.HasPrefix(lower, "avc1"):
		return avcCodecPattern.MatchString(codec)
	case strings.HasPrefix(lower, "mp4a"):
		return aacCodecPattern.MatchString(codec)
	default:
		return true
	}
}

func groupSet(tracks []MediaTrack) map[string]struct{} {
	set := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		set[t.GroupID] = struct{}{}
	}
	return set
}

// lineScan records where key tags appear in raw text. Line numbers are
// 1-based; zero means absent.
type lineScan struct {
	hasHeader    bool
	headerLine   int
	versionLine  int
	targetLine   int
	sequenceLine int
	extinfLines  []int
	maxExtinf    float64
	sawExtinf    bool
}

func scanLines(content string) lineScan {
	var scan lineScan
	lines := splitLines(content)
	seenContent := false
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !seenContent {
			seenContent = true
			if strings.TrimPrefix(line, "\ufeff") == tagHeader {
				scan.hasHeader = true
				scan.headerLine = i + 1
				continue
			}
		}
		tag, value, _ := strings.Cut(line, ":")
		switch tag {
		case tagVersion:
			if scan.versionLine == 0 {
				scan.versionLine = i + 1
			}
		case tagTargetDuration:
			if scan.targetLine == 0 {
				scan.targetLine = i + 1
			}
		case tagMediaSequence:
			if scan.sequenceLine == 0 {
				scan.sequenceLine = i + 1
			}
		case tagInf:
			scan.extinfLines = append(scan.extinfLines, i+1)
			durText, _, _ := strings.Cut(value, ",")
			if d, err := strconv.ParseFloat(strings.TrimSpace(durText), 64); err == nil {
				scan.sawExtinf = true
				if d > scan.maxExtinf {
					scan.maxExtinf = d
				}
			}
		}
	}
	return scan
}
