package playlist

import (
	"strconv"
	"strings"
)

const (
	tagHeader          = "#EXTM3U"
	tagVersion         = "#EXT-X-VERSION"
	tagTargetDuration  = "#EXT-X-TARGETDURATION"
	tagMediaSequence   = "#EXT-X-MEDIA-SEQUENCE"
	tagPlaylistType    = "#EXT-X-PLAYLIST-TYPE"
	tagAllowCache      = "#EXT-X-ALLOW-CACHE"
	tagEndList         = "#EXT-X-ENDLIST"
	tagInf             = "#EXTINF"
	tagByteRange       = "#EXT-X-BYTERANGE"
	tagStreamInf       = "#EXT-X-STREAM-INF"
	tagMedia           = "#EXT-X-MEDIA"
	tagIndependentSegs = "#EXT-X-INDEPENDENT-SEGMENTS"
)

// Parse converts manifest text into a Playlist. It rejects empty input and
// input that does not start with #EXTM3U. A playlist containing any
// EXT-X-STREAM-INF or EXT-X-MEDIA tag is a master playlist; everything else
// is a media playlist. The version defaults to 1 when absent.
func Parse(content string) (*Playlist, error) {
	lines := splitLines(content)
	first := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, &ParseError{Reason: "empty playlist"}
	}
	if strings.TrimSpace(strings.TrimPrefix(lines[first], "\ufeff")) != tagHeader {
		return nil, &ParseError{Line: first + 1, Reason: "missing #EXTM3U header"}
	}

	p := &Playlist{Type: detectType(lines), Version: 1}

	var (
		pendingSegment   *Segment
		pendingByteRange string
		pendingVariant   *Variant
	)

	for i := first + 1; i < len(lines); i++ {
		lineNo := i + 1
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			switch {
			case pendingVariant != nil:
				pendingVariant.URI = line
				p.Variants = append(p.Variants, *pendingVariant)
				pendingVariant = nil
			case pendingSegment != nil:
				pendingSegment.URI = line
				if pendingSegment.ByteRange == "" {
					pendingSegment.ByteRange = pendingByteRange
				}
				p.Segments = append(p.Segments, *pendingSegment)
				pendingSegment = nil
				pendingByteRange = ""
			default:
				return nil, &ParseError{Line: lineNo, Reason: "URI line without preceding EXTINF or EXT-X-STREAM-INF"}
			}
			continue
		}
		if !strings.HasPrefix(line, "#EXT") {
			continue
		}

		tag, value, _ := strings.Cut(line, ":")
		switch tag {
		case tagVersion:
			v, ok := atoi(value)
			if !ok {
				return nil, &ParseError{Line: lineNo, Reason: "invalid EXT-X-VERSION value"}
			}
			p.Version = v
		case tagTargetDuration:
			v, ok := atoi(value)
			if !ok {
				return nil, &ParseError{Line: lineNo, Reason: "invalid EXT-X-TARGETDURATION value"}
			}
			p.TargetDuration = v
		case tagMediaSequence:
			v, ok := atoi(value)
			if !ok {
				return nil, &ParseError{Line: lineNo, Reason: "invalid EXT-X-MEDIA-SEQUENCE value"}
			}
			p.MediaSequence = v
		case tagPlaylistType:
			p.PlaylistType = strings.ToUpper(strings.TrimSpace(value))
		case tagAllowCache:
			p.AllowCache = strings.ToUpper(strings.TrimSpace(value))
		case tagEndList:
			p.EndList = true
		case tagIndependentSegs:
			p.IndependentSegments = true
		case tagByteRange:
			br := strings.TrimSpace(value)
			if pendingSegment != nil {
				pendingSegment.ByteRange = br
			} else {
				pendingByteRange = br
			}
		case tagInf:
			durText, title, _ := strings.Cut(value, ",")
			dur, err := strconv.ParseFloat(strings.TrimSpace(durText), 64)
			if err != nil || dur < 0 {
				return nil, &ParseError{Line: lineNo, Reason: "invalid EXTINF duration"}
			}
			pendingSegment = &Segment{Duration: dur, Title: strings.TrimSpace(title)}
		case tagStreamInf:
			v, err := parseVariant(value)
			if err != nil {
				err.Line = lineNo
				return nil, err
			}
			pendingVariant = v
		case tagMedia:
			track := parseMediaTrack(value)
			switch track.Type {
			case MediaAudio:
				p.AudioTracks = append(p.AudioTracks, track)
			case MediaSubtitles:
				p.Subtitles = append(p.Subtitles, track)
			}
		}
	}

	if pendingVariant != nil {
		return nil, &ParseError{Reason: "EXT-X-STREAM-INF without URI"}
	}
	if pendingSegment != nil {
		return nil, &ParseError{Reason: "EXTINF without URI"}
	}
	return p, nil
}

func parseVariant(value string) (*Variant, *ParseError) {
	attrs := parseAttributes(value)
	bw, ok := atoi(attrs["BANDWIDTH"])
	if !ok {
		return nil, &ParseError{Reason: "EXT-X-STREAM-INF missing BANDWIDTH"}
	}
	v := &Variant{
		Bandwidth:     bw,
		Resolution:    attrs["RESOLUTION"],
		Codecs:        attrs["CODECS"],
		AudioGroup:    attrs["AUDIO"],
		SubtitleGroup: attrs["SUBTITLES"],
	}
	if avg, ok := atoi(attrs["AVERAGE-BANDWIDTH"]); ok {
		v.AverageBandwidth = avg
	}
	if fr, err := strconv.ParseFloat(attrs["FRAME-RATE"], 64); err == nil {
		v.FrameRate = fr
	}
	return v, nil
}

func parseMediaTrack(value string) MediaTrack {
	attrs := parseAttributes(value)
	return MediaTrack{
		Type:       strings.ToUpper(attrs["TYPE"]),
		GroupID:    attrs["GROUP-ID"],
		Name:       attrs["NAME"],
		Language:   attrs["LANGUAGE"],
		Default:    isYes(attrs["DEFAULT"]),
		AutoSelect: isYes(attrs["AUTOSELECT"]),
		Forced:     isYes(attrs["FORCED"]),
		Channels:   attrs["CHANNELS"],
		URI:        attrs["URI"],
	}
}

// detectType classifies by master-only tags: EXT-X-STREAM-INF, or
// EXT-X-MEDIA for a master that declares renditions but no variants.
func detectType(lines []string) Type {
	for _, line := range lines {
		tag, _, _ := strings.Cut(strings.TrimSpace(line), ":")
		if tag == tagStreamInf || tag == tagMedia {
			return TypeMaster
		}
	}
	return TypeMedia
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n")
}
