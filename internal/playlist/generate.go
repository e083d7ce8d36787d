package playlist

import (
	"math"
	"strconv"
	"strings"
)

// DefaultVersion is written when a model carries no version.
const DefaultVersion = 3

// Generate renders p as manifest text according to its type.
func Generate(p *Playlist) string {
	if p == nil {
		return ""
	}
	if p.Type == TypeMaster {
		return GenerateMaster(p)
	}
	return GenerateMedia(p)
}

// GenerateMaster renders the header, version, audio tracks, subtitle tracks,
// and then each variant's EXT-X-STREAM-INF followed by its URI.
func GenerateMaster(p *Playlist) string {
	var b strings.Builder
	writeHeader(&b, p.Version)
	if p.IndependentSegments {
		b.WriteString(tagIndependentSegs + "\n")
	}
	for _, track := range p.AudioTracks {
		writeMediaTrack(&b, track, MediaAudio)
	}
	for _, track := range p.Subtitles {
		writeMediaTrack(&b, track, MediaSubtitles)
	}
	for _, v := range p.Variants {
		attrs := []string{"BANDWIDTH=" + strconv.Itoa(v.Bandwidth)}
		if v.AverageBandwidth > 0 {
			attrs = append(attrs, "AVERAGE-BANDWIDTH="+strconv.Itoa(v.AverageBandwidth))
		}
		if v.Resolution != "" {
			attrs = append(attrs, "RESOLUTION="+v.Resolution)
		}
		if v.Codecs != "" {
			attrs = append(attrs, "CODECS="+quote(v.Codecs))
		}
		if v.FrameRate > 0 {
			attrs = append(attrs, "FRAME-RATE="+strconv.FormatFloat(v.FrameRate, 'f', 3, 64))
		}
		if v.AudioGroup != "" {
			attrs = append(attrs, "AUDIO="+quote(v.AudioGroup))
		}
		if v.SubtitleGroup != "" {
			attrs = append(attrs, "SUBTITLES="+quote(v.SubtitleGroup))
		}
		b.WriteString(tagStreamInf + ":" + strings.Join(attrs, ",") + "\n")
		b.WriteString(v.URI + "\n")
	}
	return b.String()
}

func writeMediaTrack(b *strings.Builder, t MediaTrack, kind string) {
	attrs := []string{"TYPE=" + kind, "GROUP-ID=" + quote(t.GroupID)}
	if t.Language != "" {
		attrs = append(attrs, "LANGUAGE="+quote(t.Language))
	}
	attrs = append(attrs,
		"NAME="+quote(t.Name),
		"DEFAULT="+yesNo(t.Default),
		"AUTOSELECT="+yesNo(t.AutoSelect),
	)
	if kind == MediaSubtitles && t.Forced {
		attrs = append(attrs, "FORCED=YES")
	}
	if t.Channels != "" {
		attrs = append(attrs, "CHANNELS="+quote(t.Channels))
	}
	if t.URI != "" {
		attrs = append(attrs, "URI="+quote(t.URI))
	}
	b.WriteString(tagMedia + ":" + strings.Join(attrs, ",") + "\n")
}

// GenerateMedia renders a variant or audio playlist. The target duration is
// the explicit value or the ceiling of the longest segment. EXT-X-ENDLIST is
// written for terminated and VOD playlists.
func GenerateMedia(p *Playlist) string {
	var b strings.Builder
	writeHeader(&b, p.Version)
	b.WriteString(tagTargetDuration + ":" + strconv.Itoa(p.ComputedTargetDuration()) + "\n")
	b.WriteString(tagMediaSequence + ":" + strconv.Itoa(p.MediaSequence) + "\n")
	if p.PlaylistType != "" {
		b.WriteString(tagPlaylistType + ":" + p.PlaylistType + "\n")
	}
	if p.AllowCache != "" {
		b.WriteString(tagAllowCache + ":" + p.AllowCache + "\n")
	}
	for _, seg := range p.Segments {
		if seg.ByteRange != "" {
			b.WriteString(tagByteRange + ":" + seg.ByteRange + "\n")
		}
		b.WriteString(tagInf + ":" + formatDuration(seg.Duration) + "," + seg.Title + "\n")
		b.WriteString(seg.URI + "\n")
	}
	if p.IsComplete() {
		b.WriteString(tagEndList + "\n")
	}
	return b.String()
}

// GenerateSubtitle renders a single-segment WEBVTT playlist spanning the full
// duration of the subtitle resource.
func GenerateSubtitle(uri string, duration float64) string {
	return GenerateMedia(SubtitlePlaylist(uri, duration))
}

// SubtitlePlaylist builds the model behind GenerateSubtitle.
func SubtitlePlaylist(uri string, duration float64) *Playlist {
	if duration < 0 || math.IsNaN(duration) {
		duration = 0
	}
	return &Playlist{
		Type:           TypeMedia,
		Version:        DefaultVersion,
		TargetDuration: int(math.Max(1, math.Ceil(duration))),
		PlaylistType:   PlaylistTypeVOD,
		EndList:        true,
		Segments:       []Segment{{Duration: duration, URI: uri}},
	}
}

func writeHeader(b *strings.Builder, version int) {
	if version <= 0 {
		version = DefaultVersion
	}
	b.WriteString(tagHeader + "\n")
	b.WriteString(tagVersion + ":" + strconv.Itoa(version) + "\n")
}
