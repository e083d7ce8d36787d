package playlist

import (
	"fmt"
	"math"
)

// Type distinguishes master playlists from media playlists.
type Type string

const (
	TypeMaster Type = "master"
	TypeMedia  Type = "media"
)

// Playlist types carried by EXT-X-PLAYLIST-TYPE.
const (
	PlaylistTypeVOD   = "VOD"
	PlaylistTypeEvent = "EVENT"
)

// Media track types carried by EXT-X-MEDIA.
const (
	MediaAudio     = "AUDIO"
	MediaSubtitles = "SUBTITLES"
)

// Playlist is the parsed form of either a master or a media playlist. Master
// playlists use Variants, AudioTracks, Subtitles, and IndependentSegments;
// media playlists use the remaining fields.
type Playlist struct {
	Type    Type `json:"type"`
	Version int  `json:"version"`

	Variants            []Variant    `json:"variants,omitempty"`
	AudioTracks         []MediaTrack `json:"audio_tracks,omitempty"`
	Subtitles           []MediaTrack `json:"subtitles,omitempty"`
	IndependentSegments bool         `json:"independent_segments,omitempty"`

	TargetDuration int       `json:"target_duration,omitempty"`
	MediaSequence  int       `json:"media_sequence"`
	PlaylistType   string    `json:"playlist_type,omitempty"`
	AllowCache     string    `json:"allow_cache,omitempty"`
	EndList        bool      `json:"end_list"`
	Segments       []Segment `json:"segments,omitempty"`
}

// Segment is one media segment. Slice order is playback order.
type Segment struct {
	Duration  float64 `json:"duration"`
	URI       string  `json:"uri"`
	ByteRange string  `json:"byte_range,omitempty"`
	Title     string  `json:"title,omitempty"`
}

// Variant is one EXT-X-STREAM-INF entry of a master playlist.
type Variant struct {
	Bandwidth        int     `json:"bandwidth"`
	AverageBandwidth int     `json:"average_bandwidth,omitempty"`
	Resolution       string  `json:"resolution,omitempty"`
	Codecs           string  `json:"codecs,omitempty"`
	FrameRate        float64 `json:"frame_rate,omitempty"`
	AudioGroup       string  `json:"audio_group,omitempty"`
	SubtitleGroup    string  `json:"subtitle_group,omitempty"`
	URI              string  `json:"uri"`
}

// MediaTrack is one EXT-X-MEDIA entry of a master playlist.
type MediaTrack struct {
	Type       string `json:"type"`
	GroupID    string `json:"group_id"`
	Name       string `json:"name"`
	Language   string `json:"language,omitempty"`
	Default    bool   `json:"default"`
	AutoSelect bool   `json:"autoselect"`
	Forced     bool   `json:"forced,omitempty"`
	Channels   string `json:"channels,omitempty"`
	URI        string `json:"uri,omitempty"`
}

// IsComplete reports whether a media playlist is terminated.
func (p *Playlist) IsComplete() bool {
	return p.EndList || p.PlaylistType == PlaylistTypeVOD
}

// TotalDuration sums the segment durations.
func (p *Playlist) TotalDuration() float64 {
	var total float64
	for _, seg := range p.Segments {
		total += seg.Duration
	}
	return total
}

// MaxSegmentDuration returns the longest segment duration.
func (p *Playlist) MaxSegmentDuration() float64 {
	var longest float64
	for _, seg := range p.Segments {
		if seg.Duration > longest {
			longest = seg.Duration
		}
	}
	return longest
}

// ComputedTargetDuration returns the explicit target duration, or the ceiling
// of the longest segment when none is set.
func (p *Playlist) ComputedTargetDuration() int {
	if p.TargetDuration > 0 {
		return p.TargetDuration
	}
	return int(math.Ceil(p.MaxSegmentDuration()))
}

// ParseError reports malformed manifest text.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("playlist parse error at line %d: %s", e.Line, e.Reason)
	}
	return "playlist parse error: " + e.Reason
}
