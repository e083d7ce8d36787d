package audio

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"hlspack/internal/language"
	"hlspack/internal/media/ffprobe"
	"hlspack/internal/services"
)

// TrackInfo describes one audio stream of the source.
type TrackInfo struct {
	StreamIndex   int
	Codec         string
	SampleRate    int
	Channels      int
	ChannelLayout string
	Language      string
	Title         string
	Default       bool
	Bitrate       int64
}

// Key identifies the track in output paths, e.g. "en_1".
func (t TrackInfo) Key() string {
	return t.Language + "_" + strconv.Itoa(t.StreamIndex)
}

// Name is the label used in playlists: the stream title when present,
// otherwise the language display name.
func (t TrackInfo) Name() string {
	if title := strings.TrimSpace(t.Title); title != "" {
		return title
	}
	return language.DisplayName(t.Language)
}

// TrackFromStream converts a probed audio stream.
func TrackFromStream(stream ffprobe.Stream) TrackInfo {
	return TrackInfo{
		StreamIndex:   stream.Index,
		Codec:         strings.ToLower(strings.TrimSpace(stream.CodecName)),
		SampleRate:    stream.SampleRateHz(),
		Channels:      stream.Channels,
		ChannelLayout: strings.TrimSpace(stream.ChannelLayout),
		Language:      language.Tag(language.ExtractFromTags(stream.Tags)),
		Title:         language.Title(stream.Tag("title")),
		Default:       stream.IsDefault(),
		Bitrate:       stream.BitRateBps(),
	}
}

// DetectTracks probes input and returns its audio streams in container order.
func DetectTracks(ctx context.Context, prober ffprobe.Prober, input string) ([]TrackInfo, error) {
	if _, err := os.Stat(input); err != nil {
		return nil, services.Wrap(services.ErrInputNotFound, "audio", "stat input", input, err)
	}
	if prober == nil {
		return nil, services.Wrap(services.ErrConfiguration, "audio", "probe", "prober unavailable", nil)
	}
	probe, err := prober.Probe(ctx, input)
	if err != nil {
		return nil, services.Wrap(services.ErrProbeFailure, "audio", "probe", input, err)
	}
	streams := probe.StreamsOfType("audio")
	tracks := make([]TrackInfo, 0, len(streams))
	for _, stream := range streams {
		tracks = append(tracks, TrackFromStream(stream))
	}
	return tracks, nil
}

// String summarises the track for logs, e.g. "#1 en aac 6ch".
func (t TrackInfo) String() string {
	return fmt.Sprintf("#%d %s %s %dch", t.StreamIndex, t.Language, t.Codec, t.Channels)
}
