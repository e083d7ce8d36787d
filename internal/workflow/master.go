package workflow

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"hlspack/internal/ladder"
	"hlspack/internal/media/audio"
	"hlspack/internal/media/ffprobe"
	"hlspack/internal/playlist"
	"hlspack/internal/segmenter"
	"hlspack/internal/services"
	"hlspack/internal/subtitles"
)

// Group IDs used in the master playlist.
const (
	AudioGroupID    = "audio"
	SubtitleGroupID = "subs"
	// AACCodec is the RFC 6381 identifier for AAC-LC.
	AACCodec = segmenter.AACCodec
	// MasterPlaylistName is written at the root of the output base.
	MasterPlaylistName = "master.m3u8"
)

// MasterInput is what the master playlist is assembled from.
type MasterInput struct {
	OutputDir   string
	Renditions  []RenditionResult
	AudioTracks []audio.TrackResult
	Subtitles   []subtitles.Subtitle
	// AudioBitrate is added to every variant's BANDWIDTH when the variants
	// carry or reference audio.
	AudioBitrate string
	// AudioChannels is the transcoded channel count; zero keeps the source's.
	AudioChannels int
	// MuxedAudio is set when renditions carry their own audio stream.
	MuxedAudio bool
	// AudioCodecs is the RFC 6381 list appended to every variant's CODECS
	// when audio is present. Empty leaves audio out of CODECS.
	AudioCodecs string
	// FrameRate is advertised on every variant when positive.
	FrameRate float64
}

// BuildMaster assembles the master playlist model. URIs are relative to
// OutputDir. Group references are only added when the group has members.
func BuildMaster(in MasterInput) *playlist.Playlist {
	master := &playlist.Playlist{
		Type:                playlist.TypeMaster,
		Version:             playlist.DefaultVersion,
		IndependentSegments: true,
	}

	var segmented []audio.TrackResult
	for _, tr := range in.AudioTracks {
		if tr.PlaylistPath != "" {
			segmented = append(segmented, tr)
		}
	}
	infos := make([]audio.TrackInfo, len(segmented))
	for i, tr := range segmented {
		infos[i] = tr.Track
	}
	defaultIdx := audio.DefaultTrack(infos)
	for i, tr := range segmented {
		track := playlist.MediaTrack{
			Type:       playlist.MediaAudio,
			GroupID:    AudioGroupID,
			Name:       tr.Track.Name(),
			Language:   tr.Track.Language,
			Default:    i == defaultIdx,
			AutoSelect: true,
			URI:        relativeURI(in.OutputDir, tr.PlaylistPath),
		}
		if channels := cmp.Or(in.AudioChannels, tr.Track.Channels); channels > 0 {
			track.Channels = strconv.Itoa(channels)
		}
		master.AudioTracks = append(master.AudioTracks, track)
	}

	for _, sub := range in.Subtitles {
		if sub.PlaylistPath == "" {
			continue
		}
		master.Subtitles = append(master.Subtitles, playlist.MediaTrack{
			Type:       playlist.MediaSubtitles,
			GroupID:    SubtitleGroupID,
			Name:       sub.Name(),
			Language:   sub.Language,
			Default:    sub.Default,
			AutoSelect: true,
			Forced:     sub.Forced,
			URI:        relativeURI(in.OutputDir, sub.PlaylistPath),
		})
	}

	hasAudio := in.MuxedAudio || len(master.AudioTracks) > 0
	audioBps := 0
	if hasAudio {
		audioBps = ladder.ParseBitrateKbps(in.AudioBitrate) * 1000
	}
	for _, r := range in.Renditions {
		codecs := r.Video.Codecs()
		if hasAudio && in.AudioCodecs != "" {
			codecs += "," + in.AudioCodecs
		}
		variant := playlist.Variant{
			Bandwidth:  r.Resolution.BitrateKbps()*1000 + audioBps,
			Resolution: fmt.Sprintf("%dx%d", r.Resolution.Width, r.Resolution.Height),
			Codecs:     codecs,
			FrameRate:  in.FrameRate,
			URI:        relativeURI(in.OutputDir, r.PlaylistPath),
		}
		if len(master.AudioTracks) > 0 {
			variant.AudioGroup = AudioGroupID
		}
		if len(master.Subtitles) > 0 {
			variant.SubtitleGroup = SubtitleGroupID
		}
		master.Variants = append(master.Variants, variant)
	}
	return master
}

// AudioCodecs returns the CODECS entries for the audio a job produces. A
// transcode is always AAC-LC. A copy carries the source codecs, and codecs
// with no known identifier are left out.
func AudioCodecs(codec string, muxed bool, probe ffprobe.Result, tracks []audio.TrackResult) string {
	cfg := segmenter.AudioConfig{Codec: codec}
	if codec != "copy" {
		return cfg.Codecs("")
	}
	var sources []string
	if muxed {
		if streams := probe.StreamsOfType("audio"); len(streams) > 0 {
			sources = append(sources, streams[0].CodecName)
		}
	} else {
		for _, tr := range tracks {
			if tr.PlaylistPath != "" {
				sources = append(sources, tr.Track.Codec)
			}
		}
	}
	var out []string
	for _, source := range sources {
		if id := cfg.Codecs(source); id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return strings.Join(out, ",")
}

// WriteMaster renders, validates, and writes the master playlist to
// <OutputDir>/master.m3u8. An invalid master is never written.
func WriteMaster(in MasterInput) (string, playlist.ValidationResult, error) {
	content := playlist.GenerateMaster(BuildMaster(in))
	validation := playlist.Validate(content)
	if !validation.Valid {
		codes := make([]string, 0, len(validation.Errors))
		for _, f := range validation.Errors {
			codes = append(codes, f.Code)
		}
		return "", validation, services.Wrap(services.ErrPlaylistValidation, PhaseMaster, "validate master",
			strings.Join(codes, ","), nil)
	}
	path := filepath.Join(in.OutputDir, MasterPlaylistName)
	if err := playlist.WriteFile(path, content); err != nil {
		return "", validation, services.Wrap(services.ErrPlaylistValidation, PhaseMaster, "write master", path, err)
	}
	return path, validation, nil
}

func relativeURI(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}
