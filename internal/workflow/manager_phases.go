package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hlspack/internal/ladder"
	"hlspack/internal/logging"
	"hlspack/internal/media/audio"
	"hlspack/internal/segmenter"
	"hlspack/internal/services"
	"hlspack/internal/stageexec"
	"hlspack/internal/subtitles"
)

// DeriveLadder computes the renditions for a source. With IncludeSource the
// unscaled rung is prepended unless a derived rung already has its size.
func DeriveLadder(width, height int, opts LadderOptions) []ladder.Resolution {
	rungs := ladder.Derive(ladder.Options{
		SourceWidth:      width,
		SourceHeight:     height,
		MinWidth:         opts.MinWidth,
		MinHeight:        opts.MinHeight,
		ScaleFactors:     opts.ScaleFactors,
		Preset:           opts.Preset,
		BitrateOverrides: opts.BitrateOverrides,
	})
	if !opts.IncludeSource {
		return rungs
	}
	source, ok := ladder.SourceRung(width, height, opts.BitrateOverrides)
	if !ok {
		return rungs
	}
	for _, r := range rungs {
		if r.Key() == source.Key() {
			return rungs
		}
	}
	return append([]ladder.Resolution{source}, rungs...)
}

// renditionNames gives every rung a unique directory name. Rungs that share
// a canonical label fall back to their WxH key.
func renditionNames(rungs []ladder.Resolution) []string {
	counts := make(map[string]int, len(rungs))
	for _, r := range rungs {
		counts[r.Name]++
	}
	names := make([]string, len(rungs))
	for i, r := range rungs {
		if counts[r.Name] > 1 {
			names[i] = r.Key()
			continue
		}
		names[i] = r.Name
	}
	return names
}

func (j *job) stageOptions(phase string, critical bool, logger *slog.Logger) stageexec.Options {
	return stageexec.Options{
		Phase:          phase,
		Parallel:       j.cfg.Parallel,
		MaxConcurrency: j.cfg.MaxConcurrency,
		Critical:       critical,
		Logger:         logger,
		OnProgress:     j.onProgress,
	}
}

func (m *Manager) runVideoPhase(ctx context.Context, j *job) error {
	pc := j.cfg
	video, _ := j.probe.VideoStream()
	rungs := DeriveLadder(video.Width, video.Height, pc.Ladder)
	j.result.Ladder = rungs
	if len(rungs) == 0 {
		err := services.Wrap(services.ErrConfiguration, PhaseVideo, "derive ladder",
			fmt.Sprintf("no rendition fits %dx%d with minimum %dx%d", video.Width, video.Height, pc.Ladder.MinWidth, pc.Ladder.MinHeight), nil)
		j.addError(PhaseVideo, "", err, true)
		return err
	}

	var muxed *segmenter.AudioConfig
	if j.muxAudio {
		muxed = &segmenter.AudioConfig{
			Codec:       pc.Audio.Codec,
			Bitrate:     pc.Audio.Bitrate,
			SampleRate:  pc.Audio.SampleRate,
			Channels:    pc.Audio.Channels,
			StreamIndex: -1,
		}
	}

	names := renditionNames(rungs)
	renditions := make([]RenditionResult, len(rungs))
	tasks := make([]stageexec.Task, len(rungs))
	for i, res := range rungs {
		name := names[i]
		vc := segmenter.VideoFromResolution(res, pc.Video)
		hls := pc.HLS
		hls.OutputDir = joinOutput(pc.OutputDir, "video", name)
		hls.PlaylistName = "quality_" + name + ".m3u8"
		tasks[i] = stageexec.Task{Item: name, Run: func(ctx context.Context, progress chan<- segmenter.Update) error {
			seg, err := m.engine.Segment(ctx, segmenter.Request{
				Input:         pc.Input,
				Item:          name,
				HLS:           hls,
				Video:         &vc,
				Audio:         muxed,
				TotalDuration: j.total,
				Progress:      progress,
			})
			if err != nil {
				return err
			}
			renditions[i] = RenditionResult{
				Resolution:   res,
				Video:        vc,
				PlaylistPath: seg.PlaylistPath,
				Segments:     seg,
				SegmentCount: seg.SegmentCount,
				FileSize:     seg.FileSize,
			}
			return nil
		}}
	}

	outcomes, err := stageexec.Run(ctx, tasks, j.stageOptions(PhaseVideo, true, m.logger))
	for i, o := range outcomes {
		if o.Err == nil {
			j.result.Renditions = append(j.result.Renditions, renditions[i])
			j.addWarnings(renditions[i].Segments.Warnings...)
		}
	}
	if err != nil {
		item := ""
		if ctx.Err() == nil {
			for _, o := range outcomes {
				if o.Err != nil && !errors.Is(o.Err, context.Canceled) {
					item = o.Item
					break
				}
			}
		}
		j.addError(PhaseVideo, item, err, true)
		return err
	}
	return nil
}

func (m *Manager) runAudioPhase(ctx context.Context, j *job) error {
	pc := j.cfg
	if !pc.Audio.Enabled {
		return nil
	}
	tracks, err := m.audio.DetectTracks(ctx, pc.Input)
	if err != nil {
		if ctx.Err() != nil {
			j.addError(PhaseAudio, "", ctx.Err(), true)
			return ctx.Err()
		}
		j.addError(PhaseAudio, "", err, false)
		return nil
	}
	selected := audio.Select(tracks, pc.Audio.Selection, pc.Audio.Languages)
	if len(selected) == 0 {
		j.logger.Debug("no audio tracks selected", logging.Int("detected", len(tracks)))
		return nil
	}

	acfg := audio.Config{
		OutputDir:     joinOutput(pc.OutputDir, "audio"),
		Codec:         pc.Audio.Codec,
		Bitrate:       pc.Audio.Bitrate,
		SampleRate:    pc.Audio.SampleRate,
		Channels:      pc.Audio.Channels,
		Selection:     pc.Audio.Selection,
		Languages:     pc.Audio.Languages,
		Segment:       pc.Audio.Segment,
		HLS:           pc.HLS,
		TotalDuration: j.total,
	}
	results := make([]audio.TrackResult, len(selected))
	tasks := make([]stageexec.Task, len(selected))
	for i, track := range selected {
		tasks[i] = stageexec.Task{Item: track.Key(), Run: func(ctx context.Context, progress chan<- segmenter.Update) error {
			tr, err := m.audio.ProcessTrack(ctx, pc.Input, track, acfg, progress)
			if err != nil {
				return err
			}
			results[i] = tr
			return nil
		}}
	}

	outcomes, err := stageexec.Run(ctx, tasks, j.stageOptions(PhaseAudio, false, m.logger))
	if err != nil {
		j.addError(PhaseAudio, "", err, true)
		return err
	}
	for i, o := range outcomes {
		if o.Err != nil {
			j.addError(PhaseAudio, o.Item, o.Err, false)
			continue
		}
		j.result.AudioTracks = append(j.result.AudioTracks, results[i])
		if seg := results[i].Segments; seg != nil {
			j.addWarnings(seg.Warnings...)
		}
	}
	return nil
}

func (m *Manager) runSubtitlePhase(ctx context.Context, j *job) error {
	pc := j.cfg
	if !pc.Subtitles.Enabled {
		return nil
	}
	var embedded []subtitles.Subtitle
	detected, err := m.subtitles.DetectEmbedded(ctx, pc.Input)
	switch {
	case err != nil && ctx.Err() != nil:
		j.addError(PhaseSubtitles, "", ctx.Err(), true)
		return ctx.Err()
	case err != nil:
		j.addError(PhaseSubtitles, "", err, false)
	default:
		embedded = subtitles.Select(detected, pc.Subtitles.Languages)
	}

	opts := subtitles.ExtractOptions{
		OutputDir:       joinOutput(pc.OutputDir, "subtitles"),
		ConvertToWebVTT: pc.Subtitles.ConvertToWebVTT,
		Duration:        j.total,
	}
	external := subtitles.UniqueExternal(pc.Subtitles.External)
	total := len(embedded) + len(external)
	if total == 0 {
		return nil
	}
	results := make([]subtitles.Subtitle, total)
	tasks := make([]stageexec.Task, 0, total)
	for _, sub := range embedded {
		i := len(tasks)
		tasks = append(tasks, stageexec.Task{Item: fmt.Sprintf("%s_%d", sub.Language, sub.StreamIndex), Run: func(ctx context.Context, progress chan<- segmenter.Update) error {
			out, err := m.subtitles.Extract(ctx, pc.Input, sub, opts)
			if err != nil {
				return err
			}
			results[i] = out
			progress <- segmenter.Update{Item: out.Key, Percent: 100, Message: segmenter.MessageFinalizing}
			return nil
		}})
	}
	for _, ext := range external {
		i := len(tasks)
		tasks = append(tasks, stageexec.Task{Item: ext.Key, Run: func(ctx context.Context, progress chan<- segmenter.Update) error {
			out, err := m.subtitles.IngestExternal(ctx, ext, opts)
			if err != nil {
				return err
			}
			results[i] = out
			progress <- segmenter.Update{Item: out.Key, Percent: 100, Message: segmenter.MessageFinalizing}
			return nil
		}})
	}

	outcomes, err := stageexec.Run(ctx, tasks, j.stageOptions(PhaseSubtitles, false, m.logger))
	if err != nil {
		j.addError(PhaseSubtitles, "", err, true)
		return err
	}
	for i, o := range outcomes {
		if o.Err != nil {
			j.addError(PhaseSubtitles, o.Item, o.Err, false)
			continue
		}
		j.result.Subtitles = append(j.result.Subtitles, results[i])
	}
	return nil
}

func (m *Manager) assembleMaster(ctx context.Context, j *job) error {
	if err := ctx.Err(); err != nil {
		j.addError(PhaseMaster, "", err, true)
		return err
	}
	pc := j.cfg
	frameRate := pc.Video.FrameRate
	if frameRate <= 0 {
		if video, ok := j.probe.VideoStream(); ok {
			frameRate = video.FrameRate()
		}
	}
	path, validation, err := WriteMaster(MasterInput{
		OutputDir:     pc.OutputDir,
		Renditions:    j.result.Renditions,
		AudioTracks:   j.result.AudioTracks,
		Subtitles:     j.result.Subtitles,
		AudioBitrate:  pc.Audio.Bitrate,
		AudioChannels: pc.Audio.Channels,
		MuxedAudio:    j.muxAudio,
		AudioCodecs:   AudioCodecs(pc.Audio.Codec, j.muxAudio, j.probe, j.result.AudioTracks),
		FrameRate:     frameRate,
	})
	if err != nil {
		j.addError(PhaseMaster, MasterPlaylistName, err, true)
		return err
	}
	for _, w := range validation.Warnings {
		j.addWarnings(fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	j.result.MasterPlaylist = path
	j.logger.Info("master playlist written",
		logging.String(logging.FieldEventType, "master_written"),
		logging.String("path", path),
		logging.Int("variants", len(j.result.Renditions)),
		logging.Int("audio_tracks", len(j.result.AudioTracks)),
		logging.Int("subtitles", len(j.result.Subtitles)),
	)
	return nil
}
