package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"hlspack/internal/fileutil"
	"hlspack/internal/ladder"
	"hlspack/internal/logging"
	"hlspack/internal/media/ffprobe"
	"hlspack/internal/segmenter"
	"hlspack/internal/services"
)

// job carries the state of one Process call. Only the goroutine running
// Process touches it; phase workers report through stageexec outcomes.
type job struct {
	cfg        ProcessingConfig
	result     *ProcessingResult
	logger     *slog.Logger
	onProgress ProgressFunc
	probe      ffprobe.Result
	total      time.Duration
	muxAudio   bool
}

func (j *job) addError(phase, item string, err error, critical bool) {
	message := err.Error()
	if errors.Is(err, context.Canceled) {
		critical = true
	}
	j.result.Errors = append(j.result.Errors, ProcessingError{
		Phase:    phase,
		Item:     item,
		Kind:     services.Kind(err),
		Message:  message,
		Critical: critical,
		Err:      err,
	})
	attrs := []logging.Attr{
		logging.String(logging.FieldPhase, phase),
		logging.String(logging.FieldItem, item),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Bool("critical", critical),
		logging.Error(err),
	}
	if critical {
		logging.ErrorWithContext(j.logger, "packaging failed", "job_failure", attrs...)
		return
	}
	logging.WarnWithContext(j.logger, "item failed", "item_failure", attrs...)
}

func (j *job) addWarnings(warnings ...string) {
	for _, w := range warnings {
		if w = strings.TrimSpace(w); w != "" {
			j.result.Warnings = append(j.result.Warnings, w)
		}
	}
}

// Process packages pc.Input into pc.OutputDir. The returned result is always
// populated with what was produced; the error is the critical failure that
// aborted the job, if any.
func (m *Manager) Process(ctx context.Context, pc ProcessingConfig, onProgress ProgressFunc) (ProcessingResult, error) {
	if strings.TrimSpace(pc.JobID) == "" {
		pc.JobID = uuid.NewString()
	}
	ctx = services.WithJobID(ctx, pc.JobID)
	logger := logging.WithContext(ctx, m.logger)

	result := ProcessingResult{
		JobID:      pc.JobID,
		Input:      pc.Input,
		OutputDir:  pc.OutputDir,
		Ladder:     []ladder.Resolution{},
		Renditions: []RenditionResult{},
		Errors:     []ProcessingError{},
		Warnings:   []string{},
		StartedAt:  time.Now().UTC(),
	}
	j := &job{
		cfg:        pc,
		result:     &result,
		logger:     logger,
		onProgress: m.progressLogger(logger, onProgress),
	}

	logger.Info("packaging started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("input", pc.Input),
		logging.String("output_dir", pc.OutputDir),
	)

	err := m.run(ctx, j)

	result.FinishedAt = time.Now().UTC()
	_, failed := result.CriticalError()
	result.Success = !failed
	if size, sizeErr := fileutil.DirSize(pc.OutputDir); sizeErr == nil {
		result.TotalBytes = size
	}

	for _, recorder := range m.recorders {
		if recErr := recorder.RecordJob(context.WithoutCancel(ctx), result); recErr != nil {
			logging.WarnWithContext(logger, "job recorder failed", "record_failure",
				logging.Error(recErr),
				logging.String(logging.FieldImpact, "job missing from history or metrics"),
			)
		}
	}

	logger.Info("packaging finished",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Bool("success", result.Success),
		logging.Int("renditions", len(result.Renditions)),
		logging.Int("audio_tracks", len(result.AudioTracks)),
		logging.Int("subtitles", len(result.Subtitles)),
		logging.Int("errors", len(result.Errors)),
		logging.Int("warnings", len(result.Warnings)),
		logging.Duration(logging.FieldDuration, result.Elapsed()),
	)
	return result, err
}

func (m *Manager) run(ctx context.Context, j *job) error {
	pc := j.cfg
	if err := m.prepare(ctx, j); err != nil {
		j.addError(PhasePrepare, "", err, true)
		return err
	}

	release, err := acquireOutputLock(pc.OutputDir)
	if err != nil {
		j.addError(PhasePrepare, "", err, true)
		return err
	}
	defer func() {
		if err := release(); err != nil {
			j.logger.Debug("release output lock failed", logging.Error(err))
		}
	}()

	if err := m.runVideoPhase(ctx, j); err != nil {
		return err
	}
	if err := m.runAudioPhase(ctx, j); err != nil {
		return err
	}
	if err := m.runSubtitlePhase(ctx, j); err != nil {
		return err
	}
	return m.assembleMaster(ctx, j)
}

// prepare validates the input, creates the output base, and probes the
// source.
func (m *Manager) prepare(ctx context.Context, j *job) error {
	pc := j.cfg
	if strings.TrimSpace(pc.Input) == "" {
		return services.Wrap(services.ErrInputNotFound, PhasePrepare, "stat input", "input path is empty", nil)
	}
	info, err := os.Stat(pc.Input)
	if err != nil {
		return services.Wrap(services.ErrInputNotFound, PhasePrepare, "stat input", pc.Input, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrInputNotFound, PhasePrepare, "stat input", pc.Input+" is a directory", nil)
	}
	if strings.TrimSpace(pc.OutputDir) == "" {
		return services.Wrap(services.ErrConfiguration, PhasePrepare, "resolve output", "output directory is empty", nil)
	}
	if err := checkCodecs(pc); err != nil {
		return err
	}
	if len(pc.Subtitles.External) > 0 && !pc.Subtitles.Enabled {
		return services.Wrap(services.ErrConfiguration, PhasePrepare, "subtitles",
			"external subtitles supplied while subtitles are disabled", nil)
	}
	if err := os.MkdirAll(pc.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, PhasePrepare, "create output", pc.OutputDir, err)
	}

	probe, err := m.prober.Probe(ctx, pc.Input)
	if err != nil {
		return services.Wrap(services.ErrProbeFailure, PhasePrepare, "probe", pc.Input, err)
	}
	if _, ok := probe.VideoStream(); !ok {
		return services.Wrap(services.ErrProbeFailure, PhasePrepare, "probe", "source has no video stream", nil)
	}
	j.probe = probe
	j.result.SourceDuration = probe.DurationSeconds()
	j.total = time.Duration(j.result.SourceDuration * float64(time.Second))
	j.muxAudio = (!pc.Audio.Enabled || !pc.Audio.Segment) && probe.AudioStreamCount() > 0
	return nil
}

// checkCodecs rejects encoders whose output the master playlist cannot
// describe.
func checkCodecs(pc ProcessingConfig) error {
	if codec := pc.Video.Codec; codec != "" && !segmenter.IsH264Encoder(codec) {
		return services.Wrap(services.ErrConfiguration, PhasePrepare, "video codec",
			fmt.Sprintf("%q is not an H.264 encoder", codec), nil)
	}
	if codec := pc.Audio.Codec; codec != "" && codec != "copy" && !segmenter.IsAACEncoder(codec) {
		return services.Wrap(services.ErrConfiguration, PhasePrepare, "audio codec",
			fmt.Sprintf("%q must be an AAC encoder or copy", codec), nil)
	}
	return nil
}

// progressLogger samples aggregated progress into log lines before handing
// it to the caller.
func (m *Manager) progressLogger(logger *slog.Logger, next ProgressFunc) ProgressFunc {
	sampler := logging.NewProgressSampler(5)
	return func(p Progress) {
		if sampler.ShouldLog(p.Percent, p.Phase) {
			logger.Info("progress",
				logging.String(logging.FieldEventType, "progress"),
				logging.String(logging.FieldPhase, p.Phase),
				logging.String(logging.FieldItem, p.Item),
				logging.Float64(logging.FieldPercent, p.Percent),
				logging.String("message", p.Message),
			)
		}
		if next != nil {
			next(p)
		}
	}
}

func joinOutput(base string, parts ...string) string {
	return filepath.Join(append([]string{base}, parts...)...)
}
