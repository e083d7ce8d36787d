package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hlspack/internal/language"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoder()
	c.normalizeLadder()
	c.normalizeVideo()
	c.normalizeHLS()
	c.normalizeAudio()
	c.normalizeSubtitles()
	c.normalizeProcessing()
	c.normalizeLogging()
	return nil
}

// applyEnv lets the environment override file values for the binaries, the
// output directory, and the log level.
func (c *Config) applyEnv() {
	if value, ok := lookupEnv(EnvFFmpeg); ok {
		c.Encoder.FFmpegBinary = value
	}
	if value, ok := lookupEnv(EnvFFprobe); ok {
		c.Encoder.FFprobeBinary = value
	}
	if value, ok := lookupEnv(EnvOutputDir); ok {
		c.Paths.OutputDir = value
	}
	if value, ok := lookupEnv(EnvLogLevel); ok {
		c.Logging.Level = value
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoder() {
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if c.Encoder.FFmpegBinary == "" {
		c.Encoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	if c.Encoder.FFprobeBinary == "" {
		c.Encoder.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Encoder.KillGraceSeconds <= 0 {
		c.Encoder.KillGraceSeconds = defaultKillGraceSeconds
	}
}

func (c *Config) normalizeLadder() {
	c.Ladder.Preset = strings.ToLower(strings.TrimSpace(c.Ladder.Preset))
	if c.Ladder.Preset == "" {
		c.Ladder.Preset = defaultLadderPreset
	}
	if len(c.Ladder.BitrateOverrides) > 0 {
		cleaned := make(map[string]string, len(c.Ladder.BitrateOverrides))
		for name, rate := range c.Ladder.BitrateOverrides {
			name = strings.TrimSpace(name)
			rate = strings.TrimSpace(rate)
			if name == "" || rate == "" {
				continue
			}
			cleaned[name] = rate
		}
		c.Ladder.BitrateOverrides = cleaned
	}
}

func (c *Config) normalizeVideo() {
	c.Video.Codec = strings.TrimSpace(c.Video.Codec)
	if c.Video.Codec == "" {
		c.Video.Codec = defaultVideoCodec
	}
	c.Video.Preset = strings.ToLower(strings.TrimSpace(c.Video.Preset))
	if c.Video.Preset == "" {
		c.Video.Preset = defaultVideoPreset
	}
	c.Video.PixelFormat = strings.TrimSpace(c.Video.PixelFormat)
	if c.Video.PixelFormat == "" {
		c.Video.PixelFormat = defaultPixelFormat
	}
	if c.Video.GOPSize <= 0 {
		c.Video.GOPSize = defaultGOPSize
	}
}

func (c *Config) normalizeHLS() {
	c.HLS.SegmentPattern = strings.TrimSpace(c.HLS.SegmentPattern)
	if c.HLS.SegmentPattern == "" {
		c.HLS.SegmentPattern = defaultSegmentPattern
	}
	c.HLS.PlaylistType = strings.ToLower(strings.TrimSpace(c.HLS.PlaylistType))
	flags := make([]string, 0, len(c.HLS.Flags))
	for _, flag := range c.HLS.Flags {
		if flag = strings.TrimSpace(flag); flag != "" {
			flags = append(flags, flag)
		}
	}
	c.HLS.Flags = flags
	if c.HLS.ProgressIntervalMS <= 0 {
		c.HLS.ProgressIntervalMS = defaultProgressIntervalMS
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.Selection = strings.ToLower(strings.TrimSpace(c.Audio.Selection))
	if c.Audio.Selection == "" {
		c.Audio.Selection = defaultAudioSelection
	}
	c.Audio.Languages = language.NormalizeList(c.Audio.Languages)
	c.Audio.Codec = strings.TrimSpace(c.Audio.Codec)
	if c.Audio.Codec == "" {
		c.Audio.Codec = defaultAudioCodec
	}
	c.Audio.Bitrate = strings.TrimSpace(c.Audio.Bitrate)
	if c.Audio.Bitrate == "" {
		c.Audio.Bitrate = defaultAudioBitrate
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaultAudioSampleRate
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = defaultAudioChannels
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.Languages = language.NormalizeList(c.Subtitles.Languages)
}

func (c *Config) normalizeProcessing() {
	if c.Processing.MaxConcurrency <= 0 {
		c.Processing.MaxConcurrency = defaultMaxConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
