package config

import (
	"errors"
	"fmt"
	"regexp"

	"hlspack/internal/ladder"
)

var segmentDirective = regexp.MustCompile(`%0?\d*d`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateLadder(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateHLS(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.TimeoutSeconds < 0 {
		return errors.New("encoder.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLadder() error {
	if _, err := ladder.ParsePreset(c.Ladder.Preset); err != nil {
		return fmt.Errorf("ladder.preset: %w", err)
	}
	for _, factor := range c.Ladder.ScaleFactors {
		if factor <= 0 || factor >= 1 {
			return fmt.Errorf("ladder.scale_factors: %v must be between 0 and 1 (exclusive)", factor)
		}
	}
	if c.Ladder.MinWidth < 0 || c.Ladder.MinHeight < 0 {
		return errors.New("ladder.min_width and ladder.min_height must be >= 0")
	}
	for name, rate := range c.Ladder.BitrateOverrides {
		if ladder.ParseBitrateKbps(rate) <= 0 {
			return fmt.Errorf("ladder.bitrate_overrides.%s: invalid bitrate %q", name, rate)
		}
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.FrameRate < 0 {
		return errors.New("video.frame_rate must be >= 0")
	}
	return nil
}

func (c *Config) validateHLS() error {
	if c.HLS.SegmentDuration <= 0 {
		return errors.New("hls.segment_duration must be positive")
	}
	if !segmentDirective.MatchString(c.HLS.SegmentPattern) {
		return fmt.Errorf("hls.segment_pattern %q must contain a %%d directive", c.HLS.SegmentPattern)
	}
	switch c.HLS.PlaylistType {
	case "", "vod", "event":
	default:
		return fmt.Errorf("hls.playlist_type: unsupported value %q (expected vod or event)", c.HLS.PlaylistType)
	}
	return nil
}

func (c *Config) validateAudio() error {
	switch c.Audio.Selection {
	case "all", "default":
	case "languages":
		if len(c.Audio.Languages) == 0 {
			return errors.New("audio.languages must be set when audio.selection is \"languages\"")
		}
	default:
		return fmt.Errorf("audio.selection: unsupported value %q (expected all, default, or languages)", c.Audio.Selection)
	}
	if ladder.ParseBitrateKbps(c.Audio.Bitrate) <= 0 {
		return fmt.Errorf("audio.bitrate: invalid bitrate %q", c.Audio.Bitrate)
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.MaxConcurrency < 1 {
		return errors.New("processing.max_concurrency must be >= 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
