package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds filesystem locations.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Encoder configures the external ffmpeg/ffprobe binaries.
type Encoder struct {
	FFmpegBinary     string `toml:"ffmpeg_binary"`
	FFprobeBinary    string `toml:"ffprobe_binary"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	KillGraceSeconds int    `toml:"kill_grace_seconds"`
}

// Ladder configures rendition derivation.
type Ladder struct {
	Preset           string            `toml:"preset"`
	ScaleFactors     []float64         `toml:"scale_factors"`
	MinWidth         int               `toml:"min_width"`
	MinHeight        int               `toml:"min_height"`
	IncludeSource    bool              `toml:"include_source"`
	BitrateOverrides map[string]string `toml:"bitrate_overrides"`
}

// Video configures per-rendition video encoding.
type Video struct {
	Codec       string  `toml:"codec"`
	Preset      string  `toml:"preset"`
	PixelFormat string  `toml:"pixel_format"`
	FrameRate   float64 `toml:"frame_rate"`
	GOPSize     int     `toml:"gop_size"`
}

// HLS configures segmentation.
type HLS struct {
	SegmentDuration    float64  `toml:"segment_duration"`
	SegmentPattern     string   `toml:"segment_pattern"`
	PlaylistType       string   `toml:"playlist_type"`
	Flags              []string `toml:"flags"`
	ProgressIntervalMS int      `toml:"progress_interval_ms"`
}

// Audio configures audio track extraction.
type Audio struct {
	Enabled    bool     `toml:"enabled"`
	Selection  string   `toml:"selection"`
	Languages  []string `toml:"languages"`
	Codec      string   `toml:"codec"`
	Bitrate    string   `toml:"bitrate"`
	SampleRate int      `toml:"sample_rate"`
	Channels   int      `toml:"channels"`
	Segment    bool     `toml:"segment"`
}

// Subtitles configures subtitle extraction and conversion.
type Subtitles struct {
	Enabled         bool     `toml:"enabled"`
	ConvertToWebVTT bool     `toml:"convert_to_webvtt"`
	Languages       []string `toml:"languages"`
}

// Processing configures phase scheduling.
type Processing struct {
	Parallel       bool `toml:"parallel"`
	MaxConcurrency int  `toml:"max_concurrency"`
}

// Logging configures log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History configures the job ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config is the full hlspack configuration.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Encoder    Encoder    `toml:"encoder"`
	Ladder     Ladder     `toml:"ladder"`
	Video      Video      `toml:"video"`
	HLS        HLS        `toml:"hls"`
	Audio      Audio      `toml:"audio"`
	Subtitles  Subtitles  `toml:"subtitles"`
	Processing Processing `toml:"processing"`
	Logging    Logging    `toml:"logging"`
	History    History    `toml:"history"`
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads configuration from path (or the default locations when empty),
// applies environment overrides, normalizes, and validates it. It returns the
// config, the resolved path, and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable.
func (c *Config) FFmpegBinary() string {
	return c.Encoder.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable.
func (c *Config) FFprobeBinary() string {
	return c.Encoder.FFprobeBinary
}

// EncodeTimeout returns the per-operation encoder timeout; zero disables it.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.Encoder.TimeoutSeconds) * time.Second
}

// KillGrace returns how long a cancelled encoder may take to exit.
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.Encoder.KillGraceSeconds) * time.Second
}

// ProgressInterval returns the minimum spacing between progress updates.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.HLS.ProgressIntervalMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample returns the annotated sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
