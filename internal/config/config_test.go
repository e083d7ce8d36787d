package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"hlspack/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "hlspack", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "hlspack", "output") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.History.Path != filepath.Join(tempHome, ".local", "share", "hlspack", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected binaries: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if cfg.HLS.SegmentDuration != 6 || cfg.HLS.SegmentPattern != "segment_%03d.ts" {
		t.Fatalf("unexpected hls defaults: %+v", cfg.HLS)
	}
	if cfg.ProgressInterval().Milliseconds() != 500 {
		t.Fatalf("unexpected progress interval: %v", cfg.ProgressInterval())
	}
	if !cfg.Processing.Parallel || cfg.Processing.MaxConcurrency != 2 {
		t.Fatalf("unexpected processing defaults: %+v", cfg.Processing)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out := t.TempDir()
	t.Setenv(config.EnvFFmpeg, "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv(config.EnvFFprobe, "/opt/ffmpeg/bin/ffprobe")
	t.Setenv(config.EnvOutputDir, out)
	t.Setenv(config.EnvLogLevel, "DEBUG")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Encoder.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" || cfg.Encoder.FFprobeBinary != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("expected binaries from env, got %+v", cfg.Encoder)
	}
	if cfg.Paths.OutputDir != out {
		t.Fatalf("expected output dir from env, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "hlspack.toml")
	content := `
[ladder]
preset = "HIGH"
include_source = true

[ladder.bitrate_overrides]
"720p" = " 3000k "

[hls]
segment_duration = 4.0
segment_pattern = "chunk_%05d.ts"

[audio]
selection = "languages"
languages = ["eng", "French", "de"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path || !exists {
		t.Fatalf("unexpected resolution %q %v", resolved, exists)
	}
	if cfg.Ladder.Preset != "high" || !cfg.Ladder.IncludeSource {
		t.Fatalf("unexpected ladder config: %+v", cfg.Ladder)
	}
	if cfg.Ladder.BitrateOverrides["720p"] != "3000k" {
		t.Fatalf("expected trimmed override, got %q", cfg.Ladder.BitrateOverrides["720p"])
	}
	if cfg.HLS.SegmentDuration != 4 || cfg.HLS.SegmentPattern != "chunk_%05d.ts" {
		t.Fatalf("unexpected hls config: %+v", cfg.HLS)
	}
	if strings.Join(cfg.Audio.Languages, ",") != "en,fr,de" {
		t.Fatalf("expected normalized languages, got %v", cfg.Audio.Languages)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[hls]\nsegment_length = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := map[string]func(*config.Config){
		"segment duration":   func(c *config.Config) { c.HLS.SegmentDuration = 0 },
		"segment pattern":    func(c *config.Config) { c.HLS.SegmentPattern = "segment.ts" },
		"playlist type":      func(c *config.Config) { c.HLS.PlaylistType = "live" },
		"ladder preset":      func(c *config.Config) { c.Ladder.Preset = "ultra" },
		"scale factor":       func(c *config.Config) { c.Ladder.ScaleFactors = []float64{1.5} },
		"override bitrate":   func(c *config.Config) { c.Ladder.BitrateOverrides = map[string]string{"720p": "fast"} },
		"audio selection":    func(c *config.Config) { c.Audio.Selection = "best" },
		"language selection": func(c *config.Config) { c.Audio.Selection = "languages" },
		"concurrency":        func(c *config.Config) { c.Processing.MaxConcurrency = 0 },
		"log format":         func(c *config.Config) { c.Logging.Format = "xml" },
		"timeout":            func(c *config.Config) { c.Encoder.TimeoutSeconds = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestCreateSampleMatchesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var sample config.Config
	if err := toml.Unmarshal(data, &sample); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	def := config.Default()
	if sample.HLS.SegmentDuration != def.HLS.SegmentDuration || sample.Ladder.Preset != def.Ladder.Preset {
		t.Fatalf("sample diverges from defaults: %+v", sample)
	}
	if sample.Audio.SampleRate != def.Audio.SampleRate || sample.Processing.MaxConcurrency != def.Processing.MaxConcurrency {
		t.Fatalf("sample diverges from defaults: %+v", sample)
	}
}
