package config

const (
	defaultConfigPath         = "~/.config/hlspack/config.toml"
	projectConfigName         = "hlspack.toml"
	defaultOutputDir          = "~/hlspack/output"
	defaultLogDir             = "~/.local/share/hlspack/logs"
	defaultStateDir           = "~/.local/share/hlspack"
	defaultHistoryFile        = "history.db"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultEncodeTimeout      = 4 * 60 * 60
	defaultKillGraceSeconds   = 5
	defaultLadderPreset       = "medium"
	defaultLadderMinWidth     = 256
	defaultLadderMinHeight    = 144
	defaultVideoCodec         = "libx264"
	defaultVideoPreset        = "medium"
	defaultPixelFormat        = "yuv420p"
	defaultGOPSize            = 60
	defaultSegmentDuration    = 6.0
	defaultSegmentPattern     = "segment_%03d.ts"
	defaultPlaylistType       = "vod"
	defaultProgressIntervalMS = 500
	defaultAudioSelection     = "all"
	defaultAudioCodec         = "aac"
	defaultAudioBitrate       = "128k"
	defaultAudioSampleRate    = 48000
	defaultAudioChannels      = 2
	defaultMaxConcurrency     = 2
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Environment overrides.
const (
	EnvFFmpeg    = "HLSPACK_FFMPEG"
	EnvFFprobe   = "HLSPACK_FFPROBE"
	EnvOutputDir = "HLSPACK_OUTPUT_DIR"
	EnvLogLevel  = "HLSPACK_LOG_LEVEL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Encoder: Encoder{
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
			TimeoutSeconds:   defaultEncodeTimeout,
			KillGraceSeconds: defaultKillGraceSeconds,
		},
		Ladder: Ladder{
			Preset:    defaultLadderPreset,
			MinWidth:  defaultLadderMinWidth,
			MinHeight: defaultLadderMinHeight,
		},
		Video: Video{
			Codec:       defaultVideoCodec,
			Preset:      defaultVideoPreset,
			PixelFormat: defaultPixelFormat,
			GOPSize:     defaultGOPSize,
		},
		HLS: HLS{
			SegmentDuration:    defaultSegmentDuration,
			SegmentPattern:     defaultSegmentPattern,
			PlaylistType:       defaultPlaylistType,
			Flags:              []string{"delete_segments"},
			ProgressIntervalMS: defaultProgressIntervalMS,
		},
		Audio: Audio{
			Enabled:    true,
			Selection:  defaultAudioSelection,
			Codec:      defaultAudioCodec,
			Bitrate:    defaultAudioBitrate,
			SampleRate: defaultAudioSampleRate,
			Channels:   defaultAudioChannels,
			Segment:    true,
		},
		Subtitles: Subtitles{
			Enabled:         true,
			ConvertToWebVTT: true,
		},
		Processing: Processing{
			Parallel:       true,
			MaxConcurrency: defaultMaxConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
	}
}
