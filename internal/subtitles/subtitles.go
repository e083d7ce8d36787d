package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hlspack/internal/encoder"
	"hlspack/internal/fileutil"
	"hlspack/internal/language"
	"hlspack/internal/logging"
	"hlspack/internal/media/ffprobe"
	"hlspack/internal/playlist"
	"hlspack/internal/services"
	"hlspack/internal/textutil"
)

const phaseSubtitles = "subtitles"

// Subtitle describes one subtitle item, embedded or external, and the files
// produced for it.
type Subtitle struct {
	// StreamIndex is the input stream index; -1 for external files.
	StreamIndex int
	Source      string
	Codec       string
	Format      Format
	Language    string
	Title       string
	Default     bool
	Forced      bool

	Key          string
	FilePath     string
	WebVTTPath   string
	PlaylistPath string
}

// External reports whether the subtitle came from a sidecar file.
func (s Subtitle) External() bool {
	return s.StreamIndex < 0
}

// RequiresCustomRenderer reports whether the subtitle's format needs a
// styling-aware player.
func (s Subtitle) RequiresCustomRenderer() bool {
	return s.Format.RequiresCustomRenderer()
}

// Name is the label used in playlists.
func (s Subtitle) Name() string {
	if title := strings.TrimSpace(s.Title); title != "" {
		return title
	}
	name := language.DisplayName(s.Language)
	if s.Forced {
		name += " (Forced)"
	}
	return name
}

func (s Subtitle) key() string {
	if s.Key != "" {
		return s.Key
	}
	if s.External() {
		base := strings.TrimSuffix(filepath.Base(s.Source), filepath.Ext(s.Source))
		key := "external_" + textutil.SanitizeToken(base)
		if s.Language != "" {
			key += "_" + textutil.SanitizeToken(s.Language)
		}
		return key
	}
	return s.Language + "_" + strconv.Itoa(s.StreamIndex)
}

// ExternalSubtitle is a sidecar subtitle file supplied by the caller.
type ExternalSubtitle struct {
	Path     string `yaml:"path"`
	Language string `yaml:"language"`
	Title    string `yaml:"title"`
	Default  bool   `yaml:"default"`
	Forced   bool   `yaml:"forced"`
	// Key overrides the derived output key; set by UniqueExternal.
	Key      string `yaml:"-"`
}

// UniqueExternal returns a copy of exts with a distinct output key on every
// entry. Sidecars sharing a basename and language get a numeric suffix so
// they never write to the same files.
func UniqueExternal(exts []ExternalSubtitle) []ExternalSubtitle {
	out := make([]ExternalSubtitle, len(exts))
	seen := make(map[string]int, len(exts))
	for i, ext := range exts {
		key := ext.Key
		if key == "" {
			key = Subtitle{StreamIndex: -1, Source: ext.Path, Language: language.Tag(ext.Language)}.key()
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			candidate := key + "_" + strconv.Itoa(n)
			for seen[candidate] > 0 {
				n++
				candidate = key + "_" + strconv.Itoa(n)
			}
			seen[candidate] = 1
			key = candidate
		}
		ext.Key = key
		out[i] = ext
	}
	return out
}

// ExtractOptions controls where items are written and whether they are
// converted to WebVTT.
type ExtractOptions struct {
	OutputDir       string
	ConvertToWebVTT bool
	// Duration is the media length the WebVTT playlist spans.
	Duration time.Duration
}

// Extractor extracts and converts subtitles.
type Extractor struct {
	prober ffprobe.Prober
	runner encoder.Runner
	logger *slog.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor wires an extractor.
func NewExtractor(prober ffprobe.Prober, runner encoder.Runner, opts ...Option) *Extractor {
	e := &Extractor{prober: prober, runner: runner, logger: logging.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = logging.NewComponentLogger(e.logger, "subtitles")
	return e
}

// DetectEmbedded probes input for subtitle streams. Streams with unknown
// codecs are skipped.
func (e *Extractor) DetectEmbedded(ctx context.Context, input string) ([]Subtitle, error) {
	if _, err := os.Stat(input); err != nil {
		return nil, services.Wrap(services.ErrInputNotFound, phaseSubtitles, "stat input", input, err)
	}
	if e.prober == nil {
		return nil, services.Wrap(services.ErrConfiguration, phaseSubtitles, "probe", "prober unavailable", nil)
	}
	probe, err := e.prober.Probe(ctx, input)
	if err != nil {
		return nil, services.Wrap(services.ErrProbeFailure, phaseSubtitles, "probe", input, err)
	}
	var found []Subtitle
	for _, stream := range probe.StreamsOfType("subtitle") {
		format, ok := FormatForCodec(stream.CodecName)
		if !ok {
			e.logger.Debug("skipping subtitle stream with unknown codec",
				logging.Int("stream_index", stream.Index),
				logging.String("codec", stream.CodecName),
			)
			continue
		}
		found = append(found, Subtitle{
			StreamIndex: stream.Index,
			Source:      input,
			Codec:       strings.ToLower(stream.CodecName),
			Format:      format,
			Language:    language.Tag(language.ExtractFromTags(stream.Tags)),
			Title:       stream.Tag("title"),
			Default:     stream.IsDefault(),
			Forced:      stream.IsForced(),
		})
	}
	return found, nil
}

// Extract copies one embedded stream into its native format and optionally
// converts it to WebVTT with a subtitle playlist.
func (e *Extractor) Extract(ctx context.Context, input string, sub Subtitle, opts ExtractOptions) (Subtitle, error) {
	sub.Key = sub.key()
	if e.runner == nil {
		return sub, services.Wrap(services.ErrConfiguration, phaseSubtitles, "extract", "encoder runner unavailable", nil)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return sub, services.Wrap(services.ErrTrackExtraction, phaseSubtitles, "create output dir", opts.OutputDir, err)
	}
	sub.FilePath = filepath.Join(opts.OutputDir, sub.Key+nativeExtension(sub.Format, sub.Codec))
	if err := e.runner.Run(ctx, CopyArgs(input, sub, sub.FilePath), nil); err != nil {
		return sub, services.Wrap(services.ErrTrackExtraction, phaseSubtitles, "extract", sub.Key, err)
	}
	return e.finish(ctx, sub, opts)
}

// IngestExternal copies a sidecar file into the output tree and optionally
// converts it to WebVTT.
func (e *Extractor) IngestExternal(ctx context.Context, ext ExternalSubtitle, opts ExtractOptions) (Subtitle, error) {
	sub := Subtitle{
		StreamIndex: -1,
		Source:      ext.Path,
		Language:    language.Tag(ext.Language),
		Title:       ext.Title,
		Default:     ext.Default,
		Forced:      ext.Forced,
		Key:         ext.Key,
	}
	sub.Key = sub.key()
	info, err := os.Stat(ext.Path)
	if err != nil || info.IsDir() {
		return sub, services.Wrap(services.ErrExternalSubtitleMissing, phaseSubtitles, "ingest", ext.Path, err)
	}
	format, ok := FormatForPath(ext.Path)
	if !ok {
		return sub, services.Wrap(services.ErrTrackExtraction, phaseSubtitles, "ingest", "unsupported subtitle extension "+filepath.Ext(ext.Path), nil)
	}
	sub.Format = format
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return sub, services.Wrap(services.ErrTrackExtraction, phaseSubtitles, "create output dir", opts.OutputDir, err)
	}
	sub.FilePath = filepath.Join(opts.OutputDir, sub.Key+strings.ToLower(filepath.Ext(ext.Path)))
	if err := fileutil.CopyFile(ext.Path, sub.FilePath); err != nil {
		return sub, services.Wrap(services.ErrTrackExtraction, phaseSubtitles, "ingest", sub.Key, err)
	}
	return e.finish(ctx, sub, opts)
}

// finish converts to WebVTT when requested and possible, then writes the
// single-segment playlist.
func (e *Extractor) finish(ctx context.Context, sub Subtitle, opts ExtractOptions) (Subtitle, error) {
	logger := logging.WithContext(services.WithItem(ctx, sub.Key), e.logger)
	if !opts.ConvertToWebVTT || sub.Format.IsBitmap() {
		return sub, nil
	}
	switch {
	case sub.Format == FormatWebVTT:
		sub.WebVTTPath = sub.FilePath
	case sub.Format.ConvertibleToWebVTT():
		vtt := filepath.Join(opts.OutputDir, sub.Key+".vtt")
		if err := e.runner.Run(ctx, ConvertArgs(sub.FilePath, vtt), nil); err != nil {
			return sub, services.Wrap(services.ErrTrackExtraction, phaseSubtitles, "convert webvtt", sub.Key, err)
		}
		sub.WebVTTPath = vtt
	default:
		logger.Debug("subtitle format has no webvtt conversion", logging.String("format", string(sub.Format)))
		return sub, nil
	}

	sub.PlaylistPath = filepath.Join(opts.OutputDir, sub.Key+".m3u8")
	content := playlist.GenerateSubtitle(filepath.Base(sub.WebVTTPath), opts.Duration.Seconds())
	if err := playlist.WriteFile(sub.PlaylistPath, content); err != nil {
		return sub, services.Wrap(services.ErrTrackExtraction, phaseSubtitles, "write playlist", sub.Key, err)
	}
	logger.Debug("subtitle playlist written", logging.String("playlist", sub.PlaylistPath))
	return sub, nil
}

// CopyArgs builds the ffmpeg arguments that copy one subtitle stream.
// mov_text is rewrapped as SubRip since it cannot live outside MP4.
func CopyArgs(input string, sub Subtitle, output string) []string {
	codec := "copy"
	if sub.Codec == "mov_text" {
		codec = "srt"
	}
	return []string{
		"-y",
		"-i", input,
		"-map", "0:" + strconv.Itoa(sub.StreamIndex),
		"-vn", "-an", "-dn",
		"-c:s", codec,
		output,
	}
}

// ConvertArgs builds the ffmpeg arguments that convert a text subtitle file
// to WebVTT.
func ConvertArgs(input, output string) []string {
	return []string{"-y", "-i", input, "-map", "0:s:0", "-c:s", "webvtt", output}
}

// ItemError records a failed subtitle item.
type ItemError struct {
	Subtitle Subtitle
	Err      error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("subtitle %s: %v", e.Subtitle.key(), e.Err)
}

// Config controls Process.
type Config struct {
	ExtractOptions
	// Languages restricts embedded streams; empty keeps all.
	Languages []string
	External  []ExternalSubtitle
}

// Result is the outcome of Process. Subtitles and Errors are never nil.
type Result struct {
	Subtitles []Subtitle
	Errors    []ItemError
}

// Select filters embedded subtitles by language allow-list.
func Select(subs []Subtitle, languages []string) []Subtitle {
	allowed := language.NormalizeList(languages)
	if len(allowed) == 0 {
		return subs
	}
	selected := make([]Subtitle, 0, len(subs))
	for _, sub := range subs {
		if language.Matches(sub.Language, allowed) {
			selected = append(selected, sub)
		}
	}
	return selected
}

// Process extracts every selected embedded stream and ingests every external
// file. Only detection failures are returned as errors.
func (e *Extractor) Process(ctx context.Context, input string, cfg Config) (Result, error) {
	result := Result{Subtitles: []Subtitle{}, Errors: []ItemError{}}
	embedded, err := e.DetectEmbedded(ctx, input)
	if err != nil {
		return result, err
	}
	for _, sub := range Select(embedded, cfg.Languages) {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		out, err := e.Extract(ctx, input, sub, cfg.ExtractOptions)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{Subtitle: out, Err: err})
			continue
		}
		result.Subtitles = append(result.Subtitles, out)
	}
	for _, ext := range UniqueExternal(cfg.External) {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		out, err := e.IngestExternal(ctx, ext, cfg.ExtractOptions)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{Subtitle: out, Err: err})
			continue
		}
		result.Subtitles = append(result.Subtitles, out)
	}
	return result, nil
}
