package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputNotFound           = errors.New("input not found")
	ErrProbeFailure            = errors.New("probe failure")
	ErrEncodeFailure           = errors.New("encode failure")
	ErrTimeout                 = errors.New("timeout")
	ErrPlaylistParse           = errors.New("playlist parse error")
	ErrPlaylistValidation      = errors.New("playlist validation error")
	ErrTrackExtraction         = errors.New("track extraction error")
	ErrExternalSubtitleMissing = errors.New("external subtitle missing")
	ErrConfiguration           = errors.New("configuration error")
)

// Wrap builds an error message that includes phase context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrEncodeFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the stable taxonomy code for err. Per-item markers take
// precedence over the encode failures they wrap. Context cancellation maps to
// "Canceled"; unknown errors map to "Unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExternalSubtitleMissing):
		return "ExternalSubtitleMissing"
	case errors.Is(err, ErrTrackExtraction):
		return "TrackExtractionError"
	case errors.Is(err, ErrInputNotFound):
		return "InputNotFound"
	case errors.Is(err, ErrProbeFailure):
		return "ProbeFailure"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, ErrEncodeFailure):
		return "EncodeFailure"
	case errors.Is(err, ErrPlaylistParse):
		return "PlaylistParseError"
	case errors.Is(err, ErrPlaylistValidation):
		return "PlaylistValidationError"
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	default:
		return "Unknown"
	}
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
