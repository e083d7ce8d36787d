package audio

import (
	"fmt"
	"strings"

	"hlspack/internal/language"
)

// Selection chooses which tracks are packaged.
type Selection string

const (
	SelectAll       Selection = "all"
	SelectDefault   Selection = "default"
	SelectLanguages Selection = "languages"
)

// ParseSelection maps a configured value to a Selection. Empty means all.
func ParseSelection(value string) (Selection, error) {
	switch sel := Selection(strings.ToLower(strings.TrimSpace(value))); sel {
	case "":
		return SelectAll, nil
	case SelectAll, SelectDefault, SelectLanguages:
		return sel, nil
	default:
		return "", fmt.Errorf("unknown audio selection %q", value)
	}
}

// Select filters tracks. SelectDefault keeps the default-flagged track, or the
// first track when none is flagged. SelectLanguages keeps tracks whose
// language is in the allow-list. The input order is preserved.
func Select(tracks []TrackInfo, sel Selection, languages []string) []TrackInfo {
	if len(tracks) == 0 {
		return []TrackInfo{}
	}
	switch sel {
	case SelectDefault:
		for _, track := range tracks {
			if track.Default {
				return []TrackInfo{track}
			}
		}
		return []TrackInfo{tracks[0]}
	case SelectLanguages:
		allowed := language.NormalizeList(languages)
		selected := make([]TrackInfo, 0, len(tracks))
		for _, track := range tracks {
			if language.Matches(track.Language, allowed) {
				selected = append(selected, track)
			}
		}
		return selected
	default:
		return append([]TrackInfo(nil), tracks...)
	}
}

// DefaultTrack returns the index within tracks of the track a player should
// pick first: the first default-flagged track, else 0. Returns -1 for an
// empty slice.
func DefaultTrack(tracks []TrackInfo) int {
	if len(tracks) == 0 {
		return -1
	}
	for i, track := range tracks {
		if track.Default {
			return i
		}
	}
	return 0
}
