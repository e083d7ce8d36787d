package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
)

const fallbackJobName = "job"

// SanitizeFileName makes name usable as a single path segment. Separators,
// colons, and asterisks become dashes. Shell-hostile punctuation and control
// characters are dropped.
func SanitizeFileName(name string) string {
	return strings.TrimSpace(strings.Map(fileNameRune, name))
}

func fileNameRune(r rune) rune {
	switch {
	case strings.ContainsRune(`/\:*`, r):
		return '-'
	case strings.ContainsRune(`?"<>|`, r), unicode.IsControl(r):
		return -1
	}
	return r
}

// SanitizeToken lowercases value into [a-z0-9_-]+, mapping anything else to
// an underscore. Returns "unknown" when nothing survives.
func SanitizeToken(value string) string {
	token := strings.Map(tokenRune, strings.TrimSpace(value))
	if token = strings.Trim(token, "_-"); token == "" {
		return "unknown"
	}
	return token
}

func tokenRune(r rune) rune {
	switch {
	case r >= 'A' && r <= 'Z':
		return r + ('a' - 'A')
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		return r
	}
	return '_'
}

// JobName derives an output directory name from an input path: the base name
// without its extension, sanitized, with whitespace runs joined by
// underscores.
func JobName(input string) string {
	base := filepath.Base(strings.TrimSpace(input))
	if base == "." || base == string(filepath.Separator) {
		return fallbackJobName
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := strings.Trim(strings.Join(strings.Fields(SanitizeFileName(base)), "_"), ".")
	if name == "" {
		return fallbackJobName
	}
	return name
}
