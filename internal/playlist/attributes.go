package playlist

import (
	"strconv"
	"strings"
)

// parseAttributes splits an attribute list such as
// BANDWIDTH=800000,CODECS="avc1.4d401f,mp4a.40.2" into a map. Quoted values
// may contain commas; surrounding quotes are removed.
func parseAttributes(list string) map[string]string {
	attrs := make(map[string]string)
	var key strings.Builder
	var value strings.Builder
	inKey := true
	inQuotes := false

	flush := func() {
		k := strings.ToUpper(strings.TrimSpace(key.String()))
		if k != "" {
			attrs[k] = strings.TrimSpace(value.String())
		}
		key.Reset()
		value.Reset()
		inKey = true
	}

	for _, r := range list {
		switch {
		case inKey && r == '=':
			inKey = false
		case inKey && r == ',':
			flush()
		case inKey:
			key.WriteRune(r)
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			flush()
		default:
			value.WriteRune(r)
		}
	}
	flush()
	return attrs
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}

func isYes(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "YES")
}

func quote(v string) string {
	return `"` + v + `"`
}

func atoi(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// formatDuration renders a duration the way EXTINF expects: shortest exact
// decimal form, always with a fractional part.
func formatDuration(d float64) string {
	s := strconv.FormatFloat(d, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
