package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string
	code3   string
	alt3    string // bibliographic form, e.g. "fre"
	display string
}

var table = []entry{
	{"en", "eng", "", "English"},
	{"es", "spa", "", "Spanish"},
	{"fr", "fra", "fre", "French"},
	{"de", "deu", "ger", "German"},
	{"it", "ita", "", "Italian"},
	{"pt", "por", "", "Portuguese"},
	{"ja", "jpn", "", "Japanese"},
	{"ko", "kor", "", "Korean"},
	{"zh", "zho", "chi", "Chinese"},
	{"ru", "rus", "", "Russian"},
	{"ar", "ara", "", "Arabic"},
	{"hi", "hin", "", "Hindi"},
	{"nl", "nld", "dut", "Dutch"},
	{"pl", "pol", "", "Polish"},
	{"sv", "swe", "", "Swedish"},
	{"da", "dan", "", "Danish"},
	{"no", "nor", "", "Norwegian"},
	{"fi", "fin", "", "Finnish"},
	{"cs", "ces", "cze", "Czech"},
	{"el", "ell", "gre", "Greek"},
	{"ro", "ron", "rum", "Romanian"},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(table)*4)
	for i := range table {
		e := &table[i]
		m[e.code2] = e
		m[e.code3] = e
		if e.alt3 != "" {
			m[e.alt3] = e
		}
		m[strings.ToLower(e.display)] = e
	}
	return m
}()

var titleCaser = cases.Title(xlang.English)

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	return index[code]
}

// resolve maps a code outside the table through x/text.
func resolve(code string) (xlang.Base, bool) {
	base, err := xlang.ParseBase(code)
	if err != nil {
		return xlang.Base{}, false
	}
	return base, true
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns an empty string for unrecognized input; unknown 2-letter codes pass
// through unchanged.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	if len(code) == 3 {
		if base, ok := resolve(code); ok && len(base.String()) == 2 {
			return base.String()
		}
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Unknown 3-letter codes pass through; unresolvable input becomes "und".
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if len(code) == 3 {
		return code
	}
	if len(code) == 2 {
		if base, ok := resolve(code); ok {
			return base.ISO3()
		}
	}
	return "und"
}

// Tag returns the shortest canonical code for use in playlist LANGUAGE
// attributes and output file names: ISO 639-1 when one exists, otherwise
// ISO 639-2, otherwise "und".
func Tag(code string) string {
	if iso2 := ToISO2(code); iso2 != "" {
		return iso2
	}
	return ToISO3(code)
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	if len(trimmed) == 2 || len(trimmed) == 3 {
		if base, ok := resolve(strings.ToLower(trimmed)); ok {
			if name := display.English.Languages().Name(base); name != "" {
				return name
			}
		}
	}
	return strings.ToUpper(trimmed)
}

// Title applies English title casing to a track name.
func Title(value string) string {
	return titleCaser.String(strings.TrimSpace(value))
}

// ExtractFromTags extracts and normalizes the language from stream metadata tags.
// Checks common tag keys: language, LANGUAGE, Language, language_ietf, lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}

// NormalizeList deduplicates and normalizes a list of language codes to ISO 639-1.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		trimmed := strings.ToLower(strings.TrimSpace(lang))
		if trimmed == "" {
			continue
		}
		if len(trimmed) > 2 {
			if mapped := ToISO2(trimmed); mapped != "" {
				trimmed = mapped
			}
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

// Matches reports whether code refers to one of the allowed languages.
// allowed is expected to be normalized with NormalizeList.
func Matches(code string, allowed []string) bool {
	tag := Tag(code)
	for _, candidate := range allowed {
		if candidate == tag || ToISO3(candidate) == ToISO3(code) {
			return true
		}
	}
	return false
}
