package playlist

import (
	"math"
	"strconv"
	"strings"
)

// RepairableCodes lists the findings Repair knows how to fix.
var RepairableCodes = []string{
	CodeMissingVersion,
	CodeMissingTargetDuration,
	CodeNegativeMediaSequence,
}

// RepairResult describes the outcome of a repair pass.
type RepairResult struct {
	Content string           `json:"content"`
	Changed bool             `json:"changed"`
	Applied []string         `json:"applied"`
	Before  ValidationResult `json:"before"`
	After   ValidationResult `json:"after"`
}

// ValidateAndRepair validates content and repairs whitelisted errors.
func ValidateAndRepair(content string) RepairResult {
	return Repair(content, Validate(content))
}

// Repair fixes the whitelisted errors reported in before and re-validates the
// result. Content without an #EXTM3U header is returned unchanged. Repair never
// touches findings outside the whitelist, so applying it twice yields the same
// text as applying it once.
//
// A missing version is inserted as #EXT-X-VERSION:3 directly after the header
// line so the output remains a well-formed playlist.
func Repair(content string, before ValidationResult) RepairResult {
	result := RepairResult{Content: content, Applied: []string{}, Before: before}
	scan := scanLines(content)
	if !scan.hasHeader {
		result.After = before
		return result
	}

	lines := splitLines(content)
	insertAfterHeader := []string{}

	if before.Has(CodeMissingVersion) {
		insertAfterHeader = append(insertAfterHeader, tagVersion+":"+strconv.Itoa(DefaultVersion))
		result.Applied = append(result.Applied, CodeMissingVersion)
	}
	if before.Has(CodeMissingTargetDuration) && scan.sawExtinf {
		target := int(math.Ceil(scan.maxExtinf))
		line := tagTargetDuration + ":" + strconv.Itoa(target)
		if scan.versionLine > 0 {
			lines = insertAt(lines, scan.versionLine, line)
			if scan.sequenceLine > scan.versionLine {
				scan.sequenceLine++
			}
		} else {
			insertAfterHeader = append(insertAfterHeader, line)
		}
		result.Applied = append(result.Applied, CodeMissingTargetDuration)
	}
	if before.Has(CodeNegativeMediaSequence) && scan.sequenceLine > 0 {
		lines[scan.sequenceLine-1] = tagMediaSequence + ":0"
		result.Applied = append(result.Applied, CodeNegativeMediaSequence)
	}
	if len(insertAfterHeader) > 0 {
		lines = insertAt(lines, scan.headerLine, insertAfterHeader...)
	}

	if len(result.Applied) == 0 {
		result.After = before
		return result
	}
	result.Content = strings.Join(lines, "\n")
	result.Changed = result.Content != content
	result.After = Validate(result.Content)
	return result
}

// insertAt inserts values after the given 1-based line number.
func insertAt(lines []string, after int, values ...string) []string {
	if after > len(lines) {
		after = len(lines)
	}
	out := make([]string, 0, len(lines)+len(values))
	out = append(out, lines[:after]...)
	out = append(out, values...)
	out = append(out, lines[after:]...)
	return out
}
