// Package language normalizes language codes found in stream metadata,
// configuration, and external subtitle file names.
//
// Common languages resolve through a fixed table covering ISO 639-1,
// ISO 639-2 (terminological and bibliographic), and English word forms.
// Everything else falls back to golang.org/x/text/language so any registered
// ISO 639 code still maps to a canonical tag and display name.
package language
