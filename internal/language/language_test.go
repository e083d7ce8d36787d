package language

import (
	"reflect"
	"testing"
)

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"fre", "fr"},
		{"ger", "de"},
		{"chi", "zh"},
		{"dut", "nl"},
		{"cze", "cs"},
		{"rum", "ro"},
		{"english", "en"},
		{"GERMAN", "de"},
		{"tur", "tr"}, // resolved outside the table
		{"xy", "xy"},
		{"q1z", ""},
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO2(tt.input); got != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "eng"},
		{"fr", "fra"},
		{"zh", "zho"},
		{"spa", "spa"},
		{"ger", "deu"},
		{"French", "fra"},
		{"tr", "tur"},
		{"xyz", "xyz"},
		{"", "und"},
		{"english language", "und"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO3(tt.input); got != tt.expected {
				t.Errorf("ToISO3(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTag(t *testing.T) {
	tests := map[string]string{
		"eng":     "en",
		"fre":     "fr",
		"en":      "en",
		"":        "und",
		"unknown": "und",
	}
	for input, want := range tests {
		if got := Tag(input); got != want {
			t.Errorf("Tag(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"eng", "English"},
		{"fre", "French"},
		{"ja", "Japanese"},
		{"tr", "Turkish"},
		{"q1z", "Q1Z"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	if got := Title("  director commentary "); got != "Director Commentary" {
		t.Fatalf("Title = %q", got)
	}
}

func TestExtractFromTags(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want string
	}{
		{"nil", nil, ""},
		{"lowercase key", map[string]string{"language": "ENG"}, "eng"},
		{"uppercase key", map[string]string{"LANGUAGE": "fre"}, "fre"},
		{"ietf", map[string]string{"language_ietf": "en-US"}, "en-us"},
		{"blank value", map[string]string{"language": "  "}, ""},
		{"nul padded", map[string]string{"lang": "jpn\u0000"}, "jpn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFromTags(tt.tags); got != tt.want {
				t.Errorf("ExtractFromTags = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{"eng", "EN", "French", " ", "xyz", "fr"})
	want := []string{"en", "fr", "xyz"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeList = %v, want %v", got, want)
	}
	if NormalizeList(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
	if NormalizeList([]string{" "}) != nil {
		t.Fatal("expected nil for blank input")
	}
}

func TestMatches(t *testing.T) {
	allowed := NormalizeList([]string{"eng", "ja"})
	for _, code := range []string{"en", "eng", "English", "jpn"} {
		if !Matches(code, allowed) {
			t.Errorf("Matches(%q) = false", code)
		}
	}
	if Matches("fre", allowed) {
		t.Error("Matches(fre) = true")
	}
}
