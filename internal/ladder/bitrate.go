package ladder

import (
	"math"
	"strconv"
	"strings"
)

type tier struct {
	pixels  int
	bitrate string
}

// Tiers are ordered from largest to smallest.
var bitrateTiers = []tier{
	{3840 * 2160, "15000k"},
	{2560 * 1440, "8000k"},
	{1920 * 1080, "5000k"},
	{1280 * 720, "2800k"},
	{854 * 480, "1400k"},
	{640 * 360, "800k"},
	{426 * 240, "400k"},
}

const (
	floorKbps      = 300
	floorReference = 426 * 240
	floorRefKbps   = 400
)

// DefaultBitrate returns the tiered bitrate for the given dimensions.
func DefaultBitrate(width, height int) string {
	pixels := width * height
	for _, t := range bitrateTiers {
		if pixels >= t.pixels {
			return t.bitrate
		}
	}
	kbps := int(math.Round(floorRefKbps * float64(pixels) / floorReference))
	if kbps < floorKbps {
		kbps = floorKbps
	}
	return strconv.Itoa(kbps) + "k"
}

func bitrateFor(res Resolution, overrides map[string]string) string {
	if override, ok := overrides[res.Name]; ok && strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override)
	}
	return DefaultBitrate(res.Width, res.Height)
}

// ParseBitrateKbps converts an ffmpeg rate string to kilobits per second.
// Bare numbers are bits per second. Returns 0 when unparseable.
func ParseBitrateKbps(rate string) int {
	rate = strings.TrimSpace(strings.ToLower(rate))
	if rate == "" {
		return 0
	}
	multiplier := 1.0 / 1000
	switch {
	case strings.HasSuffix(rate, "k"):
		multiplier = 1
		rate = strings.TrimSuffix(rate, "k")
	case strings.HasSuffix(rate, "m"):
		multiplier = 1000
		rate = strings.TrimSuffix(rate, "m")
	}
	value, err := strconv.ParseFloat(rate, 64)
	if err != nil || value < 0 {
		return 0
	}
	return int(math.Round(value * multiplier))
}
