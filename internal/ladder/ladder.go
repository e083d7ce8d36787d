package ladder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Resolution is one rung of the ladder.
type Resolution struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Name    string `json:"name"`
	Bitrate string `json:"bitrate"`
}

// Key returns the dimension key used for de-duplication.
func (r Resolution) Key() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// BitrateKbps parses the bitrate string ("2800k", "5M", "800000") into kilobits per second.
func (r Resolution) BitrateKbps() int {
	return ParseBitrateKbps(r.Bitrate)
}

// Preset names a predefined scale factor set.
type Preset string

const (
	PresetLow    Preset = "low"
	PresetMedium Preset = "medium"
	PresetHigh   Preset = "high"
	PresetMobile Preset = "mobile"
)

// DefaultScaleFactors is the factor set used when neither explicit factors nor
// a preset are supplied.
var DefaultScaleFactors = []float64{0.75, 0.5, 0.375, 0.25}

var presetFactors = map[Preset][]float64{
	PresetLow:    {0.5, 0.25},
	PresetMedium: DefaultScaleFactors,
	PresetHigh:   {0.875, 0.75, 0.625, 0.5, 0.375, 0.25},
	PresetMobile: {0.5, 0.375, 0.25, 0.1875},
}

// ParsePreset maps a user-supplied name to a preset. An empty name selects medium.
func ParsePreset(name string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(PresetMedium), "default":
		return PresetMedium, nil
	case string(PresetLow):
		return PresetLow, nil
	case string(PresetHigh):
		return PresetHigh, nil
	case string(PresetMobile):
		return PresetMobile, nil
	default:
		return "", fmt.Errorf("unknown ladder preset %q (expected low, medium, high, or mobile)", name)
	}
}

// Factors returns a copy of the preset's scale factors.
func (p Preset) Factors() []float64 {
	factors, ok := presetFactors[p]
	if !ok {
		factors = DefaultScaleFactors
	}
	return append([]float64(nil), factors...)
}

// Options controls ladder derivation.
type Options struct {
	SourceWidth  int
	SourceHeight int
	MinWidth     int
	MinHeight    int
	// ScaleFactors wins over Preset when non-empty.
	ScaleFactors     []float64
	Preset           Preset
	BitrateOverrides map[string]string
}

func (o Options) factors() []float64 {
	if len(o.ScaleFactors) > 0 {
		return o.ScaleFactors
	}
	if o.Preset != "" {
		return o.Preset.Factors()
	}
	return DefaultScaleFactors
}

// Derive computes the rendition ladder. It never fails; an empty slice means no
// scale factor produced a rung that satisfies the constraints.
func Derive(opts Options) []Resolution {
	srcW, srcH := opts.SourceWidth, opts.SourceHeight
	if srcW <= 0 || srcH <= 0 {
		return []Resolution{}
	}

	out := make([]Resolution, 0, len(opts.factors()))
	seen := make(map[string]struct{})
	for _, scale := range opts.factors() {
		if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
			continue
		}
		w := evenFloor(int(math.Round(float64(srcW) * scale)))
		h := evenFloor(int(math.Round(float64(srcH) * scale)))
		if w <= 0 || h <= 0 {
			continue
		}
		if w >= srcW || h >= srcH {
			continue
		}
		if w < opts.MinWidth || h < opts.MinHeight {
			continue
		}
		res := Resolution{Width: w, Height: h}
		if _, dup := seen[res.Key()]; dup {
			continue
		}
		seen[res.Key()] = struct{}{}
		res.Name = Name(w, h)
		res.Bitrate = bitrateFor(res, opts.BitrateOverrides)
		out = append(out, res)
	}
	return out
}

// SourceRung builds the unscaled top rung for a source, with dimensions
// rounded down to even values.
func SourceRung(width, height int, overrides map[string]string) (Resolution, bool) {
	w, h := evenFloor(width), evenFloor(height)
	if w <= 0 || h <= 0 {
		return Resolution{}, false
	}
	res := Resolution{Width: w, Height: h, Name: Name(w, h)}
	res.Bitrate = bitrateFor(res, overrides)
	return res, true
}

var referenceHeights = []int{2160, 1440, 1080, 720, 480, 360, 240, 144}

const nameTolerance = 0.15

// Name returns the canonical rung label for the dimensions, measured on the
// short side, or "WxH" when no reference height is within tolerance.
func Name(width, height int) string {
	short := height
	if width < height {
		short = width
	}
	best := 0
	bestDiff := math.MaxInt
	for _, ref := range referenceHeights {
		diff := abs(short - ref)
		if diff < bestDiff {
			best, bestDiff = ref, diff
		}
	}
	if best == 0 || float64(bestDiff)/float64(best) > nameTolerance {
		return fmt.Sprintf("%dx%d", width, height)
	}
	return strconv.Itoa(best) + "p"
}

func evenFloor(v int) int {
	if v%2 != 0 {
		return v - 1
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
