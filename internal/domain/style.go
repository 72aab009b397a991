package domain

import (
	"strconv"
	"strings"
)

// Tier is a qualitative confidence bucket shared by VIIRS letter codes and
// MODIS percentages.
type Tier string

const (
	TierHigh    Tier = "high"
	TierNominal Tier = "nominal"
	TierLow     Tier = "low"
	TierUnknown Tier = "unknown"
)

// Marker radii in pixels, selected by fire radiative power.
const (
	RadiusSmall  = 4
	RadiusMedium = 6
	RadiusLarge  = 8
)

// Fixed marker attributes applied to every detection.
const (
	MarkerWeight      = 1
	MarkerFillOpacity = 0.8
)

// StyleDescriptor describes how a detection marker is drawn.
type StyleDescriptor struct {
	Tier        Tier   `json:"tier"`
	StrokeColor string `json:"stroke_color"`
	FillColor   string `json:"fill_color"`
	Radius      int    `json:"radius"`
}

type palette struct {
	stroke, fill string
}

var tierPalette = map[Tier]palette{
	TierHigh:    {stroke: "#000000", fill: "#ff0000"},
	TierNominal: {stroke: "#000000", fill: "#ff8c00"},
	TierLow:     {stroke: "#000000", fill: "#ffd000"},
	TierUnknown: {stroke: "#0d00ff", fill: "#2f00ff"},
}

// ClassifyConfidence maps a raw confidence value to a tier. Rules are checked
// in order and the first match wins:
//
//	contains "h" or >= 80 -> high
//	contains "n" or >= 40 -> nominal
//	contains "l" or >= 1  -> low
//	otherwise             -> unknown
func ClassifyConfidence(raw string) Tier {
	v := strings.ToLower(raw)
	n, numeric := parseNumber(v)

	switch {
	case strings.Contains(v, "h") || numeric && n >= 80:
		return TierHigh
	case strings.Contains(v, "n") || numeric && n >= 40:
		return TierNominal
	case strings.Contains(v, "l") || numeric && n >= 1:
		return TierLow
	default:
		return TierUnknown
	}
}

// RadiusFor sizes a marker by fire radiative power. Missing or non-numeric
// power gets the smallest radius.
func RadiusFor(frp string) int {
	v, ok := parseNumber(frp)
	switch {
	case !ok:
		return RadiusSmall
	case v > 50:
		return RadiusLarge
	case v > 20:
		return RadiusMedium
	default:
		return RadiusSmall
	}
}

// Style returns the marker style for a detection. It is defined for every input.
func Style(confidence, frp string) StyleDescriptor {
	tier := ClassifyConfidence(confidence)
	p := tierPalette[tier]
	return StyleDescriptor{
		Tier:        tier,
		StrokeColor: p.stroke,
		FillColor:   p.fill,
		Radius:      RadiusFor(frp),
	}
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}
