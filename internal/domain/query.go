package domain

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the FIRMS area CSV endpoint.
const DefaultBaseURL = "https://firms.modaps.eosdis.nasa.gov/api/area/csv"

// Day window limits enforced by the FIRMS area API.
const (
	MinDays     = 1
	MaxDays     = 10
	DefaultDays = 3
)

// KnownSources lists the FIRMS feed identifiers accepted by the area API.
var KnownSources = []string{
	"VIIRS_SNPP_NRT",
	"VIIRS_NOAA20_NRT",
	"VIIRS_NOAA21_NRT",
	"MODIS_NRT",
	"VIIRS_SNPP_SP",
	"VIIRS_NOAA20_SP",
	"MODIS_SP",
	"LANDSAT_NRT",
}

// DefaultSources are the near-real-time VIIRS feeds.
var DefaultSources = []string{"VIIRS_SNPP_NRT", "VIIRS_NOAA20_NRT", "VIIRS_NOAA21_NRT"}

// IsKnownSource reports whether id is a FIRMS feed identifier.
func IsKnownSource(id string) bool {
	for _, s := range KnownSources {
		if s == id {
			return true
		}
	}
	return false
}

// NormalizeSources trims, deduplicates and validates source ids, preserving
// selection order.
func NormalizeSources(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if !IsKnownSource(id) {
			return nil, fmt.Errorf("unknown FIRMS source %q", id)
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// BoundingBox is [minLon, minLat, maxLon, maxLat] in WGS-84 degrees.
type BoundingBox [4]float64

// NewBoundingBox validates that vals has exactly four finite components.
func NewBoundingBox(vals []float64) (BoundingBox, error) {
	if len(vals) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: want 4 components, got %d", ErrInvalidBoundingBox, len(vals))
	}
	var b BoundingBox
	for i, v := range vals {
		if !isFinite(v) {
			return BoundingBox{}, fmt.Errorf("%w: component %d is not finite", ErrInvalidBoundingBox, i)
		}
		b[i] = v
	}
	return b, nil
}

// ParseBoundingBox parses "minLon,minLat,maxLon,maxLat".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %q is not a number", ErrInvalidBoundingBox, p)
		}
		vals = append(vals, v)
	}
	return NewBoundingBox(vals)
}

// String renders the box as the comma-joined path segment used by the API,
// using the shortest decimal form of each component.
func (b BoundingBox) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ClampDays limits a day window to [MinDays, MaxDays].
func ClampDays(days int) int {
	return max(MinDays, min(MaxDays, days))
}

// ParseDays converts user input to an effective day window. Missing or
// non-numeric input falls back to DefaultDays; fractional values are truncated.
func ParseDays(s string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || v == 0 {
		return DefaultDays
	}
	return int(math.Max(MinDays, math.Min(MaxDays, v)))
}

// SourceQuery is one FIRMS request unit. Build it with NewSourceQuery.
type SourceQuery struct {
	apiKey string
	source string
	bbox   BoundingBox
	days   int
}

// NewSourceQuery validates bbox and clamps days. No network activity happens here.
func NewSourceQuery(apiKey, source string, bbox []float64, days int) (SourceQuery, error) {
	b, err := NewBoundingBox(bbox)
	if err != nil {
		return SourceQuery{}, err
	}
	return SourceQuery{apiKey: apiKey, source: source, bbox: b, days: ClampDays(days)}, nil
}

// Source returns the FIRMS feed identifier.
func (q SourceQuery) Source() string { return q.source }

// Days returns the clamped day window.
func (q SourceQuery) Days() int { return q.days }

// Box returns the validated bounding box.
func (q SourceQuery) Box() BoundingBox { return q.bbox }

// URL returns the area CSV URL for this query under base.
func (q SourceQuery) URL(base string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%d",
		strings.TrimRight(base, "/"),
		url.PathEscape(q.apiKey),
		url.PathEscape(q.source),
		q.bbox.String(),
		q.days,
	)
}
