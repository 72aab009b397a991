package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var lineSplitRe = regexp.MustCompile(`\r?\n`)

// Column names located in the FIRMS header row.
const (
	colLatitude   = "latitude"
	colLongitude  = "longitude"
	colDate       = "acq_date"
	colTime       = "acq_time"
	colConfidence = "confidence"
	colFRP        = "frp"
	colSatellite  = "satellite"
	colInstrument = "instrument"
)

// ParseResult holds the records parsed from one CSV body plus counts for
// observability.
type ParseResult struct {
	Records []DetectionRecord
	Rows    int // data rows seen, excluding the header
	Dropped int // rows without finite coordinates
}

// ParseCSV converts a FIRMS CSV body into detection records tagged with source.
// A body with no data rows yields an empty result. Row-level problems never
// fail the parse: rows without finite coordinates are dropped and missing
// columns produce empty fields.
func ParseCSV(source, body string) ParseResult {
	lines := lineSplitRe.Split(strings.TrimSpace(body), -1)
	if len(lines) <= 1 {
		return ParseResult{}
	}

	cols := newColumnIndex(strings.Split(lines[0], ","))
	res := ParseResult{Records: make([]DetectionRecord, 0, len(lines)-1)}

	for _, line := range lines[1:] {
		res.Rows++
		fields := strings.Split(line, ",")

		lat, okLat := parseCoordinate(cols.get(fields, colLatitude))
		lon, okLon := parseCoordinate(cols.get(fields, colLongitude))
		if !okLat || !okLon {
			res.Dropped++
			continue
		}

		res.Records = append(res.Records, DetectionRecord{
			Longitude:       lon,
			Latitude:        lat,
			AcquisitionDate: cols.get(fields, colDate),
			AcquisitionTime: NormalizeTime(cols.get(fields, colTime)),
			Confidence:      cols.get(fields, colConfidence),
			RadiativePower:  cols.get(fields, colFRP),
			Satellite:       cols.get(fields, colSatellite),
			Instrument:      cols.get(fields, colInstrument),
			Source:          source,
		})
	}
	return res
}

// NormalizeTime left-pads a FIRMS acq_time to four digits and formats it as
// HH:MM, e.g. "5" -> "00:05", "1430" -> "14:30".
func NormalizeTime(raw string) string {
	if len(raw) < 4 {
		raw = strings.Repeat("0", 4-len(raw)) + raw
	}
	return raw[:2] + ":" + raw[2:4]
}

// columnIndex maps header names to positions.
type columnIndex map[string]int

func newColumnIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

// get returns the named field of a row, or "" when the column is absent from
// the header or the row is short.
func (c columnIndex) get(fields []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

func parseCoordinate(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}
