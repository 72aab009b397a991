// Package domain models NASA FIRMS active-fire detections and the pure stages
// of the ingestion pipeline: query construction, CSV parsing, deduplication
// and marker styling.
//
// # Data Source
//
// Detections come from the FIRMS area API, which serves one CSV document per
// sensor feed for a bounding box and a trailing day window:
//
//	{base}/{MAP_KEY}/{SOURCE}/{minLon},{minLat},{maxLon},{maxLat}/{DAYS}
//
// DAYS is limited by the API to 1..10. SOURCE is one of the feed identifiers in
// [KnownSources], e.g. VIIRS_SNPP_NRT. Each feed is queried independently and
// the feeds overlap, so the same physical detection can be reported more than
// once (see [Dedupe]).
//
// # CSV Conventions
//
// The first line is a header. Columns are located by name, not position, since
// VIIRS and MODIS feeds order and name their brightness columns differently:
//
//	latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,
//	instrument,confidence,version,bright_ti5,frp,daynight
//
// Fields are comma separated with no quoting. Rows whose latitude or longitude
// is not a finite number are routine noise in the live feed and are dropped.
//
// Time format:
//
//	acq_time is HHMM UTC with leading zeros stripped: "5" means 00:05 and
//	"530" means 05:30. Values are zero-padded to four digits and rendered
//	as "HH:MM".
//
// Confidence encoding (varies by sensor):
//
//	VIIRS: letter codes "l", "n", "h" (low, nominal, high).
//	MODIS: integer percentage 0–100.
//
// Both encodings collapse into the four tiers of [Tier] (see [ClassifyConfidence]).
//
// FRP:
//
//	Fire radiative power in MW. Kept as the raw string for display; parsed
//	only to size markers (see [RadiusFor]).
package domain
