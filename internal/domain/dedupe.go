package domain

import "strconv"

// DedupeKey identifies a physical detection across feeds: coordinates rounded
// to five decimals plus acquisition date and time.
func DedupeKey(r DetectionRecord) string {
	return strconv.FormatFloat(r.Longitude, 'f', 5, 64) + "|" +
		strconv.FormatFloat(r.Latitude, 'f', 5, 64) + "|" +
		r.AcquisitionDate + "|" + r.AcquisitionTime
}

// Dedupe drops records whose DedupeKey was already seen. The first occurrence
// wins and input order is preserved. Records without finite coordinates are
// skipped.
func Dedupe(records []DetectionRecord) []DetectionRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]DetectionRecord, 0, len(records))
	for _, r := range records {
		if !r.HasGeometry() {
			continue
		}
		key := DedupeKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
