package domain

import "math"

// DetectionRecord is one fire/thermal-anomaly observation parsed from a FIRMS row.
type DetectionRecord struct {
	Longitude       float64 `json:"longitude"`
	Latitude        float64 `json:"latitude"`
	AcquisitionDate string  `json:"acq_date"`
	AcquisitionTime string  `json:"acq_time"` // normalized HH:MM
	Confidence      string  `json:"confidence"`
	RadiativePower  string  `json:"frp"` // raw; may be empty or non-numeric
	Satellite       string  `json:"satellite"`
	Instrument      string  `json:"instrument"`
	Source          string  `json:"source"`
}

// HasGeometry reports whether both coordinates are finite.
func (r DetectionRecord) HasGeometry() bool {
	return isFinite(r.Longitude) && isFinite(r.Latitude)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
