package domain

import (
	"encoding/json"
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// StyledFeature is a detection paired with its marker style, ready for display.
type StyledFeature struct {
	Key    string
	Record DetectionRecord
	Style  StyleDescriptor
}

// Layer is the full set of styled detections produced by one ingestion cycle.
// It is always displayed as a whole, never patched.
type Layer struct {
	Cycle       uint64
	GeneratedAt time.Time
	Features    []StyledFeature
}

// Render styles deduplicated records into a layer for the given cycle.
func Render(cycle uint64, records []DetectionRecord) Layer {
	features := make([]StyledFeature, 0, len(records))
	for _, r := range records {
		features = append(features, StyledFeature{
			Key:    DedupeKey(r),
			Record: r,
			Style:  Style(r.Confidence, r.RadiativePower),
		})
	}
	return Layer{Cycle: cycle, GeneratedAt: clock.Now().UTC(), Features: features}
}

// EmptyLayer returns a layer with no features, used to clear the display.
func EmptyLayer(cycle uint64) Layer {
	return Layer{Cycle: cycle, GeneratedAt: clock.Now().UTC(), Features: []StyledFeature{}}
}

// Len returns the number of features.
func (l Layer) Len() int { return len(l.Features) }

// GeoJSON converts the layer into a FeatureCollection of points carrying
// popup fields and marker style as properties.
func (l Layer) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range l.Features {
		r := f.Record
		gf := geojson.NewPointFeature([]float64{r.Longitude, r.Latitude})
		gf.ID = f.Key
		gf.SetProperty("acq_date", r.AcquisitionDate)
		gf.SetProperty("acq_time", r.AcquisitionTime)
		gf.SetProperty("confidence", r.Confidence)
		gf.SetProperty("frp", r.RadiativePower)
		gf.SetProperty("satellite", r.Satellite)
		gf.SetProperty("instrument", r.Instrument)
		gf.SetProperty("source", r.Source)
		gf.SetProperty("tier", f.Style.Tier)
		gf.SetProperty("stroke_color", f.Style.StrokeColor)
		gf.SetProperty("fill_color", f.Style.FillColor)
		gf.SetProperty("radius", f.Style.Radius)
		gf.SetProperty("weight", MarkerWeight)
		gf.SetProperty("fill_opacity", MarkerFillOpacity)
		fc.AddFeature(gf)
	}
	return fc
}

// MarshalGeoJSON serializes the layer as a GeoJSON FeatureCollection.
func (l Layer) MarshalGeoJSON() ([]byte, error) {
	return json.Marshal(l.GeoJSON())
}
