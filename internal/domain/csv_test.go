package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "latitude,longitude,acq_date,acq_time,confidence,frp,satellite,instrument"

func TestParseCSV_SingleRow(t *testing.T) {
	body := testHeader + "\n-18.5,-59.5,2024-01-01,530,85,75,N,VIIRS\n"

	res := ParseCSV("VIIRS_NOAA20_NRT", body)

	want := []DetectionRecord{{
		Longitude:       -59.5,
		Latitude:        -18.5,
		AcquisitionDate: "2024-01-01",
		AcquisitionTime: "05:30",
		Confidence:      "85",
		RadiativePower:  "75",
		Satellite:       "N",
		Instrument:      "VIIRS",
		Source:          "VIIRS_NOAA20_NRT",
	}}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, res.Rows)
	assert.Zero(t, res.Dropped)

	style := Style(res.Records[0].Confidence, res.Records[0].RadiativePower)
	assert.Equal(t, TierHigh, style.Tier)
	assert.Equal(t, "#ff0000", style.FillColor)
	assert.Equal(t, RadiusLarge, style.Radius)
}

func TestParseCSV_Empty(t *testing.T) {
	for _, body := range []string{"", "   \n", testHeader, testHeader + "\n", testHeader + "\r\n"} {
		res := ParseCSV("VIIRS_SNPP_NRT", body)
		assert.Empty(t, res.Records, "body %q", body)
		assert.Zero(t, res.Rows)
	}
}

func TestParseCSV_DropsBadCoordinates(t *testing.T) {
	res := ParseCSV("VIIRS_SNPP_NRT", testHeader+"\nabc,-59.5,2024-01-01,530,h,10,N,VIIRS\n")
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, 1, res.Dropped)
}

func TestParseCSV_MixedRows(t *testing.T) {
	body := testHeader + "\r\n" +
		"-18.5,-59.5,2024-01-01,1430,h,12.3,N,VIIRS\r\n" +
		",-59.5,2024-01-01,1430,h,12.3,N,VIIRS\r\n" +
		"-18.6,NaN,2024-01-01,1430,h,12.3,N,VIIRS\r\n" +
		"-18.7,Inf,2024-01-01,1430,h,12.3,N,VIIRS\r\n" +
		"short\r\n" +
		"-18.8,-59.8,2024-01-02,5,l,,1,VIIRS\r\n"

	res := ParseCSV("VIIRS_SNPP_NRT", body)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 6, res.Rows)
	assert.Equal(t, 4, res.Dropped)

	assert.Equal(t, "14:30", res.Records[0].AcquisitionTime)
	assert.Equal(t, "00:05", res.Records[1].AcquisitionTime)
	assert.Equal(t, "", res.Records[1].RadiativePower)
}

func TestParseCSV_ColumnsByName(t *testing.T) {
	// MODIS-style ordering with extra columns.
	body := "latitude,longitude,brightness,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_t31,frp,daynight\n" +
		"-17.1,-60.2,320.5,1.0,1.0,2024-02-03,0112,Aqua,MODIS,67,6.1NRT,290.1,33.4,N\n"

	res := ParseCSV("MODIS_NRT", body)
	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, -17.1, r.Latitude)
	assert.Equal(t, -60.2, r.Longitude)
	assert.Equal(t, "2024-02-03", r.AcquisitionDate)
	assert.Equal(t, "01:12", r.AcquisitionTime)
	assert.Equal(t, "67", r.Confidence)
	assert.Equal(t, "33.4", r.RadiativePower)
	assert.Equal(t, "Aqua", r.Satellite)
	assert.Equal(t, "MODIS", r.Instrument)
}

func TestParseCSV_MissingColumns(t *testing.T) {
	res := ParseCSV("LANDSAT_NRT", "latitude,longitude,acq_date\n-17.1,-60.2,2024-02-03\n")
	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, "2024-02-03", r.AcquisitionDate)
	assert.Equal(t, "00:00", r.AcquisitionTime)
	assert.Empty(t, r.Confidence)
	assert.Empty(t, r.RadiativePower)
	assert.Empty(t, r.Satellite)
	assert.Empty(t, r.Instrument)
}

func TestParseCSV_NoCoordinateColumns(t *testing.T) {
	res := ParseCSV("VIIRS_SNPP_NRT", "acq_date,acq_time\n2024-02-03,1200\n")
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Dropped)
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"5", "00:05"},
		{"30", "00:30"},
		{"530", "05:30"},
		{"1430", "14:30"},
		{"0000", "00:00"},
		{"", "00:00"},
		{"123456", "12:34"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTime(tt.in))
		})
	}
}
