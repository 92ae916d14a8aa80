package processor

import (
	"testing"
	"time"
)

func TestExtractEPSGCode(t *testing.T) {
	code, err := ExtractEPSGCode("EPSG:4326")
	if err != nil || code != 4326 {
		t.Errorf("expected 4326, got %d (%v)", code, err)
	}
	code, err = ExtractEPSGCode("urn:ogc:def:crs:EPSG::3577")
	if err != nil || code != 3577 {
		t.Errorf("expected 3577, got %d (%v)", code, err)
	}
	if _, err := ExtractEPSGCode("4326"); err == nil {
		t.Errorf("CRS without an authority must be rejected")
	}
	if _, err := ExtractEPSGCode("EPSG:abc"); err == nil {
		t.Errorf("non-numeric code must be rejected")
	}
}

func TestBBox2Geot(t *testing.T) {
	geot := BBox2Geot(100, 50, [4]float64{120, -30, 130, -20})
	if len(geot) != 6 {
		t.Errorf("expected 6 geotransform coefficients, got %d", len(geot))
		return
	}
	if geot[0] != 120 || geot[3] != -20 {
		t.Errorf("origin must be the top left corner, got %v, %v", geot[0], geot[3])
	}
	if geot[1] != 0.1 {
		t.Errorf("expected pixel width 0.1, got %v", geot[1])
	}
	if geot[5] != -0.2 {
		t.Errorf("expected pixel height -0.2, got %v", geot[5])
	}
}

func TestTimeWindows(t *testing.T) {
	instant := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2017, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC)

	req := &GeoSubsetRequest{
		Instants: []time.Time{instant},
		Ranges:   [][2]time.Time{{start, end}},
	}

	windows := timeWindows(req)
	if len(windows) != 2 {
		t.Errorf("expected 2 windows, got %d", len(windows))
		return
	}
	if !windows[0][0].Equal(instant.Add(-time.Second)) || !windows[0][1].Equal(instant.Add(time.Second)) {
		t.Errorf("instants must widen by one second either side, got %v", windows[0])
	}
	if !windows[1][0].Equal(start) || !windows[1][1].Equal(end) {
		t.Errorf("ranges must pass through unchanged, got %v", windows[1])
	}
}
