package utils

import (
	"testing"
	"time"
)

func TestTranslateSubsetRequest(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldTime] = "2017-01-01"
	req, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("valid request rejected: %v", serr)
		return
	}

	dp, instants, ranges := TranslateSubsetRequest(req)
	if dp.Product != "ls8_usgs_sr_scene" {
		t.Errorf("unexpected product %s", dp.Product)
	}
	if dp.Latitude != [2]float64{-30, -20} || dp.Longitude != [2]float64{120, 130} {
		t.Errorf("unexpected extents lat=%v lon=%v", dp.Latitude, dp.Longitude)
	}
	if dp.Resolution[0] >= 0 || dp.Resolution[1] <= 0 {
		t.Errorf("resolution must be [resy<0, resx>0], got %v", dp.Resolution)
	}
	if dp.CRS != "EPSG:4326" {
		t.Errorf("unexpected CRS %s", dp.CRS)
	}
	if len(instants) != 1 || len(ranges) != 0 {
		t.Errorf("expected a single instant selection, got %d instants %d ranges", len(instants), len(ranges))
	}
}

func TestTranslateBBoxOnlyRequest(t *testing.T) {
	v := newTestValidator()
	req, serr := v.Validate(validParams())
	if serr != nil {
		t.Errorf("valid request rejected: %v", serr)
		return
	}

	_, instants, ranges := TranslateSubsetRequest(req)
	if len(instants) != 0 {
		t.Errorf("bbox-only request must not select instants, got %d", len(instants))
	}
	if len(ranges) != 1 {
		t.Errorf("bbox-only request must select the full temporal extent, got %d ranges", len(ranges))
		return
	}
	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC)
	if !ranges[0][0].Equal(start) || !ranges[0][1].Equal(end) {
		t.Errorf("unexpected temporal extent %v", ranges[0])
	}
}
