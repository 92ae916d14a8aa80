package utils

import (
	"testing"
)

func TestNormalizeKVP(t *testing.T) {
	query := map[string][]string{
		"SeRvIcE":  {"WCS"},
		"request":  {"GetCoverage", "GetCapabilities"},
		"COVERAGE": {"ls8_usgs_sr_scene"},
		"foo":      {"bar"},
	}

	params := NormalizeKVP(query)

	if params[FieldService] != "WCS" {
		t.Errorf("mixed-case key not normalised: %v", params)
	}
	if params[FieldRequest] != "GetCoverage" {
		t.Errorf("repeated key should keep the first value, got %v", params[FieldRequest])
	}
	if params[FieldCoverage] != "ls8_usgs_sr_scene" {
		t.Errorf("upper-case key not normalised: %v", params)
	}
	if params["FOO"] != "bar" {
		t.Errorf("unknown keys must be carried through, got %v", params)
	}
}

func TestCheckWCSVersion(t *testing.T) {
	if !CheckWCSVersion("1.0.0") {
		t.Errorf("version 1.0.0 must be accepted")
	}
	for _, v := range []string{"1.1.0", "2.0.1", ""} {
		if CheckWCSVersion(v) {
			t.Errorf("version %s must be rejected", v)
		}
	}
}

func TestWCSRegexMap(t *testing.T) {
	reMap := CompileWCSRegexMap()

	if !reMap["service"].MatchString("WCS") {
		t.Errorf("SERVICE value WCS must match")
	}
	if reMap["service"].MatchString("wcs") {
		t.Errorf("SERVICE values are case sensitive, wcs must not match")
	}
	if !reMap["bbox"].MatchString("120,-30,130,-20") {
		t.Errorf("4-value bbox must match")
	}
	if reMap["bbox"].MatchString("120,-30,130") {
		t.Errorf("3-value bbox must not match")
	}
	if !reMap["width"].MatchString("256") || reMap["width"].MatchString("-1") {
		t.Errorf("width must be a non-negative integer")
	}
}

func TestCheckRouting(t *testing.T) {
	reMap := CompileWCSRegexMap()

	serr := CheckRouting(map[string]string{FieldService: "WCS", FieldRequest: "GetCoverage"}, reMap)
	if serr != nil {
		t.Errorf("valid routing parameters rejected: %v", serr)
	}

	// SERVICE is mandatory for every operation, not just
	// GetCapabilities
	for _, request := range []string{"GetCapabilities", "DescribeCoverage", "GetCoverage"} {
		serr = CheckRouting(map[string]string{FieldRequest: request}, reMap)
		if serr == nil || serr.Code != ExcMissingParameterValue || serr.Field != FieldService {
			t.Errorf("%s without SERVICE must be rejected, got %v", request, serr)
		}
	}

	serr = CheckRouting(map[string]string{FieldService: "wcs", FieldRequest: "GetCoverage"}, reMap)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldService {
		t.Errorf("lower-case service value must be rejected, got %v", serr)
	}

	serr = CheckRouting(map[string]string{FieldService: "WCS"}, reMap)
	if serr == nil || serr.Code != ExcMissingParameterValue || serr.Field != FieldRequest {
		t.Errorf("absent REQUEST must be rejected, got %v", serr)
	}

	serr = CheckRouting(map[string]string{FieldService: "WCS", FieldRequest: "GetFeatureInfo"}, reMap)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldRequest {
		t.Errorf("unknown operation must be rejected, got %v", serr)
	}
}

func TestParseTimeInstantsAndRanges(t *testing.T) {
	instants, err := ParseTimeInstants("2017-01-01,2017-02-01T00:00:00.000Z")
	if err != nil {
		t.Errorf("failed to parse instants: %v", err)
		return
	}
	if len(instants) != 2 {
		t.Errorf("expected 2 instants, got %d", len(instants))
	}
	if instants[0].Format(ISOFormat) != "2017-01-01T00:00:00.000Z" {
		t.Errorf("unexpected instant: %v", instants[0])
	}

	ranges, err := ParseTimeRanges("2017-01-01/2017-06-01,2018-01-01/2018-06-01/P1M")
	if err != nil {
		t.Errorf("failed to parse ranges: %v", err)
		return
	}
	if len(ranges) != 2 {
		t.Errorf("expected 2 ranges, got %d", len(ranges))
	}
	if !ranges[0][0].Before(ranges[0][1]) {
		t.Errorf("range start must be before end: %v", ranges[0])
	}

	if _, err := ParseTimeRanges("2017-01-01"); err == nil {
		t.Errorf("bare instant must not parse as a range")
	}
	if _, err := ParseTimeInstants("not-a-time"); err == nil {
		t.Errorf("garbage must not parse as an instant")
	}
}
