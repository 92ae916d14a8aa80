package utils

import (
	"math"
	"testing"
	"time"

	"github.com/opendatacube/datacube-wcs/catalog"
)

func testCatalog() catalog.Catalog {
	dates := []time.Time{
		time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2017, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	cov := &catalog.CoverageDescriptor{
		Name:         "ls8_usgs_sr_scene",
		Label:        "Landsat 8 Surface Reflectance",
		MinLatitude:  -40,
		MaxLatitude:  -10,
		MinLongitude: 110,
		MaxLongitude: 150,
		StartTime:    dates[0],
		EndTime:      dates[len(dates)-1],
		Dates:        dates,
		NativeCRS:    "EPSG:4326",
		InputCRSs:    []string{"EPSG:4326"},
		OutputCRSs:   []string{"EPSG:4326", "EPSG:3577"},
		Formats:      []string{"geotiff", "netcdf"},
		Measurements: []catalog.Measurement{
			{Name: "red", NullValue: -9999, DType: "Int16"},
			{Name: "green", NullValue: -9999, DType: "Int16"},
			{Name: "nir", NullValue: -9999, DType: "Int16"},
		},
	}
	return catalog.NewMemCatalog([]*catalog.CoverageDescriptor{cov}, "2017")
}

func testCapabilities() Capabilities {
	return Capabilities{
		InputCRSs:  []string{"EPSG:4326"},
		OutputCRSs: []string{"EPSG:4326", "EPSG:3577"},
		Interpolations: map[string]string{
			"nearest neighbor": "near",
			"bilinear":         "bilinear",
			"bicubic":          "cubic",
			"lost area":        "near",
			"barycentric":      "near",
		},
		Formats:   map[string]string{"geotiff": "tiff", "netcdf": "nc"},
		MaxWidth:  512,
		MaxHeight: 512,
	}
}

func validParams() map[string]string {
	return map[string]string{
		FieldCoverage: "ls8_usgs_sr_scene",
		FieldCRS:      "EPSG:4326",
		FieldBBox:     "120,-30,130,-20",
		FieldWidth:    "100",
		FieldHeight:   "100",
		FieldFormat:   "geotiff",
	}
}

func newTestValidator() *SubsetValidator {
	return NewSubsetValidator(testCapabilities(), testCatalog())
}

func TestValidateDerivesResolutionFromShape(t *testing.T) {
	v := newTestValidator()
	req, serr := v.Validate(validParams())
	if serr != nil {
		t.Errorf("valid request rejected: %v", serr)
		return
	}
	if math.Abs(req.ResX-0.1) > 1e-9 {
		t.Errorf("expected resx 0.1, got %v", req.ResX)
	}
	if math.Abs(req.ResY+0.1) > 1e-9 {
		t.Errorf("expected resy -0.1, got %v", req.ResY)
	}
	if req.Width != 100 || req.Height != 100 {
		t.Errorf("unexpected shape %dx%d", req.Width, req.Height)
	}
	if len(req.Measurements) != 3 {
		t.Errorf("expected all measurements by default, got %d", len(req.Measurements))
	}
	if req.Interpolation != "near" {
		t.Errorf("expected default nearest neighbour resampling, got %s", req.Interpolation)
	}
}

func TestValidateResolutionWinsOverShape(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldResX] = "0.05"
	params[FieldResY] = "-0.05"
	req, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("valid request rejected: %v", serr)
		return
	}
	if req.Width != 200 || req.Height != 200 {
		t.Errorf("resx/resy must take precedence, got shape %dx%d", req.Width, req.Height)
	}
}

func TestValidateResolutionSigns(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	delete(params, FieldWidth)
	delete(params, FieldHeight)
	params[FieldResX] = "0.1"
	params[FieldResY] = "0.1"
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldResY {
		t.Errorf("positive resy must be rejected, got %v", serr)
	}
}

func TestValidateUnknownCoverage(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldCoverage] = "nonexistent"
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcCoverageNotDefined {
		t.Errorf("expected CoverageNotDefined, got %v", serr)
	}
}

func TestValidateMissingCRS(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	delete(params, FieldCRS)
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcMissingParameterValue || serr.Field != FieldCRS {
		t.Errorf("expected missing CRS error, got %v", serr)
	}
}

func TestValidateDisjointBBox(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldBBox] = "0,40,10,50"
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldBBox {
		t.Errorf("disjoint bbox must be rejected, got %v", serr)
	}
}

func TestValidateSwappedBBox(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldBBox] = "130,-20,120,-30"
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldBBox {
		t.Errorf("min greater than max must be rejected, got %v", serr)
	}
}

func TestValidateEdgeTouchingBBox(t *testing.T) {
	// intersection with the coverage extent is inclusive, a bbox
	// meeting the extent at a single edge is still a valid subset
	v := newTestValidator()
	params := validParams()
	params[FieldBBox] = "150,-20,160,-10"
	req, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("bbox touching the extent edge rejected: %v", serr)
		return
	}
	want := [4]float64{150, -20, 160, -10}
	if req.BBox != want {
		t.Errorf("unexpected bbox %v", req.BBox)
	}
}

func TestValidateDegenerateBBox(t *testing.T) {
	// min == max is well-ordered
	v := newTestValidator()
	params := validParams()
	params[FieldBBox] = "120,-30,120,-20"
	_, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("zero-width bbox rejected: %v", serr)
	}
}

func TestValidateBBoxErrorBeforeTime(t *testing.T) {
	// the bbox gate runs before the time gate, so a request with both
	// wrong reports the bbox failure
	v := newTestValidator()
	params := validParams()
	params[FieldBBox] = "0,40,10,50"
	params[FieldTime] = "not-a-date"
	_, serr := v.Validate(params)
	if serr == nil || serr.Field != FieldBBox {
		t.Errorf("expected the bbox gate to fail first, got %v", serr)
	}
}

func TestValidateMissingBBoxAndTime(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	delete(params, FieldBBox)
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcMissingParameterValue || serr.Field != "bbox,time" {
		t.Errorf("absent bbox and time must fail on both fields, got %v", serr)
	}
}

func TestValidateTimeInstants(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldTime] = "2017-01-01,2017-02-01"
	req, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("catalogued instants rejected: %v", serr)
		return
	}
	if len(req.Time.Instants) != 2 {
		t.Errorf("expected 2 instants, got %d", len(req.Time.Instants))
	}

	params[FieldTime] = "2017-01-15"
	_, serr = v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldTime {
		t.Errorf("instant absent from the catalogue must be rejected, got %v", serr)
	}
}

func TestValidateTimeRange(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldTime] = "2017-01-01/2017-03-01"
	req, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("time range rejected: %v", serr)
		return
	}
	if len(req.Time.Ranges) != 1 {
		t.Errorf("expected 1 range, got %d", len(req.Time.Ranges))
	}

	params[FieldTime] = "2017-03-01/2017-01-01"
	_, serr = v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidParameterValue {
		t.Errorf("inverted range must be rejected, got %v", serr)
	}
}

func TestValidateTimeOnlyRequest(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	delete(params, FieldBBox)
	params[FieldTime] = "2017-01-01"
	req, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("time-only request rejected: %v", serr)
		return
	}
	want := [4]float64{110, -40, 150, -10}
	if req.BBox != want {
		t.Errorf("time-only request must default to the full extent, got %v", req.BBox)
	}
}

func TestValidateMeasurements(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldMeasurements] = "red,nir"
	req, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("valid measurements rejected: %v", serr)
		return
	}
	if len(req.Measurements) != 2 {
		t.Errorf("expected 2 measurements, got %d", len(req.Measurements))
	}

	params[FieldMeasurements] = "red,bogus"
	_, serr = v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldMeasurements {
		t.Errorf("a single invalid measurement must fail the request, got %v", serr)
	}
}

func TestValidateDerivedMeasurement(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldMeasurements] = "ndvi=(nir-red)/(nir+red)"
	req, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("derived measurement rejected: %v", serr)
		return
	}
	if len(req.BandExpr.ExprNames) != 1 || req.BandExpr.ExprNames[0] != "ndvi" {
		t.Errorf("unexpected expression names: %v", req.BandExpr.ExprNames)
	}
	if len(req.Measurements) != 2 {
		t.Errorf("expected the 2 referenced measurements, got %d", len(req.Measurements))
	}
}

func TestValidateInterpolation(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldInterpolation] = "bilinear"
	req, serr := v.Validate(params)
	if serr != nil {
		t.Errorf("bilinear interpolation rejected: %v", serr)
		return
	}
	if req.Interpolation != "bilinear" {
		t.Errorf("unexpected resampling %s", req.Interpolation)
	}

	params[FieldInterpolation] = "kriging"
	_, serr = v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldInterpolation {
		t.Errorf("unsupported interpolation must be rejected, got %v", serr)
	}
}

func TestValidateFormat(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldFormat] = "jpeg"
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidFormat {
		t.Errorf("unsupported format must draw InvalidFormat, got %v", serr)
	}

	delete(params, FieldFormat)
	_, serr = v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidFormat || serr.Field != FieldFormat {
		t.Errorf("absent format must draw InvalidFormat, got %v", serr)
	}
}

func TestValidateShapeLimits(t *testing.T) {
	v := newTestValidator()
	params := validParams()
	params[FieldWidth] = "1024"
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldWidth {
		t.Errorf("width beyond the limit must be rejected, got %v", serr)
	}

	params = validParams()
	delete(params, FieldHeight)
	_, serr = v.Validate(params)
	if serr == nil || serr.Code != ExcMissingParameterValue || serr.Field != "width,height" {
		t.Errorf("width without height must be rejected, got %v", serr)
	}
}

func TestValidateCoverageAdvertisedSets(t *testing.T) {
	// CRS and FORMAT are checked against what the resolved coverage
	// advertises, not the server-wide vocabulary
	dates := []time.Time{time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)}
	cov := &catalog.CoverageDescriptor{
		Name:         "ls8_albers",
		MinLatitude:  -40,
		MaxLatitude:  -10,
		MinLongitude: 110,
		MaxLongitude: 150,
		StartTime:    dates[0],
		EndTime:      dates[0],
		Dates:        dates,
		NativeCRS:    "EPSG:3577",
		InputCRSs:    []string{"EPSG:3577"},
		OutputCRSs:   []string{"EPSG:3577"},
		Formats:      []string{"netcdf"},
		Measurements: []catalog.Measurement{
			{Name: "red", NullValue: -9999, DType: "Int16"},
		},
	}
	cat := catalog.NewMemCatalog([]*catalog.CoverageDescriptor{cov}, "2017")
	v := NewSubsetValidator(testCapabilities(), cat)

	params := validParams()
	params[FieldCoverage] = "ls8_albers"
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidParameterValue || serr.Field != FieldCRS {
		t.Errorf("CRS outside the coverage set must be rejected, got %v", serr)
	}

	params[FieldCRS] = "EPSG:3577"
	_, serr = v.Validate(params)
	if serr == nil || serr.Code != ExcInvalidFormat || serr.Field != FieldFormat {
		t.Errorf("format outside the coverage set must draw InvalidFormat, got %v", serr)
	}

	params[FieldFormat] = "netcdf"
	if _, serr = v.Validate(params); serr != nil {
		t.Errorf("request within the coverage sets rejected: %v", serr)
	}
}

func TestValidateFirstErrorWins(t *testing.T) {
	// both the coverage and the format are wrong; the coverage gate
	// runs first
	v := newTestValidator()
	params := validParams()
	params[FieldCoverage] = "nonexistent"
	params[FieldFormat] = "jpeg"
	_, serr := v.Validate(params)
	if serr == nil || serr.Code != ExcCoverageNotDefined {
		t.Errorf("expected the coverage gate to fail first, got %v", serr)
	}
}
