package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/opendatacube/datacube-wcs/catalog"
)

// Capabilities holds the server-wide request vocabularies advertised
// by GetCapabilities. The validator never mutates it.
type Capabilities struct {
	InputCRSs      []string
	OutputCRSs     []string
	Interpolations map[string]string
	Formats        map[string]string
	MaxWidth       int
	MaxHeight      int
}

// TimeSelection is the parsed TIME parameter. Exactly one of the two
// slices is non-empty for an explicit TIME; both are empty when the
// client omitted TIME and the request is bounded by BBOX alone.
type TimeSelection struct {
	Instants []time.Time
	Ranges   [][2]time.Time
}

func (ts TimeSelection) IsZero() bool {
	return len(ts.Instants) == 0 && len(ts.Ranges) == 0
}

// SubsetRequest is a fully validated GetCoverage request.
type SubsetRequest struct {
	Coverage      *catalog.CoverageDescriptor
	CRS           string
	ResponseCRS   string
	BBox          [4]float64
	Time          TimeSelection
	ResX          float64
	ResY          float64
	Width         int
	Height        int
	BandExpr      *BandExpressions
	Measurements  []catalog.Measurement
	Interpolation string
	Format        string
}

// SubsetValidator runs a GetCoverage parameter map through a fixed
// sequence of gates. The first gate to fail decides the service
// exception; later parameters are never inspected after a failure.
type SubsetValidator struct {
	caps Capabilities
	cat  catalog.Catalog
}

func NewSubsetValidator(caps Capabilities, cat catalog.Catalog) *SubsetValidator {
	return &SubsetValidator{caps: caps, cat: cat}
}

// Validate checks params and assembles the subset request. It returns
// the first validation failure encountered in gate order.
func (v *SubsetValidator) Validate(params map[string]string) (*SubsetRequest, *ServiceError) {
	req := &SubsetRequest{}

	gates := []func(map[string]string, *SubsetRequest) *ServiceError{
		v.checkCoverage,
		v.checkCRS,
		v.checkSpatioTemporalPresence,
		v.checkBBox,
		v.checkTime,
		v.checkShape,
		v.checkMeasurements,
		v.checkInterpolation,
		v.checkFormat,
	}

	for _, gate := range gates {
		if err := gate(params, req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func (v *SubsetValidator) checkCoverage(params map[string]string, req *SubsetRequest) *ServiceError {
	name, found := params[FieldCoverage]
	if !found || len(name) == 0 {
		return NewServiceError(FieldCoverage, ExcMissingParameterValue, "COVERAGE parameter is required")
	}
	desc, err := v.cat.GetCoverage(name)
	if err != nil {
		if catalog.IsNotFound(err) {
			return NewServiceError(FieldCoverage, ExcCoverageNotDefined, "coverage %s is not defined", name)
		}
		return NewServiceError(FieldCoverage, ExcInvalidParameterValue, "failed to look up coverage %s", name)
	}
	req.Coverage = desc
	return nil
}

func matchCRS(crs string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(crs, a) {
			return true
		}
	}
	return false
}

func (v *SubsetValidator) checkCRS(params map[string]string, req *SubsetRequest) *ServiceError {
	crs, found := params[FieldCRS]
	if !found || len(crs) == 0 {
		return NewServiceError(FieldCRS, ExcMissingParameterValue, "CRS parameter is required")
	}
	inputCRSs := req.Coverage.InputCRSs
	if len(inputCRSs) == 0 {
		inputCRSs = v.caps.InputCRSs
	}
	if !matchCRS(crs, inputCRSs) {
		return NewServiceError(FieldCRS, ExcInvalidParameterValue,
			"CRS %s is not supported by coverage %s", crs, req.Coverage.Name)
	}
	req.CRS = crs
	req.ResponseCRS = crs

	if respCRS, found := params[FieldResponseCRS]; found && len(respCRS) > 0 {
		outputCRSs := req.Coverage.OutputCRSs
		if len(outputCRSs) == 0 {
			outputCRSs = v.caps.OutputCRSs
		}
		if !matchCRS(respCRS, outputCRSs) {
			return NewServiceError(FieldResponseCRS, ExcInvalidParameterValue,
				"RESPONSE_CRS %s is not supported by coverage %s", respCRS, req.Coverage.Name)
		}
		req.ResponseCRS = respCRS
	}
	return nil
}

func (v *SubsetValidator) checkSpatioTemporalPresence(params map[string]string, req *SubsetRequest) *ServiceError {
	_, hasBBox := params[FieldBBox]
	_, hasTime := params[FieldTime]
	if !hasBBox && !hasTime {
		return NewServiceError("bbox,time", ExcMissingParameterValue, "at least one of BBOX and TIME is required")
	}
	return nil
}

func (v *SubsetValidator) checkTime(params map[string]string, req *SubsetRequest) *ServiceError {
	value, found := params[FieldTime]
	if !found {
		return nil
	}
	if len(value) == 0 {
		return NewServiceError(FieldTime, ExcInvalidParameterValue, "TIME parameter is empty")
	}

	if strings.Contains(value, "/") {
		ranges, err := ParseTimeRanges(value)
		if err != nil {
			return NewServiceError(FieldTime, ExcInvalidParameterValue, "%v", err)
		}
		for _, r := range ranges {
			if r[1].Before(r[0]) {
				return NewServiceError(FieldTime, ExcInvalidParameterValue,
					"time range ends before it starts: %s/%s", r[0].Format(ISOFormat), r[1].Format(ISOFormat))
			}
		}
		req.Time.Ranges = ranges
		return nil
	}

	instants, err := ParseTimeInstants(value)
	if err != nil {
		return NewServiceError(FieldTime, ExcInvalidParameterValue, "%v", err)
	}
	for _, t := range instants {
		if !req.Coverage.HasDate(t) {
			return NewServiceError(FieldTime, ExcInvalidParameterValue,
				"no acquisition at %s for coverage %s", t.Format(ISOFormat), req.Coverage.Name)
		}
	}
	req.Time.Instants = instants
	return nil
}

func (v *SubsetValidator) checkBBox(params map[string]string, req *SubsetRequest) *ServiceError {
	value, found := params[FieldBBox]
	if !found {
		// TIME-only request, subset over the full native extent
		req.BBox = [4]float64{
			req.Coverage.MinLongitude, req.Coverage.MinLatitude,
			req.Coverage.MaxLongitude, req.Coverage.MaxLatitude,
		}
		return nil
	}

	tokens := strings.Split(value, ",")
	if len(tokens) != 4 && len(tokens) != 6 {
		return NewServiceError(FieldBBox, ExcInvalidParameterValue, "BBOX must have 4 values, got %d", len(tokens))
	}
	var bbox [4]float64
	for i := 0; i < 4; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(tokens[i]), 64)
		if err != nil {
			return NewServiceError(FieldBBox, ExcInvalidParameterValue, "BBOX value %s is not a number", tokens[i])
		}
		bbox[i] = f
	}
	if bbox[2] < bbox[0] || bbox[3] < bbox[1] {
		return NewServiceError(FieldBBox, ExcInvalidParameterValue,
			"BBOX minimums must not exceed maximums")
	}
	cov := req.Coverage
	if bbox[0] > cov.MaxLongitude || bbox[2] < cov.MinLongitude ||
		bbox[1] > cov.MaxLatitude || bbox[3] < cov.MinLatitude {
		return NewServiceError(FieldBBox, ExcInvalidParameterValue,
			"BBOX does not intersect the extents of coverage %s", cov.Name)
	}
	req.BBox = bbox
	return nil
}

func (v *SubsetValidator) checkShape(params map[string]string, req *SubsetRequest) *ServiceError {
	resXStr, hasResX := params[FieldResX]
	resYStr, hasResY := params[FieldResY]
	widthStr, hasWidth := params[FieldWidth]
	heightStr, hasHeight := params[FieldHeight]

	if hasResX != hasResY {
		return NewServiceError("resx,resy", ExcMissingParameterValue, "RESX and RESY must be supplied together")
	}

	if hasResX && hasResY {
		resX, err := strconv.ParseFloat(resXStr, 64)
		if err != nil {
			return NewServiceError(FieldResX, ExcInvalidParameterValue, "RESX value %s is not a number", resXStr)
		}
		resY, err := strconv.ParseFloat(resYStr, 64)
		if err != nil {
			return NewServiceError(FieldResY, ExcInvalidParameterValue, "RESY value %s is not a number", resYStr)
		}
		if resX <= 0 {
			return NewServiceError(FieldResX, ExcInvalidParameterValue, "RESX must be positive")
		}
		if resY >= 0 {
			return NewServiceError(FieldResY, ExcInvalidParameterValue, "RESY must be negative")
		}
		req.ResX = resX
		req.ResY = resY
		req.Width = int(math.Round((req.BBox[2] - req.BBox[0]) / resX))
		req.Height = int(math.Round((req.BBox[3] - req.BBox[1]) / -resY))
		return v.checkShapeLimits(req)
	}

	if hasWidth != hasHeight {
		return NewServiceError("width,height", ExcMissingParameterValue, "WIDTH and HEIGHT must be supplied together")
	}
	if !hasWidth && !hasHeight {
		return NewServiceError("resx,resy,width,height", ExcMissingParameterValue,
			"either RESX and RESY or WIDTH and HEIGHT are required")
	}

	width, err := strconv.Atoi(widthStr)
	if err != nil {
		return NewServiceError(FieldWidth, ExcInvalidParameterValue, "WIDTH value %s is not an integer", widthStr)
	}
	height, err := strconv.Atoi(heightStr)
	if err != nil {
		return NewServiceError(FieldHeight, ExcInvalidParameterValue, "HEIGHT value %s is not an integer", heightStr)
	}
	if width <= 0 {
		return NewServiceError(FieldWidth, ExcInvalidParameterValue, "WIDTH must be a positive integer")
	}
	if height <= 0 {
		return NewServiceError(FieldHeight, ExcInvalidParameterValue, "HEIGHT must be a positive integer")
	}
	req.Width = width
	req.Height = height
	req.ResX = (req.BBox[2] - req.BBox[0]) / float64(width)
	req.ResY = -(req.BBox[3] - req.BBox[1]) / float64(height)
	return v.checkShapeLimits(req)
}

func (v *SubsetValidator) checkShapeLimits(req *SubsetRequest) *ServiceError {
	if req.Width < 1 || req.Height < 1 {
		return NewServiceError("resx,resy", ExcInvalidParameterValue,
			"requested resolution yields an empty raster")
	}
	if v.caps.MaxWidth > 0 && req.Width > v.caps.MaxWidth {
		return NewServiceError(FieldWidth, ExcInvalidParameterValue,
			"requested width %d exceeds the maximum of %d", req.Width, v.caps.MaxWidth)
	}
	if v.caps.MaxHeight > 0 && req.Height > v.caps.MaxHeight {
		return NewServiceError(FieldHeight, ExcInvalidParameterValue,
			"requested height %d exceeds the maximum of %d", req.Height, v.caps.MaxHeight)
	}
	return nil
}

func (v *SubsetValidator) checkMeasurements(params map[string]string, req *SubsetRequest) *ServiceError {
	value, found := params[FieldMeasurements]
	if !found || len(value) == 0 {
		req.Measurements = req.Coverage.Measurements
		names := make([]string, len(req.Measurements))
		for i, m := range req.Measurements {
			names[i] = m.Name
		}
		bandExpr, err := ParseBandExpressions(names)
		if err != nil {
			return NewServiceError(FieldMeasurements, ExcInvalidParameterValue, "%v", err)
		}
		req.BandExpr = bandExpr
		return nil
	}

	tokens := strings.Split(value, ",")
	bandExpr, err := ParseBandExpressions(tokens)
	if err != nil {
		return NewServiceError(FieldMeasurements, ExcInvalidParameterValue, "%v", err)
	}

	var invalid []string
	var measurements []catalog.Measurement
	for _, varName := range bandExpr.VarList {
		m, found := req.Coverage.MeasurementByName(varName)
		if !found {
			invalid = append(invalid, varName)
			continue
		}
		measurements = append(measurements, m)
	}
	if len(invalid) > 0 {
		return NewServiceError(FieldMeasurements, ExcInvalidParameterValue,
			"coverage %s has no measurements named %s", req.Coverage.Name, strings.Join(invalid, ", "))
	}
	req.BandExpr = bandExpr
	req.Measurements = measurements
	return nil
}

func (v *SubsetValidator) checkInterpolation(params map[string]string, req *SubsetRequest) *ServiceError {
	value, found := params[FieldInterpolation]
	if !found || len(value) == 0 {
		value = "nearest neighbor"
	}
	resampling, known := v.caps.Interpolations[strings.ToLower(value)]
	if !known {
		return NewServiceError(FieldInterpolation, ExcInvalidParameterValue,
			"interpolation method %s is not supported", value)
	}
	req.Interpolation = resampling
	return nil
}

func (v *SubsetValidator) checkFormat(params map[string]string, req *SubsetRequest) *ServiceError {
	value, found := params[FieldFormat]
	if !found || len(value) == 0 {
		// FORMAT is the one field whose absence draws InvalidFormat
		// rather than MissingParameterValue
		return NewServiceError(FieldFormat, ExcInvalidFormat, "FORMAT parameter is required")
	}
	format := strings.ToLower(value)
	formats := req.Coverage.Formats
	if len(formats) == 0 {
		for f := range v.caps.Formats {
			formats = append(formats, f)
		}
	}
	known := false
	for _, f := range formats {
		if strings.EqualFold(format, f) {
			known = true
			break
		}
	}
	if !known {
		return NewServiceError(FieldFormat, ExcInvalidFormat,
			"format %s is not supported by coverage %s", value, req.Coverage.Name)
	}
	req.Format = format
	return nil
}

// String renders the request shape for log lines.
func (req *SubsetRequest) String() string {
	return fmt.Sprintf("%s bbox=%v shape=%dx%d format=%s", req.Coverage.Name, req.BBox, req.Width, req.Height, req.Format)
}
