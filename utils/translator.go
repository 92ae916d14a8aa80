package utils

import (
	"time"

	"github.com/opendatacube/datacube-wcs/catalog"
)

// DataParams is the raster service side view of a validated
// GetCoverage request. Latitude and Longitude are [min, max] in the
// request CRS; Resolution is [resy, resx] matching the north-up
// geotransform convention (resy negative).
type DataParams struct {
	Product      string
	Latitude     [2]float64
	Longitude    [2]float64
	Measurements []catalog.Measurement
	BandExpr     *BandExpressions
	Resolution   [2]float64
	Width        int
	Height       int
	CRS          string
	Resampling   string
}

// TranslateSubsetRequest maps a validated request onto the parameters
// the data pipeline consumes, along with the temporal selection to
// iterate over.
func TranslateSubsetRequest(req *SubsetRequest) (DataParams, []time.Time, [][2]time.Time) {
	params := DataParams{
		Product:      req.Coverage.Name,
		Latitude:     [2]float64{req.BBox[1], req.BBox[3]},
		Longitude:    [2]float64{req.BBox[0], req.BBox[2]},
		Measurements: req.Measurements,
		BandExpr:     req.BandExpr,
		Resolution:   [2]float64{req.ResY, req.ResX},
		Width:        req.Width,
		Height:       req.Height,
		CRS:          req.ResponseCRS,
		Resampling:   req.Interpolation,
	}

	instants := req.Time.Instants
	ranges := req.Time.Ranges
	if req.Time.IsZero() {
		// BBOX-only requests select every acquisition in the
		// coverage's temporal extent.
		ranges = [][2]time.Time{{req.Coverage.StartTime, req.Coverage.EndTime}}
	}
	return params, instants, ranges
}
