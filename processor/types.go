package processor

import (
	"time"

	"github.com/opendatacube/datacube-wcs/metrics"
	"github.com/opendatacube/datacube-wcs/utils"
)

// GeoSubsetRequest is one GetCoverage request after validation and
// translation. Instants and Ranges carry the temporal selection; at
// least one of the two is non-empty.
type GeoSubsetRequest struct {
	Params           utils.DataParams
	Instants         []time.Time
	Ranges           [][2]time.Time
	MetricsCollector *metrics.MetricsCollector
}

// RawSlice is one band of one acquisition as returned by a raster
// worker, still in wire form.
type RawSlice struct {
	NameSpace  string
	Data       []byte
	RasterType string
	NoData     float64
	TimeStamp  time.Time
}

// MergeTask couples a request with the raw slices fetched for it so
// the merger knows the output shape and band expressions.
type MergeTask struct {
	Request *GeoSubsetRequest
	Slices  []*RawSlice
}
