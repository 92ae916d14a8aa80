package catalog

import (
	"fmt"
	"time"
)

// Measurement describes one band offered by a coverage together
// with the sentinel value marking absent pixels.
type Measurement struct {
	Name      string  `json:"name" yaml:"name"`
	NullValue float64 `json:"null_value" yaml:"null_value"`
	DType     string  `json:"dtype" yaml:"dtype"`
}

// CoverageDescriptor contains all information required for formatting
// coverage offering responses and validating GetCoverage subsets.
type CoverageDescriptor struct {
	Name         string        `json:"name" yaml:"name"`
	Label        string        `json:"label" yaml:"label"`
	Description  string        `json:"description" yaml:"description"`
	MinLatitude  float64       `json:"min_latitude" yaml:"min_latitude"`
	MaxLatitude  float64       `json:"max_latitude" yaml:"max_latitude"`
	MinLongitude float64       `json:"min_longitude" yaml:"min_longitude"`
	MaxLongitude float64       `json:"max_longitude" yaml:"max_longitude"`
	StartTime    time.Time     `json:"start_datetime" yaml:"start_datetime"`
	EndTime      time.Time     `json:"end_datetime" yaml:"end_datetime"`
	Dates        []time.Time   `json:"dates" yaml:"dates"`
	NativeCRS    string        `json:"native_crs" yaml:"native_crs"`
	InputCRSs    []string      `json:"input_crs" yaml:"input_crs"`
	OutputCRSs   []string      `json:"output_crs" yaml:"output_crs"`
	Formats      []string      `json:"formats" yaml:"formats"`
	Measurements []Measurement `json:"measurements" yaml:"measurements"`
}

// HasDate reports whether ts matches one of the enumerated
// acquisition timestamps of the coverage.
func (cov *CoverageDescriptor) HasDate(ts time.Time) bool {
	for _, d := range cov.Dates {
		if d.Equal(ts) {
			return true
		}
	}
	return false
}

func (cov *CoverageDescriptor) HasMeasurement(name string) bool {
	for _, m := range cov.Measurements {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (cov *CoverageDescriptor) MeasurementByName(name string) (Measurement, bool) {
	for _, m := range cov.Measurements {
		if m.Name == name {
			return m, true
		}
	}
	return Measurement{}, false
}

// Catalog is the read-only coverage lookup consumed by the WCS
// handlers. Implementations are safe for concurrent use; mutation
// happens out-of-band through the refresh job.
type Catalog interface {
	GetCoverage(name string) (*CoverageDescriptor, error)
	ListCoverages() ([]*CoverageDescriptor, error)
	Measurements(name string) ([]Measurement, error)
	UpdateSequence() string
}

// NotFoundError reports a coverage name absent from the catalog. The
// boundary layer maps it to the CoverageNotDefined exception code.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("coverage %s is not defined in the catalogue", e.Name)
}

func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// ResolveMany resolves an ordered list of coverage names. Partial
// success is not an outcome: any unresolvable name fails the whole
// request.
func ResolveMany(cat Catalog, names []string) ([]*CoverageDescriptor, error) {
	covs := make([]*CoverageDescriptor, len(names))
	for i, name := range names {
		cov, err := cat.GetCoverage(name)
		if err != nil {
			return nil, err
		}
		covs[i] = cov
	}
	return covs, nil
}
