package catalog

import (
	"testing"
	"time"
)

func newTestMemCatalog() *MemCatalog {
	covs := []*CoverageDescriptor{
		{
			Name:  "ls8_usgs_sr_scene",
			Label: "Landsat 8 Surface Reflectance",
			Dates: []time.Time{
				time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2017, 2, 1, 0, 0, 0, 0, time.UTC),
			},
			Measurements: []Measurement{
				{Name: "red", NullValue: -9999, DType: "Int16"},
				{Name: "nir", NullValue: -9999, DType: "Int16"},
			},
		},
		{Name: "s2a_ard_granule"},
	}
	return NewMemCatalog(covs, "2017")
}

func TestMemCatalogLookup(t *testing.T) {
	cat := newTestMemCatalog()

	cov, err := cat.GetCoverage("ls8_usgs_sr_scene")
	if err != nil {
		t.Errorf("lookup failed: %v", err)
		return
	}
	if cov.Label != "Landsat 8 Surface Reflectance" {
		t.Errorf("unexpected label %s", cov.Label)
	}

	_, err = cat.GetCoverage("nonexistent")
	if err == nil {
		t.Errorf("unknown coverage must fail")
		return
	}
	if !IsNotFound(err) {
		t.Errorf("expected a not-found error, got %v", err)
	}

	covs, err := cat.ListCoverages()
	if err != nil || len(covs) != 2 {
		t.Errorf("expected 2 coverages, got %d (%v)", len(covs), err)
	}

	if cat.UpdateSequence() != "2017" {
		t.Errorf("unexpected update sequence %s", cat.UpdateSequence())
	}
}

func TestMemCatalogMeasurements(t *testing.T) {
	cat := newTestMemCatalog()
	ms, err := cat.Measurements("ls8_usgs_sr_scene")
	if err != nil {
		t.Errorf("measurements lookup failed: %v", err)
		return
	}
	if len(ms) != 2 || ms[0].Name != "red" {
		t.Errorf("unexpected measurements %v", ms)
	}
	if _, err := cat.Measurements("nonexistent"); err == nil {
		t.Errorf("measurements of an unknown coverage must fail")
	}
}

func TestHasDate(t *testing.T) {
	cat := newTestMemCatalog()
	cov, _ := cat.GetCoverage("ls8_usgs_sr_scene")

	if !cov.HasDate(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("catalogued date not found")
	}
	if cov.HasDate(time.Date(2017, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("uncatalogued date must not match")
	}
}

func TestResolveMany(t *testing.T) {
	cat := newTestMemCatalog()

	covs, err := ResolveMany(cat, []string{"s2a_ard_granule", "ls8_usgs_sr_scene"})
	if err != nil {
		t.Errorf("resolve failed: %v", err)
		return
	}
	if len(covs) != 2 || covs[0].Name != "s2a_ard_granule" {
		t.Errorf("resolution must preserve order, got %v", covs)
	}

	// one bad name fails the whole list
	if _, err := ResolveMany(cat, []string{"ls8_usgs_sr_scene", "nonexistent"}); err == nil {
		t.Errorf("partial resolution must not succeed")
	}
}
