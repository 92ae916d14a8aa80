package catalog

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	geo "github.com/nci/geometry"
)

// ManifestEntry is one product record emitted by the datacube crawler.
// The footprint is a GeoJSON feature; its WKT rendering is stored
// alongside the envelope for catalogue queries.
type ManifestEntry struct {
	Name         string        `json:"name"`
	Label        string        `json:"label"`
	Description  string        `json:"description"`
	MinLatitude  float64       `json:"min_latitude"`
	MaxLatitude  float64       `json:"max_latitude"`
	MinLongitude float64       `json:"min_longitude"`
	MaxLongitude float64       `json:"max_longitude"`
	StartTime    time.Time     `json:"start_datetime"`
	EndTime      time.Time     `json:"end_datetime"`
	Footprint    *geo.Feature  `json:"footprint,omitempty"`
	Dates        []time.Time   `json:"dates"`
	Measurements []Measurement `json:"measurements"`
}

// LoadManifest reads a crawler manifest file into entries.
func LoadManifest(path string) ([]ManifestEntry, error) {
	body, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest file %s: %v", path, err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("error parsing manifest file %s: %v", path, err)
	}
	return entries, nil
}

// RefreshFromManifest upserts the coverage tables from crawler
// manifest entries. This is the out-of-band analogue of the catalogue
// update job; request serving never mutates the tables.
func (c *PGCatalog) RefreshFromManifest(entries []ManifestEntry) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("refresh transaction begin failed: %v", err)
	}
	defer tx.Rollback()

	for _, entry := range entries {
		var footprintWKT string
		if entry.Footprint != nil && entry.Footprint.Geometry != nil {
			footprintWKT = entry.Footprint.Geometry.MarshalWKT()
		}

		_, err = tx.Exec(
			`insert into coverage_offering
				(name, label, description,
				min_latitude, max_latitude, min_longitude, max_longitude,
				start_datetime, end_datetime, footprint_wkt)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			on conflict (name) do update set
				label = excluded.label,
				description = excluded.description,
				min_latitude = excluded.min_latitude,
				max_latitude = excluded.max_latitude,
				min_longitude = excluded.min_longitude,
				max_longitude = excluded.max_longitude,
				start_datetime = excluded.start_datetime,
				end_datetime = excluded.end_datetime,
				footprint_wkt = excluded.footprint_wkt`,
			entry.Name, entry.Label, entry.Description,
			entry.MinLatitude, entry.MaxLatitude, entry.MinLongitude, entry.MaxLongitude,
			entry.StartTime, entry.EndTime, footprintWKT)
		if err != nil {
			return fmt.Errorf("coverage_offering upsert failed for %s: %v", entry.Name, err)
		}

		_, err = tx.Exec(`delete from coverage_rangeset_entry where coverage_name = $1`, entry.Name)
		if err != nil {
			return err
		}
		for i, m := range entry.Measurements {
			_, err = tx.Exec(
				`insert into coverage_rangeset_entry
					(coverage_name, band_name, null_value, dtype, band_index)
				values ($1,$2,$3,$4,$5)`,
				entry.Name, m.Name, m.NullValue, m.DType, i)
			if err != nil {
				return fmt.Errorf("coverage_rangeset_entry insert failed for %s/%s: %v", entry.Name, m.Name, err)
			}
		}

		_, err = tx.Exec(`delete from coverage_acquisition where coverage_name = $1`, entry.Name)
		if err != nil {
			return err
		}
		for _, d := range entry.Dates {
			_, err = tx.Exec(
				`insert into coverage_acquisition (coverage_name, acquired) values ($1,$2)`,
				entry.Name, d)
			if err != nil {
				return fmt.Errorf("coverage_acquisition insert failed for %s: %v", entry.Name, err)
			}
		}

		if c.mc != nil {
			c.mc.Delete(cacheKey(entry.Name))
		}
	}

	return tx.Commit()
}
