package catalog

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/nci/gomemcache/memcache"
)

// PGCatalog reads coverage offerings from the catalogue database
// populated by the out-of-band refresh job. Descriptor lookups are
// optionally cached in memcache keyed by an md5 of the coverage name.
type PGCatalog struct {
	db       *sql.DB
	mc       *memcache.Client
	seq      string
	defaults CoverageDefaults
}

// CoverageDefaults supplies the advertised CRS and format sets for
// coverages whose rows do not carry their own.
type CoverageDefaults struct {
	NativeCRS  string
	InputCRSs  []string
	OutputCRSs []string
	Formats    []string
}

func NewPGCatalog(dbInfo string, poolSize, connLimit int, mcURI, updateSequence string, defaults CoverageDefaults) (*PGCatalog, error) {
	db, err := sql.Open("postgres", dbInfo)
	if err != nil {
		return nil, fmt.Errorf("error opening catalogue database: %v", err)
	}
	db.SetMaxIdleConns(poolSize)
	db.SetMaxOpenConns(connLimit)

	var mc *memcache.Client
	if mcURI != "" {
		// lazy connection; errors returned in .Get
		mc = memcache.New(mcURI)
	}

	return &PGCatalog{db: db, mc: mc, seq: updateSequence, defaults: defaults}, nil
}

func (c *PGCatalog) Close() error {
	return c.db.Close()
}

func (c *PGCatalog) UpdateSequence() string {
	return c.seq
}

func cacheKey(name string) string {
	buff := md5.Sum([]byte("coverage_offering/" + name))
	return hex.EncodeToString(buff[:])
}

func (c *PGCatalog) GetCoverage(name string) (*CoverageDescriptor, error) {
	var hash string
	if c.mc != nil {
		hash = cacheKey(name)
		if cached, ok := c.mc.Get(hash); ok == nil {
			cov := &CoverageDescriptor{}
			if e := json.Unmarshal(cached.Value, cov); e == nil {
				return cov, nil
			}
		}
	}

	cov := &CoverageDescriptor{}
	err := c.db.QueryRow(
		`select name, label, description,
			min_latitude, max_latitude, min_longitude, max_longitude,
			start_datetime, end_datetime
		from coverage_offering where name = $1`, name,
	).Scan(&cov.Name, &cov.Label, &cov.Description,
		&cov.MinLatitude, &cov.MaxLatitude, &cov.MinLongitude, &cov.MaxLongitude,
		&cov.StartTime, &cov.EndTime)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("coverage_offering query failed: %v", err)
	}

	cov.Measurements, err = c.Measurements(name)
	if err != nil {
		return nil, err
	}

	cov.Dates, err = c.acquisitionDates(name)
	if err != nil {
		return nil, err
	}

	cov.NativeCRS = c.defaults.NativeCRS
	cov.InputCRSs = c.defaults.InputCRSs
	cov.OutputCRSs = c.defaults.OutputCRSs
	cov.Formats = c.defaults.Formats

	if c.mc != nil {
		// don't care about errors; memcache may not necessarily retain this anyway
		if payload, e := json.Marshal(cov); e == nil {
			c.mc.Set(&memcache.Item{Key: hash, Value: payload})
		}
	}

	return cov, nil
}

func (c *PGCatalog) ListCoverages() ([]*CoverageDescriptor, error) {
	rows, err := c.db.Query(`select name from coverage_offering order by name`)
	if err != nil {
		return nil, fmt.Errorf("coverage_offering list query failed: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ResolveMany(c, names)
}

func (c *PGCatalog) Measurements(name string) ([]Measurement, error) {
	rows, err := c.db.Query(
		`select band_name, null_value, dtype
		from coverage_rangeset_entry
		where coverage_name = $1 order by band_index`, name)
	if err != nil {
		return nil, fmt.Errorf("coverage_rangeset_entry query failed: %v", err)
	}
	defer rows.Close()

	var measurements []Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.Name, &m.NullValue, &m.DType); err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}

func (c *PGCatalog) acquisitionDates(name string) ([]time.Time, error) {
	rows, err := c.db.Query(
		`select acquired from coverage_acquisition
		where coverage_name = $1 order by acquired`, name)
	if err != nil {
		return nil, fmt.Errorf("coverage_acquisition query failed: %v", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		dates = append(dates, t.UTC())
	}
	return dates, rows.Err()
}
