package catalog

// MemCatalog serves coverages declared statically in the server
// config. It also backs the package tests.
type MemCatalog struct {
	coverages []*CoverageDescriptor
	byName    map[string]*CoverageDescriptor
	seq       string
}

func NewMemCatalog(coverages []*CoverageDescriptor, updateSequence string) *MemCatalog {
	byName := make(map[string]*CoverageDescriptor)
	for _, cov := range coverages {
		byName[cov.Name] = cov
	}
	return &MemCatalog{coverages: coverages, byName: byName, seq: updateSequence}
}

func (c *MemCatalog) GetCoverage(name string) (*CoverageDescriptor, error) {
	cov, ok := c.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return cov, nil
}

func (c *MemCatalog) ListCoverages() ([]*CoverageDescriptor, error) {
	return c.coverages, nil
}

func (c *MemCatalog) Measurements(name string) ([]Measurement, error) {
	cov, err := c.GetCoverage(name)
	if err != nil {
		return nil, err
	}
	return cov.Measurements, nil
}

func (c *MemCatalog) UpdateSequence() string {
	return c.seq
}
