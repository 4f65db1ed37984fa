package domain

import (
	"fmt"
	"regexp"
)

// regionCodeRe restricts region codes to what is safe inside object keys and
// file names, e.g. "alaspen" or "mid-bor".
var regionCodeRe = regexp.MustCompile(`^[a-z][a-z0-9-]{1,15}$`)

// Region is one ecoregion of interest.
type Region struct {
	Code     string `yaml:"code" json:"code"`
	Name     string `yaml:"name" json:"name"`
	Geometry string `yaml:"geometry" json:"geometry"` // feature reference understood by the raster service
}

// GeometryRef returns the geometry reference, falling back to the display name.
func (r Region) GeometryRef() string {
	if r.Geometry != "" {
		return r.Geometry
	}
	return r.Name
}

// Catalog is an ordered, code-indexed list of regions.
type Catalog struct {
	regions []Region
	byCode  map[string]int
}

// NewCatalog validates region codes and returns a catalog preserving order.
func NewCatalog(regions []Region) (*Catalog, error) {
	c := &Catalog{byCode: make(map[string]int, len(regions))}
	for _, r := range regions {
		if !regionCodeRe.MatchString(r.Code) {
			return nil, fmt.Errorf("region %q: invalid code", r.Code)
		}
		if r.Name == "" {
			return nil, fmt.Errorf("region %q: name is required", r.Code)
		}
		if _, dup := c.byCode[r.Code]; dup {
			return nil, fmt.Errorf("region %q: duplicate code", r.Code)
		}
		c.byCode[r.Code] = len(c.regions)
		c.regions = append(c.regions, r)
	}
	return c, nil
}

// Regions returns the catalog entries in declaration order.
func (c *Catalog) Regions() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Lookup finds a region by code.
func (c *Catalog) Lookup(code string) (Region, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Region{}, false
	}
	return c.regions[i], true
}

func (c *Catalog) Len() int { return len(c.regions) }
