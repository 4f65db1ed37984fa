// Package raster talks to the geospatial query service that reduces one
// raster file over one region polygon to per-band statistics.
package raster

import (
	"context"
	"fmt"
	"strings"
)

// Mask restricts the reduction to pixels valid in another raster layer.
type Mask struct {
	File string `json:"file"`
	Band string `json:"band"`
}

// Geometry selects a region polygon from a feature collection by property.
type Geometry struct {
	Collection string `json:"collection,omitempty"`
	Property   string `json:"property"`
	Value      string `json:"value"`
}

// Query is one masked, per-band spatial reduction.
type Query struct {
	File      string   `json:"file"`
	Geometry  Geometry `json:"geometry"`
	Bands     []string `json:"bands"`
	Reducer   string   `json:"reducer"`
	Scale     float64  `json:"scale"`
	MaxPixels float64  `json:"max_pixels"`
	FillValue float64  `json:"fill_value"`
	Mask      *Mask    `json:"mask,omitempty"`
}

func (q Query) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s=%s|%s|%g|%g|%g|",
		q.File, q.Geometry.Collection, q.Geometry.Property, q.Geometry.Value,
		q.Reducer, q.Scale, q.MaxPixels, q.FillValue)
	if q.Mask != nil {
		fmt.Fprintf(&b, "%s:%s", q.Mask.File, q.Mask.Band)
	}
	b.WriteByte('|')
	b.WriteString(strings.Join(q.Bands, ","))
	return b.String()
}

// Result maps band name to the reduced value. A nil value means the band had
// no valid pixels.
type Result map[string]*float64

// Clone returns a copy that shares no pointers with r.
func (r Result) Clone() Result {
	out := make(Result, len(r))
	for band, v := range r {
		if v == nil {
			out[band] = nil
			continue
		}
		x := *v
		out[band] = &x
	}
	return out
}

// Source reduces raster queries.
type Source interface {
	Reduce(ctx context.Context, q Query) (Result, error)
}
