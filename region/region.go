// Package region restricts pyramid builds to sky footprints that
// overlap a set of geometries, loaded from GeoJSON or given as a
// simple longitude/latitude box.
package region

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geojson"

	"github.com/astrovis/go-skytiles/toast"
)

// Region is a set of geometries in degrees, longitude in [-180, 180)
// and latitude in [-90, 90].
type Region struct {
	collection orb.Collection
	bound      orb.Bound
}

// FromGeoJSON builds a region from a GeoJSON feature collection.
func FromGeoJSON(data []byte) (*Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("skytiles: parsing region: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("skytiles: region has no features")
	}

	r := &Region{bound: fc.Features[0].Geometry.Bound()}
	for _, f := range fc.Features {
		r.collection = append(r.collection, f.Geometry)
		r.bound = r.bound.Union(f.Geometry.Bound())
	}
	return r, nil
}

// Load reads a GeoJSON region from a file.
func Load(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("skytiles: reading region: %w", err)
	}
	return FromGeoJSON(data)
}

// FromBound builds a rectangular region from degree coordinates.
func FromBound(minLon, minLat, maxLon, maxLat float64) *Region {
	b := orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
	return &Region{
		collection: orb.Collection{b.ToPolygon()},
		bound:      b,
	}
}

// Contains reports whether the footprint overlaps the region. The test
// is conservative: footprints are bounded by the box of their corners,
// and footprints straddling the antimeridian always pass, so pruning
// with Contains never drops covered sky.
func (r *Region) Contains(t toast.Tile) bool {
	b, wraps := footprintBound(t)
	if wraps {
		return true
	}
	if !b.Intersects(r.bound) {
		return false
	}
	for _, g := range r.collection {
		if clip.Geometry(b, orb.Clone(g)) != nil {
			return true
		}
	}
	return false
}

// Filter adapts the region to the build configuration's filter shape.
func (r *Region) Filter() func(toast.Tile) bool {
	return r.Contains
}

// footprintBound returns the degree bounding box of the footprint's
// corners. wraps is true when the corners straddle the antimeridian,
// in which case the box is meaningless.
func footprintBound(t toast.Tile) (b orb.Bound, wraps bool) {
	for i, c := range t.Corners {
		lon := 180 / math.Pi * c.Lon
		for lon >= 180 {
			lon -= 360
		}
		for lon < -180 {
			lon += 360
		}
		p := orb.Point{lon, 180 / math.Pi * c.Lat}
		if i == 0 {
			b = orb.Bound{Min: p, Max: p}
			continue
		}
		b = b.Extend(p)
	}
	return b, b.Max[0]-b.Min[0] > 180
}
