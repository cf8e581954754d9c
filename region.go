package lidarinv

import (
	"fmt"

	"github.com/paulmach/orb"
)

// RegionType discriminates the three supported region descriptions.
type RegionType string

const (
	// RegionCoords is a longitude/latitude point buffered into a polygon.
	RegionCoords RegionType = "coords"
	// RegionFile loads every feature from a vector source on disk.
	RegionFile RegionType = "file"
	// RegionBBox is an axis-aligned rectangle in geographic coordinates.
	RegionBBox RegionType = "bbox"
)

// DefaultBufferMeters is the buffer radius applied to coordinate regions
// that do not specify one.
const DefaultBufferMeters = 50.0

// Region is one caller-supplied region of interest. Exactly one of Coords,
// Path, or BBox is meaningful, selected by Type. Regions are immutable once
// constructed.
type Region struct {
	Name   string
	Type   RegionType
	Coords orb.Point  // RegionCoords: longitude, latitude
	Path   string     // RegionFile: vector source on disk
	BBox   [4]float64 // RegionBBox: minx, miny, maxx, maxy
	Buffer float64    // meters, RegionCoords only; 0 means DefaultBufferMeters
}

// RegionGeometry is one single-part feature row carrying its region name.
type RegionGeometry struct {
	Name     string
	Geometry orb.Geometry
}

// NormalizedRegions holds the same single-part features materialized in the
// two systems the pipeline needs: geographic rows for reporting and
// endpoint-CRS reprojection, query rows for the inventory service. The two
// slices are row-aligned.
type NormalizedRegions struct {
	Geographic []RegionGeometry // EPSG:4326
	Query      []RegionGeometry // EPSG:3857
}

// NormalizeRegions converts the ordered regions into aligned geographic and
// query-projection tables with one row per single-part feature.
//
// Coordinate regions are buffered in the equal-area system so the radius is
// metric. Multi-part geometries are split only after the wholesale
// reprojection into the query system: buffer radii are meters, and part
// counts are only stable once projected.
func NormalizeRegions(regions []Region, rp *Reprojector) (*NormalizedRegions, error) {
	var geographic []RegionGeometry
	for _, region := range regions {
		switch region.Type {
		case RegionCoords:
			radius := region.Buffer
			if radius == 0 {
				radius = DefaultBufferMeters
			}
			projected, err := rp.Point(region.Coords, CRSGeographic, CRSEqualArea)
			if err != nil {
				return nil, err
			}
			circle, err := bufferPoint(projected, radius)
			if err != nil {
				return nil, err
			}
			geom, err := rp.Geometry(circle, CRSEqualArea, CRSGeographic)
			if err != nil {
				return nil, err
			}
			geographic = append(geographic, RegionGeometry{Name: region.Name, Geometry: geom})

		case RegionFile:
			geoms, err := loadVectorFile(region.Path)
			if err != nil {
				return nil, &ConfigError{Stage: "normalize", Reason: fmt.Sprintf("region %q: %v", region.Name, err)}
			}
			for _, g := range geoms {
				geographic = append(geographic, RegionGeometry{Name: region.Name, Geometry: g})
			}

		case RegionBBox:
			b := region.BBox
			rect := orb.Polygon{orb.Ring{
				{b[0], b[1]},
				{b[2], b[1]},
				{b[2], b[3]},
				{b[0], b[3]},
				{b[0], b[1]},
			}}
			geographic = append(geographic, RegionGeometry{Name: region.Name, Geometry: rect})

		default:
			return nil, &ConfigError{Stage: "normalize", Reason: fmt.Sprintf("region %q: unrecognized data type %q", region.Name, region.Type)}
		}
	}

	var wgs, query []RegionGeometry
	for _, row := range geographic {
		projected, err := rp.Geometry(row.Geometry, CRSGeographic, CRSQuery)
		if err != nil {
			return nil, err
		}
		for _, part := range explode(projected) {
			back, err := rp.Geometry(part, CRSQuery, CRSGeographic)
			if err != nil {
				return nil, err
			}
			query = append(query, RegionGeometry{Name: row.Name, Geometry: part})
			wgs = append(wgs, RegionGeometry{Name: row.Name, Geometry: back})
		}
	}

	return &NormalizedRegions{Geographic: wgs, Query: query}, nil
}

// explode splits a multi-part geometry into its single-part members.
// Single-part input passes through as a one-element slice.
func explode(g orb.Geometry) []orb.Geometry {
	switch v := g.(type) {
	case orb.MultiPoint:
		out := make([]orb.Geometry, 0, len(v))
		for _, p := range v {
			out = append(out, p)
		}
		return out
	case orb.MultiLineString:
		out := make([]orb.Geometry, 0, len(v))
		for _, ls := range v {
			out = append(out, ls)
		}
		return out
	case orb.MultiPolygon:
		out := make([]orb.Geometry, 0, len(v))
		for _, p := range v {
			out = append(out, p)
		}
		return out
	case orb.Collection:
		var out []orb.Geometry
		for _, child := range v {
			out = append(out, explode(child)...)
		}
		return out
	default:
		return []orb.Geometry{g}
	}
}
