package lidarinv

import (
	"fmt"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

// readFlatGeobuf loads every feature geometry from a FlatGeobuf source.
// Enumeration goes through the spatial index with the header envelope as the
// window; files written without an index cannot be iterated by the upstream
// implementation and are rejected.
func readFlatGeobuf(path string) ([]orb.Geometry, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, fmt.Errorf("open flatgeobuf %s: %w", path, err)
	}

	h := fgb.Header()
	if h == nil {
		return nil, fmt.Errorf("flatgeobuf %s: missing header", path)
	}
	if h.FeaturesCount() == 0 {
		return nil, nil
	}
	if h.IndexNodeSize() == 0 || h.EnvelopeLength() < 4 {
		return nil, fmt.Errorf("flatgeobuf %s: no spatial index, cannot enumerate features", path)
	}

	features, err := fgb.Search(h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3))
	if err != nil {
		return nil, fmt.Errorf("flatgeobuf %s: %w", path, err)
	}

	geometries := make([]orb.Geometry, 0, len(features))
	for _, f := range features {
		var geomObj flattypes.Geometry
		g := f.Geometry(&geomObj)
		if g == nil {
			continue
		}
		if geom := decodeFGBGeometry(g); geom != nil {
			geometries = append(geometries, geom)
		}
	}
	return geometries, nil
}

// decodeFGBGeometry converts a FlatGeobuf geometry to its orb equivalent.
func decodeFGBGeometry(g *flattypes.Geometry) orb.Geometry {
	switch g.Type() {
	case flattypes.GeometryTypePoint:
		if g.XyLength() < 2 {
			return nil
		}
		return orb.Point{g.Xy(0), g.Xy(1)}
	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(fgbPoints(g))
	case flattypes.GeometryTypeLineString:
		return orb.LineString(fgbPoints(g))
	case flattypes.GeometryTypeMultiLineString:
		parts := fgbParts(g)
		mls := make(orb.MultiLineString, 0, len(parts))
		for _, part := range parts {
			mls = append(mls, orb.LineString(part))
		}
		return mls
	case flattypes.GeometryTypePolygon:
		return fgbPolygon(g)
	case flattypes.GeometryTypeMultiPolygon:
		return fgbMultiPolygon(g)
	default:
		return nil
	}
}

func fgbPoints(g *flattypes.Geometry) []orb.Point {
	n := g.XyLength()
	pts := make([]orb.Point, 0, n/2)
	for i := 0; i+1 < n; i += 2 {
		pts = append(pts, orb.Point{g.Xy(i), g.Xy(i + 1)})
	}
	return pts
}

// fgbParts splits the flat coordinate array at the ends offsets. A geometry
// without ends is a single part.
func fgbParts(g *flattypes.Geometry) [][]orb.Point {
	pts := fgbPoints(g)
	n := g.EndsLength()
	if n == 0 {
		return [][]orb.Point{pts}
	}
	parts := make([][]orb.Point, 0, n)
	start := uint32(0)
	for i := 0; i < n; i++ {
		end := g.Ends(i)
		if int(end) > len(pts) {
			end = uint32(len(pts))
		}
		parts = append(parts, pts[start:end])
		start = end
	}
	return parts
}

func fgbPolygon(g *flattypes.Geometry) orb.Polygon {
	parts := fgbParts(g)
	poly := make(orb.Polygon, 0, len(parts))
	for _, part := range parts {
		poly = append(poly, orb.Ring(part))
	}
	return poly
}

func fgbMultiPolygon(g *flattypes.Geometry) orb.MultiPolygon {
	n := g.PartsLength()
	if n == 0 {
		return orb.MultiPolygon{fgbPolygon(g)}
	}
	mp := make(orb.MultiPolygon, 0, n)
	for i := 0; i < n; i++ {
		var part flattypes.Geometry
		if g.Parts(&part, i) {
			mp = append(mp, fgbPolygon(&part))
		}
	}
	return mp
}
