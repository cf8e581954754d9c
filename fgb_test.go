package lidarinv

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// fgbFixtureGenerator feeds orb geometries to the upstream writer one
// feature at a time.
type fgbFixtureGenerator struct {
	geometries []orb.Geometry
	index      int
}

func (g *fgbFixtureGenerator) Generate() *writer.Feature {
	if g.index >= len(g.geometries) {
		return nil
	}
	geom := g.geometries[g.index]
	g.index++

	builder := flatbuffers.NewBuilder(1024)
	feature := writer.NewFeature(builder)
	feature.SetGeometry(encodeFixtureGeometry(geom, builder))
	return feature
}

func encodeFixtureGeometry(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	g := writer.NewGeometry(builder)
	switch v := geom.(type) {
	case orb.Point:
		g.SetType(flattypes.GeometryTypePoint)
		g.SetXY([]float64{v[0], v[1]})
	case orb.LineString:
		g.SetType(flattypes.GeometryTypeLineString)
		g.SetXY(flattenPoints(v))
	case orb.MultiLineString:
		g.SetType(flattypes.GeometryTypeMultiLineString)
		xy, ends := flattenParts(lineStringPoints(v))
		g.SetXY(xy)
		g.SetEnds(ends)
	case orb.Polygon:
		g.SetType(flattypes.GeometryTypePolygon)
		xy, ends := flattenParts(ringPoints(v))
		g.SetXY(xy)
		g.SetEnds(ends)
	case orb.MultiPolygon:
		g.SetType(flattypes.GeometryTypeMultiPolygon)
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			pg := writer.NewGeometry(builder)
			pg.SetType(flattypes.GeometryTypePolygon)
			xy, ends := flattenParts(ringPoints(poly))
			pg.SetXY(xy)
			pg.SetEnds(ends)
			parts = append(parts, *pg)
		}
		g.SetParts(parts)
	}
	return g
}

func flattenPoints(pts []orb.Point) []float64 {
	xy := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

func flattenParts(parts [][]orb.Point) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, 0, len(parts))
	cumulative := uint32(0)
	for _, part := range parts {
		xy = append(xy, flattenPoints(part)...)
		cumulative += uint32(len(part))
		ends = append(ends, cumulative)
	}
	return xy, ends
}

func lineStringPoints(mls orb.MultiLineString) [][]orb.Point {
	parts := make([][]orb.Point, 0, len(mls))
	for _, ls := range mls {
		parts = append(parts, ls)
	}
	return parts
}

func ringPoints(poly orb.Polygon) [][]orb.Point {
	parts := make([][]orb.Point, 0, len(poly))
	for _, ring := range poly {
		parts = append(parts, ring)
	}
	return parts
}

// writeFGBFixture authors an indexed FlatGeobuf file holding the given
// geometries. The writer fills in the envelope, feature count and index
// node size.
func writeFGBFixture(t *testing.T, path string, geomType flattypes.GeometryType, geometries []orb.Geometry) {
	t.Helper()

	builder := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(builder)
	header.SetGeometryType(geomType)

	w := writer.NewWriter(header, true, &fgbFixtureGenerator{geometries: geometries}, nil)

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture file: %v", err)
	}
	_, err = w.Write(file)
	_ = file.Close()
	if err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func TestLoadVectorFile_FlatGeobufPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.fgb")
	writeFGBFixture(t, path, flattypes.GeometryTypePoint, []orb.Geometry{
		orb.Point{1, 2},
		orb.Point{3, 4},
	})

	geometries, err := loadVectorFile(path)
	if err != nil {
		t.Fatalf("loadVectorFile failed: %v", err)
	}
	if len(geometries) != 2 {
		t.Fatalf("expected 2 geometries, got %d", len(geometries))
	}

	// The spatial index reorders features, so compare as a set.
	seen := make(map[orb.Point]bool)
	for _, g := range geometries {
		p, ok := g.(orb.Point)
		if !ok {
			t.Fatalf("expected point, got %T", g)
		}
		seen[p] = true
	}
	for _, want := range []orb.Point{{1, 2}, {3, 4}} {
		if !seen[want] {
			t.Errorf("point %v missing from decoded set", want)
		}
	}
}

func TestLoadVectorFile_FlatGeobufPolygonWithHole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polygon.fgb")
	want := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}},
	}
	writeFGBFixture(t, path, flattypes.GeometryTypePolygon, []orb.Geometry{want})

	geometries, err := loadVectorFile(path)
	if err != nil {
		t.Fatalf("loadVectorFile failed: %v", err)
	}
	if len(geometries) != 1 {
		t.Fatalf("expected 1 geometry, got %d", len(geometries))
	}

	got, ok := geometries[0].(orb.Polygon)
	if !ok {
		t.Fatalf("expected polygon, got %T", geometries[0])
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decoded polygon %v, want %v", got, want)
	}
}

func TestLoadVectorFile_FlatGeobufMultiPolygon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multipolygon.fgb")
	want := orb.MultiPolygon{
		{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
		{{{20, 20}, {30, 20}, {30, 30}, {20, 30}, {20, 20}}},
	}
	writeFGBFixture(t, path, flattypes.GeometryTypeMultiPolygon, []orb.Geometry{want})

	geometries, err := loadVectorFile(path)
	if err != nil {
		t.Fatalf("loadVectorFile failed: %v", err)
	}
	if len(geometries) != 1 {
		t.Fatalf("expected 1 geometry, got %d", len(geometries))
	}

	got, ok := geometries[0].(orb.MultiPolygon)
	if !ok {
		t.Fatalf("expected multipolygon, got %T", geometries[0])
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decoded multipolygon %v, want %v", got, want)
	}
}

func TestLoadVectorFile_FlatGeobufMultiLineString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.fgb")
	want := orb.MultiLineString{
		{{0, 0}, {5, 5}},
		{{10, 10}, {15, 10}, {15, 15}},
	}
	writeFGBFixture(t, path, flattypes.GeometryTypeMultiLineString, []orb.Geometry{want})

	geometries, err := loadVectorFile(path)
	if err != nil {
		t.Fatalf("loadVectorFile failed: %v", err)
	}
	if len(geometries) != 1 {
		t.Fatalf("expected 1 geometry, got %d", len(geometries))
	}

	got, ok := geometries[0].(orb.MultiLineString)
	if !ok {
		t.Fatalf("expected multilinestring, got %T", geometries[0])
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decoded multilinestring %v, want %v", got, want)
	}
}
