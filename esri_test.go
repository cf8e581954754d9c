package lidarinv

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
)

func decodeRings(t *testing.T, encoded string) [][][2]float64 {
	t.Helper()
	var out struct {
		Rings [][][2]float64 `json:"rings"`
	}
	if err := json.Unmarshal([]byte(encoded), &out); err != nil {
		t.Fatalf("decode rings: %v", err)
	}
	return out.Rings
}

func TestEncodeEsriGeometry_Square(t *testing.T) {
	square := orb.Polygon{orb.Ring{
		{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0},
	}}

	encoded, ok := EncodeEsriGeometry(square)
	if !ok {
		t.Fatal("expected square polygon to encode")
	}

	rings := decodeRings(t, encoded)
	if len(rings) != 1 {
		t.Fatalf("expected 1 ring, got %d", len(rings))
	}
	if len(rings[0]) != 5 {
		t.Errorf("expected closed ring of 5 coordinate pairs, got %d", len(rings[0]))
	}
	if rings[0][0] != rings[0][4] {
		t.Errorf("ring is not closed: first %v last %v", rings[0][0], rings[0][4])
	}
}

func TestEncodeEsriGeometry_Hole(t *testing.T) {
	withHole := orb.Polygon{
		orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		orb.Ring{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}

	encoded, ok := EncodeEsriGeometry(withHole)
	if !ok {
		t.Fatal("expected polygon with hole to encode")
	}
	if rings := decodeRings(t, encoded); len(rings) != 2 {
		t.Errorf("expected exactly 2 rings, got %d", len(rings))
	}
}

func TestEncodeEsriGeometry_MultiPolygon(t *testing.T) {
	mp := orb.MultiPolygon{
		{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
		{
			orb.Ring{{5, 5}, {9, 5}, {9, 9}, {5, 9}, {5, 5}},
			orb.Ring{{6, 6}, {7, 6}, {7, 7}, {6, 7}, {6, 6}},
		},
	}

	encoded, ok := EncodeEsriGeometry(mp)
	if !ok {
		t.Fatal("expected multipolygon to encode")
	}
	if rings := decodeRings(t, encoded); len(rings) != 3 {
		t.Errorf("expected 3 rings (2 exteriors + 1 interior), got %d", len(rings))
	}
}

func TestEncodeEsriGeometry_NonAreal(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Geometry
	}{
		{"Point", orb.Point{1, 2}},
		{"LineString", orb.LineString{{0, 0}, {1, 1}}},
		{"MultiPoint", orb.MultiPoint{{0, 0}, {1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := EncodeEsriGeometry(tt.geom); ok {
				t.Errorf("expected %s to be rejected as a query geometry", tt.name)
			}
		})
	}
}
