package lidarinv

import (
	"encoding/json"

	"github.com/paulmach/orb"
)

// esriPolygon is the ring-array geometry form accepted by Esri-family
// spatial query services.
type esriPolygon struct {
	Rings [][][2]float64 `json:"rings"`
}

// EncodeEsriGeometry serializes a polygon or multi-polygon into the Esri
// JSON ring form: one exterior ring plus its interior rings per part,
// concatenated. The geometry must already be in the query projection.
// Non-areal geometries are not supported query shapes; ok is false for them.
func EncodeEsriGeometry(g orb.Geometry) (encoded string, ok bool) {
	var rings [][][2]float64
	switch v := g.(type) {
	case orb.Polygon:
		rings = appendEsriRings(rings, v)
	case orb.MultiPolygon:
		for _, p := range v {
			rings = appendEsriRings(rings, p)
		}
	default:
		return "", false
	}

	data, err := json.Marshal(esriPolygon{Rings: rings})
	if err != nil {
		return "", false
	}
	return string(data), true
}

func appendEsriRings(rings [][][2]float64, p orb.Polygon) [][][2]float64 {
	for _, ring := range p {
		coords := make([][2]float64, 0, len(ring))
		for _, pt := range ring {
			coords = append(coords, [2]float64{pt[0], pt[1]})
		}
		rings = append(rings, coords)
	}
	return rings
}
