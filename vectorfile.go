package lidarinv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// loadVectorFile reads every feature geometry from a vector source,
// discarding attributes. GeoJSON and FlatGeobuf sources are supported;
// coordinates are taken verbatim (region files are geographic by contract).
func loadVectorFile(path string) ([]orb.Geometry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fgb":
		return readFlatGeobuf(path)
	case ".geojson", ".json":
		return readGeoJSON(path)
	default:
		return nil, fmt.Errorf("unsupported vector source %s", path)
	}
}

func readGeoJSON(path string) ([]orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson %s: %w", path, err)
	}
	geometries := make([]orb.Geometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			geometries = append(geometries, f.Geometry)
		}
	}
	return geometries, nil
}
