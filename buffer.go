package lidarinv

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	geos "github.com/twpayne/go-geos"
)

// bufferSegments is the number of quadrant segments used to approximate a
// circular buffer boundary.
const bufferSegments = 16

var geosContext = geos.NewContext()

// bufferPoint returns an isotropic buffer of radius units around p. The
// point must already be in a projected system whose linear unit matches the
// radius; callers buffer in the equal-area system so radii are meters.
func bufferPoint(p orb.Point, radius float64) (orb.Polygon, error) {
	g, err := geosContext.NewGeomFromWKT(wkt.MarshalString(p))
	if err != nil {
		return nil, fmt.Errorf("lidarinv: buffer point: %w", err)
	}
	defer g.Destroy()

	buffered := g.Buffer(radius, bufferSegments)
	defer buffered.Destroy()

	out, err := wkt.Unmarshal(buffered.ToWKT())
	if err != nil {
		return nil, fmt.Errorf("lidarinv: decode buffered geometry: %w", err)
	}
	poly, ok := out.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("lidarinv: buffer produced %T, expected polygon", out)
	}
	return poly, nil
}
