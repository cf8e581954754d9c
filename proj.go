package lidarinv

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	proj "github.com/twpayne/go-proj/v11"
)

// Reprojector transforms orb geometries between coordinate reference systems
// identified by EPSG code. Transformations are built once per (source,
// target) pair and cached; a Reprojector is safe for concurrent use.
type Reprojector struct {
	mu    sync.Mutex
	cache map[[2]int]*proj.PJ
}

// NewReprojector returns an empty, ready-to-use Reprojector.
func NewReprojector() *Reprojector {
	return &Reprojector{cache: make(map[[2]int]*proj.PJ)}
}

func (r *Reprojector) transformation(src, dst int) (*proj.PJ, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]int{src, dst}
	if pj, ok := r.cache[key]; ok {
		return pj, nil
	}

	pj, err := proj.NewCRSToCRS(fmt.Sprintf("EPSG:%d", src), fmt.Sprintf("EPSG:%d", dst), nil)
	if err != nil {
		return nil, fmt.Errorf("lidarinv: create transformation EPSG:%d to EPSG:%d: %w", src, dst, err)
	}
	// PROJ honors the authority axis definition, which puts latitude first
	// for geographic systems. Normalize so coordinates are always handled in
	// easting/longitude, northing/latitude order like orb expects.
	pj, err = pj.NormalizeForVisualization()
	if err != nil {
		return nil, fmt.Errorf("lidarinv: normalize transformation EPSG:%d to EPSG:%d: %w", src, dst, err)
	}

	r.cache[key] = pj
	return pj, nil
}

// Point reprojects a single point from the src to the dst system.
func (r *Reprojector) Point(p orb.Point, src, dst int) (orb.Point, error) {
	pj, err := r.transformation(src, dst)
	if err != nil {
		return orb.Point{}, err
	}
	coord, err := pj.Forward(proj.NewCoord(p[0], p[1], 0, 0))
	if err != nil {
		return orb.Point{}, fmt.Errorf("lidarinv: transform point EPSG:%d to EPSG:%d: %w", src, dst, err)
	}
	return orb.Point{coord.X(), coord.Y()}, nil
}

// Geometry reprojects any supported orb geometry from src to dst, returning
// a new geometry of the same type.
func (r *Reprojector) Geometry(g orb.Geometry, src, dst int) (orb.Geometry, error) {
	switch v := g.(type) {
	case orb.Point:
		return r.Point(v, src, dst)
	case orb.MultiPoint:
		pts, err := r.points([]orb.Point(v), src, dst)
		if err != nil {
			return nil, err
		}
		return orb.MultiPoint(pts), nil
	case orb.LineString:
		pts, err := r.points([]orb.Point(v), src, dst)
		if err != nil {
			return nil, err
		}
		return orb.LineString(pts), nil
	case orb.MultiLineString:
		out := make(orb.MultiLineString, 0, len(v))
		for _, ls := range v {
			pts, err := r.points([]orb.Point(ls), src, dst)
			if err != nil {
				return nil, err
			}
			out = append(out, orb.LineString(pts))
		}
		return out, nil
	case orb.Ring:
		pts, err := r.points([]orb.Point(v), src, dst)
		if err != nil {
			return nil, err
		}
		return orb.Ring(pts), nil
	case orb.Polygon:
		return r.polygon(v, src, dst)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(v))
		for _, p := range v {
			poly, err := r.polygon(p, src, dst)
			if err != nil {
				return nil, err
			}
			out = append(out, poly)
		}
		return out, nil
	case orb.Collection:
		out := make(orb.Collection, 0, len(v))
		for _, child := range v {
			g, err := r.Geometry(child, src, dst)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("lidarinv: cannot reproject geometry type %T", g)
	}
}

func (r *Reprojector) polygon(p orb.Polygon, src, dst int) (orb.Polygon, error) {
	out := make(orb.Polygon, 0, len(p))
	for _, ring := range p {
		pts, err := r.points([]orb.Point(ring), src, dst)
		if err != nil {
			return nil, err
		}
		out = append(out, orb.Ring(pts))
	}
	return out, nil
}

func (r *Reprojector) points(pts []orb.Point, src, dst int) ([]orb.Point, error) {
	pj, err := r.transformation(src, dst)
	if err != nil {
		return nil, err
	}
	out := make([]orb.Point, 0, len(pts))
	for _, p := range pts {
		coord, err := pj.Forward(proj.NewCoord(p[0], p[1], 0, 0))
		if err != nil {
			return nil, fmt.Errorf("lidarinv: transform point EPSG:%d to EPSG:%d: %w", src, dst, err)
		}
		out = append(out, orb.Point{coord.X(), coord.Y()})
	}
	return out, nil
}
