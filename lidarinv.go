// Package lidarinv discovers, reconciles, and extracts point-cloud (lidar)
// datasets that spatially intersect a set of caller-defined regions of
// interest. Heterogeneous region descriptions (coordinates, vector files,
// bounding boxes) are normalized into canonical query geometries, matched
// against the US Interagency Elevation Inventory, resolved to a streamable
// Entwine Point Tile endpoint with its native coordinate reference system,
// and finally turned into a bounded point-cloud extraction request.
package lidarinv

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EPSG codes for the three coordinate reference systems the pipeline moves
// geometries between.
const (
	// CRSGeographic carries input and reported geometries (WGS 84).
	CRSGeographic = 4326
	// CRSEqualArea is the projected system used for metrically correct
	// buffering (Conus Albers).
	CRSEqualArea = 5070
	// CRSQuery is the projection the inventory service expects query
	// geometries in (Web Mercator).
	CRSQuery = 3857
)

// DefaultQueryTimeout bounds each inventory HTTP request when the caller
// does not supply a client.
const DefaultQueryTimeout = 60 * time.Second

// ErrEmptyResult reports that no lidar collections matched any of the
// queried regions. It is distinct from a failed service call.
var ErrEmptyResult = errors.New("lidarinv: no lidar collections matched any region")

// ConfigError reports invalid caller-supplied input: an unrecognized region
// type, an unreadable vector source, a missing endpoint before extraction,
// or an ambiguous collection selection. It is always fatal to the run.
type ConfigError struct {
	Stage  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("lidarinv: %s: %s", e.Stage, e.Reason)
}

// RemoteServiceError reports an inventory query that failed with an HTTP
// status the service uses to signal errors. It aborts the run; results from
// pairs queried before the failure are discarded.
type RemoteServiceError struct {
	URL    string
	Region string
	Status int
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("lidarinv: inventory query for region %q against %s failed: HTTP %d", e.Region, e.URL, e.Status)
}

// Search drives region normalization and inventory discovery in one call.
// The zero value of the optional fields is usable: a default reprojector and
// client are created on demand.
type Search struct {
	Regions     []Region
	Client      *Client
	Reprojector *Reprojector
}

// Run normalizes the configured regions and queries the inventory service,
// returning the aligned region tables and the matched collections. The
// returned collections still need a Resolver pass before extraction.
func (s *Search) Run(ctx context.Context) (*NormalizedRegions, []Collection, error) {
	rp := s.Reprojector
	if rp == nil {
		rp = NewReprojector()
	}
	client := s.Client
	if client == nil {
		client = NewClient(DefaultQueryTimeout)
	}

	regions, err := NormalizeRegions(s.Regions, rp)
	if err != nil {
		return nil, nil, err
	}
	collections, err := client.Query(ctx, regions)
	if err != nil {
		return regions, nil, err
	}
	return regions, collections, nil
}
