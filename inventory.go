package lidarinv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultInventoryURLs are the two USIEIv2 MapServer query layers covering
// the topobathy and topographic lidar dataset classes.
var DefaultInventoryURLs = []string{
	"https://coast.noaa.gov/arcgis/rest/services/USInteragencyElevationInventory/USIEIv2/MapServer/2/query",
	"https://coast.noaa.gov/arcgis/rest/services/USInteragencyElevationInventory/USIEIv2/MapServer/0/query",
}

// Collection is one inventory match for a region. The inventory fields are
// set by the query client; the derived endpoint and CRS fields are filled
// in place by a Resolver pass.
type Collection struct {
	Name       string             // originating region name
	Attributes geojson.Properties // raw service attributes
	Links      string             // opaque links metadata blob
	Footprint  orb.Geometry       // collection footprint, EPSG:4326

	InventoryEPT   *string      // EPT endpoint parsed from Links
	ReferenceEPT   *string      // EPT endpoint from the reference table join
	NOAAID         string       // external dataset identifier from Links
	EPT            *string      // reconciled endpoint, nil when unresolved
	EPTCRS         int          // EPSG code of the endpoint's native system
	RegionInEPTCRS orb.Geometry // requesting region reprojected into EPTCRS
}

// Client queries the inventory service layers for collections intersecting
// region geometries.
type Client struct {
	HTTPClient *http.Client
	URLs       []string
	Logger     *slog.Logger
}

// NewClient creates an inventory client with the specified per-request
// timeout, querying the default USIEI layers.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		URLs:       DefaultInventoryURLs,
		Logger:     slog.Default(),
	}
}

// Query issues a geometry-intersection query for every (service layer,
// region row) pair and aggregates the matches into one collection table.
// Each result row is tagged with the originating region name; response
// geometries are geographic.
//
// A 400, 401, or 500 status aborts the whole query with a
// RemoteServiceError. Other non-200 statuses count as empty responses. If
// no pair matches anything, ErrEmptyResult is returned.
func (c *Client) Query(ctx context.Context, regions *NormalizedRegions) ([]Collection, error) {
	var collections []Collection
	matched := false

	for _, serviceURL := range c.URLs {
		for _, row := range regions.Query {
			rings, ok := EncodeEsriGeometry(row.Geometry)
			if !ok {
				c.logger().Warn("skipping non-areal region geometry", "region", row.Name)
				continue
			}
			features, err := c.query(ctx, serviceURL, row.Name, rings)
			if err != nil {
				return nil, err
			}
			if len(features) > 0 {
				matched = true
			}
			for _, f := range features {
				collections = append(collections, newCollection(row.Name, f))
			}
		}
	}

	if !matched {
		return nil, ErrEmptyResult
	}
	return collections, nil
}

func (c *Client) query(ctx context.Context, serviceURL, region, rings string) ([]*geojson.Feature, error) {
	form := url.Values{
		"outFields":      {"*"},
		"geometry":       {rings},
		"geometryType":   {"esriGeometryPolygon"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"returnGeometry": {"true"},
		"returnIdsOnly":  {"false"},
		"f":              {"geojson"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("lidarinv: build inventory query for %s: %w", serviceURL, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lidarinv: inventory query for region %q against %s: %w", region, serviceURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError:
		return nil, &RemoteServiceError{URL: serviceURL, Region: region, Status: resp.StatusCode}
	default:
		c.logger().Warn("inventory query returned unexpected status, treating as empty",
			"status", resp.StatusCode, "url", serviceURL, "region", region)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lidarinv: read inventory response from %s: %w", serviceURL, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("lidarinv: decode inventory response from %s: %w", serviceURL, err)
	}
	return fc.Features, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func newCollection(name string, f *geojson.Feature) Collection {
	col := Collection{
		Name:       name,
		Attributes: f.Properties,
		Footprint:  f.Geometry,
	}
	switch v := f.Properties["Links"].(type) {
	case string:
		col.Links = v
	case map[string]interface{}, []interface{}:
		// Some layers inline the blob instead of string-encoding it.
		if data, err := json.Marshal(v); err == nil {
			col.Links = string(data)
		}
	}
	return col
}
