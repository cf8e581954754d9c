package lidarinv

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
)

// CRSResolver reports the EPSG code of an endpoint's native coordinate
// system. Implementations signal failure through the error; the Resolver
// collapses every failure to the geographic default at a single boundary.
type CRSResolver interface {
	Resolve(ctx context.Context, endpoint string) (int, error)
}

// Resolver reconciles, per collection, a downloadable point-cloud endpoint
// and its CRS from the inventory links and the reference table, then
// materializes the requesting region geometry in that CRS.
type Resolver struct {
	Reference   *ReferenceTable
	CRS         CRSResolver
	Reprojector *Reprojector
	Logger      *slog.Logger
}

// NewResolver wires a resolver with the default logger.
func NewResolver(reference *ReferenceTable, crs CRSResolver, rp *Reprojector) *Resolver {
	return &Resolver{Reference: reference, CRS: crs, Reprojector: rp, Logger: slog.Default()}
}

// Resolve fills the derived endpoint and CRS fields of every collection in
// place: link parsing, reference-table join, endpoint reconciliation, CRS
// resolution, and grouped region reprojection. Malformed metadata degrades
// to unresolved values; only reprojection of a region geometry can fail.
func (r *Resolver) Resolve(ctx context.Context, collections []Collection, regions *NormalizedRegions) error {
	for i := range collections {
		c := &collections[i]

		records := ParseLinks(c.Links)
		if len(records) == 0 && c.Links != "" {
			r.logger().Debug("unparseable links metadata", "collection", c.Name)
		}
		if link, ok := eptLink(records); ok {
			c.InventoryEPT = &link
		}
		if id, ok := noaaLidarID(records); ok {
			c.NOAAID = id
			if ept, found := r.Reference.Lookup(id); found && ept != "" {
				c.ReferenceEPT = &ept
			}
		}

		c.EPT = r.reconcile(c)
		c.EPTCRS = r.resolveCRS(ctx, c.EPT)
	}

	return r.attachRegionGeometries(collections, regions)
}

// reconcile keeps the single distinct non-null candidate among the two
// sources. Zero candidates, or two that disagree, leave the endpoint
// unresolved; there is no preference order between sources. A disagreement
// is logged so conflicts stay distinguishable from missing data.
func (r *Resolver) reconcile(c *Collection) *string {
	switch {
	case c.InventoryEPT == nil && c.ReferenceEPT == nil:
		return nil
	case c.InventoryEPT == nil:
		return c.ReferenceEPT
	case c.ReferenceEPT == nil:
		return c.InventoryEPT
	case *c.InventoryEPT == *c.ReferenceEPT:
		return c.InventoryEPT
	default:
		r.logger().Warn("conflicting endpoint candidates, leaving unresolved",
			"collection", c.Name, "inventory", *c.InventoryEPT, "reference", *c.ReferenceEPT)
		return nil
	}
}

// resolveCRS is the single boundary where CRS resolution failures collapse
// to the geographic default. It never returns an error.
func (r *Resolver) resolveCRS(ctx context.Context, endpoint *string) int {
	if endpoint == nil || *endpoint == "" || r.CRS == nil {
		return CRSGeographic
	}
	code, err := r.CRS.Resolve(ctx, *endpoint)
	if err != nil || code == 0 {
		r.logger().Debug("endpoint CRS resolution failed, using geographic default",
			"endpoint", *endpoint, "error", err)
		return CRSGeographic
	}
	return code
}

type regionCRSKey struct {
	name string
	crs  int
}

// attachRegionGeometries reprojects each region's geographic rows once per
// CRS appearing among its collections and attaches the result to every
// collection sharing that (name, CRS) pair. Rows merge by key, never by
// position.
func (r *Resolver) attachRegionGeometries(collections []Collection, regions *NormalizedRegions) error {
	cache := make(map[regionCRSKey][]orb.Geometry)

	for i := range collections {
		c := &collections[i]
		key := regionCRSKey{name: c.Name, crs: c.EPTCRS}

		geoms, ok := cache[key]
		if !ok {
			for _, row := range regions.Geographic {
				if row.Name != c.Name {
					continue
				}
				g, err := r.Reprojector.Geometry(row.Geometry, CRSGeographic, key.crs)
				if err != nil {
					return fmt.Errorf("lidarinv: reproject region %q to EPSG:%d: %w", c.Name, key.crs, err)
				}
				geoms = append(geoms, g)
			}
			cache[key] = geoms
		}

		switch len(geoms) {
		case 0:
			// No region rows share this collection's name; leave unset.
		case 1:
			c.RegionInEPTCRS = geoms[0]
		default:
			c.RegionInEPTCRS = orb.Collection(geoms)
		}
	}
	return nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
