// Command search runs the full inventory pipeline for a small bounding-box
// region: discovery, endpoint/CRS resolution, and a bounds-clipped
// extraction written to a LAS file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	lidarinv "github.com/lahm3d/cdi-gage-analysis"
)

func main() {
	reference := flag.String("reference", "", "path to the Parquet reference table (optional)")
	output := flag.String("output", "demo_lidar.las", "LAS output path for the extraction stage")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	search := lidarinv.Search{
		Regions: []lidarinv.Region{
			{
				Name: "sandy-hook",
				Type: lidarinv.RegionBBox,
				BBox: [4]float64{-74.0206, 40.4178, -73.9787, 40.4847},
			},
		},
	}

	regions, collections, err := search.Run(ctx)
	if err != nil {
		if errors.Is(err, lidarinv.ErrEmptyResult) {
			log.Fatal("no lidar collections intersect the region")
		}
		log.Fatalf("inventory search failed: %v", err)
	}
	fmt.Printf("matched %d collections across %d region parts\n", len(collections), len(regions.Query))

	var table *lidarinv.ReferenceTable
	if *reference != "" {
		table, err = lidarinv.OpenReferenceTable(*reference)
		if err != nil {
			log.Fatalf("reference table: %v", err)
		}
		fmt.Printf("reference table holds %d datasets\n", table.Len())
	}

	resolver := lidarinv.NewResolver(table, &lidarinv.PDALInfoCRSResolver{}, lidarinv.NewReprojector())
	if err := resolver.Resolve(ctx, collections, regions); err != nil {
		log.Fatalf("resolve collections: %v", err)
	}

	var resolved []lidarinv.Collection
	for _, c := range collections {
		if c.EPT != nil {
			resolved = append(resolved, c)
			fmt.Printf("  %s -> %s (EPSG:%d)\n", c.Name, *c.EPT, c.EPTCRS)
		}
	}
	if len(resolved) == 0 {
		log.Fatal("no collection resolved to a streamable endpoint")
	}

	selection, err := lidarinv.SingleCollection(resolved[:1])
	if err != nil {
		log.Fatalf("select collection: %v", err)
	}
	request, err := lidarinv.NewExtractionRequest(selection, lidarinv.MethodBounds, *output)
	if err != nil {
		log.Fatalf("build extraction: %v", err)
	}

	result, err := request.Execute(ctx, &lidarinv.PDALPipelineRunner{})
	if err != nil {
		log.Fatalf("extraction failed: %v", err)
	}
	fmt.Printf("extracted %d points to %s\n", result.Count, *output)
}
