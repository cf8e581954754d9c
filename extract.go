package lidarinv

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// GeometryMethod selects how an extraction request bounds the point read.
type GeometryMethod string

const (
	// MethodBounds clips to the region's axis-aligned extent.
	MethodBounds GeometryMethod = "bounds"
	// MethodPolygon clips to the exact region boundary.
	MethodPolygon GeometryMethod = "polygon"
)

// PointRecord is one extracted point with its timestamp.
type PointRecord struct {
	X       float64
	Y       float64
	Z       float64
	GPSTime float64
}

// ExtractionResult is the outcome of executing an extraction request.
type ExtractionResult struct {
	Count    int64
	Points   []PointRecord
	Metadata json.RawMessage
}

// PipelineRunner executes a serialized extraction pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, pipeline []byte) (*ExtractionResult, error)
}

// ExtractionRequest is a bounded point-cloud read against one resolved
// endpoint, optionally followed by a write stage. Build it with
// NewExtractionRequest so the preconditions hold.
type ExtractionRequest struct {
	Endpoint   string
	Method     GeometryMethod
	Region     orb.Geometry // in the endpoint's native system
	OutputPath string       // optional writers.las destination
}

// SingleCollection returns the only element of a collection selection.
// Anything but exactly one is an ambiguous selection and a hard failure,
// never a default.
func SingleCollection(collections []Collection) (*Collection, error) {
	if len(collections) != 1 {
		return nil, &ConfigError{Stage: "extract", Reason: fmt.Sprintf("expected exactly one collection, got %d", len(collections))}
	}
	return &collections[0], nil
}

// NewExtractionRequest builds a point read against the collection's
// resolved endpoint, bounded by the region geometry the resolver attached.
// A collection without a resolved endpoint is a precondition violation.
func NewExtractionRequest(c *Collection, method GeometryMethod, outputPath string) (*ExtractionRequest, error) {
	if c.EPT == nil || *c.EPT == "" {
		return nil, &ConfigError{Stage: "extract", Reason: fmt.Sprintf("collection %q has no resolved endpoint", c.Name)}
	}
	if c.RegionInEPTCRS == nil {
		return nil, &ConfigError{Stage: "extract", Reason: fmt.Sprintf("collection %q has no region geometry in the endpoint system", c.Name)}
	}
	switch method {
	case MethodBounds, MethodPolygon:
	default:
		return nil, &ConfigError{Stage: "extract", Reason: fmt.Sprintf("unsupported geometry method %q", method)}
	}
	return &ExtractionRequest{
		Endpoint:   *c.EPT,
		Method:     method,
		Region:     c.RegionInEPTCRS,
		OutputPath: outputPath,
	}, nil
}

// Pipeline serializes the request as the ordered stage list the extraction
// engine consumes: a readers.ept stage bounded by the configured method,
// followed by a writers.las stage when an output path is set.
func (r *ExtractionRequest) Pipeline() ([]byte, error) {
	read := map[string]string{
		"type":     "readers.ept",
		"filename": r.Endpoint,
		"tag":      "readdata",
	}

	switch r.Method {
	case MethodBounds:
		b := r.Region.Bound()
		read["bounds"] = fmt.Sprintf("([%s, %s], [%s, %s])",
			fmtCoord(b.Min[0]), fmtCoord(b.Max[0]), fmtCoord(b.Min[1]), fmtCoord(b.Max[1]))
	case MethodPolygon:
		poly, err := regionPolygon(r.Region)
		if err != nil {
			return nil, err
		}
		read["polygon"] = wkt.MarshalString(poly)
	default:
		return nil, &ConfigError{Stage: "extract", Reason: fmt.Sprintf("unsupported geometry method %q", r.Method)}
	}

	stages := []interface{}{read}
	if r.OutputPath != "" {
		stages = append(stages, map[string]string{
			"type":     "writers.las",
			"filename": r.OutputPath,
		})
	}
	return json.Marshal(stages)
}

// Execute serializes the request and hands it to the runner.
func (r *ExtractionRequest) Execute(ctx context.Context, runner PipelineRunner) (*ExtractionResult, error) {
	pipeline, err := r.Pipeline()
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, pipeline)
}

// regionPolygon returns the single polygon boundary of the region, taking
// the first part of a multi-part geometry.
func regionPolygon(g orb.Geometry) (orb.Geometry, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return v, nil
	case orb.Ring:
		return orb.Polygon{v}, nil
	case orb.MultiPolygon:
		if len(v) > 0 {
			return v[0], nil
		}
	case orb.Collection:
		if len(v) > 0 {
			return regionPolygon(v[0])
		}
	}
	return nil, &ConfigError{Stage: "extract", Reason: fmt.Sprintf("region geometry %T cannot bound a polygon read", g)}
}

// fmtCoord prints a coordinate without exponent notation, which the bounds
// parser does not accept.
func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
