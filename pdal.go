package lidarinv

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// defaultPDALCommand is the executable both subprocess implementations
// invoke when no override is configured.
const defaultPDALCommand = "pdal"

// runCommand executes an external tool and returns its stdout. Stderr is
// folded into the error. The context is the caller's only timeout and
// cancellation hook; a timed-out run surfaces as an ordinary error.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}

// PDALInfoCRSResolver resolves an endpoint's native coordinate system by
// asking the PDAL CLI for the source summary and converting the reported
// well-known text to an EPSG code.
type PDALInfoCRSResolver struct {
	// Command overrides the executable name; "pdal" when empty.
	Command string
}

// Resolve implements CRSResolver. Every failure in the chain (invocation,
// malformed JSON, missing fields, unresolvable WKT) is reported as an error
// for the caller to collapse to the default system.
func (p *PDALInfoCRSResolver) Resolve(ctx context.Context, endpoint string) (int, error) {
	command := p.Command
	if command == "" {
		command = defaultPDALCommand
	}
	out, err := runCommand(ctx, command, "info", "--summary", endpoint)
	if err != nil {
		return 0, err
	}

	var info struct {
		Summary struct {
			SRS struct {
				WKT string `json:"wkt"`
			} `json:"srs"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(out, &info); err != nil {
		return 0, fmt.Errorf("parse pdal info output for %s: %w", endpoint, err)
	}
	return epsgFromWKT(info.Summary.SRS.WKT)
}

// wktAuthorityPattern matches the trailing authority element of a CRS
// well-known-text description, in both the WKT1 AUTHORITY and WKT2 ID forms.
var wktAuthorityPattern = regexp.MustCompile(`(?:AUTHORITY\["EPSG",\s*"(\d+)"\]|ID\["EPSG",\s*(\d+)\])\s*\]*\s*$`)

// epsgFromWKT extracts the integer EPSG code identified by the trailing
// authority element of a well-known-text CRS description.
func epsgFromWKT(wkt string) (int, error) {
	trimmed := strings.TrimSpace(wkt)
	if trimmed == "" {
		return 0, errors.New("empty coordinate system description")
	}
	m := wktAuthorityPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return 0, errors.New("no EPSG authority in coordinate system description")
	}
	code := m[1]
	if code == "" {
		code = m[2]
	}
	return strconv.Atoi(code)
}

// PDALPipelineRunner executes extraction pipelines with the PDAL CLI. The
// pipeline JSON is streamed over stdin and execution metadata is captured
// from a scratch file. A writers.text stage is appended to hand the point
// records back; the CLI has no in-process array transfer.
type PDALPipelineRunner struct {
	// Command overrides the executable name; "pdal" when empty.
	Command string
	// ScratchDir holds per-run artifacts; the system temp dir when empty.
	ScratchDir string
}

// Run implements PipelineRunner.
func (p *PDALPipelineRunner) Run(ctx context.Context, pipeline []byte) (*ExtractionResult, error) {
	var stages []json.RawMessage
	if err := json.Unmarshal(pipeline, &stages); err != nil {
		return nil, fmt.Errorf("lidarinv: decode pipeline: %w", err)
	}

	dir := p.ScratchDir
	if dir == "" {
		dir = os.TempDir()
	}
	runID := uuid.NewString()
	pointsPath := filepath.Join(dir, fmt.Sprintf("lidarinv-%s-points.txt", runID))
	metaPath := filepath.Join(dir, fmt.Sprintf("lidarinv-%s-meta.json", runID))
	defer os.Remove(pointsPath)
	defer os.Remove(metaPath)

	textStage, err := json.Marshal(map[string]string{
		"type":     "writers.text",
		"filename": pointsPath,
		"order":    "X,Y,Z,GpsTime",
	})
	if err != nil {
		return nil, fmt.Errorf("lidarinv: build text stage: %w", err)
	}
	stages = append(stages, textStage)

	full, err := json.Marshal(stages)
	if err != nil {
		return nil, fmt.Errorf("lidarinv: encode pipeline: %w", err)
	}

	command := p.Command
	if command == "" {
		command = defaultPDALCommand
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, "pipeline", "--stdin", "--metadata", metaPath)
	cmd.Stdin = bytes.NewReader(full)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("lidarinv: pdal pipeline: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("lidarinv: pdal pipeline: %w", err)
	}

	points, err := readPointRecords(pointsPath)
	if err != nil {
		return nil, err
	}
	metadata, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("lidarinv: read pipeline metadata: %w", err)
	}

	return &ExtractionResult{
		Count:    int64(len(points)),
		Points:   points,
		Metadata: metadata,
	}, nil
}

// readPointRecords parses the CSV emitted by the scratch writers.text
// stage. Column positions come from the header row.
func readPointRecords(path string) ([]PointRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lidarinv: read extracted points: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lidarinv: read extracted points: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var points []PointRecord
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("lidarinv: read extracted points: %w", err)
		}
		var pt PointRecord
		pt.X = fieldFloat(record, index, "X")
		pt.Y = fieldFloat(record, index, "Y")
		pt.Z = fieldFloat(record, index, "Z")
		pt.GPSTime = fieldFloat(record, index, "GpsTime")
		points = append(points, pt)
	}
	return points, nil
}

func fieldFloat(record []string, index map[string]int, name string) float64 {
	i, ok := index[name]
	if !ok || i >= len(record) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
	if err != nil {
		return 0
	}
	return v
}
