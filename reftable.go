package lidarinv

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

// referenceRow mirrors the scraped repository table schema: a dataset
// identifier and its streamable endpoint, either of which may be null.
type referenceRow struct {
	ID  *string `parquet:"name=ID #, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	EPT *string `parquet:"name=EPT, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

// ReferenceTable is the read-only dataset-id to endpoint side table produced
// by the external repository scraper, joined into endpoint resolution by
// dataset identifier.
type ReferenceTable struct {
	endpoints map[string]string
}

// OpenReferenceTable loads a Parquet reference table from disk.
func OpenReferenceTable(path string) (*ReferenceTable, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("lidarinv: open reference table %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(referenceRow), 1)
	if err != nil {
		return nil, fmt.Errorf("lidarinv: read reference table %s: %w", path, err)
	}
	defer pr.ReadStop()

	rows := make([]referenceRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("lidarinv: read reference table %s: %w", path, err)
	}

	table := &ReferenceTable{endpoints: make(map[string]string, len(rows))}
	for _, row := range rows {
		if row.ID == nil || *row.ID == "" {
			continue
		}
		var ept string
		if row.EPT != nil {
			ept = *row.EPT
		}
		table.endpoints[*row.ID] = ept
	}
	return table, nil
}

// NewReferenceTable builds a table from an already-parsed id to endpoint
// map. An empty endpoint records that the repository lists the dataset
// without a streamable resource.
func NewReferenceTable(endpoints map[string]string) *ReferenceTable {
	copied := make(map[string]string, len(endpoints))
	for id, ept := range endpoints {
		copied[id] = ept
	}
	return &ReferenceTable{endpoints: copied}
}

// Lookup returns the known endpoint for a dataset identifier. The boolean
// reports whether the identifier is present at all.
func (t *ReferenceTable) Lookup(id string) (string, bool) {
	if t == nil {
		return "", false
	}
	ept, ok := t.endpoints[id]
	return ept, ok
}

// Len reports the number of identifiers in the table.
func (t *ReferenceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.endpoints)
}
