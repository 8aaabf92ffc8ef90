// Package sources implements the per-archive adapters. Each adapter
// serves one source: it enumerates the source's known datasets and,
// where the source permits, parses local archive files into normalized
// tables for ingestion.
package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/pkg/types"
)

// readCSVTable parses a CSV file into a normalized table. The first
// record is the header; short rows leave trailing cells absent.
func readCSVTable(path string) (*cachestore.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", filepath.Base(path), err)
	}

	table := &cachestore.Table{Columns: header}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// supportedIngestExts lists the file types the CSV-based adapters accept.
var supportedIngestExts = map[string]bool{".csv": true}

// ingestLocalFile validates and parses a local archive file for the
// adapters whose sources distribute plain tables.
func ingestLocalFile(filePath string) (*registry.IngestPayload, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("archive file %s: %w", filePath, err)
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".zip" {
		return nil, fmt.Errorf("zip archives must be extracted first; provide the main data file")
	}
	if !supportedIngestExts[ext] {
		return nil, fmt.Errorf("unsupported archive format %q", ext)
	}

	table, err := readCSVTable(filePath)
	if err != nil {
		return nil, err
	}
	return &registry.IngestPayload{
		Table:      table,
		Transforms: []string{"read_csv"},
		Parameters: map[string]string{"file": filepath.Base(filePath)},
	}, nil
}

// loadFromCache serves a dataset from its cached processed table,
// applying equality filters on column values.
func loadFromCache(cache *cachestore.Store, id types.DatasetID, filters map[string]string) (*cachestore.Table, error) {
	entryDir := filepath.Join(cache.Root(), id.Source, id.Dataset, id.Version)
	table, err := cache.ReadProcessedTable(entryDir)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return table, nil
	}

	filtered := &cachestore.Table{Columns: table.Columns}
	for _, row := range table.Rows {
		match := true
		for col, want := range filters {
			if row[col] != want {
				match = false
				break
			}
		}
		if match {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered, nil
}

// staticAdapter is the common shape of adapters with a curated dataset
// catalog. Load serves from the processed cache; Ingest parses local
// files when the source allows it.
type staticAdapter struct {
	name       string
	accessMode string
	datasets   []types.DatasetSummary
	cache      *cachestore.Store
	canIngest  bool
}

func (a *staticAdapter) Name() string       { return a.name }
func (a *staticAdapter) AccessMode() string { return a.accessMode }

func (a *staticAdapter) ListDatasets(ctx context.Context) ([]types.DatasetSummary, error) {
	out := make([]types.DatasetSummary, len(a.datasets))
	copy(out, a.datasets)
	return out, nil
}

func (a *staticAdapter) Load(ctx context.Context, id types.DatasetID, filters map[string]string) (*cachestore.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return loadFromCache(a.cache, id, filters)
}

func (a *staticAdapter) Ingest(ctx context.Context, id types.DatasetID, filePath string) (*registry.IngestPayload, error) {
	if !a.canIngest {
		return nil, registry.ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ingestLocalFile(filePath)
}
