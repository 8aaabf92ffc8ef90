package cachestore

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/lichtbaer/StatData/internal/errors"
)

// Table is the normalized tabular form adapters produce from archive
// files. All values are carried as strings; typed interpretation is the
// consumer's concern.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// WriteProcessedTable writes the normalized table to the entry's
// processed/data.parquet. Columns are optional string fields so missing
// cells encode as nulls.
func (s *Store) WriteProcessedTable(entryDir string, t *Table) error {
	group := parquet.Group{}
	for _, col := range t.Columns {
		group[col] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("processed", group)

	f, err := os.Create(ProcessedPath(entryDir))
	if err != nil {
		return errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryWriteFailed,
			"failed to create processed table file", err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[map[string]any](f, schema)
	rows := make([]map[string]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make(map[string]any, len(r))
		for _, col := range t.Columns {
			if v, ok := r[col]; ok {
				row[col] = v
			}
		}
		rows = append(rows, row)
	}
	if _, err := w.Write(rows); err != nil {
		return errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryWriteFailed,
			"failed to write processed table rows", err)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryWriteFailed,
			"failed to finalize processed table", err)
	}
	return nil
}

// ReadProcessedTable loads the processed table for an entry. Returns
// EntryNotFound when no processed table exists.
func (s *Store) ReadProcessedTable(entryDir string) (*Table, error) {
	path := ProcessedPath(entryDir)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCategoryCache, errors.CodeEntryNotFound,
				fmt.Sprintf("no processed table at %s", path))
		}
		return nil, errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryNotFound,
			"failed to open processed table", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryNotFound,
			"failed to stat processed table", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryNotFound,
			"failed to open parquet file", err)
	}

	// Leaf column index -> column name.
	columnNames := make(map[int]string)
	var columns []string
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		columnNames[i] = path[0]
		columns = append(columns, path[0])
	}

	table := &Table{Columns: columns}
	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for {
			cnt, readErr := rows.ReadRows(buf)
			for i := 0; i < cnt; i++ {
				rec := make(map[string]string, len(columns))
				for _, v := range buf[i] {
					if v.IsNull() {
						continue
					}
					if name, ok := columnNames[v.Column()]; ok {
						rec[name] = v.String()
					}
				}
				table.Rows = append(table.Rows, rec)
			}
			if readErr != nil {
				if readErr == io.EOF {
					break
				}
				return nil, errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryNotFound,
					"failed to read processed table rows", readErr)
			}
		}
	}
	return table, nil
}
