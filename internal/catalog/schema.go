// Package catalog provides the durable dataset catalog and search index.
package catalog

// Schema contains the SQL definitions for the catalog database
// (catalog.db). The catalog is a SQLite database holding one row per
// dataset plus its indexed variable labels, with an optional FTS5
// shadow table when the engine supports full-text search.

// CreateDatasetsTableSQL creates the core datasets table.
const CreateDatasetsTableSQL = `
CREATE TABLE IF NOT EXISTS datasets (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    license TEXT,
    access_mode TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// CreateVariableLabelsTableSQL creates the variable labels child table.
// Rows are fully replaced on every upsert for their dataset, so a stale
// variable from a previous version can never survive a re-ingest.
const CreateVariableLabelsTableSQL = `
CREATE TABLE IF NOT EXISTS variable_labels (
    dataset_id TEXT NOT NULL,
    variable_name TEXT NOT NULL,
    label TEXT,
    PRIMARY KEY (dataset_id, variable_name),
    FOREIGN KEY (dataset_id) REFERENCES datasets(id)
)`

// CreateDatasetsShadowTableSQL creates the FTS5 shadow table. It is an
// external-content table row-aligned with datasets by rowid; it only
// exists when the FTS5 probe succeeds at open time.
const CreateDatasetsShadowTableSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS datasets_fts USING fts5(
    id,
    source,
    title,
    description,
    variable_labels,
    value_labels,
    content='datasets',
    content_rowid='rowid'
)`

// CreateCatalogIndexesSQL creates indexes for common lookup patterns.
var CreateCatalogIndexesSQL = []string{
	// Index for source-filtered listings and searches
	`CREATE INDEX IF NOT EXISTS idx_datasets_source ON datasets(source)`,

	// Index for the advanced-search ordering (most recently indexed first)
	`CREATE INDEX IF NOT EXISTS idx_datasets_updated ON datasets(updated_at)`,

	// Index for variable label replacement and lookups by dataset
	`CREATE INDEX IF NOT EXISTS idx_variable_labels_dataset ON variable_labels(dataset_id)`,
}

// ProbeFTSCreateSQL and ProbeFTSDropSQL implement the one-shot FTS5
// capability probe: create a throwaway virtual table and drop it again.
const (
	ProbeFTSCreateSQL = `CREATE VIRTUAL TABLE IF NOT EXISTS _fts5_probe USING fts5(probe)`
	ProbeFTSDropSQL   = `DROP TABLE IF EXISTS _fts5_probe`
)

// BaseSchemaSQL returns the statements needed to initialize the catalog
// without the full-text shadow table.
func BaseSchemaSQL() []string {
	statements := []string{
		CreateDatasetsTableSQL,
		CreateVariableLabelsTableSQL,
	}
	statements = append(statements, CreateCatalogIndexesSQL...)
	return statements
}
