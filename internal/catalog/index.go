package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lichtbaer/StatData/internal/errors"
	"github.com/lichtbaer/StatData/pkg/types"
	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is a fixed-width UTC timestamp format, so lexicographic
// ordering of stored timestamps matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 100

// Index is the durable, queryable projection of dataset manifests.
//
// At open time the index probes the engine for FTS5 support exactly once
// and caches the outcome for its lifetime: with FTS5 available, writes
// additionally maintain the datasets_fts shadow table and Search runs
// ranked MATCH queries; without it, writes skip the shadow table and
// Search degrades to case-insensitive substring matching.
type Index struct {
	db           *sql.DB
	path         string
	ftsAvailable bool
	mu           sync.Mutex
	logger       *zap.Logger
}

// UpsertParams carries the indexable metadata for one dataset.
type UpsertParams struct {
	DatasetID      string
	Source         string
	Title          string
	Description    string
	License        string
	AccessMode     string // direct|semi|manual; defaults to "direct"
	VariableLabels map[string]string
	ValueLabels    map[string]map[string]string
}

// AdvancedQuery holds the conjunctive predicates for SearchAdvanced.
// Zero-valued fields are omitted from the conjunction.
type AdvancedQuery struct {
	Query        string
	Source       string
	VariableName string
	Limit        int
}

// Open opens (creating if necessary) the catalog database at path.
// A failure to open or initialize the storage file is fatal to the
// caller and surfaces as CatalogUnavailable.
func Open(path string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.NewCatalogUnavailable("failed to create catalog directory", err)
	}

	idx := &Index{path: path, logger: logger}
	if err := idx.open(); err != nil {
		return nil, err
	}
	return idx, nil
}

// open connects to the database, runs the FTS5 probe, and initializes
// the schema. Used by Open and again by Clear after the file is removed.
func (i *Index) open() error {
	db, err := sql.Open("sqlite3", i.path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return errors.NewCatalogUnavailable("failed to open catalog database", err)
	}
	// Single writer; each operation is a short-lived transaction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// One-shot capability probe: try to create and drop a throwaway
	// full-text virtual table. The outcome is cached for the lifetime
	// of this Index; there is no re-probe without reopening.
	ftsAvailable := false
	if _, err := db.Exec(ProbeFTSCreateSQL); err == nil {
		ftsAvailable = true
		if _, err := db.Exec(ProbeFTSDropSQL); err != nil {
			db.Close()
			return errors.NewCatalogUnavailable("failed to drop FTS5 probe table", err)
		}
	}

	for _, stmt := range BaseSchemaSQL() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return errors.NewCatalogUnavailable("failed to initialize catalog schema", err)
		}
	}

	if ftsAvailable {
		if _, err := db.Exec(CreateDatasetsShadowTableSQL); err != nil {
			// The probe passed but the shadow table failed; run without
			// full-text search rather than failing the open.
			i.logger.Warn("catalog: FTS5 shadow table creation failed, falling back to substring search",
				zap.Error(err))
			ftsAvailable = false
		}
	}

	i.db = db
	i.ftsAvailable = ftsAvailable
	return nil
}

// FullTextAvailable reports whether the index runs with the FTS5 shadow
// table (state A) or substring matching only (state B).
func (i *Index) FullTextAvailable() bool {
	return i.ftsAvailable
}

// Path returns the catalog database file path.
func (i *Index) Path() string {
	return i.path
}

// Upsert creates or updates the catalog record for a dataset. The
// variable label child set is fully replaced (delete then reinsert), so
// stale variables from a previous version cannot leak into the new one.
func (i *Index) Upsert(ctx context.Context, p UpsertParams) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if p.AccessMode == "" {
		p.AccessMode = "direct"
	}
	now := time.Now().UTC().Format(timeLayout)

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
			"failed to begin upsert transaction", err)
	}
	defer tx.Rollback()

	var rowid int64
	existed := true
	err = tx.QueryRowContext(ctx, "SELECT rowid FROM datasets WHERE id = ?", p.DatasetID).Scan(&rowid)
	switch {
	case err == sql.ErrNoRows:
		existed = false
	case err != nil:
		return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
			"failed to look up dataset row", err)
	}

	if existed {
		_, err = tx.ExecContext(ctx,
			`UPDATE datasets
			 SET title = ?, description = ?, license = ?, access_mode = ?, updated_at = ?
			 WHERE id = ?`,
			p.Title, nullable(p.Description), nullable(p.License), p.AccessMode, now, p.DatasetID)
		if err != nil {
			return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
				fmt.Sprintf("failed to update dataset %s", p.DatasetID), err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO datasets (id, source, title, description, license, access_mode, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.DatasetID, p.Source, p.Title, nullable(p.Description), nullable(p.License), p.AccessMode, now, now)
		if err != nil {
			return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
				fmt.Sprintf("failed to insert dataset %s", p.DatasetID), err)
		}
		rowid, err = res.LastInsertId()
		if err != nil {
			return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
				"failed to read inserted rowid", err)
		}
	}

	// Full replacement of the variable label child set.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM variable_labels WHERE dataset_id = ?", p.DatasetID); err != nil {
		return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
			"failed to clear variable labels", err)
	}
	for name, label := range p.VariableLabels {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO variable_labels (dataset_id, variable_name, label) VALUES (?, ?, ?)",
			p.DatasetID, name, label); err != nil {
			return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
				fmt.Sprintf("failed to insert variable label %s", name), err)
		}
	}

	// Shadow maintenance is best-effort: the datasets row is
	// authoritative, and a failed shadow write leaves that dataset's
	// full-text entry stale without losing the record itself.
	if i.ftsAvailable {
		if err := i.upsertShadow(ctx, tx, rowid, existed, p); err != nil {
			i.logger.Warn("catalog: full-text shadow write failed, committing without it",
				zap.String("dataset", p.DatasetID), zap.Error(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
			"failed to commit upsert", err)
	}
	return nil
}

// upsertShadow maintains the FTS5 shadow row keyed to the same rowid as
// the datasets row.
func (i *Index) upsertShadow(ctx context.Context, tx *sql.Tx, rowid int64, existed bool, p UpsertParams) error {
	varLabels, err := json.Marshal(p.VariableLabels)
	if err != nil {
		return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
			"failed to serialize variable labels", err)
	}
	valLabels, err := json.Marshal(p.ValueLabels)
	if err != nil {
		return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
			"failed to serialize value labels", err)
	}

	if existed {
		_, err = tx.ExecContext(ctx,
			`UPDATE datasets_fts
			 SET title = ?, description = ?, variable_labels = ?, value_labels = ?
			 WHERE rowid = ?`,
			p.Title, p.Description, string(varLabels), string(valLabels), rowid)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO datasets_fts (rowid, id, source, title, description, variable_labels, value_labels)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rowid, p.DatasetID, p.Source, p.Title, p.Description, string(varLabels), string(valLabels))
	}
	if err != nil {
		return errors.Wrap(errors.ErrCategoryCatalog, errors.CodeIndexWriteFailed,
			"failed to update full-text shadow row", err)
	}
	return nil
}

// Search returns datasets matching the query, optionally restricted to
// one source, truncated at limit.
//
// With FTS5 available the query is an FTS5 match expression and results
// are ordered by the engine's relevance rank; the behavior of an empty
// query in that state is engine-defined. Without FTS5 the query is a
// case-insensitive substring matched against title, id, and description,
// results keep row-insertion order, and an empty query matches
// everything.
//
// A storage-engine error triggers one automatic retry with the simplest
// substring query before the error propagates.
func (i *Index) Search(ctx context.Context, query, source string, limit int) ([]types.DatasetSummary, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var (
		sqlText string
		args    []interface{}
	)
	if i.ftsAvailable {
		if source != "" {
			sqlText = `
				SELECT d.id, d.source, d.title
				FROM datasets d
				JOIN datasets_fts fts ON d.rowid = fts.rowid
				WHERE datasets_fts MATCH ? AND d.source = ?
				ORDER BY rank
				LIMIT ?`
			args = []interface{}{query, source, limit}
		} else {
			sqlText = `
				SELECT d.id, d.source, d.title
				FROM datasets d
				JOIN datasets_fts fts ON d.rowid = fts.rowid
				WHERE datasets_fts MATCH ?
				ORDER BY rank
				LIMIT ?`
			args = []interface{}{query, limit}
		}
	} else {
		pattern := "%" + query + "%"
		if source != "" {
			sqlText = `
				SELECT id, source, title
				FROM datasets
				WHERE (title LIKE ? OR id LIKE ? OR description LIKE ?) AND source = ?
				LIMIT ?`
			args = []interface{}{pattern, pattern, pattern, source, limit}
		} else {
			sqlText = `
				SELECT id, source, title
				FROM datasets
				WHERE title LIKE ? OR id LIKE ? OR description LIKE ?
				LIMIT ?`
			args = []interface{}{pattern, pattern, pattern, limit}
		}
	}

	results, err := i.querySummaries(ctx, sqlText, args...)
	if err == nil {
		return results, nil
	}

	// One automatic retry using the simplest possible substring query.
	// An FTS5 MATCH can fail on query syntax the caller never intended
	// as syntax; the retry treats the input as a plain substring.
	i.logger.Warn("catalog: search query failed, retrying with substring fallback",
		zap.String("query", query), zap.Error(err))

	pattern := "%" + query + "%"
	if source != "" {
		results, err = i.querySummaries(ctx,
			`SELECT id, source, title FROM datasets
			 WHERE (title LIKE ? OR id LIKE ?) AND source = ?
			 LIMIT ?`,
			pattern, pattern, source, limit)
	} else {
		results, err = i.querySummaries(ctx,
			`SELECT id, source, title FROM datasets
			 WHERE title LIKE ? OR id LIKE ?
			 LIMIT ?`,
			pattern, pattern, limit)
	}
	if err != nil {
		return nil, errors.NewIndexQueryFailed("search failed after substring fallback", err)
	}
	return results, nil
}

// SearchAdvanced returns datasets satisfying the conjunction of all
// supplied predicates, ordered by updated_at descending (most recently
// indexed first). The variable name predicate matches when any indexed
// variable name for the dataset contains it as a substring.
func (i *Index) SearchAdvanced(ctx context.Context, q AdvancedQuery) ([]types.DatasetSummary, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}

	var (
		conditions []string
		args       []interface{}
		joinClause string
	)

	if q.Query != "" {
		if i.ftsAvailable {
			conditions = append(conditions, "datasets_fts MATCH ?")
			args = append(args, q.Query)
			joinClause = "JOIN datasets_fts fts ON d.rowid = fts.rowid"
		} else {
			pattern := "%" + q.Query + "%"
			conditions = append(conditions, "(d.title LIKE ? OR d.id LIKE ? OR d.description LIKE ?)")
			args = append(args, pattern, pattern, pattern)
		}
	}
	if q.Source != "" {
		conditions = append(conditions, "d.source = ?")
		args = append(args, q.Source)
	}
	if q.VariableName != "" {
		conditions = append(conditions,
			`EXISTS (SELECT 1 FROM variable_labels vl
			         WHERE vl.dataset_id = d.id AND vl.variable_name LIKE ?)`)
		args = append(args, "%"+q.VariableName+"%")
	}

	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = joinConditions(conditions)
	}

	sqlText := fmt.Sprintf(`
		SELECT DISTINCT d.id, d.source, d.title
		FROM datasets d
		%s
		WHERE %s
		ORDER BY d.updated_at DESC
		LIMIT ?`, joinClause, whereClause)
	args = append(args, q.Limit)

	results, err := i.querySummaries(ctx, sqlText, args...)
	if err == nil {
		return results, nil
	}

	i.logger.Warn("catalog: advanced search failed, retrying with substring fallback",
		zap.String("query", q.Query), zap.Error(err))

	// Simplest fallback: substring over title/id plus the non-textual
	// predicates, same ordering.
	fallback := AdvancedQuery{Source: q.Source, VariableName: q.VariableName, Limit: q.Limit}
	var fbConditions []string
	var fbArgs []interface{}
	if q.Query != "" {
		pattern := "%" + q.Query + "%"
		fbConditions = append(fbConditions, "(d.title LIKE ? OR d.id LIKE ?)")
		fbArgs = append(fbArgs, pattern, pattern)
	}
	if fallback.Source != "" {
		fbConditions = append(fbConditions, "d.source = ?")
		fbArgs = append(fbArgs, fallback.Source)
	}
	if fallback.VariableName != "" {
		fbConditions = append(fbConditions,
			`EXISTS (SELECT 1 FROM variable_labels vl
			         WHERE vl.dataset_id = d.id AND vl.variable_name LIKE ?)`)
		fbArgs = append(fbArgs, "%"+fallback.VariableName+"%")
	}
	fbWhere := "1=1"
	if len(fbConditions) > 0 {
		fbWhere = joinConditions(fbConditions)
	}
	fbArgs = append(fbArgs, fallback.Limit)

	results, err = i.querySummaries(ctx, fmt.Sprintf(`
		SELECT DISTINCT d.id, d.source, d.title
		FROM datasets d
		WHERE %s
		ORDER BY d.updated_at DESC
		LIMIT ?`, fbWhere), fbArgs...)
	if err != nil {
		return nil, errors.NewIndexQueryFailed("advanced search failed after substring fallback", err)
	}
	return results, nil
}

// GetInfo returns the catalog record for a dataset with its variable
// label map, or nil when the dataset is not indexed.
func (i *Index) GetInfo(ctx context.Context, datasetID string) (*types.CatalogRecord, error) {
	var rec types.CatalogRecord
	var description, license, accessMode sql.NullString

	err := i.db.QueryRowContext(ctx,
		`SELECT id, source, title, description, license, access_mode, created_at, updated_at
		 FROM datasets WHERE id = ?`, datasetID).
		Scan(&rec.ID, &rec.Source, &rec.Title, &description, &license, &accessMode,
			&rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewIndexQueryFailed("failed to read dataset record", err)
	}
	rec.Description = description.String
	rec.License = license.String
	rec.AccessMode = accessMode.String

	rows, err := i.db.QueryContext(ctx,
		`SELECT variable_name, label FROM variable_labels
		 WHERE dataset_id = ? ORDER BY variable_name`, datasetID)
	if err != nil {
		return nil, errors.NewIndexQueryFailed("failed to read variable labels", err)
	}
	defer rows.Close()

	rec.VariableLabels = map[string]string{}
	for rows.Next() {
		var name string
		var label sql.NullString
		if err := rows.Scan(&name, &label); err != nil {
			return nil, errors.NewIndexQueryFailed("failed to scan variable label", err)
		}
		rec.VariableLabels[name] = label.String
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIndexQueryFailed("error iterating variable labels", err)
	}

	return &rec, nil
}

// Clear destroys and recreates the underlying storage file. Used for
// tests, forced resets, and as the first step of a rebuild.
func (i *Index) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.db.Close(); err != nil {
		return errors.NewCatalogUnavailable("failed to close catalog before clear", err)
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(i.path + suffix); err != nil && !os.IsNotExist(err) {
			return errors.NewCatalogUnavailable("failed to remove catalog file", err)
		}
	}
	return i.open()
}

// Close closes the catalog database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// querySummaries runs a query producing (id, source, title) rows.
func (i *Index) querySummaries(ctx context.Context, sqlText string, args ...interface{}) ([]types.DatasetSummary, error) {
	rows, err := i.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []types.DatasetSummary{}
	for rows.Next() {
		var s types.DatasetSummary
		if err := rows.Scan(&s.ID, &s.Source, &s.Title); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// joinConditions joins predicate clauses with AND.
func joinConditions(conds []string) string {
	out := conds[0]
	for _, c := range conds[1:] {
		out += " AND " + c
	}
	return out
}
