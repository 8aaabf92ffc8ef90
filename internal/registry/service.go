package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/catalog"
	"github.com/lichtbaer/StatData/pkg/types"
)

// IndexOutcome records whether an ingestion run made it into the search
// index. Indexing is best-effort: a failed index write never fails the
// ingestion itself, but the skip is a visible result rather than a
// swallowed error.
type IndexOutcome struct {
	Indexed bool
	Reason  string
}

// IngestOutcome summarizes one completed ingestion run.
type IngestOutcome struct {
	DatasetID string
	EntryDir  string
	RowCount  int
	Index     IndexOutcome
}

// Service is the catalog façade composing the adapter registry, the
// cache store, and the search index. All dependencies are injected;
// there is no process-wide shared instance.
type Service struct {
	registry *Registry
	index    *catalog.Index
	cache    *cachestore.Store
	logger   *zap.Logger
}

// NewService creates the catalog façade.
func NewService(reg *Registry, index *catalog.Index, cache *cachestore.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: reg, index: index, cache: cache, logger: logger}
}

// Registry returns the underlying adapter registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Index returns the underlying search index.
func (s *Service) Index() *catalog.Index {
	return s.index
}

// ListDatasets enumerates adapter-declared datasets.
func (s *Service) ListDatasets(ctx context.Context, source string) ([]types.DatasetSummary, error) {
	return s.registry.ListDatasets(ctx, source)
}

// Search queries the search index and, on total index failure, falls
// back to an in-memory linear scan over the adapters' declared datasets.
// This is the second, coarser fallback tier above the index's own
// internal substring fallback; a search never surfaces an index error
// to the end user.
func (s *Service) Search(ctx context.Context, query, source string, limit int) ([]types.DatasetSummary, error) {
	results, err := s.index.Search(ctx, query, source, limit)
	if err == nil {
		return results, nil
	}

	s.logger.Warn("search index unavailable, falling back to linear scan",
		zap.String("query", query), zap.Error(err))
	return s.linearScan(ctx, query, source, limit)
}

// SearchAdvanced queries the index with conjunctive predicates. The
// linear-scan fallback can only evaluate the query and source
// predicates: when a variable name predicate is present the index error
// propagates instead, because summaries carry no label data to filter on.
func (s *Service) SearchAdvanced(ctx context.Context, q catalog.AdvancedQuery) ([]types.DatasetSummary, error) {
	results, err := s.index.SearchAdvanced(ctx, q)
	if err == nil {
		return results, nil
	}
	if q.VariableName != "" {
		return nil, err
	}

	s.logger.Warn("search index unavailable, falling back to linear scan",
		zap.String("query", q.Query), zap.Error(err))
	return s.linearScan(ctx, q.Query, q.Source, q.Limit)
}

// linearScan filters adapter-declared datasets by case-insensitive
// substring match on title and id.
func (s *Service) linearScan(ctx context.Context, query, source string, limit int) ([]types.DatasetSummary, error) {
	if limit <= 0 {
		limit = catalog.DefaultSearchLimit
	}
	all, err := s.registry.ListDatasets(ctx, source)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matched := []types.DatasetSummary{}
	for _, ds := range all {
		if strings.Contains(strings.ToLower(ds.Title), needle) ||
			strings.Contains(strings.ToLower(ds.ID), needle) {
			matched = append(matched, ds)
			if len(matched) >= limit {
				break
			}
		}
	}
	return matched, nil
}

// GetInfo returns the catalog record for a dataset, or nil when it is
// not indexed.
func (s *Service) GetInfo(ctx context.Context, datasetID string) (*types.CatalogRecord, error) {
	return s.index.GetInfo(ctx, datasetID)
}

// Load resolves the adapter for a dataset identifier and loads its
// normalized table.
func (s *Service) Load(ctx context.Context, rawID string, filters map[string]string) (*cachestore.Table, error) {
	id, err := types.ParseDatasetID(rawID)
	if err != nil {
		return nil, err
	}
	adapter, err := s.registry.Resolve(rawID)
	if err != nil {
		return nil, err
	}
	return adapter.Load(ctx, id, filters)
}

// Ingest runs one ingestion: the adapter parses the archive file, the
// cache store persists the raw copy, the processed table, and the
// manifest, and the search index is updated best-effort.
func (s *Service) Ingest(ctx context.Context, rawID, filePath string) (*IngestOutcome, error) {
	id, err := types.ParseDatasetID(rawID)
	if err != nil {
		return nil, err
	}
	adapter, err := s.registry.Resolve(rawID)
	if err != nil {
		return nil, err
	}

	payload, err := adapter.Ingest(ctx, id, filePath)
	if err != nil {
		return nil, err
	}

	entryDir, err := s.cache.EntryDir(id.Source, id.Dataset, id.Version)
	if err != nil {
		return nil, err
	}
	if _, err := s.cache.CopyRaw(entryDir, filePath); err != nil {
		return nil, err
	}
	if err := s.cache.WriteProcessedTable(entryDir, payload.Table); err != nil {
		return nil, err
	}

	manifest := &types.Manifest{
		IngestionID:    uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		Adapter:        adapter.Name(),
		DatasetID:      id.String(),
		Source:         id.Source,
		License:        payload.License,
		Parameters:     payload.Parameters,
		Transforms:     payload.Transforms,
		VariableLabels: payload.VariableLabels,
		ValueLabels:    payload.ValueLabels,
	}
	manifest.Normalize()
	if err := s.cache.WriteManifest(entryDir, manifest); err != nil {
		return nil, err
	}

	outcome := &IngestOutcome{
		DatasetID: id.String(),
		EntryDir:  entryDir,
		RowCount:  payload.Table.NumRows(),
		Index:     s.indexIngested(ctx, adapter, id, payload),
	}
	return outcome, nil
}

// indexIngested updates the search index for a freshly ingested dataset.
// Failure is reported as a skipped outcome, never as an ingestion error.
func (s *Service) indexIngested(ctx context.Context, adapter Adapter, id types.DatasetID, payload *IngestPayload) IndexOutcome {
	err := s.index.Upsert(ctx, catalog.UpsertParams{
		DatasetID:      id.String(),
		Source:         id.Source,
		Title:          s.titleFor(ctx, adapter, id),
		License:        payload.License,
		AccessMode:     adapter.AccessMode(),
		VariableLabels: payload.VariableLabels,
		ValueLabels:    payload.ValueLabels,
	})
	if err != nil {
		s.logger.Warn("ingestion indexed nothing, catalog write failed",
			zap.String("dataset", id.String()), zap.Error(err))
		return IndexOutcome{Indexed: false, Reason: err.Error()}
	}
	return IndexOutcome{Indexed: true}
}

// titleFor finds the declared title for a dataset, falling back to its
// identifier when the adapter does not list it.
func (s *Service) titleFor(ctx context.Context, adapter Adapter, id types.DatasetID) string {
	list, err := adapter.ListDatasets(ctx)
	if err == nil {
		for _, ds := range list {
			if ds.ID == id.String() || ds.ID == id.Source+":"+id.Dataset {
				return ds.Title
			}
		}
	}
	return fmt.Sprintf("%s:%s", id.Source, id.Dataset)
}

// Rebuild re-populates the search index from the adapters' declared
// datasets plus any on-disk manifests.
func (s *Service) Rebuild(ctx context.Context) (catalog.RebuildResult, error) {
	coordinator := catalog.NewRebuildCoordinator(s.index, s.registry, s.cache, s.logger)
	return coordinator.Rebuild(ctx)
}
