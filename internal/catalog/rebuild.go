package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/lichtbaer/StatData/pkg/types"
)

// DatasetLister enumerates the datasets declared by the adapter layer.
// Implemented by the adapter registry.
type DatasetLister interface {
	ListDatasets(ctx context.Context, source string) ([]types.DatasetSummary, error)
}

// ManifestSource loads the ingestion manifest for a dataset version, or
// nil when none is discoverable. Implemented by the cache store. A
// malformed manifest reads as absent, never as an error.
type ManifestSource interface {
	LoadManifest(source, dataset, version string) *types.Manifest
}

// RebuildResult reports the outcome of a rebuild as aggregate counts.
type RebuildResult struct {
	Indexed int
	Skipped int
}

// RebuildCoordinator re-populates the search index from scratch: the
// disaster-recovery path when the catalog file is lost or corrupted.
type RebuildCoordinator struct {
	index     *Index
	lister    DatasetLister
	manifests ManifestSource
	logger    *zap.Logger
}

// NewRebuildCoordinator creates a rebuild coordinator over the given
// index, adapter-declared dataset listing, and on-disk manifest source.
func NewRebuildCoordinator(index *Index, lister DatasetLister, manifests ManifestSource, logger *zap.Logger) *RebuildCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RebuildCoordinator{
		index:     index,
		lister:    lister,
		manifests: manifests,
		logger:    logger,
	}
}

// Rebuild clears the catalog and reloads it from every adapter-declared
// dataset, enriched with any on-disk manifest. Failures are best-effort
// per dataset: a bad identifier or a failed upsert skips that dataset
// and continues, it never aborts the whole rebuild.
func (r *RebuildCoordinator) Rebuild(ctx context.Context) (RebuildResult, error) {
	var result RebuildResult

	summaries, err := r.lister.ListDatasets(ctx, "")
	if err != nil {
		return result, err
	}

	if err := r.index.Clear(ctx); err != nil {
		return result, err
	}

	for _, ds := range summaries {
		id, err := types.ParseDatasetID(ds.ID)
		if err != nil {
			r.logger.Warn("rebuild: skipping dataset with bad identifier",
				zap.String("id", ds.ID), zap.Error(err))
			result.Skipped++
			continue
		}

		params := UpsertParams{
			DatasetID: ds.ID,
			Source:    ds.Source,
			Title:     ds.Title,
		}

		// Enrich from the cached manifest when one exists; absence just
		// means empty labels.
		if m := r.manifests.LoadManifest(id.Source, id.Dataset, id.Version); m != nil {
			params.License = m.License
			params.VariableLabels = m.VariableLabels
			params.ValueLabels = m.ValueLabels
		}

		if err := r.index.Upsert(ctx, params); err != nil {
			r.logger.Warn("rebuild: failed to index dataset",
				zap.String("id", ds.ID), zap.Error(err))
			result.Skipped++
			continue
		}
		result.Indexed++
	}

	r.logger.Info("rebuild complete",
		zap.Int("indexed", result.Indexed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
