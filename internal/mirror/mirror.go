// Package mirror replicates cache entries to an object store so a
// populated cache can be shared across machines. Each entry mirrors
// its processed table and ingestion manifest under the object prefix
// <source>/<dataset>/<version>/.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"go.uber.org/zap"

	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/storage"
)

// Mirror copies cache entries between the local cache and an object store.
type Mirror struct {
	store  storage.ObjectStorage
	cache  *cachestore.Store
	logger *zap.Logger
}

// New creates a mirror over the given object store and cache.
func New(store storage.ObjectStorage, cache *cachestore.Store, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{store: store, cache: cache, logger: logger}
}

func processedObjectPath(source, dataset, version string) string {
	return path.Join(source, dataset, version, "processed", cachestore.ProcessedFileName)
}

func manifestObjectPath(source, dataset, version string) string {
	return path.Join(source, dataset, version, "meta", cachestore.ManifestFileName)
}

// UploadEntry pushes a cache entry's processed table and manifest to
// the object store. Files missing locally are skipped.
func (m *Mirror) UploadEntry(ctx context.Context, source, dataset, version string) error {
	entryDir, err := m.cache.EntryDir(source, dataset, version)
	if err != nil {
		return err
	}

	uploaded := 0
	localProcessed := cachestore.ProcessedPath(entryDir)
	if _, err := os.Stat(localProcessed); err == nil {
		if err := m.store.Upload(ctx, localProcessed, processedObjectPath(source, dataset, version)); err != nil {
			return fmt.Errorf("mirror: upload processed table: %w", err)
		}
		uploaded++
	}

	localManifest := cachestore.ManifestPath(entryDir)
	if _, err := os.Stat(localManifest); err == nil {
		if err := m.store.Upload(ctx, localManifest, manifestObjectPath(source, dataset, version)); err != nil {
			return fmt.Errorf("mirror: upload manifest: %w", err)
		}
		uploaded++
	}

	if uploaded == 0 {
		return fmt.Errorf("mirror: nothing to upload for %s:%s (version %s)", source, dataset, version)
	}

	m.logger.Info("mirrored cache entry",
		zap.String("source", source),
		zap.String("dataset", dataset),
		zap.String("version", version),
		zap.Int("files", uploaded))
	return nil
}

// DownloadEntry pulls a cache entry from the object store into the
// local cache. Objects missing remotely are skipped; at least one file
// must exist.
func (m *Mirror) DownloadEntry(ctx context.Context, source, dataset, version string) error {
	entryDir, err := m.cache.EntryDir(source, dataset, version)
	if err != nil {
		return err
	}

	downloaded := 0
	err = m.store.Download(ctx, processedObjectPath(source, dataset, version), cachestore.ProcessedPath(entryDir))
	switch {
	case err == nil:
		downloaded++
	case errors.Is(err, storage.ErrObjectNotFound):
	default:
		return fmt.Errorf("mirror: download processed table: %w", err)
	}

	err = m.store.Download(ctx, manifestObjectPath(source, dataset, version), cachestore.ManifestPath(entryDir))
	switch {
	case err == nil:
		downloaded++
	case errors.Is(err, storage.ErrObjectNotFound):
	default:
		return fmt.Errorf("mirror: download manifest: %w", err)
	}

	if downloaded == 0 {
		return fmt.Errorf("mirror: no remote objects for %s:%s (version %s)", source, dataset, version)
	}

	m.logger.Info("restored cache entry from mirror",
		zap.String("source", source),
		zap.String("dataset", dataset),
		zap.String("version", version),
		zap.Int("files", downloaded))
	return nil
}

// HasEntry reports whether the mirror holds a processed table for the
// given cache entry.
func (m *Mirror) HasEntry(ctx context.Context, source, dataset, version string) (bool, error) {
	return m.store.Exists(ctx, processedObjectPath(source, dataset, version))
}

// ListEntries returns the object paths mirrored under a source prefix.
// An empty source lists the whole mirror.
func (m *Mirror) ListEntries(ctx context.Context, source string) ([]string, error) {
	return m.store.ListObjects(ctx, source)
}
