// Package cachestore owns the versioned on-disk dataset cache:
// <root>/<source>/<dataset>/<version>/{raw,processed,meta}. It is the
// durability boundary between ingestion adapters and the catalog.
package cachestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lichtbaer/StatData/internal/errors"
	"github.com/lichtbaer/StatData/pkg/types"
)

// File names within a cache entry.
const (
	ManifestFileName  = "ingestion_manifest.json"
	ProcessedFileName = "data.parquet"
)

// Store manages the versioned dataset cache under one root directory.
//
// A version directory is fully owned by one ingestion run; concurrent
// ingestion into the same (source, dataset, version) triple is undefined
// behavior and callers must serialize by id if they need it. Directory
// creation itself is idempotent.
type Store struct {
	root   string
	logger *zap.Logger
}

// New creates a cache store rooted at the given directory.
func New(root string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, logger: logger}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// EntryDir returns the directory for one dataset version, creating the
// raw/processed/meta subtree if needed. Safe to call repeatedly.
func (s *Store) EntryDir(source, dataset, version string) (string, error) {
	if version == "" {
		version = types.DefaultVersion
	}
	base := filepath.Join(s.root, source, dataset, version)
	for _, sub := range []string{"raw", "processed", "meta"} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0755); err != nil {
			return "", errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryWriteFailed,
				fmt.Sprintf("failed to create cache entry %s/%s/%s", source, dataset, version), err)
		}
	}
	return base, nil
}

// ManifestPath returns the manifest file path within an entry directory.
func ManifestPath(entryDir string) string {
	return filepath.Join(entryDir, "meta", ManifestFileName)
}

// ProcessedPath returns the processed table path within an entry directory.
func ProcessedPath(entryDir string) string {
	return filepath.Join(entryDir, "processed", ProcessedFileName)
}

// RawDir returns the raw file directory within an entry directory.
func RawDir(entryDir string) string {
	return filepath.Join(entryDir, "raw")
}

// WriteManifest persists a manifest into an entry's meta directory.
// Manifests are append-once per ingestion run.
func (s *Store) WriteManifest(entryDir string, m *types.Manifest) error {
	data, err := types.MarshalManifest(m)
	if err != nil {
		return errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryWriteFailed,
			"failed to encode manifest", err)
	}
	if err := os.WriteFile(ManifestPath(entryDir), data, 0644); err != nil {
		return errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryWriteFailed,
			"failed to write manifest", err)
	}
	return nil
}

// ReadManifest loads the manifest from an entry directory. Missing or
// malformed manifests read as absent (nil): catalog population degrades
// to empty labels rather than blocking on a bad file.
func (s *Store) ReadManifest(entryDir string) *types.Manifest {
	path := ManifestPath(entryDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("cachestore: manifest unreadable", zap.String("path", path), zap.Error(err))
		}
		return nil
	}
	m, err := types.UnmarshalManifest(data)
	if err != nil {
		s.logger.Warn("cachestore: manifest malformed, treating as absent",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	return m
}

// LoadManifest loads the manifest for a dataset version without creating
// the entry subtree. Satisfies the catalog's manifest source.
func (s *Store) LoadManifest(source, dataset, version string) *types.Manifest {
	if version == "" {
		version = types.DefaultVersion
	}
	return s.ReadManifest(filepath.Join(s.root, source, dataset, version))
}

// CopyRaw copies a source file into an entry's raw directory, returning
// the destination path.
func (s *Store) CopyRaw(entryDir, srcPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryWriteFailed,
			"failed to open raw source file", err)
	}
	defer src.Close()

	destPath := filepath.Join(RawDir(entryDir), filepath.Base(srcPath))
	dst, err := os.Create(destPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryWriteFailed,
			"failed to create raw cache file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", errors.Wrap(errors.ErrCategoryCache, errors.CodeEntryWriteFailed,
			"failed to copy raw file into cache", err)
	}
	return destPath, nil
}

// HasProcessed reports whether an entry has a processed table on disk.
func (s *Store) HasProcessed(source, dataset, version string) bool {
	if version == "" {
		version = types.DefaultVersion
	}
	entryDir := filepath.Join(s.root, source, dataset, version)
	_, err := os.Stat(ProcessedPath(entryDir))
	return err == nil
}
