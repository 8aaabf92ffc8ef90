// Package storage provides object storage abstractions for the cache
// mirror. Implementations exist for S3-compatible services and for the
// local filesystem.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the object store behind the cache mirror.
type ObjectStorage interface {
	// Upload copies a local file to objectPath in the store.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Download copies the object at objectPath to localPath.
	// Returns ErrObjectNotFound when the object does not exist.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists reports whether an object is present.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
