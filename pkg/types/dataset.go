// Package types defines the core value types shared across the StatData
// system: dataset identifiers, dataset summaries, and ingestion manifests.
package types

import (
	"fmt"
	"strings"
)

// DefaultVersion is assumed whenever a dataset identifier omits the
// version segment.
const DefaultVersion = "latest"

// DatasetID is a parsed dataset identifier of the form
// source[:dataset[:version]]. Segments are colon-delimited and
// case-sensitive; colons cannot be escaped within segments, so the
// dataset segment may itself contain colons only when a version is not
// given (the first colon always terminates the source segment).
type DatasetID struct {
	Source  string
	Dataset string
	Version string
}

// ParseDatasetID parses an identifier string into its segments.
// The version defaults to "latest" when omitted. An empty string or an
// empty source segment is rejected.
func ParseDatasetID(s string) (DatasetID, error) {
	if s == "" {
		return DatasetID{}, ErrEmptyDatasetID
	}

	parts := strings.SplitN(s, ":", 3)
	if parts[0] == "" {
		return DatasetID{}, fmt.Errorf("%w: %q", ErrInvalidDatasetID, s)
	}

	id := DatasetID{Source: parts[0], Version: DefaultVersion}
	if len(parts) > 1 {
		id.Dataset = parts[1]
	}
	if len(parts) > 2 {
		if parts[2] == "" {
			return DatasetID{}, fmt.Errorf("%w: empty version in %q", ErrInvalidDatasetID, s)
		}
		id.Version = parts[2]
	}
	return id, nil
}

// String renders the identifier back to its wire form. The version
// segment is omitted when it is the default.
func (d DatasetID) String() string {
	if d.Dataset == "" {
		return d.Source
	}
	if d.Version == "" || d.Version == DefaultVersion {
		return d.Source + ":" + d.Dataset
	}
	return d.Source + ":" + d.Dataset + ":" + d.Version
}

// SourceOf returns the source segment of a raw identifier without fully
// parsing it: the substring before the first colon, or the whole string
// when no colon is present.
func SourceOf(idOrName string) string {
	if i := strings.IndexByte(idOrName, ':'); i >= 0 {
		return idOrName[:i]
	}
	return idOrName
}

// DatasetSummary is the lightweight listing/search result row.
type DatasetSummary struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Title  string `json:"title"`
}

// CatalogRecord is the durable catalog row for one dataset, including
// its indexed variable labels.
type CatalogRecord struct {
	ID             string            `json:"id"`
	Source         string            `json:"source"`
	Title          string            `json:"title"`
	Description    string            `json:"description,omitempty"`
	License        string            `json:"license,omitempty"`
	AccessMode     string            `json:"access_mode,omitempty"`
	CreatedAt      string            `json:"created_at,omitempty"`
	UpdatedAt      string            `json:"updated_at,omitempty"`
	VariableLabels map[string]string `json:"variable_labels,omitempty"`
}
