// Package registry maps dataset identifiers to the adapters responsible
// for them and provides the catalog façade used by the CLI and HTTP API.
package registry

import (
	"context"
	stderrors "errors"

	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/errors"
	"github.com/lichtbaer/StatData/pkg/types"
)

// ErrUnsupported is returned by adapters that decline an optional
// capability (Load or Ingest). It is an expected result, not a failure.
var ErrUnsupported = stderrors.New("operation not supported by this adapter")

// IsUnsupported reports whether an error means a declined capability.
func IsUnsupported(err error) bool {
	return stderrors.Is(err, ErrUnsupported)
}

// IngestPayload is what an adapter produces from one archive file:
// the normalized table plus the semantic metadata destined for the
// ingestion manifest.
type IngestPayload struct {
	Table          *cachestore.Table
	VariableLabels map[string]string
	ValueLabels    map[string]map[string]string
	License        string
	Transforms     []string
	Parameters     map[string]string
}

// Adapter is a per-archive component able to enumerate, load, and/or
// ingest datasets for one source. ListDatasets is mandatory; Load and
// Ingest are optional capabilities declined with ErrUnsupported.
type Adapter interface {
	// Name returns the source name this adapter serves.
	Name() string

	// AccessMode describes how the source's data is obtained:
	// direct, semi, or manual.
	AccessMode() string

	// ListDatasets enumerates the adapter's known datasets.
	ListDatasets(ctx context.Context) ([]types.DatasetSummary, error)

	// Load returns the normalized table for a dataset, applying
	// equality filters on column values.
	Load(ctx context.Context, id types.DatasetID, filters map[string]string) (*cachestore.Table, error)

	// Ingest parses a local archive file into an ingest payload.
	Ingest(ctx context.Context, id types.DatasetID, filePath string) (*IngestPayload, error)
}

// Registry is the in-memory adapter table. It owns no persistent state
// and performs no I/O of its own.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// New creates a registry over the given adapters. Later adapters with a
// duplicate source name replace earlier ones.
func New(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := r.adapters[a.Name()]; !exists {
			r.order = append(r.order, a.Name())
		}
		r.adapters[a.Name()] = a
	}
	return r
}

// Resolve returns the adapter for a dataset identifier or bare source
// name. If the input contains a colon, the substring before the first
// colon is the candidate source; otherwise the whole input is. There is
// no partial or fuzzy matching.
func (r *Registry) Resolve(idOrName string) (Adapter, error) {
	source := types.SourceOf(idOrName)
	if a, ok := r.adapters[source]; ok {
		return a, nil
	}
	return nil, errors.NewAdapterNotFound(idOrName)
}

// ListDatasets concatenates every adapter's declared datasets in
// registration order, optionally restricted to one source.
func (r *Registry) ListDatasets(ctx context.Context, source string) ([]types.DatasetSummary, error) {
	var summaries []types.DatasetSummary
	for _, name := range r.order {
		if source != "" && source != name {
			continue
		}
		list, err := r.adapters[name].ListDatasets(ctx)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, list...)
	}
	return summaries, nil
}

// Sources returns the registered source names in registration order.
func (r *Registry) Sources() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
