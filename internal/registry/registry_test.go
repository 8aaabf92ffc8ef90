package registry

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/lichtbaer/StatData/internal/cachestore"
	cerrors "github.com/lichtbaer/StatData/internal/errors"
	"github.com/lichtbaer/StatData/pkg/types"
)

// fakeAdapter is a minimal adapter for registry-level tests. Load and
// Ingest can be overridden per test.
type fakeAdapter struct {
	name     string
	mode     string
	datasets []types.DatasetSummary
	listErr  error
	loadFn   func(ctx context.Context, id types.DatasetID, filters map[string]string) (*cachestore.Table, error)
	ingestFn func(ctx context.Context, id types.DatasetID, filePath string) (*IngestPayload, error)
}

func (f *fakeAdapter) Name() string       { return f.name }
func (f *fakeAdapter) AccessMode() string { return f.mode }

func (f *fakeAdapter) ListDatasets(ctx context.Context) ([]types.DatasetSummary, error) {
	return f.datasets, f.listErr
}

func (f *fakeAdapter) Load(ctx context.Context, id types.DatasetID, filters map[string]string) (*cachestore.Table, error) {
	if f.loadFn == nil {
		return nil, ErrUnsupported
	}
	return f.loadFn(ctx, id, filters)
}

func (f *fakeAdapter) Ingest(ctx context.Context, id types.DatasetID, filePath string) (*IngestPayload, error) {
	if f.ingestFn == nil {
		return nil, ErrUnsupported
	}
	return f.ingestFn(ctx, id, filePath)
}

func newFakeAdapter(name, mode string, ids ...string) *fakeAdapter {
	a := &fakeAdapter{name: name, mode: mode}
	for _, id := range ids {
		a.datasets = append(a.datasets, types.DatasetSummary{
			ID:     name + ":" + id,
			Source: name,
			Title:  name + " " + id,
		})
	}
	return a
}

func TestRegistry_Resolve(t *testing.T) {
	eurostat := newFakeAdapter("eurostat", "direct", "une_rt_m")
	gss := newFakeAdapter("gss", "semi", "cross-2022")
	reg := New(eurostat, gss)

	// Full identifiers and bare source names both resolve.
	for _, input := range []string{"eurostat:une_rt_m", "eurostat:une_rt_m:latest", "eurostat"} {
		a, err := reg.Resolve(input)
		if err != nil {
			t.Fatalf("resolve %q failed: %v", input, err)
		}
		if a.Name() != "eurostat" {
			t.Errorf("resolve %q returned adapter %s", input, a.Name())
		}
	}

	_, err := reg.Resolve("destatis:12411")
	if err == nil {
		t.Fatal("expected an error for an unknown source")
	}
	var serr *cerrors.StatDataError
	if !stderrors.As(err, &serr) || serr.Code != cerrors.CodeAdapterNotFound {
		t.Errorf("expected AdapterNotFound, got %v", err)
	}
}

func TestRegistry_ListDatasetsOrder(t *testing.T) {
	reg := New(
		newFakeAdapter("eurostat", "direct", "une_rt_m", "nama_10_gdp"),
		newFakeAdapter("gss", "semi", "cross-2022"),
	)

	all, err := reg.ListDatasets(context.Background(), "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"eurostat:une_rt_m", "eurostat:nama_10_gdp", "gss:cross-2022"}
	if len(all) != len(want) {
		t.Fatalf("got %d datasets, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, all[i].ID, id)
		}
	}
}

func TestRegistry_ListDatasetsSourceFilter(t *testing.T) {
	reg := New(
		newFakeAdapter("eurostat", "direct", "une_rt_m"),
		newFakeAdapter("gss", "semi", "cross-2022"),
	)

	only, err := reg.ListDatasets(context.Background(), "gss")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(only) != 1 || only[0].ID != "gss:cross-2022" {
		t.Errorf("source filter returned %v", only)
	}
}

func TestRegistry_DuplicateSourceReplaces(t *testing.T) {
	first := newFakeAdapter("wvs", "manual", "wave6")
	second := newFakeAdapter("wvs", "manual", "wave7")
	reg := New(first, second)

	a, err := reg.Resolve("wvs")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	list, err := a.ListDatasets(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "wvs:wave7" {
		t.Errorf("later registration did not replace earlier one: %v", list)
	}
	if got := len(reg.Sources()); got != 1 {
		t.Errorf("duplicate registration inflated source list to %d", got)
	}
}

func TestIsUnsupported(t *testing.T) {
	if !IsUnsupported(ErrUnsupported) {
		t.Error("sentinel not recognized")
	}
	if IsUnsupported(stderrors.New("other")) {
		t.Error("unrelated error recognized as unsupported")
	}
}
