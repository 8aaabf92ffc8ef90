package catalog

import (
	"context"
	"testing"

	"github.com/lichtbaer/StatData/pkg/types"
)

type stubLister struct {
	summaries []types.DatasetSummary
	err       error
}

func (s *stubLister) ListDatasets(ctx context.Context, source string) ([]types.DatasetSummary, error) {
	return s.summaries, s.err
}

type stubManifests struct {
	manifests map[string]*types.Manifest
}

func (s *stubManifests) LoadManifest(source, dataset, version string) *types.Manifest {
	return s.manifests[source+":"+dataset+":"+version]
}

func TestRebuild_IndexesAdapterDatasets(t *testing.T) {
	idx := newTestIndex(t)
	lister := &stubLister{summaries: []types.DatasetSummary{
		{ID: "eurostat:une_rt_m", Source: "eurostat", Title: "Unemployment rate - monthly data"},
		{ID: "gss:cross-2022", Source: "gss", Title: "General Social Survey Cross-Section 2022"},
	}}
	coord := NewRebuildCoordinator(idx, lister, &stubManifests{}, nil)

	result, err := coord.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if result.Indexed != 2 || result.Skipped != 0 {
		t.Errorf("result = %+v, want 2 indexed, 0 skipped", result)
	}

	ids := resultIDs(t, idx, "unemployment", "", 0)
	if !containsID(t, ids, "eurostat:une_rt_m") {
		t.Errorf("rebuilt catalog missing eurostat:une_rt_m, got %v", ids)
	}
}

func TestRebuild_ReplacesStaleEntries(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// A dataset no adapter declares anymore must vanish on rebuild.
	err := idx.Upsert(ctx, UpsertParams{DatasetID: "legacy:gone", Source: "legacy", Title: "Decommissioned study"})
	if err != nil {
		t.Fatalf("failed to seed stale entry: %v", err)
	}

	lister := &stubLister{summaries: []types.DatasetSummary{
		{ID: "eurostat:une_rt_m", Source: "eurostat", Title: "Unemployment rate - monthly data"},
	}}
	coord := NewRebuildCoordinator(idx, lister, &stubManifests{}, nil)
	if _, err := coord.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	rec, err := idx.GetInfo(ctx, "legacy:gone")
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if rec != nil {
		t.Errorf("stale entry survived rebuild: %+v", rec)
	}
}

func TestRebuild_Idempotent(t *testing.T) {
	idx := newTestIndex(t)
	lister := &stubLister{summaries: []types.DatasetSummary{
		{ID: "allbus:allbus-2021", Source: "allbus", Title: "ALLBUS 2021"},
		{ID: "ess:round10", Source: "ess", Title: "European Social Survey Round 10"},
	}}
	coord := NewRebuildCoordinator(idx, lister, &stubManifests{}, nil)
	ctx := context.Background()

	first, err := coord.Rebuild(ctx)
	if err != nil {
		t.Fatalf("first rebuild failed: %v", err)
	}
	second, err := coord.Rebuild(ctx)
	if err != nil {
		t.Fatalf("second rebuild failed: %v", err)
	}
	if first != second {
		t.Errorf("rebuild not idempotent: first %+v, second %+v", first, second)
	}

	results, err := idx.SearchAdvanced(ctx, AdvancedQuery{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 catalog entries after repeated rebuilds, got %d", len(results))
	}
}

func TestRebuild_SkipsBadIdentifiers(t *testing.T) {
	idx := newTestIndex(t)
	lister := &stubLister{summaries: []types.DatasetSummary{
		{ID: ":broken", Source: "", Title: "Missing source"},
		{ID: "eurostat:nama_10_gdp", Source: "eurostat", Title: "GDP and main components"},
	}}
	coord := NewRebuildCoordinator(idx, lister, &stubManifests{}, nil)

	result, err := coord.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if result.Indexed != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 1 indexed, 1 skipped", result)
	}
}

func TestRebuild_EnrichesFromManifest(t *testing.T) {
	idx := newTestIndex(t)
	lister := &stubLister{summaries: []types.DatasetSummary{
		{ID: "wvs:wave7", Source: "wvs", Title: "World Values Survey Wave 7"},
	}}
	manifests := &stubManifests{manifests: map[string]*types.Manifest{
		"wvs:wave7:latest": {
			DatasetID: "wvs:wave7",
			Source:    "wvs",
			License:   "WVS terms of use",
			VariableLabels: map[string]string{
				"q46": "Feeling of happiness",
			},
		},
	}}
	coord := NewRebuildCoordinator(idx, lister, manifests, nil)
	ctx := context.Background()

	if _, err := coord.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	rec, err := idx.GetInfo(ctx, "wvs:wave7")
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected wvs:wave7 in the catalog")
	}
	if rec.License != "WVS terms of use" {
		t.Errorf("license = %q, want manifest license", rec.License)
	}
	if rec.VariableLabels["q46"] != "Feeling of happiness" {
		t.Errorf("variable labels = %v, missing manifest enrichment", rec.VariableLabels)
	}
}
