package sources

import (
	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/pkg/types"
)

// soepDatasets lists the SOEP-Core releases this adapter knows about.
var soepDatasets = []types.DatasetSummary{
	{ID: "soep:core-v38", Source: "soep", Title: "SOEP-Core v38 (1984-2021)"},
	{ID: "soep:core-v37", Source: "soep", Title: "SOEP-Core v37 (1984-2020)"},
	{ID: "soep:is-2022", Source: "soep", Title: "SOEP Innovation Sample 2022"},
}

// NewSOEP returns the adapter for the German Socio-Economic Panel.
// Access requires a signed data distribution contract; the files are
// delivered out of band and ingested locally.
func NewSOEP(cache *cachestore.Store) registry.Adapter {
	return &staticAdapter{
		name:       "soep",
		accessMode: "manual",
		datasets:   soepDatasets,
		cache:      cache,
		canIngest:  true,
	}
}
