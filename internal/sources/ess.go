package sources

import (
	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/pkg/types"
)

// essDatasets lists the European Social Survey rounds this adapter serves.
var essDatasets = []types.DatasetSummary{
	{ID: "ess:round10", Source: "ess", Title: "European Social Survey Round 10 (2020-2022)"},
	{ID: "ess:round9", Source: "ess", Title: "European Social Survey Round 9 (2018-2019)"},
	{ID: "ess:round8", Source: "ess", Title: "European Social Survey Round 8 (2016-2017)"},
	{ID: "ess:cumulative", Source: "ess", Title: "European Social Survey Cumulative Wizard File"},
}

// NewESS returns the adapter for the European Social Survey. Downloads
// need a registered email address but are otherwise scriptable.
func NewESS(cache *cachestore.Store) registry.Adapter {
	return &staticAdapter{
		name:       "ess",
		accessMode: "semi",
		datasets:   essDatasets,
		cache:      cache,
		canIngest:  true,
	}
}
