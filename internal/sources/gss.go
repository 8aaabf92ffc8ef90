package sources

import (
	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/pkg/types"
)

// gssDatasets lists the General Social Survey releases published by NORC.
var gssDatasets = []types.DatasetSummary{
	{ID: "gss:cross-2022", Source: "gss", Title: "General Social Survey Cross-Section 2022"},
	{ID: "gss:cross-2021", Source: "gss", Title: "General Social Survey Cross-Section 2021"},
	{ID: "gss:cumulative", Source: "gss", Title: "General Social Survey Cumulative File (1972-2022)"},
	{ID: "gss:panel-2020", Source: "gss", Title: "General Social Survey Panel 2016-2020"},
}

// NewGSS returns the adapter for the General Social Survey. NORC
// publishes the files behind a registration form, so downloads happen
// in the browser and the adapter ingests the saved files.
func NewGSS(cache *cachestore.Store) registry.Adapter {
	return &staticAdapter{
		name:       "gss",
		accessMode: "semi",
		datasets:   gssDatasets,
		cache:      cache,
		canIngest:  true,
	}
}
