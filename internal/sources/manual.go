package sources

import (
	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/pkg/types"
)

// wvsDatasets covers the World Values Survey waves distributed through
// the WVSA site after registration.
var wvsDatasets = []types.DatasetSummary{
	{ID: "wvs:wave7", Source: "wvs", Title: "World Values Survey Wave 7 (2017-2022)"},
	{ID: "wvs:wave6", Source: "wvs", Title: "World Values Survey Wave 6 (2010-2014)"},
	{ID: "wvs:trend", Source: "wvs", Title: "World Values Survey Trend File (1981-2022)"},
}

// NewWVS returns the adapter for the World Values Survey. The archive
// requires a manual browser download, so Load only works after the
// user ingests the downloaded file.
func NewWVS(cache *cachestore.Store) registry.Adapter {
	return &staticAdapter{
		name:       "wvs",
		accessMode: "manual",
		datasets:   wvsDatasets,
		cache:      cache,
		canIngest:  true,
	}
}
