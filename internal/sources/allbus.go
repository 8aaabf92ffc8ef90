package sources

import (
	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/pkg/types"
)

// allbusDatasets lists the GESIS ALLBUS waves served by this adapter.
var allbusDatasets = []types.DatasetSummary{
	{ID: "allbus:allbus-2021", Source: "allbus", Title: "ALLBUS 2021 - German General Social Survey"},
	{ID: "allbus:allbus-2018", Source: "allbus", Title: "ALLBUS 2018 - German General Social Survey"},
	{ID: "allbus:cumulative", Source: "allbus", Title: "ALLBUS Cumulative File 1980-2021"},
}

// NewALLBUS returns the adapter for ALLBUS, the German General Social
// Survey published by GESIS. Files require a GESIS account, so they
// are downloaded in the browser and ingested locally.
func NewALLBUS(cache *cachestore.Store) registry.Adapter {
	return &staticAdapter{
		name:       "allbus",
		accessMode: "semi",
		datasets:   allbusDatasets,
		cache:      cache,
		canIngest:  true,
	}
}
