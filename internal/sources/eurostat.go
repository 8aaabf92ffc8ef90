package sources

import (
	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/pkg/types"
)

// eurostatDatasets is the curated subset of the Eurostat dissemination
// catalog exposed through this adapter.
var eurostatDatasets = []types.DatasetSummary{
	{ID: "eurostat:une_rt_m", Source: "eurostat", Title: "Unemployment rate - monthly data"},
	{ID: "eurostat:une_rt_a", Source: "eurostat", Title: "Unemployment rate - annual data"},
	{ID: "eurostat:nama_10_gdp", Source: "eurostat", Title: "GDP and main components (output, expenditure and income)"},
	{ID: "eurostat:demo_r_pjangroup", Source: "eurostat", Title: "Population on 1 January by age group, sex and NUTS 2 region"},
	{ID: "eurostat:ilc_li02", Source: "eurostat", Title: "At-risk-of-poverty rate by poverty threshold, age and sex"},
	{ID: "eurostat:prc_hicp_manr", Source: "eurostat", Title: "HICP - monthly data (annual rate of change)"},
	{ID: "eurostat:lfsa_ergan", Source: "eurostat", Title: "Employment rates by sex, age and citizenship"},
	{ID: "eurostat:educ_uoe_enrt01", Source: "eurostat", Title: "Pupils and students enrolled by education level, sex and age"},
}

// NewEurostat returns the adapter for the Eurostat dissemination API.
// Eurostat datasets are openly downloadable; ingestion of local files
// is not offered because the data is fetched directly.
func NewEurostat(cache *cachestore.Store) registry.Adapter {
	return &staticAdapter{
		name:       "eurostat",
		accessMode: "direct",
		datasets:   eurostatDatasets,
		cache:      cache,
		canIngest:  false,
	}
}
