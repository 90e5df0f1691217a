package api

import (
	"net/http"

	"github.com/ignite/crm-backoffice/internal/stats"
)

// filterKeys maps query parameters onto the open filter-set contract.
// Anything outside this list is ignored rather than rejected.
var filterKeys = []string{
	stats.FilterStatus,
	stats.FilterPlatform,
	stats.FilterAccountID,
	stats.FilterUserID,
	stats.FilterSource,
	stats.FilterSearch,
	stats.FilterSortBy,
	stats.FilterSortDirection,
	stats.FilterPerPage,
	stats.FilterDateFrom,
	stats.FilterDateTo,
}

func parseFilters(r *http.Request) stats.Filters {
	q := r.URL.Query()
	f := stats.Filters{}
	for _, key := range filterKeys {
		if v := q.Get(key); v != "" {
			f[key] = v
		}
	}
	if period := q.Get("period"); period != "" {
		now := timeNow()
		from, to := stats.ResolvePeriod(period).Window(now)
		f[stats.FilterDateFrom] = from.Format("2006-01-02")
		f[stats.FilterDateTo] = to.Format("2006-01-02")
	}
	return f
}
