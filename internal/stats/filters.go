package stats

// Filters is the open, string-keyed filter set passed from callers down to
// the repositories and into cache fingerprints. Recognized keys are listed
// below; unknown keys are carried along and ignored, never rejected.
type Filters map[string]string

// Recognized filter keys. Repositories consult the ones they understand.
const (
	FilterStatus        = "status"
	FilterPlatform      = "platform"
	FilterAccountID     = "account_id"
	FilterUserID        = "user_id"
	FilterProjectID     = "project_id"
	FilterSource        = "source"
	FilterSearch        = "search"
	FilterSortBy        = "sort_by"
	FilterSortDirection = "sort_direction"
	FilterPerPage       = "per_page"
	FilterDateFrom      = "date_from"
	FilterDateTo        = "date_to"
)

// Clone returns an independent copy so callers can add keys without
// mutating the original (the original may already be fingerprinted).
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// With returns a clone with key set to value.
func (f Filters) With(key, value string) Filters {
	out := f.Clone()
	out[key] = value
	return out
}

// Get returns the value for key, or "" when absent.
func (f Filters) Get(key string) string {
	if f == nil {
		return ""
	}
	return f[key]
}
