// Package stats holds the vocabulary shared by the statistics services:
// reporting periods and the open filter-set contract.
package stats

import "time"

// Period is one of the fixed reporting windows offered by the dashboards.
type Period string

const (
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
	Period1y  Period = "1y"
)

// DefaultPeriod is what unrecognized period strings resolve to. The
// dashboards prefer a sensible window over a 4xx, so resolution never
// fails.
const DefaultPeriod = Period30d

// ResolvePeriod maps a raw period string to a known Period, falling back
// to DefaultPeriod for anything unrecognized (including "").
func ResolvePeriod(raw string) Period {
	switch Period(raw) {
	case Period7d, Period30d, Period90d, Period1y:
		return Period(raw)
	default:
		return DefaultPeriod
	}
}

// Window returns the date range for the period, ending at now.
func (p Period) Window(now time.Time) (from, to time.Time) {
	switch p {
	case Period7d:
		return now.AddDate(0, 0, -7), now
	case Period90d:
		return now.AddDate(0, 0, -90), now
	case Period1y:
		return now.AddDate(-1, 0, 0), now
	default:
		return now.AddDate(0, 0, -30), now
	}
}
