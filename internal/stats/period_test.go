package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolvePeriod(t *testing.T) {
	assert.Equal(t, Period7d, ResolvePeriod("7d"))
	assert.Equal(t, Period30d, ResolvePeriod("30d"))
	assert.Equal(t, Period90d, ResolvePeriod("90d"))
	assert.Equal(t, Period1y, ResolvePeriod("1y"))

	// Unknown strings fall back to the default window instead of erroring.
	assert.Equal(t, DefaultPeriod, ResolvePeriod("foo"))
	assert.Equal(t, DefaultPeriod, ResolvePeriod(""))
	assert.Equal(t, DefaultPeriod, ResolvePeriod("30days"))
}

func TestWindowEndsNow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	from, to := Period7d.Window(now)
	assert.Equal(t, now, to)
	assert.Equal(t, now.AddDate(0, 0, -7), from)

	from, _ = Period90d.Window(now)
	assert.Equal(t, now.AddDate(0, 0, -90), from)

	from, _ = Period1y.Window(now)
	assert.Equal(t, now.AddDate(-1, 0, 0), from)
}

func TestUnknownPeriodSameWindowAs30d(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fooFrom, fooTo := ResolvePeriod("foo").Window(now)
	dFrom, dTo := Period30d.Window(now)
	assert.Equal(t, dFrom, fooFrom)
	assert.Equal(t, dTo, fooTo)
}

func TestFiltersCloneAndWith(t *testing.T) {
	f := Filters{FilterStatus: "active"}
	g := f.With(FilterPlatform, "google_ads")
	assert.Equal(t, "active", g.Get(FilterStatus))
	assert.Equal(t, "google_ads", g.Get(FilterPlatform))
	assert.Equal(t, "", f.Get(FilterPlatform), "With must not mutate the receiver")
	assert.Equal(t, "", Filters(nil).Get(FilterStatus))
}
