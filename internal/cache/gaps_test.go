package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colthorp/esios-cli-go/internal/frame"
)

const testRecentTTL = 48 * time.Hour

// farFuture keeps the recent-refresh window out of tests that only
// exercise pre/post gap logic.
var farFuture = day("2030-01-01")

// hourlyFrame builds a frame with hourly values for each column over
// [start, end] inclusive of end's full day.
func hourlyFrame(start, end time.Time, columns ...string) *frame.Frame {
	b := frame.NewBuilder()
	last := end.Add(23 * time.Hour)
	for t := start; !t.After(last); t = t.Add(time.Hour) {
		for _, c := range columns {
			b.Set(t, c, float64(t.Hour()))
		}
	}
	return b.Build()
}

func TestFindGapsEmptyCache(t *testing.T) {
	gaps := findGaps(frame.New(), day("2025-01-01"), day("2025-01-07"), nil, testRecentTTL, farFuture)
	require.Len(t, gaps, 1)
	assert.Equal(t, day("2025-01-01"), gaps[0].Start)
	assert.Equal(t, day("2025-01-07"), gaps[0].End)
}

func TestFindGapsFullyCovered(t *testing.T) {
	cached := hourlyFrame(day("2025-01-01"), day("2025-01-07"), "value")
	gaps := findGaps(cached, day("2025-01-01"), day("2025-01-07"), nil, testRecentTTL, farFuture)
	assert.Empty(t, gaps)
}

func TestFindGapsPartialOverlap(t *testing.T) {
	// Cached: Jan 1–3. Requested: Dec 30 – Jan 5.
	cached := hourlyFrame(day("2025-01-01"), day("2025-01-03"), "value")
	gaps := findGaps(cached, day("2024-12-30"), day("2025-01-05"), nil, testRecentTTL, farFuture)

	require.Len(t, gaps, 2)
	assert.Equal(t, day("2024-12-30"), gaps[0].Start)
	assert.Equal(t, day("2024-12-31"), gaps[0].End)
	assert.Equal(t, day("2025-01-04"), gaps[1].Start)
	assert.Equal(t, day("2025-01-05"), gaps[1].End)
}

func TestFindGapsPreGapOnly(t *testing.T) {
	cached := hourlyFrame(day("2025-01-05"), day("2025-01-10"), "value")
	gaps := findGaps(cached, day("2025-01-01"), day("2025-01-10"), nil, testRecentTTL, farFuture)

	require.Len(t, gaps, 1)
	assert.Equal(t, day("2025-01-01"), gaps[0].Start)
	assert.Equal(t, day("2025-01-04"), gaps[0].End)
}

func TestFindGapsPerColumn(t *testing.T) {
	// España covers the whole week; Portugal is entirely absent.
	cached := hourlyFrame(day("2025-01-01"), day("2025-01-07"), "España")

	gaps := findGaps(cached, day("2025-01-01"), day("2025-01-07"), []string{"España"}, testRecentTTL, farFuture)
	assert.Empty(t, gaps)

	gaps = findGaps(cached, day("2025-01-01"), day("2025-01-07"), []string{"España", "Portugal"}, testRecentTTL, farFuture)
	require.Len(t, gaps, 1, "a missing requested column voids the coverage")
	assert.Equal(t, day("2025-01-01"), gaps[0].Start)
	assert.Equal(t, day("2025-01-07"), gaps[0].End)
}

func TestFindGapsPartialColumnCoverage(t *testing.T) {
	// Portugal only has the first half of the cached window, so the
	// joint coverage ends where Portugal does.
	b := frame.NewBuilder()
	for t0 := day("2025-01-01"); t0.Before(day("2025-01-08")); t0 = t0.Add(time.Hour) {
		b.Set(t0, "España", 1.0)
		if t0.Before(day("2025-01-04")) {
			b.Set(t0, "Portugal", 2.0)
		}
	}
	cached := b.Build()

	gaps := findGaps(cached, day("2025-01-01"), day("2025-01-07"), []string{"España", "Portugal"}, testRecentTTL, farFuture)
	require.Len(t, gaps, 1)
	assert.Equal(t, day("2025-01-04"), gaps[0].Start)
	assert.Equal(t, day("2025-01-07"), gaps[0].End)
}

func TestFindGapsRecentRefresh(t *testing.T) {
	now := day("2025-06-10")
	// Cache runs right up to Jun 9 23:00.
	cached := hourlyFrame(day("2025-06-01"), day("2025-06-09"), "value")

	gaps := findGaps(cached, day("2025-06-01"), day("2025-06-09"), nil, testRecentTTL, now)
	require.Len(t, gaps, 1, "the tail inside the refresh window is re-fetched")
	assert.Equal(t, day("2025-06-08"), gaps[0].Start)
	assert.Equal(t, day("2025-06-09"), gaps[0].End)
}

func TestFindGapsNoRefreshForOldRequests(t *testing.T) {
	now := day("2025-06-10")
	cached := hourlyFrame(day("2025-06-01"), day("2025-06-09"), "value")

	// The request ends at the cutoff: entirely settled data.
	gaps := findGaps(cached, day("2025-06-01"), day("2025-06-07"), nil, testRecentTTL, now)
	assert.Empty(t, gaps)
}

func TestFindGapsRefreshClippedToRequestStart(t *testing.T) {
	now := day("2025-06-10")
	cached := hourlyFrame(day("2025-06-01"), day("2025-06-09"), "value")

	gaps := findGaps(cached, day("2025-06-09"), day("2025-06-09"), nil, testRecentTTL, now)
	require.Len(t, gaps, 1)
	assert.Equal(t, day("2025-06-09"), gaps[0].Start)
	assert.Equal(t, day("2025-06-09"), gaps[0].End)
}

func TestFindGapsMergesAdjacent(t *testing.T) {
	now := day("2025-06-10")
	// Cached Jun 5–9; request Jun 1–9. The pre-gap ends Jun 4 and the
	// refresh starts Jun 8: distinct ranges, returned separately, but
	// a pre-gap touching the refresh would merge.
	cached := hourlyFrame(day("2025-06-05"), day("2025-06-09"), "value")
	gaps := findGaps(cached, day("2025-06-01"), day("2025-06-09"), nil, testRecentTTL, now)

	require.Len(t, gaps, 2)
	assert.Equal(t, day("2025-06-01"), gaps[0].Start)
	assert.Equal(t, day("2025-06-04"), gaps[0].End)
	assert.Equal(t, day("2025-06-08"), gaps[1].Start)
	assert.Equal(t, day("2025-06-09"), gaps[1].End)
}

func TestFindGapsThroughStore(t *testing.T) {
	store := NewStore(Config{Enabled: true, Dir: t.TempDir(), RecentTTLHours: 48, MetaTTLDays: 7, CatalogTTLHours: 24})
	store.SetNow(func() time.Time { return day("2030-01-01") })

	cached := hourlyFrame(day("2025-01-01"), day("2025-01-03"), "value")
	gaps := store.FindGaps(cached, day("2025-01-01"), day("2025-01-05"), nil)
	require.Len(t, gaps, 1)
	assert.Equal(t, day("2025-01-04"), gaps[0].Start)
}
