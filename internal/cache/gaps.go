package cache

import (
	"time"

	"github.com/colthorp/esios-cli-go/internal/core"
	"github.com/colthorp/esios-cli-go/internal/frame"
)

// FindGaps computes the minimal list of sub-ranges of [start, end] not
// satisfied by the cached frame.
//
// When columns are given, a row counts as covered only if every listed
// column has a value there; a missing column means nothing is covered.
// Data newer than the recent-refresh window is always re-fetched: the
// source restates recently published values, so cached rows within
// recentTTL of now are treated as a gap even though they exist.
func (s *Store) FindGaps(cached *frame.Frame, start, end time.Time, columns []string) []DateRange {
	return findGaps(cached, start.UTC(), end.UTC(), columns, s.recentTTL, s.now())
}

func findGaps(cached *frame.Frame, start, end time.Time, columns []string, recentTTL time.Duration, now time.Time) []DateRange {
	full := []DateRange{{Start: start, End: end}}
	if cached.IsEmpty() {
		return full
	}

	cachedStart, cachedEnd, ok := cached.CoverageSpan(columns)
	if !ok {
		return full
	}
	cachedStart = cachedStart.UTC()
	cachedEnd = cachedEnd.UTC()
	cutoff := now.UTC().Add(-recentTTL)

	var gaps []DateRange

	// Pre-gap: requested data older than anything cached. Boundaries
	// are pulled in by one hour (the finest ESIOS granularity) and then
	// truncated to day precision for request formation.
	if start.Before(cachedStart) {
		gapEnd := cachedStart.Add(-time.Hour)
		if gapEnd.After(end) {
			gapEnd = end
		}
		if !gapEnd.Before(start) {
			gaps = append(gaps, DateRange{Start: start, End: core.DateOnly(gapEnd)})
		}
	}

	// Post-gap: requested data newer than anything cached.
	if end.After(cachedEnd) {
		gapStart := cachedEnd.Add(time.Hour)
		if gapStart.Before(start) {
			gapStart = start
		}
		if !gapStart.After(end) {
			gaps = append(gaps, DateRange{Start: core.DateOnly(gapStart), End: end})
		}
	}

	// Recent-refresh: the tail of the cache inside the refresh window
	// is re-fetched. Requests ending at or before the cutoff never
	// trigger a refresh.
	if cachedEnd.After(cutoff) && end.After(cutoff) {
		refreshStart := cutoff
		if start.After(refreshStart) {
			refreshStart = start
		}
		if !refreshStart.After(end) {
			gaps = append(gaps, DateRange{Start: core.DateOnly(refreshStart), End: end})
		}
	}

	return mergeOverlapping(gaps)
}
