package cache

import (
	"sort"
	"time"

	"github.com/colthorp/esios-cli-go/internal/core"
)

// DateRange is a contiguous inclusive range [Start, End].
type DateRange struct {
	Start time.Time
	End   time.Time
}

// mergeOverlapping merges ranges that overlap or touch within one day,
// returning them sorted by Start.
func mergeOverlapping(ranges []DateRange) []DateRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]DateRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []DateRange{sorted[0]}
	for _, r := range sorted[1:] {
		prev := &merged[len(merged)-1]
		if !r.Start.After(prev.End.AddDate(0, 0, 1)) {
			if r.End.After(prev.End) {
				prev.End = r.End
			}
		} else {
			merged = append(merged, r)
		}
	}
	return merged
}

// SplitDays splits a range into consecutive windows of at most maxDays
// additional days each, covering the input exactly with no overlap.
func SplitDays(r DateRange, maxDays int) []DateRange {
	var chunks []DateRange
	current := r.Start
	for !current.After(r.End) {
		chunkEnd := current.AddDate(0, 0, maxDays)
		if chunkEnd.After(r.End) {
			chunkEnd = r.End
		}
		chunks = append(chunks, DateRange{Start: current, End: chunkEnd})
		current = core.DateOnly(chunkEnd).AddDate(0, 0, 1)
	}
	return chunks
}

// SplitMonths splits a range into calendar-month windows, clipped to
// the range bounds. Used for monthly-horizon archive downloads.
func SplitMonths(r DateRange) []DateRange {
	var chunks []DateRange
	current := r.Start
	for !current.After(r.End) {
		chunkEnd := core.MonthEnd(current)
		if chunkEnd.After(r.End) {
			chunkEnd = r.End
		}
		chunks = append(chunks, DateRange{Start: current, End: chunkEnd})
		current = core.DateOnly(chunkEnd).AddDate(0, 0, 1)
	}
	return chunks
}
