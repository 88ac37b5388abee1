package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestSplitDaysCoversRangeExactly(t *testing.T) {
	r := DateRange{Start: day("2025-01-01"), End: day("2025-01-30")}
	chunks := SplitDays(r, 21)

	require.Len(t, chunks, 2)
	assert.Equal(t, day("2025-01-01"), chunks[0].Start)
	assert.Equal(t, day("2025-01-22"), chunks[0].End)
	assert.Equal(t, day("2025-01-23"), chunks[1].Start)
	assert.Equal(t, day("2025-01-30"), chunks[1].End)

	// Consecutive chunks neither overlap nor leave holes.
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].End.AddDate(0, 0, 1), chunks[i].Start)
	}
}

func TestSplitDaysShortRange(t *testing.T) {
	r := DateRange{Start: day("2025-01-01"), End: day("2025-01-05")}
	chunks := SplitDays(r, 21)
	require.Len(t, chunks, 1)
	assert.Equal(t, r, chunks[0])
}

func TestSplitDaysSingleDayWindows(t *testing.T) {
	r := DateRange{Start: day("2025-01-01"), End: day("2025-01-03")}
	chunks := SplitDays(r, 0)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, day("2025-01-01").AddDate(0, 0, i), c.Start)
		assert.Equal(t, c.Start, c.End)
	}
}

func TestSplitMonths(t *testing.T) {
	r := DateRange{Start: day("2025-01-15"), End: day("2025-03-10")}
	chunks := SplitMonths(r)

	require.Len(t, chunks, 3)
	assert.Equal(t, day("2025-01-15"), chunks[0].Start)
	assert.Equal(t, day("2025-01-31"), chunks[0].End)
	assert.Equal(t, day("2025-02-01"), chunks[1].Start)
	assert.Equal(t, day("2025-02-28"), chunks[1].End)
	assert.Equal(t, day("2025-03-01"), chunks[2].Start)
	assert.Equal(t, day("2025-03-10"), chunks[2].End)
}

func TestMergeOverlapping(t *testing.T) {
	merged := mergeOverlapping([]DateRange{
		{Start: day("2025-01-10"), End: day("2025-01-12")},
		{Start: day("2025-01-01"), End: day("2025-01-03")},
		// Touches the first range within one day, so they join.
		{Start: day("2025-01-04"), End: day("2025-01-05")},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, day("2025-01-01"), merged[0].Start)
	assert.Equal(t, day("2025-01-05"), merged[0].End)
	assert.Equal(t, day("2025-01-10"), merged[1].Start)
}

func TestMergeOverlappingEmpty(t *testing.T) {
	assert.Nil(t, mergeOverlapping(nil))
}
