package frame

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func buildFrame(t *testing.T, cells map[string]map[string]float64) *Frame {
	t.Helper()
	b := NewBuilder()
	for when, cols := range cells {
		for col, v := range cols {
			b.Set(ts(when), col, v)
		}
	}
	return b.Build()
}

func TestBuilderSortsAndFillsHoles(t *testing.T) {
	b := NewBuilder()
	b.Set(ts("2025-01-02 00:00"), "España", 2.0)
	b.Set(ts("2025-01-01 00:00"), "España", 1.0)
	b.Set(ts("2025-01-01 00:00"), "Portugal", 10.0)

	f := b.Build()
	require.Equal(t, 2, f.Len())
	assert.Equal(t, []string{"España", "Portugal"}, f.Columns())
	assert.Equal(t, ts("2025-01-01 00:00"), f.Index()[0])
	assert.Equal(t, 1.0, f.At(0, "España"))
	assert.Equal(t, 10.0, f.At(0, "Portugal"))
	// Portugal has no observation on the 2nd.
	assert.True(t, math.IsNaN(f.At(1, "Portugal")))
}

func TestBuilderKeepsFirstDuplicate(t *testing.T) {
	b := NewBuilder()
	b.Set(ts("2025-01-01 00:00"), "value", 1.0)
	b.Set(ts("2025-01-01 00:00"), "value", 99.0)

	f := b.Build()
	require.Equal(t, 1, f.Len())
	assert.Equal(t, 1.0, f.At(0, "value"))
}

func TestMergeNewerWins(t *testing.T) {
	older := buildFrame(t, map[string]map[string]float64{
		"2025-01-01 00:00": {"value": 1.0},
		"2025-01-01 01:00": {"value": 2.0},
	})
	newer := buildFrame(t, map[string]map[string]float64{
		"2025-01-01 01:00": {"value": 20.0},
		"2025-01-01 02:00": {"value": 30.0},
	})

	merged := Merge(older, newer)
	require.Equal(t, 3, merged.Len())
	assert.Equal(t, 1.0, merged.At(0, "value"))
	assert.Equal(t, 20.0, merged.At(1, "value"), "overlap takes the newer value")
	assert.Equal(t, 30.0, merged.At(2, "value"))
}

func TestMergePreservesSparseColumns(t *testing.T) {
	older := buildFrame(t, map[string]map[string]float64{
		"2025-01-01 00:00": {"España": 1.0, "Francia": 5.0},
	})
	// A later fetch for only España must not wipe out Francia.
	newer := buildFrame(t, map[string]map[string]float64{
		"2025-01-01 00:00": {"España": 2.0},
		"2025-01-01 01:00": {"España": 3.0},
	})

	merged := Merge(older, newer)
	assert.Equal(t, []string{"España", "Francia"}, merged.Columns())
	assert.Equal(t, 2.0, merged.At(0, "España"))
	assert.Equal(t, 5.0, merged.At(0, "Francia"))
	assert.True(t, math.IsNaN(merged.At(1, "Francia")))
}

func TestMergeWithEmpty(t *testing.T) {
	f := buildFrame(t, map[string]map[string]float64{
		"2025-01-01 00:00": {"value": 1.0},
	})
	assert.Equal(t, 1, Merge(New(), f).Len())
	assert.Equal(t, 1, Merge(f, New()).Len())
	assert.True(t, Merge(New(), New()).IsEmpty())
}

func TestSliceInclusive(t *testing.T) {
	f := buildFrame(t, map[string]map[string]float64{
		"2025-01-01 00:00": {"value": 1.0},
		"2025-01-02 00:00": {"value": 2.0},
		"2025-01-03 00:00": {"value": 3.0},
	})
	s := f.Slice(ts("2025-01-01 00:00"), ts("2025-01-02 00:00"))
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 1.0, s.At(0, "value"))
	assert.Equal(t, 2.0, s.At(1, "value"))

	assert.True(t, f.Slice(ts("2025-02-01 00:00"), ts("2025-02-02 00:00")).IsEmpty())
}

func TestCoverageSpan(t *testing.T) {
	b := NewBuilder()
	b.Set(ts("2025-01-01 00:00"), "España", 1.0)
	b.Set(ts("2025-01-02 00:00"), "España", 2.0)
	b.Set(ts("2025-01-02 00:00"), "Portugal", 20.0)
	b.Set(ts("2025-01-03 00:00"), "España", 3.0)
	f := b.Build()

	// España alone spans all three days.
	start, end, ok := f.CoverageSpan([]string{"España"})
	require.True(t, ok)
	assert.Equal(t, ts("2025-01-01 00:00"), start)
	assert.Equal(t, ts("2025-01-03 00:00"), end)

	// Both columns only overlap on the 2nd.
	start, end, ok = f.CoverageSpan([]string{"España", "Portugal"})
	require.True(t, ok)
	assert.Equal(t, ts("2025-01-02 00:00"), start)
	assert.Equal(t, ts("2025-01-02 00:00"), end)

	// A missing column means nothing counts as covered.
	_, _, ok = f.CoverageSpan([]string{"Francia"})
	assert.False(t, ok)

	// No columns behaves like Span.
	start, end, ok = f.CoverageSpan(nil)
	require.True(t, ok)
	assert.Equal(t, ts("2025-01-01 00:00"), start)
	assert.Equal(t, ts("2025-01-03 00:00"), end)
}

func TestSelectAndRename(t *testing.T) {
	f := buildFrame(t, map[string]map[string]float64{
		"2025-01-01 00:00": {"España": 1.0, "Portugal": 2.0},
	})

	sel := f.Select([]string{"Portugal", "Francia"})
	assert.Equal(t, []string{"Portugal"}, sel.Columns())

	assert.True(t, f.Select([]string{"Francia"}).IsEmpty())

	f.Rename("España", "600")
	assert.True(t, f.HasColumn("600"))
	assert.False(t, f.HasColumn("España"))
	assert.Equal(t, 1.0, f.At(0, "600"))
}

func TestInZoneKeepsInstants(t *testing.T) {
	f := buildFrame(t, map[string]map[string]float64{
		"2025-06-01 10:00": {"value": 1.0},
	})
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	shifted := f.InZone(madrid)
	assert.True(t, shifted.Index()[0].Equal(f.Index()[0]))
	assert.Equal(t, 12, shifted.Index()[0].Hour(), "CEST is UTC+2 in June")
}
