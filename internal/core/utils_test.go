package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("15/01/2025")
	assert.Error(t, err)
}

func TestParseDateArg(t *testing.T) {
	madrid := GetTZ("Europe/Madrid")

	// Plain dates resolve to midnight UTC regardless of display zone.
	got, err := ParseDateArg("2025-01-15", madrid)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), got)

	// Datetimes resolve in the display zone.
	got, err = ParseDateArg("2025-01-15 12:30:00", madrid)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 15, 12, 30, 0, 0, madrid), got)

	_, err = ParseDateArg("yesterday", madrid)
	assert.Error(t, err)
}

func TestEndOfDay(t *testing.T) {
	midnight := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 15, 23, 59, 59, 0, time.UTC), EndOfDay(midnight))

	// Bounds with a time component pass through unchanged.
	noon := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, noon, EndOfDay(noon))

	// Spring-forward day in Madrid is 23 hours long; the bound must
	// still land on 23:59:59 wall time, not 22:59:59.
	madrid := GetTZ("Europe/Madrid")
	dst := time.Date(2025, 3, 30, 0, 0, 0, 0, madrid)
	assert.Equal(t, time.Date(2025, 3, 30, 23, 59, 59, 0, madrid), EndOfDay(dst))
}

func TestDateOnly(t *testing.T) {
	madrid := GetTZ("Europe/Madrid")
	ts := time.Date(2025, 1, 15, 23, 30, 0, 0, madrid)
	got := DateOnly(ts)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), got,
		"keeps the calendar date, drops the zone")
}

func TestMonthBounds(t *testing.T) {
	ts := time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), MonthStart(ts))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), MonthEnd(ts), "leap year")

	dec := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, dec, MonthEnd(dec))
}

func TestGetTZFallback(t *testing.T) {
	assert.Equal(t, time.UTC, GetTZ("Not/AZone"))
	assert.Equal(t, "Europe/Madrid", GetTZ("").String())
}
