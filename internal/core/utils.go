package core

import (
	"fmt"
	"time"
)

// GetTZ returns a *time.Location for the given timezone name.
// Falls back to UTC if the timezone is not found.
func GetTZ(name string) *time.Location {
	if name == "" {
		name = DefaultTZ
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger := Logger("core")
		logger.Warn().Str("timezone", name).Msg("timezone not found; falling back to UTC")
		return time.UTC
	}
	return loc
}

// ParseDate parses a YYYY-MM-DD string into a midnight UTC time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFmt, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s' (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

// ParseDatetime parses a "YYYY-MM-DD HH:MM:SS" string in the given timezone.
func ParseDatetime(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DatetimeFmt, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime '%s' (expected YYYY-MM-DD HH:MM:SS)", s)
	}
	return t, nil
}

// ParseDateArg accepts either a date or a datetime string, as CLI range
// bounds may carry a time component.
func ParseDateArg(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(DateFmt, s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(DatetimeFmt, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date '%s' (expected YYYY-MM-DD or YYYY-MM-DD HH:MM:SS)", s)
}

// DateOnly truncates t to midnight UTC, keeping the calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsMidnight reports whether t carries no time-of-day component.
func IsMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// EndOfDay expands a midnight bound to 23:59:59 of the same day, so
// date-only upper bounds cover the whole day. Non-midnight bounds are
// returned unchanged. Built from calendar fields rather than a 24h
// offset: DST-transition days are not 24 hours long.
func EndOfDay(t time.Time) time.Time {
	if !IsMidnight(t) {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthEnd returns the last day of t's month at midnight.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}

// FormatDate formats a time.Time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateFmt)
}
