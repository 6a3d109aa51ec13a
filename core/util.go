package core

import (
	"strings"
	"time"
)

// NowFunc is mockable.
var NowFunc = time.Now

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// DateOf returns the calendar day of t in loc, as midnight UTC.
// All DATE columns are compared in that form.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is DateOf(NowFunc(), loc).
func Today(loc *time.Location) time.Time {
	return DateOf(NowFunc(), loc)
}

// MonthRange returns the first day of the month of day and the first day of the next one.
func MonthRange(day time.Time) (time.Time, time.Time) {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, 0)
}
