package utils

import (
	"fmt"
	"time"
)

// DayFormat is the wire format for snapshot dates.
const DayFormat = "2006-01-02"

// ParseDay returns the UTC midnight for a YYYY-MM-DD string.
func ParseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	t, err := time.Parse(DayFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return t.UTC(), nil
}

// TruncateToDay drops the time-of-day component in UTC.
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole-day distance from start to end. Negative
// when end precedes start.
func DaysBetween(start, end time.Time) int {
	start = TruncateToDay(start)
	end = TruncateToDay(end)
	return int(end.Sub(start).Hours() / 24)
}
