// Package recurrence computes next-occurrence dates for recurring tasks.
// It is pure calendar arithmetic: no wall-clock sampling, safe under
// unlimited concurrency.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Supported recurrence patterns.
const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
)

var (
	ErrInvalidPattern = errors.New("invalid recurrence pattern")
	ErrMissingAnchor  = errors.New("recurrence anchor date is missing")
)

// Valid reports whether pattern is one of the supported values.
func Valid(pattern string) bool {
	switch pattern {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Next returns the occurrence following anchor for the given pattern,
// preserving the anchor's time-of-day.
//
// Monthly recurrence keeps the anchor's day-of-month and clamps to the last
// valid day when the target month is shorter: Jan 31 -> Feb 28 (non-leap),
// and the chain continues from the clamped date (Feb 28 -> Mar 28).
func Next(pattern string, anchor time.Time) (time.Time, error) {
	if anchor.IsZero() {
		return time.Time{}, ErrMissingAnchor
	}
	switch pattern {
	case Daily:
		return anchor.AddDate(0, 0, 1), nil
	case Weekly:
		return anchor.AddDate(0, 0, 7), nil
	case Monthly:
		return nextMonth(anchor), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
}

func nextMonth(anchor time.Time) time.Time {
	year, month, day := anchor.Date()
	// AddDate would normalize Jan 31 + 1 month into Mar 3; clamp instead.
	if last := daysInMonth(month+1, year); day > last {
		day = last
	}
	next := time.Date(year, month+1, day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
	return next
}

// daysInMonth handles month overflow (December + 1 rolls into next January).
func daysInMonth(month time.Month, year int) int {
	// Move to the first of the following month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfMonth.AddDate(0, 1, -1)
	return lastOfMonth.Day()
}
