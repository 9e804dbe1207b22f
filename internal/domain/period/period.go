// Package period maps timestamps onto the calendar buckets that scope the
// recurring contests: ISO-8601 weeks for engagement tracking and calendar
// months for the referral contest. Pure functions, no I/O.
package period

import (
	"fmt"
	"time"
)

// WeekKey identifies an ISO-8601 week, e.g. "2025-W07".
// Week boundaries follow the ISO definition (Monday start), so late-December
// dates may belong to week 1 of the following ISO year.
type WeekKey string

// MonthKey identifies a calendar month, e.g. "2025-M02".
type MonthKey string

// Week returns the ISO week key for t.
func Week(t time.Time) WeekKey {
	year, week := t.ISOWeek()
	return WeekKey(fmt.Sprintf("%d-W%02d", year, week))
}

// Month returns the calendar month key for t.
func Month(t time.Time) MonthKey {
	return MonthKey(fmt.Sprintf("%d-M%02d", t.Year(), int(t.Month())))
}

// Current returns both period keys for t. Calls within the same ISO week and
// calendar month always return identical keys.
func Current(t time.Time) (WeekKey, MonthKey) {
	return Week(t), Month(t)
}

// String implements fmt.Stringer.
func (w WeekKey) String() string { return string(w) }

// String implements fmt.Stringer.
func (m MonthKey) String() string { return string(m) }
