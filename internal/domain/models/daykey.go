package models

import (
	"fmt"
	"time"
)

const dayKeyLayout = "2006-01-02"

// DayKey is the calendar date of an event in the reporting timezone,
// formatted YYYY-MM-DD so that lexical order equals chronological order.
type DayKey string

// DayKeyOf buckets t into its calendar day in loc.
func DayKeyOf(t time.Time, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.UTC
	}
	return DayKey(t.In(loc).Format(dayKeyLayout))
}

// ParseDayKey validates a YYYY-MM-DD string.
func ParseDayKey(value string) (DayKey, error) {
	if _, err := time.Parse(dayKeyLayout, value); err != nil {
		return "", NewValidationError("day", fmt.Sprintf("expected YYYY-MM-DD, got %q", value))
	}
	return DayKey(value), nil
}

// Start returns local midnight of the day in loc.
func (d DayKey) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dayKeyLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// End returns midnight of the following day in loc.
func (d DayKey) End(loc *time.Location) time.Time {
	return d.Start(loc).AddDate(0, 0, 1)
}

// Label is the human display form. Never use it for ordering.
func (d DayKey) Label(loc *time.Location) string {
	start := d.Start(loc)
	if start.IsZero() {
		return string(d)
	}
	return start.Format("Monday, 2 January 2006")
}

func (d DayKey) String() string { return string(d) }
