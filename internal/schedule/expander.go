// Package schedule expands recurrence rules into concrete class dates.
// Expansion is deterministic: the output depends only on the rule, never
// on the clock or the database, which keeps it trivially unit-testable.
package schedule

import (
	"fmt"
	"time"
)

// MaxSpanDays caps the recurrence window.  It bounds the size of the
// bulk insert that persists the expanded occurrences.
const MaxSpanDays = 370

// Rule describes a recurrence: a closed date range, the qualifying
// weekdays (0=Sunday .. 6=Saturday) and dates withdrawn up front.
type Rule struct {
	Start    time.Time
	End      time.Time
	Weekdays []int
	Excluded []time.Time
}

// Expand returns the ascending list of dates d with Start <= d <= End
// whose weekday is in the rule's weekday set and which are not excluded.
// Dates are normalized to midnight UTC.  An empty result is not an
// error here; callers decide whether "no occurrences" is reportable.
func Expand(r Rule) ([]time.Time, error) {
	start := dateOnly(r.Start)
	end := dateOnly(r.End)
	if end.Before(start) {
		return nil, fmt.Errorf("recurrence end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if span := int(end.Sub(start).Hours() / 24); span > MaxSpanDays {
		return nil, fmt.Errorf("recurrence span of %d days exceeds the maximum of %d", span, MaxSpanDays)
	}
	if len(r.Weekdays) == 0 {
		return nil, fmt.Errorf("at least one weekday is required")
	}
	wanted := make(map[time.Weekday]bool, len(r.Weekdays))
	for _, wd := range r.Weekdays {
		if wd < 0 || wd > 6 {
			return nil, fmt.Errorf("invalid weekday %d: must be 0..6", wd)
		}
		wanted[time.Weekday(wd)] = true
	}
	skip := make(map[time.Time]bool, len(r.Excluded))
	for _, d := range r.Excluded {
		skip[dateOnly(d)] = true
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wanted[d.Weekday()] && !skip[d] {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// dateOnly truncates a timestamp to midnight UTC of its calendar date.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
