package model

import "time"

// YogaClass is one concrete dated session.  Occurrences are created in
// bulk from a ClassSeries or singly for ad-hoc classes.  An excluded
// occurrence is always closed: IsExcluded implies !IsOpen.
//
// Fields:
//  ID             – primary key identifier.
//  SeriesID       – owning series, nil for ad-hoc classes.
//  Title          – class title.
//  Instructor     – instructor name.
//  Date           – calendar date of the session.
//  StartsAtTime   – time of day the session starts ("HH:MM:SS").
//  EndsAtTime     – time of day the session ends ("HH:MM:SS").
//  MaxCapacity    – maximum number of registrations.
//  IsOpen         – whether the class accepts registrations.
//  IsExcluded     – whether the occurrence was withdrawn from its series.
//  ExcludedReason – optional reason recorded on exclusion.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type YogaClass struct {
	ID             uint64    // classes.id
	SeriesID       *uint64   // classes.series_id (nullable)
	Title          string    // classes.title
	Instructor     string    // classes.instructor
	Date           time.Time // classes.class_date
	StartsAtTime   string    // classes.starts_at_time
	EndsAtTime     string    // classes.ends_at_time
	MaxCapacity    uint32    // classes.max_capacity
	IsOpen         bool      // classes.is_open
	IsExcluded     bool      // classes.is_excluded
	ExcludedReason *string   // classes.excluded_reason (nullable)
	CreatedAt      time.Time // classes.created_at
	UpdatedAt      time.Time // classes.updated_at
}

// StartInstant combines the class date and start time-of-day into a
// single UTC instant.  The stored time string must be "HH:MM:SS".
func (c YogaClass) StartInstant() time.Time {
	t, err := time.Parse("15:04:05", c.StartsAtTime)
	if err != nil {
		return time.Date(c.Date.Year(), c.Date.Month(), c.Date.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(c.Date.Year(), c.Date.Month(), c.Date.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
