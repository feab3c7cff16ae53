package model

import "time"

// ClassSeries is a recurrence template from which concrete class
// occurrences are generated.  A series is created once by an admin
// action and is never deleted while occurrences still reference it.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – class title copied onto every occurrence.
//  Instructor      – instructor name copied onto every occurrence.
//  StartsAtTime    – time of day the class starts ("HH:MM:SS").
//  EndsAtTime      – time of day the class ends ("HH:MM:SS").
//  MaxCapacity     – seat capacity copied onto every occurrence.
//  DefaultOpen     – whether generated occurrences accept registrations.
//  RecurrenceStart – first date of the recurrence window (inclusive).
//  RecurrenceEnd   – last date of the recurrence window (inclusive).
//  Weekdays        – qualifying weekdays, 0=Sunday .. 6=Saturday.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type ClassSeries struct {
	ID              uint64    // class_series.id
	Title           string    // class_series.title
	Instructor      string    // class_series.instructor
	StartsAtTime    string    // class_series.starts_at_time
	EndsAtTime      string    // class_series.ends_at_time
	MaxCapacity     uint32    // class_series.max_capacity
	DefaultOpen     bool      // class_series.default_open
	RecurrenceStart time.Time // class_series.recurrence_start
	RecurrenceEnd   time.Time // class_series.recurrence_end
	Weekdays        []int     // class_series.weekdays (stored as "0,2,4")
	CreatedAt       time.Time // class_series.created_at
	UpdatedAt       time.Time // class_series.updated_at
}
