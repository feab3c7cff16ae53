// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios: not-found
// conditions map to 404 responses while state conflicts (a full class, a
// duplicate registration, an occurrence that was already withdrawn) map
// to 409. Callers must not retry conflict errors blindly since the
// condition is state-dependent, not transient.
package repository

import "errors"

// ErrSeriesNotFound is returned when no class series matches the given id.
var ErrSeriesNotFound = errors.New("class series not found")

// ErrClassNotFound is returned when no class occurrence matches the
// given reference.
var ErrClassNotFound = errors.New("class not found")

// ErrRegistrationNotFound is returned when no reserved registration
// exists for the given (class, customer) pair.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrAttendanceNotFound is returned when no attendance row matches the
// given id.
var ErrAttendanceNotFound = errors.New("attendance not found")

// ErrClassFull is returned when a registration would exceed the class
// capacity.
var ErrClassFull = errors.New("class full")

// ErrClassClosed is returned when the class no longer accepts
// registrations.
var ErrClassClosed = errors.New("class closed")

// ErrClassExcluded is returned when the occurrence was withdrawn from
// its series.
var ErrClassExcluded = errors.New("class excluded")

// ErrAlreadyRegistered is returned when the customer already holds a
// registration for the class.
var ErrAlreadyRegistered = errors.New("already registered")

// ErrAlreadyExcluded is returned when the occurrence was already
// withdrawn; it is distinct from ErrClassNotFound so callers can tell a
// repeated exclusion from a bad reference.
var ErrAlreadyExcluded = errors.New("occurrence already excluded")

// ErrAlreadyCheckedIn is returned when an attendance row already exists
// for the (class, customer) pair.
var ErrAlreadyCheckedIn = errors.New("already checked in")
