// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationConfirmedEvent is published when a seat is successfully
// reserved.  It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database.
type RegistrationConfirmedEvent struct {
	RegistrationID uint64 `json:"registration_id"`
	ClassID        uint64 `json:"class_id"`
	CustomerID     uint64 `json:"customer_id"`
	ClassTitle     string `json:"class_title"`
	ClassDate      string `json:"class_date"`
	StartsAt       string `json:"starts_at"`
	RegisteredAt   string `json:"registered_at"`
}

// ReconciliationSummaryEvent is published after each reconciliation
// pass that did any work.  The counts mirror the pass summary logged by
// the worker.
type ReconciliationSummaryEvent struct {
	Eligible             int    `json:"eligible"`
	NoAttendance         int    `json:"no_attendance"`
	Selected             int    `json:"selected"`
	Inserted             int    `json:"inserted"`
	RegistrationsUpdated int    `json:"registrations_updated"`
	MembershipsUpdated   int    `json:"memberships_updated"`
	ClassesClosed        int    `json:"classes_closed"`
	SkippedNoMembership  int    `json:"skipped_no_membership"`
	FinishedAt           string `json:"finished_at"`
}
