package model

import "time"

// Attendance status values for a registration.  A registration starts
// RESERVED and transitions to ATTENDED or ABSENT exactly once.
const (
	StatusReserved = "RESERVED"
	StatusAttended = "ATTENDED"
	StatusAbsent   = "ABSENT"
)

// ClassRegistration is a customer's seat claim on a concrete class.
// At most one registration exists per (class, customer) pair; the
// database enforces this with a unique key.
//
// Fields:
//  ID         – primary key identifier.
//  ClassID    – class being attended.
//  CustomerID – customer holding the seat.
//  Status     – RESERVED, ATTENDED or ABSENT.
//  Comment    – optional pre-class note from the customer.
//  CreatedAt  – registration timestamp.
//  UpdatedAt  – last update timestamp.
type ClassRegistration struct {
	ID         uint64    // registrations.id
	ClassID    uint64    // registrations.class_id
	CustomerID uint64    // registrations.customer_id
	Status     string    // registrations.status
	Comment    *string   // registrations.comment (nullable)
	CreatedAt  time.Time // registrations.created_at
	UpdatedAt  time.Time // registrations.updated_at
}
