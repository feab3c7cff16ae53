package model

import "time"

// Attendance is an immutable record of a completed visit.  Rows are
// created either by an explicit admin check-in or by the reconciliation
// worker.  Per (class, customer) at most one row exists; the guard is
// enforced at the application level inside the writing transaction.
//
// Fields:
//  ID           – primary key identifier.
//  CustomerID   – customer who attended.
//  MembershipID – membership debited for the visit, nil for walk-ins.
//  ClassID      – class attended, nil for walk-ins.
//  ClassLabel   – human-readable class label frozen at insert time.
//  AttendedAt   – visit timestamp.
//  CreatedAt    – row creation timestamp.
type Attendance struct {
	ID           uint64    // attendances.id
	CustomerID   uint64    // attendances.customer_id
	MembershipID *uint64   // attendances.membership_id (nullable)
	ClassID      *uint64   // attendances.class_id (nullable)
	ClassLabel   string    // attendances.class_label
	AttendedAt   time.Time // attendances.attended_at
	CreatedAt    time.Time // attendances.created_at
}
