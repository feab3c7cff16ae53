package model

import "time"

// Membership is a customer's purchased access grant.  A nil
// RemainingSessions means unlimited use: such memberships are never
// debited and never deactivated by usage.  For limited memberships the
// active flag is a pure function of the balance – a membership with
// zero remaining sessions is not active.
//
// Fields:
//  ID                – primary key identifier.
//  CustomerID        – owning customer.
//  TypeName          – membership type name, matched against class titles.
//  RemainingSessions – sessions left, nil for unlimited.
//  IsActive          – whether the membership may be used.
//  EndsOn            – optional expiry date.
//  CreatedAt         – purchase timestamp.
//  UpdatedAt         – last update timestamp.
type Membership struct {
	ID                uint64     // memberships.id
	CustomerID        uint64     // memberships.customer_id
	TypeName          string     // memberships.type_name
	RemainingSessions *int       // memberships.remaining_sessions (nullable)
	IsActive          bool       // memberships.is_active
	EndsOn            *time.Time // memberships.ends_on (nullable)
	CreatedAt         time.Time  // memberships.created_at
	UpdatedAt         time.Time  // memberships.updated_at
}
