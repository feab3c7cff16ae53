// Package worker runs the recurring attendance reconciliation pass: it
// converts expired reservations into attendance records, debits
// membership session balances exactly once per class per customer, and
// closes classes whose time window has passed.
package worker

import (
	"context"
	"database/sql"

	"github.com/avelys/studio-scheduler/internal/model"
	"github.com/avelys/studio-scheduler/internal/repository"
)

// PassSummary carries the counts of one reconciliation pass.  Every
// field defaults to zero; there are no optional counts.
type PassSummary struct {
	Eligible             int // registrations selected by the eligible-set query
	NoAttendance         int // eligible rows without an existing attendance record
	Selected             int // rows for which an eligible membership was chosen
	Inserted             int // attendance rows inserted
	RegistrationsUpdated int // registrations flipped RESERVED -> ATTENDED
	MembershipsUpdated   int // memberships debited
	ClassesClosed        int // classes auto-closed this pass
	SkippedNoMembership  int // rows skipped for lack of an eligible membership
}

// Skipped is the number of reconcilable rows the pass did not convert.
func (s PassSummary) Skipped() int { return s.NoAttendance - s.Inserted }

// PassStore executes one reconciliation pass.  It is an interface so
// the ticking worker can be exercised without a database.
type PassStore interface {
	RunPass(ctx context.Context, graceMinutes int) (PassSummary, error)
}

// Store is the database-backed PassStore.  One pass is one transaction:
// any error rolls the whole pass back and no partial attendance or
// membership mutation survives.
type Store struct {
	db            *sql.DB
	classes       *repository.ClassRepo
	registrations *repository.RegistrationRepo
	memberships   *repository.MembershipRepo
	attendances   *repository.AttendanceRepo
}

// NewStore constructs a Store.  All dependencies must be non-nil.
func NewStore(db *sql.DB, classes *repository.ClassRepo, registrations *repository.RegistrationRepo, memberships *repository.MembershipRepo, attendances *repository.AttendanceRepo) *Store {
	if db == nil || classes == nil || registrations == nil || memberships == nil || attendances == nil {
		panic("nil dependency passed to NewStore")
	}
	return &Store{db: db, classes: classes, registrations: registrations, memberships: memberships, attendances: attendances}
}

// membershipUse accumulates how often one limited membership was used
// during the pass, together with the balance read under its row lock.
type membershipUse struct {
	remaining *int
	uses      int
}

// RunPass performs the reconciliation stages in causal order:
//
//  1. select eligible registrations with lock-skip semantics
//  2. drop rows whose (class, customer) already has an attendance record
//  3. choose one membership per remaining row (title match, newest,
//     highest id); rows with no candidate stay reserved
//  4. insert attendance rows, re-guarded against the uniqueness check
//  5. flip the inserted rows' registrations to attended
//  6. debit each used membership by its use count; a balance at zero
//     deactivates the membership
//  7. close every open class whose grace period has elapsed
//
// Ordering among registrations within a stage is unspecified.
func (s *Store) RunPass(ctx context.Context, graceMinutes int) (PassSummary, error) {
	var sum PassSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sum, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	eligible, err := s.registrations.EligibleForReconciliationTx(ctx, tx, graceMinutes)
	if err != nil {
		return sum, err
	}
	sum.Eligible = len(eligible)

	var attendedIDs []uint64
	usedMemberships := make(map[uint64]*membershipUse)
	for _, reg := range eligible {
		exists, err := s.attendances.ExistsForClassCustomerTx(ctx, tx, reg.ClassID, reg.CustomerID)
		if err != nil {
			return sum, err
		}
		if exists {
			continue
		}
		sum.NoAttendance++

		balance, err := s.memberships.SelectEligibleForUpdateTx(ctx, tx, reg.CustomerID, reg.ClassTitle)
		if err != nil {
			return sum, err
		}
		if balance == nil {
			// Deferred until a membership exists; retried next pass.
			sum.SkippedNoMembership++
			continue
		}
		sum.Selected++

		// Re-guard: another process may have inserted between the
		// filter above and this insert.
		exists, err = s.attendances.ExistsForClassCustomerTx(ctx, tx, reg.ClassID, reg.CustomerID)
		if err != nil {
			return sum, err
		}
		if exists {
			continue
		}
		classID := reg.ClassID
		membershipID := balance.ID
		att := &model.Attendance{
			CustomerID:   reg.CustomerID,
			MembershipID: &membershipID,
			ClassID:      &classID,
			ClassLabel:   reg.ClassTitle,
		}
		if err := s.attendances.CreateTx(ctx, tx, att); err != nil {
			return sum, err
		}
		sum.Inserted++
		attendedIDs = append(attendedIDs, reg.ID)

		use := usedMemberships[balance.ID]
		if use == nil {
			use = &membershipUse{remaining: balance.Remaining}
			usedMemberships[balance.ID] = use
		}
		use.uses++
	}

	updated, err := s.registrations.MarkAttendedTx(ctx, tx, attendedIDs)
	if err != nil {
		return sum, err
	}
	sum.RegistrationsUpdated = int(updated)

	for id, use := range usedMemberships {
		if use.remaining == nil {
			continue // unlimited memberships are never debited
		}
		newBalance := *use.remaining - use.uses
		if newBalance < 0 {
			newBalance = 0
		}
		if err := s.memberships.SetBalanceTx(ctx, tx, id, newBalance, newBalance > 0); err != nil {
			return sum, err
		}
		sum.MembershipsUpdated++
	}

	closed, err := s.classes.CloseElapsedTx(ctx, tx, graceMinutes)
	if err != nil {
		return sum, err
	}
	sum.ClassesClosed = int(closed)

	if err := tx.Commit(); err != nil {
		return sum, err
	}
	committed = true
	return sum, nil
}
