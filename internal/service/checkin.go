package service

import (
	"context"
	"database/sql"

	"github.com/avelys/studio-scheduler/internal/model"
	"github.com/avelys/studio-scheduler/internal/repository"
)

// CheckIn handles the explicit admin attendance paths: direct check-in
// and attendance reversal.  Both mirror the reconciliation worker's
// ledger rule; reversal is its inverse (+1, reactivate when zero
// balance was the only reason for inactivity).
type CheckIn struct {
	db            *sql.DB
	classes       *repository.ClassRepo
	registrations *repository.RegistrationRepo
	memberships   *repository.MembershipRepo
	attendances   *repository.AttendanceRepo
}

// NewCheckIn constructs a CheckIn service.  All dependencies must be non-nil.
func NewCheckIn(db *sql.DB, classes *repository.ClassRepo, registrations *repository.RegistrationRepo, memberships *repository.MembershipRepo, attendances *repository.AttendanceRepo) *CheckIn {
	if db == nil || classes == nil || registrations == nil || memberships == nil || attendances == nil {
		panic("nil dependency passed to NewCheckIn")
	}
	return &CheckIn{db: db, classes: classes, registrations: registrations, memberships: memberships, attendances: attendances}
}

// Record creates an attendance row for the customer in the class,
// selects and debits an eligible membership with the same tie-break the
// worker uses, and flips a matching reserved registration to attended.
// A customer with no eligible membership is still checked in; the
// attendance row simply carries no membership.  ErrAlreadyCheckedIn is
// returned when an attendance row already exists for the pair.
func (s *CheckIn) Record(ctx context.Context, classID, customerID uint64) (*model.Attendance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	class, err := s.classes.GetForUpdateTx(ctx, tx, classID)
	if err != nil {
		return nil, err
	}
	exists, err := s.attendances.ExistsForClassCustomerTx(ctx, tx, classID, customerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrAlreadyCheckedIn
	}

	balance, err := s.memberships.SelectEligibleForUpdateTx(ctx, tx, customerID, class.Title)
	if err != nil {
		return nil, err
	}

	att := &model.Attendance{CustomerID: customerID, ClassID: &classID, ClassLabel: class.Title}
	if balance != nil {
		att.MembershipID = &balance.ID
	}
	if err := s.attendances.CreateTx(ctx, tx, att); err != nil {
		return nil, err
	}
	if err := s.registrations.MarkAttendedByClassCustomerTx(ctx, tx, classID, customerID); err != nil {
		return nil, err
	}
	if balance != nil && balance.Remaining != nil {
		newBalance := *balance.Remaining - 1
		if newBalance < 0 {
			newBalance = 0
		}
		if err := s.memberships.SetBalanceTx(ctx, tx, balance.ID, newBalance, newBalance > 0); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return att, nil
}

// Reverse deletes an attendance row and undoes its side effects: the
// used membership is credited one session back (reactivating it when
// the balance rises above zero) and a matching attended registration
// returns to reserved.  Unlimited memberships are left untouched, as
// they were never debited.
func (s *CheckIn) Reverse(ctx context.Context, attendanceID uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	att, err := s.attendances.GetForUpdateTx(ctx, tx, attendanceID)
	if err != nil {
		return err
	}
	if err := s.attendances.DeleteTx(ctx, tx, attendanceID); err != nil {
		return err
	}
	if att.MembershipID != nil {
		balance, err := s.memberships.GetForUpdateTx(ctx, tx, *att.MembershipID)
		if err != nil {
			return err
		}
		// A deleted membership just loses the credit.
		if balance != nil && balance.Remaining != nil {
			newBalance := *balance.Remaining + 1
			active := balance.IsActive
			if !active && *balance.Remaining == 0 {
				active = true
			}
			if err := s.memberships.SetBalanceTx(ctx, tx, balance.ID, newBalance, active); err != nil {
				return err
			}
		}
	}
	if att.ClassID != nil {
		if err := s.registrations.RevertToReservedTx(ctx, tx, *att.ClassID, att.CustomerID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
