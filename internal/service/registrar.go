// Package service hosts the transactional core operations of the
// scheduling engine.  Each operation runs inside a single database
// transaction that also reads every precondition it depends on; the
// relational store is the sole source of mutual exclusion.
package service

import (
	"context"
	"database/sql"

	"github.com/avelys/studio-scheduler/internal/model"
	"github.com/avelys/studio-scheduler/internal/repository"
)

// Registrar reserves and releases seats in concrete classes.  Register
// locks the class row for the duration of the transaction so concurrent
// attempts against the same class serialize: with one seat left, two
// simultaneous calls yield exactly one success and one ErrClassFull.
type Registrar struct {
	db            *sql.DB
	classes       *repository.ClassRepo
	registrations *repository.RegistrationRepo
}

// NewRegistrar constructs a Registrar.  All dependencies must be non-nil.
func NewRegistrar(db *sql.DB, classes *repository.ClassRepo, registrations *repository.RegistrationRepo) *Registrar {
	if db == nil || classes == nil || registrations == nil {
		panic("nil dependency passed to NewRegistrar")
	}
	return &Registrar{db: db, classes: classes, registrations: registrations}
}

// Register reserves a seat for the customer in the given class.  The
// caller supplies a pre-validated (classID, customerID) pair; identity
// is not re-derived here.  Precondition failures are reported with
// distinct sentinels, in this order: ErrClassNotFound, ErrClassExcluded,
// ErrClassClosed, ErrClassFull, ErrAlreadyRegistered.  On any failure
// the transaction rolls back and no partial state is visible.
func (s *Registrar) Register(ctx context.Context, classID, customerID uint64, comment *string) (*model.ClassRegistration, error) {
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
	if class.IsExcluded {
		return nil, repository.ErrClassExcluded
	}
	if !class.IsOpen {
		return nil, repository.ErrClassClosed
	}
	count, err := s.registrations.CountByClassTx(ctx, tx, classID)
	if err != nil {
		return nil, err
	}
	if uint32(count) >= class.MaxCapacity {
		return nil, repository.ErrClassFull
	}

	reg := &model.ClassRegistration{ClassID: classID, CustomerID: customerID, Comment: comment}
	if err := s.registrations.CreateTx(ctx, tx, reg); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return reg, nil
}

// Cancel deletes the customer's still-reserved registration for the
// class.  ErrRegistrationNotFound is returned when no such row exists.
// Whether the caller may cancel on behalf of this customer is the
// collaborator's concern, not this component's.
func (s *Registrar) Cancel(ctx context.Context, classID, customerID uint64) error {
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

	if err := s.registrations.DeleteReservedTx(ctx, tx, classID, customerID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
