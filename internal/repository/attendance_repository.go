package repository

import (
	"context"
	"database/sql"

	"github.com/avelys/studio-scheduler/internal/model"
)

// AttendanceRepo provides persistence for attendance records.  Rows are
// immutable once written; the only mutation is deletion through the
// admin reversal path.  Uniqueness per (class, customer) is enforced at
// the application level: writers check ExistsForClassCustomerTx inside
// the same transaction that inserts.
type AttendanceRepo struct {
	db *sql.DB
}

// NewAttendanceRepo returns an AttendanceRepo bound to the given database.
func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

// ExistsForClassCustomerTx reports whether an attendance row already
// exists for the pair.  This is the idempotency guard that keeps a
// registration from being reconciled twice.
func (r *AttendanceRepo) ExistsForClassCustomerTx(ctx context.Context, tx *sql.Tx, classID, customerID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM attendances WHERE class_id = ? AND customer_id = ?)`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, classID, customerID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateTx inserts one attendance row and populates the generated ID.
// MembershipID and ClassID may be nil (walk-ins).  AttendedAt is set by
// the database to the current UTC time.
func (r *AttendanceRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Attendance) error {
	const q = `INSERT INTO attendances (customer_id, membership_id, class_id, class_label, attended_at) VALUES (?, ?, ?, ?, UTC_TIMESTAMP())`
	var membershipID, classID any
	if a.MembershipID != nil {
		membershipID = *a.MembershipID
	}
	if a.ClassID != nil {
		classID = *a.ClassID
	}
	result, err := tx.ExecContext(ctx, q, a.CustomerID, membershipID, classID, a.ClassLabel)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetForUpdateTx loads and locks one attendance row.
// ErrAttendanceNotFound is returned when no row matches.
func (r *AttendanceRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Attendance, error) {
	const q = `SELECT id, customer_id, membership_id, class_id, class_label, attended_at, created_at FROM attendances WHERE id = ? FOR UPDATE`
	var a model.Attendance
	var membershipID, classID sql.NullInt64
	err := tx.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.CustomerID, &membershipID, &classID, &a.ClassLabel, &a.AttendedAt, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAttendanceNotFound
	}
	if err != nil {
		return nil, err
	}
	if membershipID.Valid {
		mid := uint64(membershipID.Int64)
		a.MembershipID = &mid
	}
	if classID.Valid {
		cid := uint64(classID.Int64)
		a.ClassID = &cid
	}
	return &a, nil
}

// DeleteTx removes one attendance row.
func (r *AttendanceRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM attendances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAttendanceNotFound
	}
	return nil
}
