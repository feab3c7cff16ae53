package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/avelys/studio-scheduler/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key
// violation.
const mysqlDuplicateEntry = 1062

// RegistrationRepo provides persistence for class registrations.  The
// registrations table carries a unique key on (class_id, customer_id);
// the repository converts violations of that key into
// ErrAlreadyRegistered so concurrent duplicate inserts surface as a
// conflict rather than a second success.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// CountByClassTx counts the registrations of a class inside a
// transaction.  The capacity check reads this count while the class row
// is locked, so the count cannot move under the caller.
func (r *RegistrationRepo) CountByClassTx(ctx context.Context, tx *sql.Tx, classID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM registrations WHERE class_id = ?`
	var n int
	if err := tx.QueryRowContext(ctx, q, classID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateTx inserts a RESERVED registration and populates the generated
// ID.  A unique key violation on (class_id, customer_id) is returned as
// ErrAlreadyRegistered.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, reg *model.ClassRegistration) error {
	const q = `INSERT INTO registrations (class_id, customer_id, status, comment) VALUES (?, ?, ?, ?)`
	var comment any
	if reg.Comment != nil {
		comment = *reg.Comment
	}
	result, err := tx.ExecContext(ctx, q, reg.ClassID, reg.CustomerID, model.StatusReserved, comment)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrAlreadyRegistered
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	reg.Status = model.StatusReserved
	return nil
}

// DeleteReservedTx removes a customer's registration for a class.  Only
// still-RESERVED registrations may be cancelled; anything else reports
// ErrRegistrationNotFound.
func (r *RegistrationRepo) DeleteReservedTx(ctx context.Context, tx *sql.Tx, classID, customerID uint64) error {
	const q = `DELETE FROM registrations WHERE class_id = ? AND customer_id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, q, classID, customerID, model.StatusReserved)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// EligibleRegistration is one row of the reconciliation worker's
// eligible set: a still-reserved registration whose class is open and
// whose grace period has elapsed.
type EligibleRegistration struct {
	ID         uint64
	ClassID    uint64
	CustomerID uint64
	ClassTitle string
}

// EligibleForReconciliationTx selects the registrations eligible for
// reconciliation and locks them with lock-skip semantics: rows already
// locked by another in-flight pass are skipped rather than waited on,
// so concurrent passes partition work instead of double-processing.
func (r *RegistrationRepo) EligibleForReconciliationTx(ctx context.Context, tx *sql.Tx, graceMinutes int) ([]EligibleRegistration, error) {
	const q = `SELECT r.id, r.class_id, r.customer_id, c.title FROM registrations r JOIN classes c ON c.id = r.class_id WHERE c.is_open = 1 AND r.status = ? AND TIMESTAMP(c.class_date, c.starts_at_time) + INTERVAL ? MINUTE <= UTC_TIMESTAMP() FOR UPDATE OF r SKIP LOCKED`
	rows, err := tx.QueryContext(ctx, q, model.StatusReserved, graceMinutes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var eligible []EligibleRegistration
	for rows.Next() {
		var e EligibleRegistration
		if err := rows.Scan(&e.ID, &e.ClassID, &e.CustomerID, &e.ClassTitle); err != nil {
			return nil, err
		}
		eligible = append(eligible, e)
	}
	return eligible, rows.Err()
}

// MarkAttendedTx flips the given registrations from RESERVED to
// ATTENDED.  Passing an empty slice has no effect and returns nil.
func (r *RegistrationRepo) MarkAttendedTx(ctx context.Context, tx *sql.Tx, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE registrations SET status = ? WHERE status = ? AND id IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
	args := make([]any, 0, len(ids)+2)
	args = append(args, model.StatusAttended, model.StatusReserved)
	for _, id := range ids {
		args = append(args, id)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkAttendedByClassCustomerTx flips one (class, customer)
// registration to ATTENDED if it is still reserved.  Used by direct
// check-in, where a missing registration is not an error (walk-ins).
func (r *RegistrationRepo) MarkAttendedByClassCustomerTx(ctx context.Context, tx *sql.Tx, classID, customerID uint64) error {
	const q = `UPDATE registrations SET status = ? WHERE class_id = ? AND customer_id = ? AND status = ?`
	_, err := tx.ExecContext(ctx, q, model.StatusAttended, classID, customerID, model.StatusReserved)
	return err
}

// RevertToReservedTx flips an ATTENDED registration back to RESERVED.
// Used when an attendance record is deleted.
func (r *RegistrationRepo) RevertToReservedTx(ctx context.Context, tx *sql.Tx, classID, customerID uint64) error {
	const q = `UPDATE registrations SET status = ? WHERE class_id = ? AND customer_id = ? AND status = ?`
	_, err := tx.ExecContext(ctx, q, model.StatusReserved, classID, customerID, model.StatusAttended)
	return err
}

// ListByClass returns the roster of a class ordered by registration
// time.
func (r *RegistrationRepo) ListByClass(ctx context.Context, classID uint64) ([]model.ClassRegistration, error) {
	const q = `SELECT id, class_id, customer_id, status, comment, created_at, updated_at FROM registrations WHERE class_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	regs := make([]model.ClassRegistration, 0)
	for rows.Next() {
		var reg model.ClassRegistration
		var comment sql.NullString
		if err := rows.Scan(&reg.ID, &reg.ClassID, &reg.CustomerID, &reg.Status, &comment, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		if comment.Valid {
			cm := comment.String
			reg.Comment = &cm
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
