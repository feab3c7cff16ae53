package repository

import (
	"context"
	"database/sql"

	"github.com/avelys/studio-scheduler/internal/model"
)

// MembershipRepo provides the session-ledger side of memberships: the
// candidate selection used by reconciliation and check-in, and the
// balance mutations that keep the active flag derived purely from the
// post-debit balance.  Every mutation reads the balance it depends on
// inside the same transaction, under a row lock.
type MembershipRepo struct {
	db *sql.DB
}

// NewMembershipRepo returns a MembershipRepo bound to the given database.
func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

// MembershipBalance is the locked view of a membership used for ledger
// mutations.  A nil Remaining means unlimited.
type MembershipBalance struct {
	ID        uint64
	Remaining *int
	IsActive  bool
}

// SelectEligibleForUpdateTx picks the one membership to debit for a
// customer attending a class.  Candidates are the customer's active
// memberships with a null (unlimited) or positive balance.  The
// tie-break, in order: a type name exactly matching the class title,
// then the most recently created, then the highest id.  The chosen row
// is locked for the duration of the transaction.  A nil result with nil
// error means the customer has no eligible membership.
func (r *MembershipRepo) SelectEligibleForUpdateTx(ctx context.Context, tx *sql.Tx, customerID uint64, classTitle string) (*MembershipBalance, error) {
	const q = `SELECT id, remaining_sessions, is_active FROM memberships WHERE customer_id = ? AND is_active = 1 AND (remaining_sessions IS NULL OR remaining_sessions > 0) ORDER BY (type_name = ?) DESC, created_at DESC, id DESC LIMIT 1 FOR UPDATE`
	var b MembershipBalance
	var remaining sql.NullInt64
	err := tx.QueryRowContext(ctx, q, customerID, classTitle).Scan(&b.ID, &remaining, &b.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if remaining.Valid {
		n := int(remaining.Int64)
		b.Remaining = &n
	}
	return &b, nil
}

// GetForUpdateTx loads and locks one membership row by id.  A nil
// result with nil error means the membership no longer exists.
func (r *MembershipRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*MembershipBalance, error) {
	const q = `SELECT id, remaining_sessions, is_active FROM memberships WHERE id = ? FOR UPDATE`
	var b MembershipBalance
	var remaining sql.NullInt64
	err := tx.QueryRowContext(ctx, q, id).Scan(&b.ID, &remaining, &b.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if remaining.Valid {
		n := int(remaining.Int64)
		b.Remaining = &n
	}
	return &b, nil
}

// ListByCustomer returns all memberships of a customer, newest first.
func (r *MembershipRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Membership, error) {
	const q = `SELECT id, customer_id, type_name, remaining_sessions, is_active, ends_on, created_at, updated_at FROM memberships WHERE customer_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	memberships := make([]model.Membership, 0)
	for rows.Next() {
		var m model.Membership
		var remaining sql.NullInt64
		var endsOn sql.NullTime
		if err := rows.Scan(&m.ID, &m.CustomerID, &m.TypeName, &remaining, &m.IsActive, &endsOn, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		if remaining.Valid {
			n := int(remaining.Int64)
			m.RemainingSessions = &n
		}
		if endsOn.Valid {
			d := endsOn.Time
			m.EndsOn = &d
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// SetBalanceTx writes a new balance and active flag computed by the
// ledger from a locked read.  It is never called for unlimited
// memberships.
func (r *MembershipRepo) SetBalanceTx(ctx context.Context, tx *sql.Tx, id uint64, remaining int, active bool) error {
	const q = `UPDATE memberships SET remaining_sessions = ?, is_active = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, remaining, active, id)
	return err
}
