package worker

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelys/studio-scheduler/internal/model"
	"github.com/avelys/studio-scheduler/internal/repository"
)

const (
	eligibleQuery         = `SELECT r.id, r.class_id, r.customer_id, c.title FROM registrations r JOIN classes c ON c.id = r.class_id WHERE c.is_open = 1 AND r.status = ? AND TIMESTAMP(c.class_date, c.starts_at_time) + INTERVAL ? MINUTE <= UTC_TIMESTAMP() FOR UPDATE OF r SKIP LOCKED`
	attendanceExistsQuery = `SELECT EXISTS(SELECT 1 FROM attendances WHERE class_id = ? AND customer_id = ?)`
	selectMembershipQuery = `SELECT id, remaining_sessions, is_active FROM memberships WHERE customer_id = ? AND is_active = 1 AND (remaining_sessions IS NULL OR remaining_sessions > 0) ORDER BY (type_name = ?) DESC, created_at DESC, id DESC LIMIT 1 FOR UPDATE`
	insertAttendanceStmt  = `INSERT INTO attendances (customer_id, membership_id, class_id, class_label, attended_at) VALUES (?, ?, ?, ?, UTC_TIMESTAMP())`
	setBalanceStmt        = `UPDATE memberships SET remaining_sessions = ?, is_active = ? WHERE id = ?`
	closeElapsedStmt      = `UPDATE classes SET is_open = 0 WHERE is_open = 1 AND TIMESTAMP(class_date, starts_at_time) + INTERVAL ? MINUTE <= UTC_TIMESTAMP()`
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := NewStore(db,
		repository.NewClassRepo(db),
		repository.NewRegistrationRepo(db),
		repository.NewMembershipRepo(db),
		repository.NewAttendanceRepo(db),
	)
	return store, mock
}

func eligibleRows(rows ...[4]any) *sqlmock.Rows {
	r := sqlmock.NewRows([]string{"id", "class_id", "customer_id", "title"})
	for _, row := range rows {
		r.AddRow(row[0], row[1], row[2], row[3])
	}
	return r
}

func existsRow(v bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(v)
}

func balanceRow(id uint64, remaining any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "remaining_sessions", "is_active"}).AddRow(id, remaining, true)
}

func TestRunPassConvertsAndSkips(t *testing.T) {
	store, mock := newMockStore(t)

	// Two eligible rows: customer 42 holds a 2-session membership,
	// customer 77 holds none and stays reserved for the next pass.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(eligibleQuery)).
		WithArgs(model.StatusReserved, 15).
		WillReturnRows(eligibleRows(
			[4]any{101, 9, 42, "Hatha Basics"},
			[4]any{102, 9, 77, "Hatha Basics"},
		))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 42).WillReturnRows(existsRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(selectMembershipQuery)).
		WithArgs(42, "Hatha Basics").WillReturnRows(balanceRow(5, 2))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 42).WillReturnRows(existsRow(false))
	mock.ExpectExec(regexp.QuoteMeta(insertAttendanceStmt)).
		WithArgs(42, 5, 9, "Hatha Basics").
		WillReturnResult(sqlmock.NewResult(201, 1))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 77).WillReturnRows(existsRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(selectMembershipQuery)).
		WithArgs(77, "Hatha Basics").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE registrations SET status = ? WHERE status = ? AND id IN (?)`)).
		WithArgs(model.StatusAttended, model.StatusReserved, 101).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(setBalanceStmt)).
		WithArgs(1, true, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(closeElapsedStmt)).
		WithArgs(15).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	sum, err := store.RunPass(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Eligible)
	assert.Equal(t, 2, sum.NoAttendance)
	assert.Equal(t, 1, sum.Selected)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 1, sum.RegistrationsUpdated)
	assert.Equal(t, 1, sum.MembershipsUpdated)
	assert.Equal(t, 2, sum.ClassesClosed)
	assert.Equal(t, 1, sum.SkippedNoMembership)
	assert.Equal(t, 1, sum.Skipped())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunPassSecondRunIsIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	// The eligible row already has an attendance record: nothing to do.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(eligibleQuery)).
		WithArgs(model.StatusReserved, 15).
		WillReturnRows(eligibleRows([4]any{101, 9, 42, "Hatha Basics"}))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 42).WillReturnRows(existsRow(true))
	mock.ExpectExec(regexp.QuoteMeta(closeElapsedStmt)).
		WithArgs(15).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	sum, err := store.RunPass(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Eligible)
	assert.Equal(t, 0, sum.NoAttendance)
	assert.Equal(t, 0, sum.Inserted)
	assert.Equal(t, 0, sum.MembershipsUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunPassAggregatesMembershipUses(t *testing.T) {
	store, mock := newMockStore(t)

	// Customer 42 reconciles against two classes with the same
	// membership: one debit of two sessions, reaching zero, deactivates.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(eligibleQuery)).
		WithArgs(model.StatusReserved, 15).
		WillReturnRows(eligibleRows(
			[4]any{101, 9, 42, "Hatha Basics"},
			[4]any{103, 10, 42, "Hatha Basics"},
		))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 42).WillReturnRows(existsRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(selectMembershipQuery)).
		WithArgs(42, "Hatha Basics").WillReturnRows(balanceRow(5, 2))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 42).WillReturnRows(existsRow(false))
	mock.ExpectExec(regexp.QuoteMeta(insertAttendanceStmt)).
		WithArgs(42, 5, 9, "Hatha Basics").
		WillReturnResult(sqlmock.NewResult(201, 1))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(10, 42).WillReturnRows(existsRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(selectMembershipQuery)).
		WithArgs(42, "Hatha Basics").WillReturnRows(balanceRow(5, 2))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(10, 42).WillReturnRows(existsRow(false))
	mock.ExpectExec(regexp.QuoteMeta(insertAttendanceStmt)).
		WithArgs(42, 5, 10, "Hatha Basics").
		WillReturnResult(sqlmock.NewResult(202, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE registrations SET status = ? WHERE status = ? AND id IN (?,?)`)).
		WithArgs(model.StatusAttended, model.StatusReserved, 101, 103).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(setBalanceStmt)).
		WithArgs(0, false, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(closeElapsedStmt)).
		WithArgs(15).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	sum, err := store.RunPass(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Inserted)
	assert.Equal(t, 2, sum.RegistrationsUpdated)
	assert.Equal(t, 1, sum.MembershipsUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunPassUnlimitedMembershipNeverDebited(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(eligibleQuery)).
		WithArgs(model.StatusReserved, 15).
		WillReturnRows(eligibleRows([4]any{101, 9, 42, "Hatha Basics"}))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 42).WillReturnRows(existsRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(selectMembershipQuery)).
		WithArgs(42, "Hatha Basics").WillReturnRows(balanceRow(6, nil))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 42).WillReturnRows(existsRow(false))
	mock.ExpectExec(regexp.QuoteMeta(insertAttendanceStmt)).
		WithArgs(42, 6, 9, "Hatha Basics").
		WillReturnResult(sqlmock.NewResult(201, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE registrations SET status = ? WHERE status = ? AND id IN (?)`)).
		WithArgs(model.StatusAttended, model.StatusReserved, 101).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(closeElapsedStmt)).
		WithArgs(15).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sum, err := store.RunPass(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 0, sum.MembershipsUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunPassEmptyEligibleSet(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(eligibleQuery)).
		WithArgs(model.StatusReserved, 15).
		WillReturnRows(eligibleRows())
	mock.ExpectExec(regexp.QuoteMeta(closeElapsedStmt)).
		WithArgs(15).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	sum, err := store.RunPass(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, PassSummary{}, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunPassErrorRollsBackEverything(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("lock wait timeout")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(eligibleQuery)).
		WithArgs(model.StatusReserved, 15).
		WillReturnRows(eligibleRows([4]any{101, 9, 42, "Hatha Basics"}))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 42).WillReturnRows(existsRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(selectMembershipQuery)).
		WithArgs(42, "Hatha Basics").WillReturnRows(balanceRow(5, 2))
	mock.ExpectQuery(regexp.QuoteMeta(attendanceExistsQuery)).
		WithArgs(9, 42).WillReturnRows(existsRow(false))
	mock.ExpectExec(regexp.QuoteMeta(insertAttendanceStmt)).
		WithArgs(42, 5, 9, "Hatha Basics").
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := store.RunPass(context.Background(), 15)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
