package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelys/studio-scheduler/internal/repository"
)

const (
	lockOccurrenceByIDQuery   = `SELECT id, series_id, title, instructor, class_date, starts_at_time, ends_at_time, max_capacity, is_open, is_excluded, excluded_reason, created_at, updated_at FROM classes WHERE id = ? AND series_id = ? FOR UPDATE`
	lockOccurrenceByDateQuery = `SELECT id, series_id, title, instructor, class_date, starts_at_time, ends_at_time, max_capacity, is_open, is_excluded, excluded_reason, created_at, updated_at FROM classes WHERE series_id = ? AND class_date = ? FOR UPDATE`
	excludeStmt               = `UPDATE classes SET is_excluded = 1, is_open = 0, excluded_reason = ? WHERE id = ?`
	updateReasonStmt          = `UPDATE classes SET excluded_reason = ? WHERE id = ? AND is_excluded = 1`
)

// occurrenceRow builds a class row that belongs to a series.
func occurrenceRow(id, seriesID uint64, open, excluded bool, reason *string) *sqlmock.Rows {
	now := time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC)
	var r any
	if reason != nil {
		r = *reason
	}
	return sqlmock.NewRows(classCols).AddRow(
		id, seriesID, "Yin Yoga", "Mara", now, "08:30:00", "09:30:00",
		12, open, excluded, r, now, now,
	)
}

func newTestExcluder(db *sql.DB) *Excluder {
	return NewExcluder(db, repository.NewClassRepo(db))
}

func TestExcludeByClassID(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOccurrenceByIDQuery)).
		WithArgs(7, 3).
		WillReturnRows(occurrenceRow(7, 3, true, false, nil))
	mock.ExpectExec(regexp.QuoteMeta(excludeStmt)).
		WithArgs("instructor ill", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	class, err := newTestExcluder(db).Exclude(context.Background(), 3, OccurrenceRef{ClassID: 7}, "instructor ill")
	require.NoError(t, err)
	assert.True(t, class.IsExcluded)
	assert.False(t, class.IsOpen)
	require.NotNil(t, class.ExcludedReason)
	assert.Equal(t, "instructor ill", *class.ExcludedReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExcludeByDate(t *testing.T) {
	db, mock := newMockDB(t)
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOccurrenceByDateQuery)).
		WithArgs(3, "2026-09-14").
		WillReturnRows(occurrenceRow(7, 3, true, false, nil))
	mock.ExpectExec(regexp.QuoteMeta(excludeStmt)).
		WithArgs("studio maintenance", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	class, err := newTestExcluder(db).Exclude(context.Background(), 3, OccurrenceRef{Date: &date}, "studio maintenance")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), class.ID)
	assert.True(t, class.IsExcluded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExcludeAlreadyExcluded(t *testing.T) {
	db, mock := newMockDB(t)
	reason := "holiday"

	// No reason supplied: the conflict is reported without any write.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOccurrenceByIDQuery)).
		WithArgs(7, 3).
		WillReturnRows(occurrenceRow(7, 3, false, true, &reason))
	mock.ExpectRollback()

	_, err := newTestExcluder(db).Exclude(context.Background(), 3, OccurrenceRef{ClassID: 7}, "")
	assert.ErrorIs(t, err, repository.ErrAlreadyExcluded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExcludeAlreadyExcludedUpdatesReason(t *testing.T) {
	db, mock := newMockDB(t)
	prior := "holiday"

	// A repeat exclusion with a non-empty reason records the new reason
	// before reporting the conflict.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOccurrenceByIDQuery)).
		WithArgs(7, 3).
		WillReturnRows(occurrenceRow(7, 3, false, true, &prior))
	mock.ExpectExec(regexp.QuoteMeta(updateReasonStmt)).
		WithArgs("heating failure", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := newTestExcluder(db).Exclude(context.Background(), 3, OccurrenceRef{ClassID: 7}, "heating failure")
	assert.ErrorIs(t, err, repository.ErrAlreadyExcluded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExcludeWrongSeries(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOccurrenceByIDQuery)).
		WithArgs(7, 99).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := newTestExcluder(db).Exclude(context.Background(), 99, OccurrenceRef{ClassID: 7}, "")
	assert.ErrorIs(t, err, repository.ErrClassNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExcludeEmptyReasonKeepsExisting(t *testing.T) {
	db, mock := newMockDB(t)
	prior := "rescheduled"

	// An empty reason must not erase a previously recorded one.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOccurrenceByIDQuery)).
		WithArgs(7, 3).
		WillReturnRows(occurrenceRow(7, 3, true, false, &prior))
	mock.ExpectExec(regexp.QuoteMeta(excludeStmt)).
		WithArgs(prior, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	class, err := newTestExcluder(db).Exclude(context.Background(), 3, OccurrenceRef{ClassID: 7}, "")
	require.NoError(t, err)
	require.NotNil(t, class.ExcludedReason)
	assert.Equal(t, prior, *class.ExcludedReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExcludeMissingReference(t *testing.T) {
	db, _ := newMockDB(t)

	_, err := newTestExcluder(db).Exclude(context.Background(), 3, OccurrenceRef{}, "reason")
	assert.Error(t, err)
}
