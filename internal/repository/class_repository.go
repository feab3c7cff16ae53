package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avelys/studio-scheduler/internal/model"
)

// classColumns is the scan list shared by every query returning full
// class rows.
const classColumns = `id, series_id, title, instructor, class_date, starts_at_time, ends_at_time, max_capacity, is_open, is_excluded, excluded_reason, created_at, updated_at`

// ClassRepo provides persistence for concrete class occurrences.  All
// timestamp comparisons are performed in UTC; the grace period applied
// to a class's start instant is supplied by the caller in minutes.
type ClassRepo struct {
	db *sql.DB
}

// NewClassRepo returns a ClassRepo bound to the given database.
func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{db: db} }

func scanClass(row interface{ Scan(...any) error }) (*model.YogaClass, error) {
	var c model.YogaClass
	var seriesID sql.NullInt64
	var reason sql.NullString
	err := row.Scan(
		&c.ID, &seriesID, &c.Title, &c.Instructor, &c.Date, &c.StartsAtTime, &c.EndsAtTime,
		&c.MaxCapacity, &c.IsOpen, &c.IsExcluded, &reason, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if seriesID.Valid {
		sid := uint64(seriesID.Int64)
		c.SeriesID = &sid
	}
	if reason.Valid {
		rs := reason.String
		c.ExcludedReason = &rs
	}
	return &c, nil
}

// GetForUpdateTx loads a class row and locks it for the duration of the
// transaction.  Concurrent registration attempts against the same class
// serialize on this lock.  ErrClassNotFound is returned when no row
// matches.
func (r *ClassRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.YogaClass, error) {
	const q = `SELECT ` + classColumns + ` FROM classes WHERE id = ? FOR UPDATE`
	c, err := scanClass(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrClassNotFound
	}
	return c, err
}

// GetByID loads a class row without locking.
func (r *ClassRepo) GetByID(ctx context.Context, id uint64) (*model.YogaClass, error) {
	const q = `SELECT ` + classColumns + ` FROM classes WHERE id = ?`
	c, err := scanClass(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrClassNotFound
	}
	return c, err
}

// CreateTx inserts a single class row within an existing transaction and
// populates the generated ID.  Used for ad-hoc classes.
func (r *ClassRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *model.YogaClass) error {
	const q = `INSERT INTO classes (series_id, title, instructor, class_date, starts_at_time, ends_at_time, max_capacity, is_open) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var seriesID any
	if c.SeriesID != nil {
		seriesID = *c.SeriesID
	}
	result, err := tx.ExecContext(ctx, q,
		seriesID, c.Title, c.Instructor, c.Date.Format("2006-01-02"),
		c.StartsAtTime, c.EndsAtTime, c.MaxCapacity, c.IsOpen,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// CreateBulkTx inserts one class row per date in a single statement.
// Every row copies its title, instructor, time window and capacity from
// the series.  Passing an empty slice has no effect and returns nil.
func (r *ClassRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, s *model.ClassSeries, dates []time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	query := `INSERT INTO classes (series_id, title, instructor, class_date, starts_at_time, ends_at_time, max_capacity, is_open) VALUES `
	args := make([]any, 0, len(dates)*8)
	for i, d := range dates {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, s.ID, s.Title, s.Instructor, d.Format("2006-01-02"),
			s.StartsAtTime, s.EndsAtTime, s.MaxCapacity, s.DefaultOpen)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetOccurrenceForUpdateTx resolves one occurrence of a series by class
// id and locks it.  ErrClassNotFound is returned when the id does not
// belong to the series.
func (r *ClassRepo) GetOccurrenceForUpdateTx(ctx context.Context, tx *sql.Tx, seriesID, classID uint64) (*model.YogaClass, error) {
	const q = `SELECT ` + classColumns + ` FROM classes WHERE id = ? AND series_id = ? FOR UPDATE`
	c, err := scanClass(tx.QueryRowContext(ctx, q, classID, seriesID))
	if err == sql.ErrNoRows {
		return nil, ErrClassNotFound
	}
	return c, err
}

// GetOccurrenceByDateForUpdateTx resolves one occurrence of a series by
// calendar date and locks it.
func (r *ClassRepo) GetOccurrenceByDateForUpdateTx(ctx context.Context, tx *sql.Tx, seriesID uint64, date time.Time) (*model.YogaClass, error) {
	const q = `SELECT ` + classColumns + ` FROM classes WHERE series_id = ? AND class_date = ? FOR UPDATE`
	c, err := scanClass(tx.QueryRowContext(ctx, q, seriesID, date.Format("2006-01-02")))
	if err == sql.ErrNoRows {
		return nil, ErrClassNotFound
	}
	return c, err
}

// UpdateExcludedReasonTx rewrites the reason on an occurrence that is
// already withdrawn.  Repeat exclusions use this to record a corrected
// reason without touching the open flag.
func (r *ClassRepo) UpdateExcludedReasonTx(ctx context.Context, tx *sql.Tx, classID uint64, reason string) error {
	const q = `UPDATE classes SET excluded_reason = ? WHERE id = ? AND is_excluded = 1`
	_, err := tx.ExecContext(ctx, q, reason, classID)
	return err
}

// ExcludeTx marks a previously loaded occurrence as withdrawn: excluded,
// closed, with the given reason.  The caller must hold the row lock and
// have verified the occurrence is not already excluded.
func (r *ClassRepo) ExcludeTx(ctx context.Context, tx *sql.Tx, classID uint64, reason *string) error {
	const q = `UPDATE classes SET is_excluded = 1, is_open = 0, excluded_reason = ? WHERE id = ?`
	var val any
	if reason != nil {
		val = *reason
	}
	_, err := tx.ExecContext(ctx, q, val, classID)
	return err
}

// CloseElapsedTx closes every class that is still open and whose start
// instant plus the grace period has elapsed.  It runs even for classes
// with no registrations so classes always close on schedule.  The
// number of closed classes is returned.
func (r *ClassRepo) CloseElapsedTx(ctx context.Context, tx *sql.Tx, graceMinutes int) (int64, error) {
	const q = `UPDATE classes SET is_open = 0 WHERE is_open = 1 AND TIMESTAMP(class_date, starts_at_time) + INTERVAL ? MINUTE <= UTC_TIMESTAMP()`
	result, err := tx.ExecContext(ctx, q, graceMinutes)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteTx removes a class and, through the foreign key cascade, its
// registrations.  ErrClassNotFound is returned when no row matches.
func (r *ClassRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClassNotFound
	}
	return nil
}

// ListUpcoming returns classes on or after the given date, ascending by
// date and start time.  Excluded occurrences are filtered out.
func (r *ClassRepo) ListUpcoming(ctx context.Context, from time.Time) ([]model.YogaClass, error) {
	const q = `SELECT ` + classColumns + ` FROM classes WHERE class_date >= ? AND is_excluded = 0 ORDER BY class_date, starts_at_time, id`
	rows, err := r.db.QueryContext(ctx, q, from.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	classes := make([]model.YogaClass, 0)
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}
