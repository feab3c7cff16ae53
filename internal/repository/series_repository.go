package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/avelys/studio-scheduler/internal/model"
)

// SeriesRepo provides persistence for class series, the recurrence
// templates that concrete occurrences are generated from.
type SeriesRepo struct {
	db *sql.DB
}

// NewSeriesRepo returns a SeriesRepo bound to the given database.
func NewSeriesRepo(db *sql.DB) *SeriesRepo { return &SeriesRepo{db: db} }

// CreateTx inserts a series row within an existing transaction and
// populates the generated ID on the passed model.  The weekday set is
// stored as a comma-separated string ("0,2,4").
func (r *SeriesRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.ClassSeries) error {
	const q = `INSERT INTO class_series (title, instructor, starts_at_time, ends_at_time, max_capacity, default_open, recurrence_start, recurrence_end, weekdays) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		s.Title, s.Instructor, s.StartsAtTime, s.EndsAtTime, s.MaxCapacity, s.DefaultOpen,
		s.RecurrenceStart.Format("2006-01-02"), s.RecurrenceEnd.Format("2006-01-02"),
		encodeWeekdays(s.Weekdays),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID loads a single series.  ErrSeriesNotFound is returned when no
// row matches.
func (r *SeriesRepo) GetByID(ctx context.Context, id uint64) (*model.ClassSeries, error) {
	const q = `SELECT id, title, instructor, starts_at_time, ends_at_time, max_capacity, default_open, recurrence_start, recurrence_end, weekdays, created_at, updated_at FROM class_series WHERE id = ?`
	var s model.ClassSeries
	var weekdays string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Title, &s.Instructor, &s.StartsAtTime, &s.EndsAtTime, &s.MaxCapacity, &s.DefaultOpen,
		&s.RecurrenceStart, &s.RecurrenceEnd, &weekdays, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSeriesNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Weekdays = decodeWeekdays(weekdays)
	return &s, nil
}

// ExistsTx reports whether a series row exists, inside a transaction.
func (r *SeriesRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM class_series WHERE id = ?)`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func encodeWeekdays(wds []int) string {
	parts := make([]string, 0, len(wds))
	for _, wd := range wds {
		parts = append(parts, strconv.Itoa(wd))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	wds := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			wds = append(wds, n)
		}
	}
	return wds
}
