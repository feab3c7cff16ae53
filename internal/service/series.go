package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avelys/studio-scheduler/internal/model"
	"github.com/avelys/studio-scheduler/internal/repository"
	"github.com/avelys/studio-scheduler/internal/schedule"
)

// ErrNoOccurrences is returned when a recurrence rule expands to an
// empty date list.  Persisting a series with nothing to schedule is a
// reportable caller error, not a silent no-op.
var ErrNoOccurrences = errors.New("no occurrences to create")

// Planner creates recurring series with their occurrences, ad-hoc
// classes, and handles admin class deletion.
type Planner struct {
	db      *sql.DB
	series  *repository.SeriesRepo
	classes *repository.ClassRepo
}

// NewPlanner constructs a Planner.  All dependencies must be non-nil.
func NewPlanner(db *sql.DB, series *repository.SeriesRepo, classes *repository.ClassRepo) *Planner {
	if db == nil || series == nil || classes == nil {
		panic("nil dependency passed to NewPlanner")
	}
	return &Planner{db: db, series: series, classes: classes}
}

// CreateSeries validates and expands the recurrence rule, then persists
// the series row and one class row per qualifying date in a single
// transaction.  The expansion runs before any write, so validation
// failures (inverted range, span over the maximum, no qualifying dates)
// never touch storage.  It returns the persisted series and the
// expanded dates.
func (s *Planner) CreateSeries(ctx context.Context, series *model.ClassSeries, excluded []time.Time) ([]time.Time, error) {
	dates, err := schedule.Expand(schedule.Rule{
		Start:    series.RecurrenceStart,
		End:      series.RecurrenceEnd,
		Weekdays: series.Weekdays,
		Excluded: excluded,
	})
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, ErrNoOccurrences
	}

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

	if err := s.series.CreateTx(ctx, tx, series); err != nil {
		return nil, err
	}
	if err := s.classes.CreateBulkTx(ctx, tx, series, dates); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return dates, nil
}

// CreateClass persists one ad-hoc class with no owning series.
func (s *Planner) CreateClass(ctx context.Context, class *model.YogaClass) error {
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

	if class.SeriesID != nil {
		exists, err := s.series.ExistsTx(ctx, tx, *class.SeriesID)
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrSeriesNotFound
		}
	}
	if err := s.classes.CreateTx(ctx, tx, class); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DeleteClass removes a class explicitly; the registration cascade is
// handled by the schema's foreign key.
func (s *Planner) DeleteClass(ctx context.Context, classID uint64) error {
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

	if err := s.classes.DeleteTx(ctx, tx, classID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
