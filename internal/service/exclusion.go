package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avelys/studio-scheduler/internal/model"
	"github.com/avelys/studio-scheduler/internal/repository"
)

// OccurrenceRef identifies one occurrence of a series, either by the
// concrete class id or by its calendar date.  Exactly one of the two
// fields must be set.
type OccurrenceRef struct {
	ClassID uint64
	Date    *time.Time
}

// Excluder withdraws single occurrences from their series without
// disturbing sibling occurrences or the series definition.
type Excluder struct {
	db      *sql.DB
	classes *repository.ClassRepo
}

// NewExcluder constructs an Excluder.  All dependencies must be non-nil.
func NewExcluder(db *sql.DB, classes *repository.ClassRepo) *Excluder {
	if db == nil || classes == nil {
		panic("nil dependency passed to NewExcluder")
	}
	return &Excluder{db: db, classes: classes}
}

// Exclude marks one occurrence of the series as withdrawn: excluded and
// closed.  A previously recorded reason is only overwritten when a
// non-empty one is supplied.  ErrClassNotFound is returned when no
// occurrence matches the series and reference; ErrAlreadyExcluded when
// the match was already withdrawn.  A repeat exclusion still records a
// newly supplied non-empty reason before reporting the conflict, so
// callers can correct the reason without reopening the occurrence.
// The updated occurrence is returned on success.
func (s *Excluder) Exclude(ctx context.Context, seriesID uint64, ref OccurrenceRef, reason string) (*model.YogaClass, error) {
	if ref.ClassID == 0 && ref.Date == nil {
		return nil, errors.New("occurrence reference requires a class id or a date")
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

	var class *model.YogaClass
	if ref.ClassID != 0 {
		class, err = s.classes.GetOccurrenceForUpdateTx(ctx, tx, seriesID, ref.ClassID)
	} else {
		class, err = s.classes.GetOccurrenceByDateForUpdateTx(ctx, tx, seriesID, *ref.Date)
	}
	if err != nil {
		return nil, err
	}
	if class.IsExcluded {
		if reason != "" {
			if err := s.classes.UpdateExcludedReasonTx(ctx, tx, class.ID, reason); err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, err
			}
			committed = true
		}
		return nil, repository.ErrAlreadyExcluded
	}

	newReason := class.ExcludedReason
	if reason != "" {
		newReason = &reason
	}
	if err := s.classes.ExcludeTx(ctx, tx, class.ID, newReason); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	class.IsExcluded = true
	class.IsOpen = false
	class.ExcludedReason = newReason
	return class, nil
}
