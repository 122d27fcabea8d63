package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/pilltick/pilltick/internal/models"
)

// MarkTaken records an intake against the medicine's earliest pending
// reminder and refreshes the streak rollup for at's calendar date.
//
// models.ErrMedicineNotFound is fatal and leaves no writes behind.
// models.ErrNoPendingReminder is a reportable no-op: nothing is recorded,
// and the caller decides whether to log an ad-hoc dose instead (see
// RecordAdHocDose).
func (s *Service) MarkTaken(ctx context.Context, medicineID int, at time.Time) (*models.Reminder, error) {
	if at.IsZero() {
		at = s.clock.Now()
	}

	rem, day, err := s.reminders.TakeEarliest(ctx, medicineID, at)
	if err != nil {
		if errors.Is(err, models.ErrNoPendingReminder) {
			s.log.Debug().Int("medicine_id", medicineID).Msg("mark taken with no pending reminder")
		}
		return nil, err
	}

	if err := s.updateStreakRollup(ctx, day); err != nil {
		// The intake itself is committed; a rollup failure is surfaced so
		// the caller can retry stats, but it does not undo the intake.
		s.log.Error().Err(err).Msg("failed to update streak rollup")
		return rem, err
	}

	s.log.Info().
		Int("medicine_id", medicineID).
		Time("scheduled_at", rem.ScheduledAt).
		Msg("intake recorded")

	if s.mirrors != nil {
		s.mirrors.IntakeRecorded(medicineID, at)
	}
	return rem, nil
}

// RecordAdHocDose decrements a finite dose counter without consuming a
// reminder. It never touches streak or adherence data: doses that were
// never scheduled must not inflate adherence.
func (s *Service) RecordAdHocDose(ctx context.Context, medicineID int) error {
	if err := s.medicines.DecrementDoses(ctx, medicineID); err != nil {
		return err
	}
	s.log.Info().Int("medicine_id", medicineID).Msg("ad-hoc dose recorded")
	if s.mirrors != nil {
		s.mirrors.IntakeRecorded(medicineID, s.clock.Now())
	}
	return nil
}
