// Package tracker is the reminder and adherence engine: it owns medicine
// lifecycle, reminder materialization, intake recording and streak math.
// Storage is consumed through small interfaces so the semantics are testable
// without a database; the pgx repositories satisfy them in production.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/pilltick/pilltick/internal/models"
	"github.com/pilltick/pilltick/internal/recurrence"
)

// ErrValidation marks synchronously rejected input; nothing is written when
// it is returned.
var ErrValidation = errors.New("validation failed")

// streakScanLimit bounds how many streak-day rows the backward walk loads.
// A streak longer than a year is recomputed correctly anyway because the
// longest counter is monotone.
const streakScanLimit = 366

type MedicineStore interface {
	Create(ctx context.Context, med *models.Medicine) error
	GetByID(ctx context.Context, medicineID int) (*models.Medicine, error)
	GetByBarcode(ctx context.Context, barcode string) (*models.Medicine, error)
	List(ctx context.Context) ([]*models.Medicine, error)
	Update(ctx context.Context, med *models.Medicine) error
	Delete(ctx context.Context, medicineID int) error
	DecrementDoses(ctx context.Context, medicineID int) error
	ExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Medicine, error)
}

type ScheduleStore interface {
	Create(ctx context.Context, s *models.Schedule) error
	ListByMedicine(ctx context.Context, medicineID int) ([]*models.Schedule, error)
	DeleteByMedicine(ctx context.Context, medicineID int) error
}

type ReminderStore interface {
	InsertBatch(ctx context.Context, reminders []*models.Reminder) (int, error)
	DeleteFutureUntaken(ctx context.Context, medicineID int, from time.Time) error
	TakeEarliest(ctx context.Context, medicineID int, at time.Time) (*models.Reminder, *models.StreakDay, error)
	DueAt(ctx context.Context, instant time.Time) ([]*models.DueReminder, error)
	DueBetween(ctx context.Context, start, end time.Time) ([]*models.DueReminder, error)
	CalendarMonth(ctx context.Context, year int, month time.Month) (map[string][]*models.DueReminder, error)
	CountWindow(ctx context.Context, start, end time.Time) (due, taken int, err error)
}

type StreakStore interface {
	RecentDays(ctx context.Context, limit int) ([]*models.StreakDay, error)
	Rollup(ctx context.Context) (current, longest int, err error)
	// SaveRollup persists the counters; the stored longest streak must
	// never decrease, whatever value is passed.
	SaveRollup(ctx context.Context, current, longest int) error
}

// Mirrors receives fire-and-forget change events for external copies of
// local state. Implementations must not block and must swallow their own
// failures.
type Mirrors interface {
	MedicineChanged(med *models.Medicine)
	IntakeRecorded(medicineID int, at time.Time)
}

type Service struct {
	medicines MedicineStore
	schedules ScheduleStore
	reminders ReminderStore
	streaks   StreakStore
	mirrors   Mirrors // may be nil
	clock     clockwork.Clock
	log       zerolog.Logger

	horizonDays         int
	adherenceWindowDays int
}

type Option func(*Service)

func WithMirrors(m Mirrors) Option {
	return func(s *Service) { s.mirrors = m }
}

func WithHorizonDays(days int) Option {
	return func(s *Service) { s.horizonDays = days }
}

func WithAdherenceWindowDays(days int) Option {
	return func(s *Service) { s.adherenceWindowDays = days }
}

func New(
	medicines MedicineStore,
	schedules ScheduleStore,
	reminders ReminderStore,
	streaks StreakStore,
	clock clockwork.Clock,
	log zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		medicines:           medicines,
		schedules:           schedules,
		reminders:           reminders,
		streaks:             streaks,
		clock:               clock,
		log:                 log.With().Str("component", "tracker").Logger(),
		horizonDays:         recurrence.DefaultHorizonDays,
		adherenceWindowDays: 30,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddMedicine validates and persists a medicine with its schedules, then
// materializes reminders over the rolling horizon.
func (s *Service) AddMedicine(ctx context.Context, med *models.Medicine, schedules []*models.Schedule) error {
	if err := validateMedicine(med); err != nil {
		return err
	}
	for _, sched := range schedules {
		if err := recurrence.Validate(sched); err != nil {
			return fmt.Errorf("%w: %s", ErrValidation, err)
		}
	}

	if err := s.medicines.Create(ctx, med); err != nil {
		return fmt.Errorf("failed to create medicine: %w", err)
	}
	for _, sched := range schedules {
		sched.MedicineID = med.MedicineID
		if err := s.schedules.Create(ctx, sched); err != nil {
			return fmt.Errorf("failed to create schedule: %w", err)
		}
	}

	if err := s.materialize(ctx, med.MedicineID, schedules); err != nil {
		return err
	}

	s.log.Info().Int("medicine_id", med.MedicineID).Str("name", med.Name).Msg("medicine added")
	s.notifyMedicineChanged(med)
	return nil
}

// UpdateMedicine updates a medicine's attributes and replaces its schedules.
// Future pending reminders are regenerated from now; past or taken reminder
// instances are immutable history and stay untouched.
func (s *Service) UpdateMedicine(ctx context.Context, med *models.Medicine, schedules []*models.Schedule) error {
	if err := validateMedicine(med); err != nil {
		return err
	}
	for _, sched := range schedules {
		if err := recurrence.Validate(sched); err != nil {
			return fmt.Errorf("%w: %s", ErrValidation, err)
		}
	}

	if err := s.medicines.Update(ctx, med); err != nil {
		return err
	}
	if err := s.schedules.DeleteByMedicine(ctx, med.MedicineID); err != nil {
		return fmt.Errorf("failed to replace schedules: %w", err)
	}
	for _, sched := range schedules {
		sched.MedicineID = med.MedicineID
		if err := s.schedules.Create(ctx, sched); err != nil {
			return fmt.Errorf("failed to create schedule: %w", err)
		}
	}

	now := s.clock.Now()
	if err := s.reminders.DeleteFutureUntaken(ctx, med.MedicineID, now); err != nil {
		return fmt.Errorf("failed to drop pending reminders: %w", err)
	}
	if err := s.materialize(ctx, med.MedicineID, schedules); err != nil {
		return err
	}

	s.log.Info().Int("medicine_id", med.MedicineID).Msg("medicine updated")
	s.notifyMedicineChanged(med)
	return nil
}

// DeleteMedicine removes a medicine; its schedules and reminders cascade.
func (s *Service) DeleteMedicine(ctx context.Context, medicineID int) error {
	if err := s.medicines.Delete(ctx, medicineID); err != nil {
		return err
	}
	s.log.Info().Int("medicine_id", medicineID).Msg("medicine deleted")
	return nil
}

// Rematerialize extends every medicine's reminder horizon from today. The
// batch insert skips existing instances, so running it daily is safe.
func (s *Service) Rematerialize(ctx context.Context) error {
	medicines, err := s.medicines.List(ctx)
	if err != nil {
		return err
	}
	for _, med := range medicines {
		schedules, err := s.schedules.ListByMedicine(ctx, med.MedicineID)
		if err != nil {
			return err
		}
		if err := s.materialize(ctx, med.MedicineID, schedules); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) materialize(ctx context.Context, medicineID int, schedules []*models.Schedule) error {
	anchor := s.clock.Now()
	var batch []*models.Reminder
	for _, sched := range schedules {
		times, err := recurrence.Materialize(sched, anchor, s.horizonDays)
		if err != nil {
			return err
		}
		for _, ts := range times {
			batch = append(batch, &models.Reminder{MedicineID: medicineID, ScheduledAt: ts})
		}
	}

	inserted, err := s.reminders.InsertBatch(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to materialize reminders: %w", err)
	}
	s.log.Debug().Int("medicine_id", medicineID).Int("inserted", inserted).Msg("materialized reminders")
	return nil
}

func (s *Service) notifyMedicineChanged(med *models.Medicine) {
	if s.mirrors != nil {
		s.mirrors.MedicineChanged(med)
	}
}

func validateMedicine(med *models.Medicine) error {
	if strings.TrimSpace(med.Name) == "" {
		return fmt.Errorf("%w: medicine name is required", ErrValidation)
	}
	if med.DosesRemaining != nil && *med.DosesRemaining < 0 {
		return fmt.Errorf("%w: doses remaining must not be negative", ErrValidation)
	}
	return nil
}
