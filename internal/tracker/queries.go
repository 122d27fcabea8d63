package tracker

import (
	"context"
	"time"

	"github.com/pilltick/pilltick/internal/models"
)

// DueAt returns pending reminders inside the one-minute bucket containing
// the instant. This is what the scheduler polls.
func (s *Service) DueAt(ctx context.Context, instant time.Time) ([]*models.DueReminder, error) {
	return s.reminders.DueAt(ctx, instant)
}

// DueBetween returns pending reminders in [start, end], soonest first.
func (s *Service) DueBetween(ctx context.Context, start, end time.Time) ([]*models.DueReminder, error) {
	return s.reminders.DueBetween(ctx, start, end)
}

// DueToday returns pending reminders for the current calendar day.
func (s *Service) DueToday(ctx context.Context) ([]*models.DueReminder, error) {
	now := s.clock.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.reminders.DueBetween(ctx, start, start.AddDate(0, 0, 1).Add(-time.Second))
}

// MonthSchedule returns a month's reminders, taken or not, grouped by
// YYYY-MM-DD date for calendar rendering.
func (s *Service) MonthSchedule(ctx context.Context, year int, month time.Month) (map[string][]*models.DueReminder, error) {
	return s.reminders.CalendarMonth(ctx, year, month)
}

// Expiring returns medicines whose expiry date falls within the next
// withinDays days, soonest first.
func (s *Service) Expiring(ctx context.Context, withinDays int) ([]*models.Medicine, error) {
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.medicines.ExpiringBetween(ctx, today, today.AddDate(0, 0, withinDays))
}

// Medicine returns one medicine by id.
func (s *Service) Medicine(ctx context.Context, medicineID int) (*models.Medicine, error) {
	return s.medicines.GetByID(ctx, medicineID)
}

// MedicineByBarcode looks a medicine up by its scanned barcode.
func (s *Service) MedicineByBarcode(ctx context.Context, barcode string) (*models.Medicine, error) {
	return s.medicines.GetByBarcode(ctx, barcode)
}

// Medicines lists all medicines ordered by name.
func (s *Service) Medicines(ctx context.Context) ([]*models.Medicine, error) {
	return s.medicines.List(ctx)
}

// Schedules lists a medicine's recurrence rules.
func (s *Service) Schedules(ctx context.Context, medicineID int) ([]*models.Schedule, error) {
	return s.schedules.ListByMedicine(ctx, medicineID)
}
