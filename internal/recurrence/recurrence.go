// Package recurrence validates dosing schedules and expands them into
// concrete reminder times over a rolling horizon.
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/pilltick/pilltick/internal/models"
)

// DefaultHorizonDays is how far ahead reminders are materialized.
const DefaultHorizonDays = 30

// ErrInvalidSchedule marks schedule validation failures. Bad schedules are
// rejected here, at creation time, never at materialization time.
var ErrInvalidSchedule = errors.New("invalid schedule")

// weekday maps the Monday=0..Sunday=6 day selector onto rrule weekdays.
var weekday = [...]rrule.Weekday{
	rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU,
}

// Validate checks a schedule's time-of-day, day selector and slot settings.
func Validate(s *models.Schedule) error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidSchedule, s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", ErrInvalidSchedule, s.Minute)
	}
	if s.DaySelector != models.EveryDay && (s.DaySelector < 0 || s.DaySelector > 6) {
		return fmt.Errorf("%w: day selector %d out of range", ErrInvalidSchedule, s.DaySelector)
	}
	if s.TimesPerDay < 0 {
		return fmt.Errorf("%w: times per day %d out of range", ErrInvalidSchedule, s.TimesPerDay)
	}
	if s.IntervalMinutes < 0 {
		return fmt.Errorf("%w: interval %d minutes out of range", ErrInvalidSchedule, s.IntervalMinutes)
	}
	return nil
}

// Materialize expands a schedule into concrete reminder times for
// horizonDays calendar days starting at anchor's date. Day selection is
// delegated to an RRULE (daily, or weekly on the selected weekday); each
// matching day then gets one time per daily slot, spaced by the schedule's
// interval and wrapped modulo 24h on the same date.
//
// The expansion is deterministic: the same schedule, anchor and horizon
// always produce the same times. De-duplication against already persisted
// reminders is the store's job.
func Materialize(s *models.Schedule, anchor time.Time, horizonDays int) ([]time.Time, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	if horizonDays < 1 {
		return nil, fmt.Errorf("%w: horizon %d days", ErrInvalidSchedule, horizonDays)
	}

	loc := anchor.Location()
	start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), s.Hour, s.Minute, 0, 0, loc)

	opt := rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		// Until is inclusive, so the last horizon day's occurrence counts.
		Until: start.AddDate(0, 0, horizonDays-1),
	}
	if s.DaySelector != models.EveryDay {
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{weekday[s.DaySelector]}
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}

	var times []time.Time
	for _, day := range rule.All() {
		base := day.Hour()*60 + day.Minute()
		for slot := 0; slot < s.Slots(); slot++ {
			m := (base + slot*s.Interval()) % (24 * 60)
			times = append(times, time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, loc))
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times, nil
}
