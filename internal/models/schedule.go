package models

import "time"

// EveryDay is the day selector for schedules that recur daily. Specific
// weekdays are numbered Monday=0 through Sunday=6.
const EveryDay = -1

// DefaultIntervalMinutes is the spacing between same-day dose slots when a
// schedule does not specify one.
const DefaultIntervalMinutes = 240

// Schedule is a single recurrence rule of a medicine: at which time of day
// doses are due, on which days, and how many slots per day.
type Schedule struct {
	ScheduleID      int       `json:"schedule_id"`
	MedicineID      int       `json:"medicine_id"`
	Hour            int       `json:"hour"`
	Minute          int       `json:"minute"`
	DaySelector     int       `json:"day_selector"` // EveryDay or Monday=0..Sunday=6
	TimesPerDay     int       `json:"times_per_day"`
	IntervalMinutes int       `json:"interval_minutes"` // spacing between daily slots
	CreatedAt       time.Time `json:"created_at"`
}

// Slots returns the effective number of daily dose slots.
func (s *Schedule) Slots() int {
	if s.TimesPerDay < 1 {
		return 1
	}
	return s.TimesPerDay
}

// Interval returns the effective spacing between daily slots in minutes.
func (s *Schedule) Interval() int {
	if s.IntervalMinutes <= 0 {
		return DefaultIntervalMinutes
	}
	return s.IntervalMinutes
}
