package models

import "time"

// StreakDay tracks intake progress for a single calendar date. Day is the
// date at midnight; Due and Taken count reminder instances scheduled for
// that date.
type StreakDay struct {
	Day       time.Time `json:"day"`
	Due       int       `json:"due"`
	Taken     int       `json:"taken"`
	Completed bool      `json:"completed"` // taken == due with due > 0
}

// AdherenceStats is the persisted streak rollup plus the windowed adherence
// rate. Rate is a percentage in [0, 100]; it is 0.0 when nothing was due in
// the window.
type AdherenceStats struct {
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	AdherenceRate float64 `json:"adherence_rate"`
}
