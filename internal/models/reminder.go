package models

import "time"

// Reminder is one concrete, dated occurrence of a dose being due.
type Reminder struct {
	ReminderID  int        `json:"reminder_id"`
	MedicineID  int        `json:"medicine_id"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Taken       bool       `json:"taken"`
	TakenAt     *time.Time `json:"taken_at"`
}

// DueReminder is a reminder joined with the medicine fields needed to build
// a notification or a schedule view.
type DueReminder struct {
	ReminderID     int       `json:"reminder_id"`
	MedicineID     int       `json:"medicine_id"`
	Name           string    `json:"name"`
	Dosage         string    `json:"dosage"`
	DosesRemaining *int      `json:"doses_remaining"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Taken          bool      `json:"taken"`
}

// LowStock mirrors Medicine.LowStock for the joined view.
func (r *DueReminder) LowStock() bool {
	return r.DosesRemaining != nil && *r.DosesRemaining <= LowStockThreshold
}
