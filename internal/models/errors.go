package models

import "errors"

// Core outcome errors. Not-found errors are fatal to the call that raised
// them; ErrNoPendingReminder is a reportable no-op condition the caller may
// recover from (for example by recording an ad-hoc dose instead).
var (
	ErrMedicineNotFound  = errors.New("medicine not found")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrNoPendingReminder = errors.New("no pending reminder")
)
