package models

import "time"

// LowStockThreshold is the doses-remaining count at which reminders start
// carrying a refill warning.
const LowStockThreshold = 3

type Medicine struct {
	MedicineID     int        `json:"medicine_id"`
	Barcode        *string    `json:"barcode"`
	Name           string     `json:"name"`
	Dosage         string     `json:"dosage"`
	Notes          string     `json:"notes"`
	ExpiryDate     *time.Time `json:"expiry_date"`     // calendar date, optional
	DosesRemaining *int       `json:"doses_remaining"` // nil = unlimited supply
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// LowStock returns true if the medicine has a finite supply that is
// running out.
func (m *Medicine) LowStock() bool {
	return m.DosesRemaining != nil && *m.DosesRemaining <= LowStockThreshold
}

// ExpiresWithin returns true if the medicine has an expiry date falling in
// [today, today+days].
func (m *Medicine) ExpiresWithin(today time.Time, days int) bool {
	if m.ExpiryDate == nil {
		return false
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	return !m.ExpiryDate.Before(day) && !m.ExpiryDate.After(day.AddDate(0, 0, days))
}
