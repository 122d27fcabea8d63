package models

import (
	"time"

	"github.com/google/uuid"
)

// Sync log statuses.
const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// SyncLog records the outcome of one mirror delivery (calendar, sheet,
// webhook or similar external copy of local state).
type SyncLog struct {
	SyncLogID uuid.UUID `json:"sync_log_id"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
