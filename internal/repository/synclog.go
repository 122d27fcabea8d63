package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pilltick/pilltick/internal/database"
	"github.com/pilltick/pilltick/internal/models"
)

type SyncLogRepository struct {
	db *database.DB
}

func NewSyncLogRepository(db *database.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Record appends one mirror-delivery outcome.
func (r *SyncLogRepository) Record(ctx context.Context, operation, status, details string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO sync_logs (sync_log_id, operation, status, details)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New(), operation, status, details,
	)
	return err
}

// LastSuccess returns the timestamp of the most recent successful mirror
// delivery, or nil if none happened yet.
func (r *SyncLogRepository) LastSuccess(ctx context.Context) (*time.Time, error) {
	var ts time.Time
	err := r.db.Pool.QueryRow(ctx,
		`SELECT created_at FROM sync_logs
		 WHERE status = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		models.SyncStatusSuccess,
	).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
