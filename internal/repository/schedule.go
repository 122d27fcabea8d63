package repository

import (
	"context"

	"github.com/pilltick/pilltick/internal/database"
	"github.com/pilltick/pilltick/internal/models"
)

type ScheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO schedules (medicine_id, hour, minute, day_selector, times_per_day, interval_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING schedule_id, created_at`,
		s.MedicineID, s.Hour, s.Minute, s.DaySelector, s.Slots(), s.Interval(),
	).Scan(&s.ScheduleID, &s.CreatedAt)
}

func (r *ScheduleRepository) ListByMedicine(ctx context.Context, medicineID int) ([]*models.Schedule, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT schedule_id, medicine_id, hour, minute, day_selector, times_per_day, interval_minutes, created_at
		 FROM schedules WHERE medicine_id = $1
		 ORDER BY hour, minute`,
		medicineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		s := &models.Schedule{}
		if err := rows.Scan(&s.ScheduleID, &s.MedicineID, &s.Hour, &s.Minute,
			&s.DaySelector, &s.TimesPerDay, &s.IntervalMinutes, &s.CreatedAt); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *ScheduleRepository) DeleteByMedicine(ctx context.Context, medicineID int) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM schedules WHERE medicine_id = $1`,
		medicineID,
	)
	return err
}
