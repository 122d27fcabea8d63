package repository

import (
	"context"

	"github.com/pilltick/pilltick/internal/database"
	"github.com/pilltick/pilltick/internal/models"
)

type StreakRepository struct {
	db *database.DB
}

func NewStreakRepository(db *database.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// RecentDays returns streak-day records newest first, up to limit rows.
func (r *StreakRepository) RecentDays(ctx context.Context, limit int) ([]*models.StreakDay, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT day, due, taken, completed
		 FROM streak_days
		 ORDER BY day DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []*models.StreakDay
	for rows.Next() {
		d := &models.StreakDay{}
		if err := rows.Scan(&d.Day, &d.Due, &d.Taken, &d.Completed); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// Rollup reads the persisted current/longest streak counters.
func (r *StreakRepository) Rollup(ctx context.Context) (current, longest int, err error) {
	err = r.db.Pool.QueryRow(ctx,
		`SELECT current_streak, longest_streak FROM adherence WHERE id = 1`,
	).Scan(&current, &longest)
	return current, longest, err
}

// SaveRollup persists the streak counters. Longest never decreases.
func (r *StreakRepository) SaveRollup(ctx context.Context, current, longest int) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE adherence
		 SET current_streak = $1, longest_streak = GREATEST(longest_streak, $2), updated_at = CURRENT_TIMESTAMP
		 WHERE id = 1`,
		current, longest,
	)
	return err
}
