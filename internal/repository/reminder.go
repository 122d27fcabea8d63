package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pilltick/pilltick/internal/database"
	"github.com/pilltick/pilltick/internal/models"
)

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// InsertBatch persists materialized reminders in one transaction.
// Already-existing (medicine, scheduled time) pairs are skipped, which makes
// re-materialization idempotent. Returns the number of rows actually added.
func (r *ReminderRepository) InsertBatch(ctx context.Context, reminders []*models.Reminder) (int, error) {
	if len(reminders) == 0 {
		return 0, nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, rem := range reminders {
		tag, err := tx.Exec(ctx,
			`INSERT INTO reminders (medicine_id, scheduled_at)
			 VALUES ($1, $2)
			 ON CONFLICT (medicine_id, scheduled_at) DO NOTHING`,
			rem.MedicineID, rem.ScheduledAt,
		)
		if err != nil {
			return 0, err
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return inserted, nil
}

// DeleteFutureUntaken removes a medicine's pending reminders scheduled at or
// after the given instant. Taken reminders and past ones are history and are
// never touched.
func (r *ReminderRepository) DeleteFutureUntaken(ctx context.Context, medicineID int, from time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders
		 WHERE medicine_id = $1 AND NOT taken AND scheduled_at >= $2`,
		medicineID, from,
	)
	return err
}

// TakeEarliest marks the medicine's earliest pending reminder as taken,
// decrements a finite dose counter (floored at zero) and refreshes the
// streak-day counters for at's calendar date, all in one transaction.
// Concurrent callers contend on the medicine row, so only one of two racing
// calls can consume the last pending reminder.
func (r *ReminderRepository) TakeEarliest(ctx context.Context, medicineID int, at time.Time) (*models.Reminder, *models.StreakDay, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var doses *int
	err = tx.QueryRow(ctx,
		`SELECT doses_remaining FROM medicines WHERE medicine_id = $1 FOR UPDATE`,
		medicineID,
	).Scan(&doses)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, models.ErrMedicineNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rem := &models.Reminder{MedicineID: medicineID}
	err = tx.QueryRow(ctx,
		`SELECT reminder_id, scheduled_at FROM reminders
		 WHERE medicine_id = $1 AND NOT taken
		 ORDER BY scheduled_at
		 LIMIT 1
		 FOR UPDATE`,
		medicineID,
	).Scan(&rem.ReminderID, &rem.ScheduledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, models.ErrNoPendingReminder
	}
	if err != nil {
		return nil, nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE reminders SET taken = TRUE, taken_at = $1 WHERE reminder_id = $2`,
		at, rem.ReminderID,
	); err != nil {
		return nil, nil, err
	}
	rem.Taken = true
	rem.TakenAt = &at

	if doses != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE medicines
			 SET doses_remaining = GREATEST(doses_remaining - 1, 0), updated_at = CURRENT_TIMESTAMP
			 WHERE medicine_id = $1`,
			medicineID,
		); err != nil {
			return nil, nil, err
		}
	}

	day, err := upsertStreakDay(ctx, tx, at)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit intake: %w", err)
	}
	return rem, day, nil
}

// upsertStreakDay credits one intake event to at's calendar date. The taken
// counter counts intake events on that date regardless of which scheduled
// slot each one consumed, so a catch-up dose for a missed earlier reminder
// still counts toward the day it actually happened on. The due count is a
// recount of the reminders scheduled on the date, used for the completed
// check.
func upsertStreakDay(ctx context.Context, tx pgx.Tx, at time.Time) (*models.StreakDay, error) {
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var due int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM reminders
		 WHERE scheduled_at >= $1 AND scheduled_at < $2`,
		dayStart, dayEnd,
	).Scan(&due)
	if err != nil {
		return nil, err
	}

	day := &models.StreakDay{Day: dayStart}
	err = tx.QueryRow(ctx,
		`INSERT INTO streak_days (day, due, taken, completed)
		 VALUES ($1, $2, 1, $2 = 1)
		 ON CONFLICT (day) DO UPDATE
		 SET due = EXCLUDED.due,
		     taken = streak_days.taken + 1,
		     completed = EXCLUDED.due > 0 AND streak_days.taken + 1 >= EXCLUDED.due
		 RETURNING due, taken, completed`,
		dayStart, due,
	).Scan(&day.Due, &day.Taken, &day.Completed)
	if err != nil {
		return nil, err
	}
	return day, nil
}

// DueAt returns the pending reminders scheduled inside the one-minute bucket
// containing the given instant.
func (r *ReminderRepository) DueAt(ctx context.Context, instant time.Time) ([]*models.DueReminder, error) {
	bucket := instant.Truncate(time.Minute)
	return r.queryDue(ctx,
		`SELECT r.reminder_id, r.medicine_id, m.name, m.dosage, m.doses_remaining, r.scheduled_at, r.taken
		 FROM reminders r
		 JOIN medicines m ON r.medicine_id = m.medicine_id
		 WHERE NOT r.taken AND r.scheduled_at >= $1 AND r.scheduled_at < $2
		 ORDER BY r.scheduled_at`,
		bucket, bucket.Add(time.Minute),
	)
}

// DueBetween returns pending reminders scheduled in [start, end], ascending.
func (r *ReminderRepository) DueBetween(ctx context.Context, start, end time.Time) ([]*models.DueReminder, error) {
	return r.queryDue(ctx,
		`SELECT r.reminder_id, r.medicine_id, m.name, m.dosage, m.doses_remaining, r.scheduled_at, r.taken
		 FROM reminders r
		 JOIN medicines m ON r.medicine_id = m.medicine_id
		 WHERE NOT r.taken AND r.scheduled_at >= $1 AND r.scheduled_at <= $2
		 ORDER BY r.scheduled_at`,
		start, end,
	)
}

// CalendarMonth returns every reminder (taken or not) of a month grouped by
// date, keyed YYYY-MM-DD, for calendar rendering.
func (r *ReminderRepository) CalendarMonth(ctx context.Context, year int, month time.Month) (map[string][]*models.DueReminder, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)

	reminders, err := r.queryDue(ctx,
		`SELECT r.reminder_id, r.medicine_id, m.name, m.dosage, m.doses_remaining, r.scheduled_at, r.taken
		 FROM reminders r
		 JOIN medicines m ON r.medicine_id = m.medicine_id
		 WHERE r.scheduled_at >= $1 AND r.scheduled_at < $2
		 ORDER BY r.scheduled_at`,
		start, end,
	)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*models.DueReminder)
	for _, rem := range reminders {
		key := rem.ScheduledAt.Format("2006-01-02")
		grouped[key] = append(grouped[key], rem)
	}
	return grouped, nil
}

// CountWindow counts due and taken reminders with scheduled time in
// [start, end], for the trailing adherence window.
func (r *ReminderRepository) CountWindow(ctx context.Context, start, end time.Time) (due, taken int, err error) {
	err = r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE taken)
		 FROM reminders
		 WHERE scheduled_at >= $1 AND scheduled_at <= $2`,
		start, end,
	).Scan(&due, &taken)
	return due, taken, err
}

// ListByMedicine returns all of a medicine's reminders ascending, mostly for
// the bot's history view and tests.
func (r *ReminderRepository) ListByMedicine(ctx context.Context, medicineID int) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT reminder_id, medicine_id, scheduled_at, taken, taken_at
		 FROM reminders WHERE medicine_id = $1
		 ORDER BY scheduled_at`,
		medicineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		rem := &models.Reminder{}
		if err := rows.Scan(&rem.ReminderID, &rem.MedicineID, &rem.ScheduledAt, &rem.Taken, &rem.TakenAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func (r *ReminderRepository) queryDue(ctx context.Context, sql string, args ...any) ([]*models.DueReminder, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.DueReminder
	for rows.Next() {
		rem := &models.DueReminder{}
		if err := rows.Scan(&rem.ReminderID, &rem.MedicineID, &rem.Name, &rem.Dosage,
			&rem.DosesRemaining, &rem.ScheduledAt, &rem.Taken); err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}
