package tracker

import (
	"context"
	"time"

	"github.com/pilltick/pilltick/internal/models"
)

// CurrentStreak walks streak-day records (newest first) and counts the run
// of consecutive days on which all due doses were taken. The newest day also
// counts while merely in progress (some doses taken, not yet all); every
// older day must be completed and exactly one calendar day before the day
// counted just before it.
func CurrentStreak(days []*models.StreakDay) int {
	streak := 0
	for i, d := range days {
		if i == 0 {
			if !d.Completed && d.Taken == 0 {
				break
			}
			streak++
			continue
		}
		if !sameDate(days[i-1].Day.AddDate(0, 0, -1), d.Day) {
			break
		}
		if !d.Completed {
			break
		}
		streak++
	}
	return streak
}

// updateStreakRollup recomputes the current streak after an intake and
// persists it; the longest counter only ever grows.
func (s *Service) updateStreakRollup(ctx context.Context, latest *models.StreakDay) error {
	days, err := s.streaks.RecentDays(ctx, streakScanLimit)
	if err != nil {
		return err
	}

	// The day just written may not be visible through the store snapshot
	// used by RecentDays in every backend, so patch it in. A backdated
	// intake writes a day that is not the newest record, so the patch has
	// to keep the newest-first ordering intact.
	days = patchDay(days, latest)

	current := CurrentStreak(days)
	return s.streaks.SaveRollup(ctx, current, current)
}

// patchDay places the just-written record at its date's slot in a
// newest-first list, inserting it where it sorts when the list has no
// record for that date yet.
func patchDay(days []*models.StreakDay, latest *models.StreakDay) []*models.StreakDay {
	for i, d := range days {
		if sameDate(d.Day, latest.Day) {
			days[i] = latest
			return days
		}
		if d.Day.Before(latest.Day) {
			return append(days[:i], append([]*models.StreakDay{latest}, days[i:]...)...)
		}
	}
	return append(days, latest)
}

// Stats returns the persisted streak rollup plus the adherence rate over
// the trailing window. With nothing due in the window the rate is exactly
// 0.0.
func (s *Service) Stats(ctx context.Context) (*models.AdherenceStats, error) {
	current, longest, err := s.streaks.Rollup(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	due, taken, err := s.reminders.CountWindow(ctx, now.AddDate(0, 0, -s.adherenceWindowDays), now)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	if due > 0 {
		rate = float64(taken) / float64(due) * 100
	}

	return &models.AdherenceStats{
		CurrentStreak: current,
		LongestStreak: longest,
		AdherenceRate: rate,
	}, nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
