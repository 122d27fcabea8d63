// Package scheduler runs the polling loop that turns due reminders into
// notifications. It owns no domain logic: the tracker says what is due and
// the dispatcher delivers.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/pilltick/pilltick/internal/models"
	"github.com/pilltick/pilltick/internal/notify"
)

// Tracker is the slice of the medicine tracker the loop needs.
type Tracker interface {
	DueAt(ctx context.Context, instant time.Time) ([]*models.DueReminder, error)
	Expiring(ctx context.Context, withinDays int) ([]*models.Medicine, error)
}

// Dispatcher delivers a rendered notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, p notify.Payload)
}

// Phraser optionally rewrites notification text. It must fall back to the
// input on failure rather than return an error.
type Phraser interface {
	Phrase(ctx context.Context, body string) string
}

const (
	DefaultCheckInterval       = 1 * time.Minute
	DefaultExpiryHour          = 9
	DefaultExpiryLookaheadDays = 7
)

type Config struct {
	CheckInterval       time.Duration
	ExpiryHour          int
	ExpiryLookaheadDays int
}

type Scheduler struct {
	tracker    Tracker
	dispatcher Dispatcher
	phraser    Phraser // may be nil
	clock      clockwork.Clock
	log        zerolog.Logger

	checkInterval       time.Duration
	expiryHour          int
	expiryLookaheadDays int

	notifyCh chan struct{}

	// dedup state, touched only by the Start goroutine
	lastBucket    time.Time
	lastExpiryDay string
}

func New(tracker Tracker, dispatcher Dispatcher, phraser Phraser, clock clockwork.Clock, log zerolog.Logger, cfg Config) *Scheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.ExpiryHour < 0 || cfg.ExpiryHour > 23 {
		cfg.ExpiryHour = DefaultExpiryHour
	}
	if cfg.ExpiryLookaheadDays <= 0 {
		cfg.ExpiryLookaheadDays = DefaultExpiryLookaheadDays
	}
	return &Scheduler{
		tracker:             tracker,
		dispatcher:          dispatcher,
		phraser:             phraser,
		clock:               clock,
		log:                 log.With().Str("component", "scheduler").Logger(),
		checkInterval:       cfg.CheckInterval,
		expiryHour:          cfg.ExpiryHour,
		expiryLookaheadDays: cfg.ExpiryLookaheadDays,
		notifyCh:            make(chan struct{}, 1),
	}
}

// Notify triggers an immediate check. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs the loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.checkInterval).Msg("scheduler started")
	ticker := s.clock.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.Chan():
			s.check(ctx)
		case <-s.notifyCh:
			s.log.Debug().Msg("scheduler woken early")
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	now := s.clock.Now()
	s.checkDue(ctx, now)
	s.checkExpiry(ctx, now)
}

// checkDue notifies for reminders in the current minute bucket. A wake via
// Notify inside an already-handled minute is a no-op so a dose is never
// announced twice.
func (s *Scheduler) checkDue(ctx context.Context, now time.Time) {
	bucket := now.Truncate(time.Minute)
	if !bucket.After(s.lastBucket) {
		return
	}
	s.lastBucket = bucket

	due, err := s.tracker.DueAt(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("due reminder lookup failed")
		return
	}

	for _, r := range due {
		s.dispatcher.Dispatch(ctx, s.dosePayload(ctx, r))
		s.log.Info().Int("reminder_id", r.ReminderID).Str("medicine", r.Name).Msg("reminder dispatched")
	}
}

func (s *Scheduler) dosePayload(ctx context.Context, r *models.DueReminder) notify.Payload {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s", r.Name, r.ScheduledAt.Format("15:04"))
	if r.Dosage != "" {
		fmt.Fprintf(&b, ", %s", r.Dosage)
	}

	severity := notify.SeverityInfo
	if r.LowStock() {
		severity = notify.SeverityWarning
		fmt.Fprintf(&b, ". Only %d doses left, time to restock.", *r.DosesRemaining)
	}

	body := b.String()
	if s.phraser != nil {
		body = s.phraser.Phrase(ctx, body)
	}
	return notify.Payload{
		Title:    "Time to take " + r.Name,
		Body:     body,
		Severity: severity,
	}
}

// checkExpiry runs once per day at the configured hour and warns about
// medicines expiring inside the lookahead window.
func (s *Scheduler) checkExpiry(ctx context.Context, now time.Time) {
	if now.Hour() != s.expiryHour {
		return
	}
	day := now.Format("2006-01-02")
	if day == s.lastExpiryDay {
		return
	}
	s.lastExpiryDay = day

	meds, err := s.tracker.Expiring(ctx, s.expiryLookaheadDays)
	if err != nil {
		s.log.Error().Err(err).Msg("expiry lookup failed")
		return
	}
	if len(meds) == 0 {
		return
	}

	s.dispatcher.Dispatch(ctx, expiryPayload(meds))
	s.log.Info().Int("count", len(meds)).Msg("expiry warning dispatched")
}

func expiryPayload(meds []*models.Medicine) notify.Payload {
	byDate := make(map[string][]string)
	for _, m := range meds {
		if m.ExpiryDate == nil {
			continue
		}
		key := m.ExpiryDate.Format("2006-01-02")
		byDate[key] = append(byDate[key], m.Name)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var b strings.Builder
	for _, d := range dates {
		fmt.Fprintf(&b, "%s: %s\n", d, strings.Join(byDate[d], ", "))
	}
	return notify.Payload{
		Title:    "Medicines expiring soon",
		Body:     strings.TrimRight(b.String(), "\n"),
		Severity: notify.SeverityWarning,
	}
}
