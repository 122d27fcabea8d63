package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilltick/pilltick/internal/models"
	"github.com/pilltick/pilltick/internal/notify"
)

type fakeTracker struct {
	mu       sync.Mutex
	due      []*models.DueReminder
	expiring []*models.Medicine
}

func (f *fakeTracker) DueAt(ctx context.Context, instant time.Time) ([]*models.DueReminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.due, nil
}

func (f *fakeTracker) Expiring(ctx context.Context, withinDays int) ([]*models.Medicine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expiring, nil
}

func (f *fakeTracker) setDue(due []*models.DueReminder) {
	f.mu.Lock()
	f.due = due
	f.mu.Unlock()
}

type chanDispatcher struct {
	payloads chan notify.Payload
}

func (d *chanDispatcher) Dispatch(ctx context.Context, p notify.Payload) {
	d.payloads <- p
}

func waitPayload(t *testing.T, ch chan notify.Payload) notify.Payload {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return notify.Payload{}
	}
}

func assertNoPayload(t *testing.T, ch chan notify.Payload) {
	t.Helper()
	select {
	case p := <-ch:
		t.Fatalf("unexpected payload %q", p.Title)
	case <-time.After(100 * time.Millisecond):
	}
}

func due(id int, name string, at time.Time) *models.DueReminder {
	return &models.DueReminder{ReminderID: id, MedicineID: id, Name: name, ScheduledAt: at}
}

func TestStartDispatchesDueReminders(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 8, 0, 30, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(t0)
	tracker := &fakeTracker{due: []*models.DueReminder{
		due(1, "Aspirin", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)),
	}}
	disp := &chanDispatcher{payloads: make(chan notify.Payload, 4)}
	s := New(tracker, disp, nil, clk, zerolog.Nop(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	p := waitPayload(t, disp.payloads)
	assert.Equal(t, "Time to take Aspirin", p.Title)
	assert.Contains(t, p.Body, "08:00")
	assert.Equal(t, notify.SeverityInfo, p.Severity)

	clk.BlockUntil(1)
	tracker.setDue([]*models.DueReminder{
		due(2, "Metformin", time.Date(2024, 1, 1, 8, 1, 0, 0, time.UTC)),
	})
	clk.Advance(time.Minute)

	p = waitPayload(t, disp.payloads)
	assert.Equal(t, "Time to take Metformin", p.Title)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}

func TestNotifyDoesNotRepeatSameMinute(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 8, 0, 30, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(t0)
	tracker := &fakeTracker{due: []*models.DueReminder{
		due(1, "Aspirin", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)),
	}}
	disp := &chanDispatcher{payloads: make(chan notify.Payload, 4)}
	s := New(tracker, disp, nil, clk, zerolog.Nop(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	waitPayload(t, disp.payloads)

	s.Notify()
	assertNoPayload(t, disp.payloads)

	clk.BlockUntil(1)
	clk.Advance(time.Minute)
	p := waitPayload(t, disp.payloads)
	assert.Equal(t, "Time to take Aspirin", p.Title)
}

func TestExpiryWarningOncePerDay(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 9, 0, 30, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(t0)
	expiry := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	tracker := &fakeTracker{expiring: []*models.Medicine{
		{MedicineID: 1, Name: "Insulin", ExpiryDate: &expiry},
	}}
	disp := &chanDispatcher{payloads: make(chan notify.Payload, 4)}
	s := New(tracker, disp, nil, clk, zerolog.Nop(), Config{ExpiryHour: 9})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	p := waitPayload(t, disp.payloads)
	assert.Equal(t, "Medicines expiring soon", p.Title)
	assert.Equal(t, notify.SeverityWarning, p.Severity)
	assert.Contains(t, p.Body, "2024-01-04: Insulin")

	// still inside the nine o'clock hour, must not warn again
	clk.BlockUntil(1)
	clk.Advance(time.Minute)
	assertNoPayload(t, disp.payloads)
}

func TestDosePayloadLowStock(t *testing.T) {
	s := New(&fakeTracker{}, &chanDispatcher{}, nil, clockwork.NewFakeClock(), zerolog.Nop(), Config{})

	doses := 2
	r := due(1, "Aspirin", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	r.Dosage = "100mg"
	r.DosesRemaining = &doses

	p := s.dosePayload(context.Background(), r)
	assert.Equal(t, notify.SeverityWarning, p.Severity)
	assert.Contains(t, p.Body, "100mg")
	assert.Contains(t, p.Body, "2 doses left")
}

type upperPhraser struct{}

func (upperPhraser) Phrase(ctx context.Context, body string) string {
	return "[friendly] " + body
}

func TestDosePayloadUsesPhraser(t *testing.T) {
	s := New(&fakeTracker{}, &chanDispatcher{}, upperPhraser{}, clockwork.NewFakeClock(), zerolog.Nop(), Config{})

	r := due(1, "Aspirin", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	p := s.dosePayload(context.Background(), r)
	assert.Contains(t, p.Body, "[friendly] ")
	assert.Equal(t, "Time to take Aspirin", p.Title)
}

func TestExpiryPayloadGroupsByDate(t *testing.T) {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	p := expiryPayload([]*models.Medicine{
		{Name: "Insulin", ExpiryDate: &d2},
		{Name: "Aspirin", ExpiryDate: &d1},
		{Name: "Ibuprofen", ExpiryDate: &d1},
	})

	require.Equal(t, notify.SeverityWarning, p.Severity)
	assert.Equal(t, "2024-01-02: Aspirin, Ibuprofen\n2024-01-05: Insulin", p.Body)
}
