package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pilltick/pilltick/internal/models"
)

// memStore is an in-memory stand-in for the pgx repositories. It mirrors
// their semantics, including the atomic TakeEarliest contract, behind one
// mutex.
type memStore struct {
	mu sync.Mutex

	nextMedicineID int
	nextScheduleID int
	nextReminderID int

	medicines map[int]*models.Medicine
	schedules map[int][]*models.Schedule
	reminders map[int]*models.Reminder
	days      map[string]*models.StreakDay

	current int
	longest int
}

func newMemStore() *memStore {
	return &memStore{
		medicines: make(map[int]*models.Medicine),
		schedules: make(map[int][]*models.Schedule),
		reminders: make(map[int]*models.Reminder),
		days:      make(map[string]*models.StreakDay),
	}
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func (m *memStore) Create(_ context.Context, med *models.Medicine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMedicineID++
	med.MedicineID = m.nextMedicineID
	m.medicines[med.MedicineID] = med
	return nil
}

func (m *memStore) GetByID(_ context.Context, medicineID int) (*models.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.medicines[medicineID]
	if !ok {
		return nil, models.ErrMedicineNotFound
	}
	return med, nil
}

func (m *memStore) GetByBarcode(_ context.Context, barcode string) (*models.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, med := range m.medicines {
		if med.Barcode != nil && *med.Barcode == barcode {
			return med, nil
		}
	}
	return nil, models.ErrMedicineNotFound
}

func (m *memStore) List(_ context.Context) ([]*models.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Medicine
	for _, med := range m.medicines {
		out = append(out, med)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) Update(_ context.Context, med *models.Medicine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.medicines[med.MedicineID]; !ok {
		return models.ErrMedicineNotFound
	}
	m.medicines[med.MedicineID] = med
	return nil
}

func (m *memStore) Delete(_ context.Context, medicineID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.medicines[medicineID]; !ok {
		return models.ErrMedicineNotFound
	}
	delete(m.medicines, medicineID)
	delete(m.schedules, medicineID)
	for id, rem := range m.reminders {
		if rem.MedicineID == medicineID {
			delete(m.reminders, id)
		}
	}
	return nil
}

func (m *memStore) DecrementDoses(_ context.Context, medicineID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.medicines[medicineID]
	if !ok {
		return models.ErrMedicineNotFound
	}
	m.decrementLocked(med)
	return nil
}

func (m *memStore) decrementLocked(med *models.Medicine) {
	if med.DosesRemaining != nil && *med.DosesRemaining > 0 {
		n := *med.DosesRemaining - 1
		med.DosesRemaining = &n
	}
}

func (m *memStore) ExpiringBetween(_ context.Context, from, to time.Time) ([]*models.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Medicine
	for _, med := range m.medicines {
		if med.ExpiryDate != nil && !med.ExpiryDate.Before(from) && !med.ExpiryDate.After(to) {
			out = append(out, med)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	return out, nil
}

func (m *memStore) CreateSchedule(_ context.Context, s *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextScheduleID++
	s.ScheduleID = m.nextScheduleID
	m.schedules[s.MedicineID] = append(m.schedules[s.MedicineID], s)
	return nil
}

func (m *memStore) ListByMedicine(_ context.Context, medicineID int) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedules[medicineID], nil
}

func (m *memStore) DeleteByMedicine(_ context.Context, medicineID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, medicineID)
	return nil
}

func (m *memStore) InsertBatch(_ context.Context, reminders []*models.Reminder) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, rem := range reminders {
		if m.hasReminderLocked(rem.MedicineID, rem.ScheduledAt) {
			continue
		}
		m.nextReminderID++
		m.reminders[m.nextReminderID] = &models.Reminder{
			ReminderID:  m.nextReminderID,
			MedicineID:  rem.MedicineID,
			ScheduledAt: rem.ScheduledAt,
		}
		inserted++
	}
	return inserted, nil
}

func (m *memStore) hasReminderLocked(medicineID int, at time.Time) bool {
	for _, rem := range m.reminders {
		if rem.MedicineID == medicineID && rem.ScheduledAt.Equal(at) {
			return true
		}
	}
	return false
}

func (m *memStore) DeleteFutureUntaken(_ context.Context, medicineID int, from time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rem := range m.reminders {
		if rem.MedicineID == medicineID && !rem.Taken && !rem.ScheduledAt.Before(from) {
			delete(m.reminders, id)
		}
	}
	return nil
}

func (m *memStore) TakeEarliest(_ context.Context, medicineID int, at time.Time) (*models.Reminder, *models.StreakDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	med, ok := m.medicines[medicineID]
	if !ok {
		return nil, nil, models.ErrMedicineNotFound
	}

	var earliest *models.Reminder
	for _, rem := range m.reminders {
		if rem.MedicineID != medicineID || rem.Taken {
			continue
		}
		if earliest == nil || rem.ScheduledAt.Before(earliest.ScheduledAt) {
			earliest = rem
		}
	}
	if earliest == nil {
		return nil, nil, models.ErrNoPendingReminder
	}

	taken := at
	earliest.Taken = true
	earliest.TakenAt = &taken
	m.decrementLocked(med)

	// The intake event is credited to at's date; due is a recount of that
	// date's scheduled reminders, matching the SQL upsert.
	day, ok := m.days[dateKey(at)]
	if !ok {
		day = &models.StreakDay{Day: time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())}
		m.days[dateKey(at)] = day
	}
	day.Due = 0
	for _, rem := range m.reminders {
		if dateKey(rem.ScheduledAt) == dateKey(at) {
			day.Due++
		}
	}
	day.Taken++
	day.Completed = day.Due > 0 && day.Taken >= day.Due

	return earliest, day, nil
}

func (m *memStore) DueAt(_ context.Context, instant time.Time) ([]*models.DueReminder, error) {
	bucket := instant.Truncate(time.Minute)
	return m.dueMatching(func(rem *models.Reminder) bool {
		return !rem.Taken && !rem.ScheduledAt.Before(bucket) && rem.ScheduledAt.Before(bucket.Add(time.Minute))
	})
}

func (m *memStore) DueBetween(_ context.Context, start, end time.Time) ([]*models.DueReminder, error) {
	return m.dueMatching(func(rem *models.Reminder) bool {
		return !rem.Taken && !rem.ScheduledAt.Before(start) && !rem.ScheduledAt.After(end)
	})
}

func (m *memStore) CalendarMonth(_ context.Context, year int, month time.Month) (map[string][]*models.DueReminder, error) {
	all, err := m.dueMatching(func(rem *models.Reminder) bool {
		return rem.ScheduledAt.Year() == year && rem.ScheduledAt.Month() == month
	})
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]*models.DueReminder)
	for _, rem := range all {
		grouped[dateKey(rem.ScheduledAt)] = append(grouped[dateKey(rem.ScheduledAt)], rem)
	}
	return grouped, nil
}

func (m *memStore) CountWindow(_ context.Context, start, end time.Time) (due, taken int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rem := range m.reminders {
		if rem.ScheduledAt.Before(start) || rem.ScheduledAt.After(end) {
			continue
		}
		due++
		if rem.Taken {
			taken++
		}
	}
	return due, taken, nil
}

func (m *memStore) dueMatching(match func(*models.Reminder) bool) ([]*models.DueReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.DueReminder
	for _, rem := range m.reminders {
		if !match(rem) {
			continue
		}
		med := m.medicines[rem.MedicineID]
		out = append(out, &models.DueReminder{
			ReminderID:     rem.ReminderID,
			MedicineID:     rem.MedicineID,
			Name:           med.Name,
			Dosage:         med.Dosage,
			DosesRemaining: med.DosesRemaining,
			ScheduledAt:    rem.ScheduledAt,
			Taken:          rem.Taken,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (m *memStore) RecentDays(_ context.Context, limit int) ([]*models.StreakDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.StreakDay
	for _, d := range m.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Rollup(_ context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.longest, nil
}

func (m *memStore) SaveRollup(_ context.Context, current, longest int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = current
	if longest > m.longest {
		m.longest = longest
	}
	return nil
}

// scheduleStore adapts memStore's schedule methods to the ScheduleStore
// interface name expected by the service.
type scheduleStore struct{ *memStore }

func (s scheduleStore) Create(ctx context.Context, sched *models.Schedule) error {
	return s.CreateSchedule(ctx, sched)
}
