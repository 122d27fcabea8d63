// Package mirror pushes local state changes to external copies. Mirrors are
// best-effort: every push happens off the caller's goroutine, failures are
// recorded in the sync log, and the tracker never waits on one.
package mirror

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pilltick/pilltick/internal/models"
)

// Event is the change record shipped to a mirror target.
type Event struct {
	Kind       string           `json:"kind"`
	MedicineID int              `json:"medicine_id"`
	Medicine   *models.Medicine `json:"medicine,omitempty"`
	TakenAt    *time.Time       `json:"taken_at,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

const (
	EventMedicineChanged = "medicine_changed"
	EventIntakeRecorded  = "intake_recorded"
)

// Target receives change events. Push must honor ctx cancellation.
type Target interface {
	Name() string
	Push(ctx context.Context, ev Event) error
}

// SyncLogStore records the outcome of each push attempt.
type SyncLogStore interface {
	Record(ctx context.Context, operation, status, details string) error
}

const (
	pushTimeout   = 15 * time.Second
	recordTimeout = 5 * time.Second
)

// Notifier satisfies the tracker's Mirrors interface, fanning each event
// out to every target in the background.
type Notifier struct {
	targets []Target
	logs    SyncLogStore
	clock   func() time.Time
	timeout time.Duration
	log     zerolog.Logger
}

func NewNotifier(log zerolog.Logger, logs SyncLogStore, targets ...Target) *Notifier {
	return &Notifier{
		targets: targets,
		logs:    logs,
		clock:   time.Now,
		timeout: pushTimeout,
		log:     log.With().Str("component", "mirror").Logger(),
	}
}

func (n *Notifier) MedicineChanged(med *models.Medicine) {
	n.push(Event{
		Kind:       EventMedicineChanged,
		MedicineID: med.MedicineID,
		Medicine:   med,
		OccurredAt: n.clock(),
	})
}

func (n *Notifier) IntakeRecorded(medicineID int, at time.Time) {
	n.push(Event{
		Kind:       EventIntakeRecorded,
		MedicineID: medicineID,
		TakenAt:    &at,
		OccurredAt: n.clock(),
	})
}

// push runs detached from the caller. The tracker may be inside a request
// whose context ends immediately after, so each push gets its own.
func (n *Notifier) push(ev Event) {
	for _, target := range n.targets {
		go func(target Target) {
			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			defer cancel()

			op := target.Name() + ":" + ev.Kind
			if err := target.Push(ctx, ev); err != nil {
				n.log.Warn().Err(err).Str("target", target.Name()).Str("kind", ev.Kind).Msg("mirror push failed")
				n.record(op, models.SyncStatusError, err.Error())
				return
			}
			n.record(op, models.SyncStatusSuccess, "")
		}(target)
	}
}

// record writes the push outcome on its own context. The push context may
// already be expired when the push failed by timing out, and the outcome
// must still land in the sync log.
func (n *Notifier) record(operation, status, details string) {
	if n.logs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := n.logs.Record(ctx, operation, status, details); err != nil {
		n.log.Warn().Err(err).Str("operation", operation).Msg("sync log write failed")
	}
}
