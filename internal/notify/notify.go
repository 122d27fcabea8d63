// Package notify fans reminder payloads out to delivery channels. The core
// decides what to send and when; sinks own the delivery mechanics, each
// bounded by a timeout and isolated from the others.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Payload is one notification, already rendered to text.
type Payload struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Severity Severity `json:"severity"`
}

// Sink delivers a payload to one external channel. Send must honor ctx
// cancellation; a failed or slow sink only affects itself.
type Sink interface {
	Name() string
	Send(ctx context.Context, p Payload) error
}

// DefaultSinkTimeout bounds a single delivery attempt.
const DefaultSinkTimeout = 10 * time.Second

// Dispatcher hands payloads to every registered sink. Failures are logged
// and swallowed: delivery problems never propagate to the caller and never
// stop the remaining sinks.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	log     zerolog.Logger
}

func NewDispatcher(log zerolog.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// Register adds a sink after construction.
func (d *Dispatcher) Register(sink Sink) {
	d.sinks = append(d.sinks, sink)
}

// Dispatch delivers the payload to each sink in turn. Each delivery is
// complete-or-failed before the next one starts.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) {
	for _, sink := range d.sinks {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sink.Send(sctx, p)
		cancel()
		if err != nil {
			d.log.Warn().Err(err).Str("sink", sink.Name()).Str("title", p.Title).Msg("notification delivery failed")
			continue
		}
		d.log.Debug().Str("sink", sink.Name()).Str("title", p.Title).Msg("notification delivered")
	}
}
