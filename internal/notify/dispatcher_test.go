package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	name     string
	err      error
	delay    time.Duration
	received []Payload
	ctxErrs  []error
}

func (s *recordSink) Name() string { return s.name }

func (s *recordSink) Send(ctx context.Context, p Payload) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			s.ctxErrs = append(s.ctxErrs, ctx.Err())
			return ctx.Err()
		}
	}
	s.received = append(s.received, p)
	return s.err
}

func TestDispatchFansOutToAllSinks(t *testing.T) {
	a := &recordSink{name: "a"}
	b := &recordSink{name: "b"}
	d := NewDispatcher(zerolog.Nop(), time.Second, a, b)

	p := Payload{Title: "Time to take Aspirin", Body: "1 tablet", Severity: SeverityInfo}
	d.Dispatch(context.Background(), p)

	require.Len(t, a.received, 1)
	require.Len(t, b.received, 1)
	assert.Equal(t, p, a.received[0])
	assert.Equal(t, p, b.received[0])
}

func TestDispatchIsolatesFailingSink(t *testing.T) {
	failing := &recordSink{name: "broken", err: errors.New("smtp down")}
	healthy := &recordSink{name: "ok"}
	d := NewDispatcher(zerolog.Nop(), time.Second, failing, healthy)

	d.Dispatch(context.Background(), Payload{Title: "t", Body: "b", Severity: SeverityInfo})

	assert.Len(t, healthy.received, 1)
}

func TestDispatchTimesOutSlowSink(t *testing.T) {
	slow := &recordSink{name: "slow", delay: time.Second}
	after := &recordSink{name: "after"}
	d := NewDispatcher(zerolog.Nop(), 20*time.Millisecond, slow, after)

	d.Dispatch(context.Background(), Payload{Title: "t", Body: "b", Severity: SeverityInfo})

	assert.Empty(t, slow.received)
	require.Len(t, slow.ctxErrs, 1)
	assert.ErrorIs(t, slow.ctxErrs[0], context.DeadlineExceeded)
	assert.Len(t, after.received, 1)
}

func TestRegisterAddsSink(t *testing.T) {
	d := NewDispatcher(zerolog.Nop(), time.Second)
	s := &recordSink{name: "late"}
	d.Register(s)

	d.Dispatch(context.Background(), Payload{Title: "t", Body: "b", Severity: SeverityWarning})
	assert.Len(t, s.received, 1)
}
