package notify

import (
	"context"

	"github.com/gen2brain/beeep"
)

// DesktopSink shows a popup via the OS notification facility.
type DesktopSink struct{}

func NewDesktopSink() *DesktopSink { return &DesktopSink{} }

func (s *DesktopSink) Name() string { return "desktop" }

func (s *DesktopSink) Send(ctx context.Context, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Severity == SeverityWarning {
		return beeep.Alert(p.Title, p.Body, "")
	}
	return beeep.Notify(p.Title, p.Body, "")
}
