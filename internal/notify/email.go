package notify

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP connection details for the email sink.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// EmailSink sends each payload as a plain-text message over SMTP.
type EmailSink struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
}

func NewEmailSink(cfg EmailConfig) *EmailSink {
	return &EmailSink{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *EmailSink) Name() string { return "email" }

// Send dials and delivers in a goroutine so the ctx deadline is honored
// even when the SMTP server hangs.
func (s *EmailSink) Send(ctx context.Context, p Payload) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", p.Title)
	m.SetBody("text/plain", p.Body)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", s.cfg.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
