package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/grievance-service/internal/config"
)

// Email sends notifications over SMTP.
type Email struct {
	cfg  config.NotificationConfig
	send func(msg *gomail.Message) error
}

// NewEmail builds an SMTP channel from configuration.
func NewEmail(cfg config.NotificationConfig) *Email {
	e := &Email{cfg: cfg}
	e.send = func(msg *gomail.Message) error {
		return e.newDialer().DialAndSend(msg)
	}
	return e
}

func (e *Email) Notify(ctx context.Context, msg Message) error {
	to := e.resolveRecipient(msg.Recipient)
	if to == "" {
		return nil
	}

	subject, body := render(msg)
	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.EmailFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- e.send(m)
	}()

	wait := e.cfg.Timeout()
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

// Recipients are user or group ids unless they already look like an address.
func (e *Email) resolveRecipient(recipient string) string {
	recipient = strings.TrimSpace(recipient)
	if strings.Contains(recipient, "@") {
		return recipient
	}
	return strings.TrimSpace(e.cfg.EmailFallbackTo)
}

func (e *Email) newDialer() *gomail.Dialer {
	d := gomail.NewDialer(e.cfg.SMTPHost, e.cfg.SMTPPort, e.cfg.SMTPUsername, e.cfg.SMTPPassword)
	d.SSL = e.cfg.SMTPUseTLS
	if e.cfg.SMTPUseTLS {
		d.TLSConfig = &tls.Config{ServerName: e.cfg.SMTPHost}
	}
	return d
}
