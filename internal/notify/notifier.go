// Package notify delivers grievance notifications to external channels.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// TemplateKind selects the notification template.
type TemplateKind string

const (
	TemplateSLABreach           TemplateKind = "sla_breach"
	TemplateEscalation          TemplateKind = "escalation"
	TemplateResolutionSubmitted TemplateKind = "resolution_submitted"
	TemplateSurveyInvite        TemplateKind = "survey_invite"
)

// Message is one outbound notification.
type Message struct {
	Recipient string         `json:"recipient"`
	Template  TemplateKind   `json:"template"`
	TicketID  string         `json:"ticket_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Notifier is the outbound notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every channel and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes notifications to the structured log.
type Log struct {
	logger *zap.Logger
}

// NewLog builds a log channel.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, msg Message) error {
	l.logger.Info("notification",
		zap.String("recipient", msg.Recipient),
		zap.String("template", string(msg.Template)),
		zap.String("ticket_id", msg.TicketID),
		zap.Any("payload", msg.Payload),
	)
	return nil
}
