package domain

import "time"

// EscalationTrigger records why an escalation happened.
type EscalationTrigger string

const (
	TriggerManual    EscalationTrigger = "manual"
	TriggerSLABreach EscalationTrigger = "sla_breach"
)

// EscalatedTag seeds rule evaluation during escalation.
const EscalatedTag = "escalated"

// EscalationRequest asks to raise a ticket's escalation level. TargetLevel of
// zero means current level + 1.
type EscalationRequest struct {
	TicketID    string
	Reason      string
	TriggeredBy EscalationTrigger
	TargetLevel int
	EscalatedTo *string
	BreachID    *string
	Actor       Actor
	Timestamp   time.Time
}
