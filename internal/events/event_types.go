package events

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated     EventType = "complaint_created"
	EventStatusChanged        EventType = "complaint_status_changed"
	EventComplaintAssigned    EventType = "complaint_assigned"
	EventCommentAdded         EventType = "complaint_comment_added"
	EventSLABreached          EventType = "sla_breached"
	EventComplaintEscalated   EventType = "complaint_escalated"
	EventEscalationCapReached EventType = "escalation_cap_reached"
	EventResolutionSubmitted  EventType = "resolution_submitted"
	EventResolutionVerified   EventType = "resolution_verified"
	EventResolutionRejected   EventType = "resolution_rejected"
	EventSurveySent           EventType = "survey_sent"
	EventSurveyReminder       EventType = "survey_reminder"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ActorFrom converts a domain actor.
func ActorFrom(a domain.Actor) Actor {
	return Actor{ID: a.ID, Role: a.Role}
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Key             string                   `json:"key"`
	Category        domain.ComplaintCategory `json:"category"`
	Priority        domain.ComplaintPriority `json:"priority"`
	AssigneeID      *string                  `json:"assignee_id,omitempty"`
	DueAt           time.Time                `json:"due_at"`
	ResolutionDueAt time.Time                `json:"resolution_due_at"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	Note      string                 `json:"note,omitempty"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	AssigneeID    *string `json:"assignee_id,omitempty"`
	RuleID        *string `json:"rule_id,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	Internal    bool   `json:"internal"`
	BodyPreview string `json:"body_preview"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	BreachID   string            `json:"breach_id"`
	BreachType domain.BreachType `json:"breach_type"`
	DueAt      time.Time         `json:"due_at"`
	AssigneeID *string           `json:"assignee_id,omitempty"`
}

// EscalatedPayload payload.
type EscalatedPayload struct {
	Level       int                      `json:"level"`
	TriggeredBy domain.EscalationTrigger `json:"triggered_by"`
	Reason      string                   `json:"reason"`
	EscalatedTo *string                  `json:"escalated_to,omitempty"`
	BreachID    *string                  `json:"breach_id,omitempty"`
}

// ResolutionPayload payload.
type ResolutionPayload struct {
	ResolutionID string  `json:"resolution_id"`
	SubmitterID  string  `json:"submitter_id"`
	Summary      string  `json:"summary,omitempty"`
	Reason       *string `json:"reason,omitempty"`
}

// SurveyPayload payload.
type SurveyPayload struct {
	SurveyID    string `json:"survey_id"`
	RecipientID string `json:"recipient_id"`
	Reminder    int    `json:"reminder"`
}
