package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Title       string                   `json:"title" validate:"required,max=200"`
	Description string                   `json:"description" validate:"required,max=5000"`
	Category    domain.ComplaintCategory `json:"category" validate:"required"`
	Priority    domain.ComplaintPriority `json:"priority" validate:"required"`
	Tags        []string                 `json:"tags" validate:"max=10,dive,max=50"`
}

// StatusUpdateRequest drives the generic transition endpoint.
type StatusUpdateRequest struct {
	Status domain.ComplaintStatus `json:"status" validate:"required"`
	Note   string                 `json:"note" validate:"max=1000"`
}

// NoteRequest carries an optional free-form note.
type NoteRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

// ReasonRequest carries a mandatory reason.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// PriorityRequest payload.
type PriorityRequest struct {
	Priority domain.ComplaintPriority `json:"priority" validate:"required"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required"`
	Note       string `json:"note" validate:"max=1000"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body     string `json:"body" validate:"required,max=5000"`
	Internal bool   `json:"internal"`
}

// ComplaintResponse is the complaint view.
type ComplaintResponse struct {
	ID              string                   `json:"id"`
	Key             string                   `json:"key"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description"`
	Category        domain.ComplaintCategory `json:"category"`
	Priority        domain.ComplaintPriority `json:"priority"`
	Status          domain.ComplaintStatus   `json:"status"`
	SubmitterID     string                   `json:"submitter_id"`
	SubmitterType   domain.SubmitterType     `json:"submitter_type"`
	AssigneeID      *string                  `json:"assignee_id"`
	Tags            []string                 `json:"tags"`
	EscalationLevel int                      `json:"escalation_level"`
	ReopenCount     int                      `json:"reopen_count"`
	DueAt           time.Time                `json:"due_at"`
	ResolutionDueAt time.Time                `json:"resolution_due_at"`
	RespondedAt     *time.Time               `json:"responded_at"`
	ResolvedAt      *time.Time               `json:"resolved_at"`
	ClosedAt        *time.Time               `json:"closed_at"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	Version         int64                    `json:"version"`
}

// CommentResponse is the comment view.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusChangeResponse is one audit entry.
type StatusChangeResponse struct {
	ID         string                  `json:"id"`
	Kind       domain.StatusChangeKind `json:"kind"`
	FromStatus domain.ComplaintStatus  `json:"from_status"`
	ToStatus   domain.ComplaintStatus  `json:"to_status"`
	ActorID    string                  `json:"actor_id"`
	ActorRole  domain.Role             `json:"actor_role"`
	Note       string                  `json:"note,omitempty"`
	Metadata   map[string]any          `json:"metadata,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

// HistoryEntryResponse merges status changes and comments on one timeline.
type HistoryEntryResponse struct {
	At           time.Time             `json:"at"`
	Type         string                `json:"type"`
	StatusChange *StatusChangeResponse `json:"status_change,omitempty"`
	Comment      *CommentResponse      `json:"comment,omitempty"`
}
