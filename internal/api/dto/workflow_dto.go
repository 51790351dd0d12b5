package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// ResolutionRequest payload.
type ResolutionRequest struct {
	Summary      string `json:"summary" validate:"required,max=5000"`
	ActionsTaken string `json:"actions_taken" validate:"max=5000"`
}

// ResolutionResponse view.
type ResolutionResponse struct {
	ID              string                    `json:"id"`
	TicketID        string                    `json:"ticket_id"`
	ResolvedBy      string                    `json:"resolved_by"`
	Summary         string                    `json:"summary"`
	ActionsTaken    string                    `json:"actions_taken"`
	SubmittedAt     time.Time                 `json:"submitted_at"`
	Verification    domain.VerificationStatus `json:"verification"`
	VerifiedBy      *string                   `json:"verified_by"`
	VerifiedAt      *time.Time                `json:"verified_at"`
	RejectionReason *string                   `json:"rejection_reason"`
	Active          bool                      `json:"active"`
}

// EscalateRequest payload for manual escalation.
type EscalateRequest struct {
	Reason      string  `json:"reason" validate:"required,max=1000"`
	TargetLevel int     `json:"target_level" validate:"gte=0"`
	EscalatedTo *string `json:"escalated_to"`
	BreachID    *string `json:"breach_id"`
}

// BreachResponse view.
type BreachResponse struct {
	ID          string              `json:"id"`
	TicketID    string              `json:"ticket_id"`
	BreachType  domain.BreachType   `json:"breach_type"`
	DetectedAt  time.Time           `json:"detected_at"`
	DueAt       time.Time           `json:"due_at"`
	Status      domain.BreachStatus `json:"status"`
	Note        *string             `json:"note"`
	EscalatedAt *time.Time          `json:"escalated_at"`
	ClosedBy    *string             `json:"closed_by"`
	ClosedAt    *time.Time          `json:"closed_at"`
}

// SurveyResponseRequest payload.
type SurveyResponseRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// SurveyView is the survey as shown to callers.
type SurveyView struct {
	ID             string              `json:"id"`
	TicketID       string              `json:"ticket_id"`
	RecipientID    string              `json:"recipient_id"`
	Status         domain.SurveyStatus `json:"status"`
	SentAt         time.Time           `json:"sent_at"`
	ReminderCount  int                 `json:"reminder_count"`
	LastReminderAt *time.Time          `json:"last_reminder_at"`
}

// SurveyAnswerView is a submitted survey answer.
type SurveyAnswerView struct {
	SurveyID     string    `json:"survey_id"`
	RespondentID string    `json:"respondent_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
