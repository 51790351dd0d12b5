package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// SLAConfigRequest payload.
type SLAConfigRequest struct {
	Category          domain.ComplaintCategory `json:"category" validate:"required"`
	Priority          domain.ComplaintPriority `json:"priority" validate:"required"`
	ResponseMinutes   int                      `json:"response_minutes" validate:"required,gt=0"`
	ResolutionMinutes int                      `json:"resolution_minutes" validate:"required,gt=0"`
	Enabled           *bool                    `json:"enabled"`
}

// SLAConfigResponse view.
type SLAConfigResponse struct {
	ID                string                   `json:"id"`
	Category          domain.ComplaintCategory `json:"category"`
	Priority          domain.ComplaintPriority `json:"priority"`
	ResponseMinutes   int                      `json:"response_minutes"`
	ResolutionMinutes int                      `json:"resolution_minutes"`
	Enabled           bool                     `json:"enabled"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// SLATargetsResponse reports the targets that apply to a category and priority.
type SLATargetsResponse struct {
	ResponseMinutes   int    `json:"response_minutes"`
	ResolutionMinutes int    `json:"resolution_minutes"`
	Source            string `json:"source"`
}

// RuleConditionsPayload mirrors the rule predicate.
type RuleConditionsPayload struct {
	Categories []domain.ComplaintCategory `json:"categories"`
	Priorities []domain.ComplaintPriority `json:"priorities"`
	Tags       []string                   `json:"tags"`
}

// RuleRequest payload.
type RuleRequest struct {
	Name       string                `json:"name" validate:"required,max=200"`
	Conditions RuleConditionsPayload `json:"conditions"`
	AssigneeID string                `json:"assignee_id" validate:"required"`
	Enabled    *bool                 `json:"enabled"`
}

// ToggleRuleRequest payload.
type ToggleRuleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ReorderRulesRequest lists every rule id in the desired evaluation order.
type ReorderRulesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// PreviewRequest describes a hypothetical ticket.
type PreviewRequest struct {
	Category domain.ComplaintCategory `json:"category" validate:"required"`
	Priority domain.ComplaintPriority `json:"priority" validate:"required"`
	Tags     []string                 `json:"tags"`
}

// RuleResponse view.
type RuleResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	PriorityOrder int                   `json:"priority_order"`
	Conditions    RuleConditionsPayload `json:"conditions"`
	AssigneeID    string                `json:"assignee_id"`
	Enabled       bool                  `json:"enabled"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// FeedbackRequest is the anonymous submission payload.
type FeedbackRequest struct {
	Category domain.ComplaintCategory `json:"category"`
	Body     string                   `json:"body" validate:"required,max=5000"`
}

// FeedbackCreatedResponse returns the lookup token exactly once.
type FeedbackCreatedResponse struct {
	ID          string    `json:"id"`
	LookupToken string    `json:"lookup_token"`
	CreatedAt   time.Time `json:"created_at"`
}

// FeedbackResponseRequest carries a staff reply.
type FeedbackResponseRequest struct {
	Response string `json:"response" validate:"required,max=5000"`
}

// FeedbackStatusRequest payload.
type FeedbackStatusRequest struct {
	Status domain.FeedbackStatus `json:"status" validate:"required"`
}

// FeedbackView never carries the token hash.
type FeedbackView struct {
	ID          string                   `json:"id"`
	Category    domain.ComplaintCategory `json:"category"`
	Body        string                   `json:"body"`
	Status      domain.FeedbackStatus    `json:"status"`
	Response    *string                  `json:"response"`
	RespondedAt *time.Time               `json:"responded_at"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// FeedbackLookupRequest carries the lookup token in the body so it stays out of URLs and access logs.
type FeedbackLookupRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}
