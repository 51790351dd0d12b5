package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// Cap actions applied when an SLA escalation would exceed the maximum level.
const (
	CapActionReject = "reject"
	CapActionNotify = "notify"
)

// EscalationService raises escalation levels and manages breach follow-up.
type EscalationService struct {
	core
	assignment    *AssignmentService
	metrics       *observability.Metrics
	maxLevel      int
	capAction     string
	reassignOnSLA bool
}

// EscalationDependencies configures the escalation coordinator. MaxLevel of
// zero disables the cap.
type EscalationDependencies struct {
	CoreDependencies
	Assignment    *AssignmentService
	Metrics       *observability.Metrics
	MaxLevel      int
	CapAction     string
	ReassignOnSLA bool
}

// CapReachedPayload is published when an SLA escalation hits the cap.
type CapReachedPayload struct {
	Level    int     `json:"level"`
	MaxLevel int     `json:"max_level"`
	BreachID *string `json:"breach_id,omitempty"`
}

// NewEscalationService constructs the coordinator.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	capAction := deps.CapAction
	if capAction == "" {
		capAction = CapActionNotify
	}
	return &EscalationService{
		core:          newCore(deps.CoreDependencies),
		assignment:    deps.Assignment,
		metrics:       deps.Metrics,
		maxLevel:      deps.MaxLevel,
		capAction:     capAction,
		reassignOnSLA: deps.ReassignOnSLA,
	}
}

// Escalate handles a manual escalation request. Re-escalating a breach that
// was already escalated returns the ticket unchanged.
func (s *EscalationService) Escalate(ctx context.Context, req domain.EscalationRequest) (*domain.Complaint, error) {
	if err := requireElevated(req.Actor); err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, apperrors.NewValidationError("reason required", map[string]any{"reason": "required"})
	}
	if req.TargetLevel < 0 {
		return nil, apperrors.NewValidationError("invalid target level", map[string]any{"target_level": "must not be negative"})
	}
	if req.EscalatedTo != nil && strings.TrimSpace(*req.EscalatedTo) == "" {
		req.EscalatedTo = nil
	}
	if req.TriggeredBy == "" {
		req.TriggeredBy = domain.TriggerManual
	}

	var evs []events.Event
	complaint, err := s.mutate(ctx, req.TicketID, func(ctx context.Context, t *domain.Complaint) error {
		var breach *domain.SLABreach
		if req.BreachID != nil {
			b, err := s.repos.Breaches.GetByID(ctx, *req.BreachID)
			if err != nil {
				return storeError(err, "sla breach", *req.BreachID)
			}
			if b.TicketID != t.ID {
				return apperrors.NewValidationError("breach belongs to another ticket", map[string]any{"breach_id": *req.BreachID})
			}
			if b.EscalatedAt != nil {
				return errNoChange
			}
			breach = b
		}
		out, err := s.apply(ctx, t, req, breach)
		if err != nil {
			return err
		}
		evs = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return complaint, nil
}

// escalateBreach is used by the monitor inside its own ticket mutation.
func (s *EscalationService) escalateBreach(ctx context.Context, t *domain.Complaint, breach *domain.SLABreach) ([]events.Event, error) {
	if breach.EscalatedAt != nil || breach.Status != domain.BreachOpen {
		return nil, nil
	}
	return s.apply(ctx, t, domain.EscalationRequest{
		TicketID:    t.ID,
		Reason:      string(breach.BreachType) + " deadline missed",
		TriggeredBy: domain.TriggerSLABreach,
		BreachID:    &breach.ID,
		Actor:       domain.SystemActor,
	}, breach)
}

// apply mutates t and the breach in the caller's transaction and returns the
// events to publish after commit.
func (s *EscalationService) apply(ctx context.Context, t *domain.Complaint, req domain.EscalationRequest, breach *domain.SLABreach) ([]events.Event, error) {
	if t.Status.IsTerminal() {
		return nil, apperrors.NewInvalidTransition("cannot escalate a closed ticket", map[string]any{"status": t.Status})
	}
	current := t.EscalationLevel
	target := current + 1
	if req.TargetLevel != 0 {
		if req.TargetLevel <= current {
			return nil, apperrors.NewValidationError("invalid target level", map[string]any{
				"target_level":  "must exceed current level",
				"current_level": current,
			})
		}
		target = req.TargetLevel
	}

	now := s.clock.Now()
	if s.maxLevel > 0 && target > s.maxLevel {
		if req.TriggeredBy == domain.TriggerManual {
			return nil, apperrors.NewInvalidTransition("escalation cap reached", map[string]any{
				"current_level": current,
				"max_level":     s.maxLevel,
			})
		}
		if breach != nil {
			breach.EscalatedAt = &now
			if err := s.repos.Breaches.Update(ctx, breach); err != nil {
				return nil, err
			}
		}
		s.logger.Warn("escalation cap reached",
			zap.String("ticket_id", t.ID),
			zap.Int("level", current),
			zap.String("cap_action", s.capAction))
		if s.capAction != CapActionNotify {
			return nil, nil
		}
		return []events.Event{s.event(events.EventEscalationCapReached, t.ID, req.Actor, CapReachedPayload{
			Level:    current,
			MaxLevel: s.maxLevel,
			BreachID: req.BreachID,
		})}, nil
	}

	oldAssignee := t.AssigneeID
	reassigned := false
	if req.EscalatedTo != nil {
		reassigned = !sameAssignee(t.AssigneeID, req.EscalatedTo)
		t.AssigneeID = strPtr(*req.EscalatedTo)
	} else if s.assignment != nil && (req.TriggeredBy == domain.TriggerManual || s.reassignOnSLA) {
		sel, err := s.assignment.SelectAssignee(ctx, domain.RuleSubject{
			Category: t.Category,
			Priority: t.Priority,
			Tags:     append(normalizeTags(t.Tags), domain.EscalatedTag),
		})
		if err != nil {
			return nil, err
		}
		if sel.RuleID != nil && !sameAssignee(t.AssigneeID, &sel.AssigneeID) {
			t.AssigneeID = strPtr(sel.AssigneeID)
			reassigned = true
		}
	}
	t.EscalationLevel = target

	metadata := map[string]any{
		"previous_level": current,
		"level":          target,
		"triggered_by":   req.TriggeredBy,
	}
	if req.BreachID != nil {
		metadata["breach_id"] = *req.BreachID
	}
	if reassigned {
		metadata["old_assignee_id"] = oldAssignee
		metadata["new_assignee_id"] = t.AssigneeID
	}
	if err := s.record(ctx, t, domain.ChangeKindEscalation, t.Status, t.Status, req.Actor, req.Reason, metadata); err != nil {
		return nil, err
	}
	if breach != nil {
		breach.EscalatedAt = &now
		if err := s.repos.Breaches.Update(ctx, breach); err != nil {
			return nil, err
		}
	}

	s.metrics.RecordEscalation(string(req.TriggeredBy))
	s.logger.Info("complaint escalated",
		zap.String("ticket_id", t.ID),
		zap.Int("level", target),
		zap.String("triggered_by", string(req.TriggeredBy)))

	evs := []events.Event{s.event(events.EventComplaintEscalated, t.ID, req.Actor, events.EscalatedPayload{
		Level:       target,
		TriggeredBy: req.TriggeredBy,
		Reason:      req.Reason,
		EscalatedTo: t.AssigneeID,
		BreachID:    req.BreachID,
	})}
	if reassigned {
		evs = append(evs, s.event(events.EventComplaintAssigned, t.ID, req.Actor, events.ComplaintAssignedPayload{
			OldAssigneeID: oldAssignee,
			AssigneeID:    t.AssigneeID,
		}))
	}
	return evs, nil
}

// AddressBreach marks an open breach as handled.
func (s *EscalationService) AddressBreach(ctx context.Context, actor domain.Actor, breachID, note string) (*domain.SLABreach, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	return s.closeBreach(ctx, actor, breachID, domain.BreachAddressed, strings.TrimSpace(note))
}

// ExcuseBreach waives an open breach. A reason is mandatory.
func (s *EscalationService) ExcuseBreach(ctx context.Context, actor domain.Actor, breachID, reason string) (*domain.SLABreach, error) {
	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason required", map[string]any{"reason": "required"})
	}
	return s.closeBreach(ctx, actor, breachID, domain.BreachExcused, reason)
}

func (s *EscalationService) closeBreach(ctx context.Context, actor domain.Actor, breachID string, status domain.BreachStatus, note string) (*domain.SLABreach, error) {
	existing, err := s.repos.Breaches.GetByID(ctx, breachID)
	if err != nil {
		return nil, storeError(err, "sla breach", breachID)
	}

	var out *domain.SLABreach
	_, err = s.mutate(ctx, existing.TicketID, func(ctx context.Context, _ *domain.Complaint) error {
		b, err := s.repos.Breaches.GetByID(ctx, breachID)
		if err != nil {
			return storeError(err, "sla breach", breachID)
		}
		if b.Status != domain.BreachOpen {
			return apperrors.NewInvalidTransition("breach is already closed", map[string]any{
				"breach_id": breachID,
				"status":    b.Status,
			})
		}
		now := s.clock.Now()
		b.Status = status
		b.ClosedBy = strPtr(actor.ID)
		b.ClosedAt = &now
		if note != "" {
			b.Note = strPtr(note)
		}
		if err := s.repos.Breaches.Update(ctx, b); err != nil {
			return err
		}
		out = b
		return errNoChange
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("sla breach closed",
		zap.String("breach_id", breachID),
		zap.String("ticket_id", out.TicketID),
		zap.String("status", string(status)))
	return out, nil
}

// GetBreach returns one breach.
func (s *EscalationService) GetBreach(ctx context.Context, actor domain.Actor, id string) (*domain.SLABreach, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	b, err := s.repos.Breaches.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "sla breach", id)
	}
	return b, nil
}

// ListBreaches returns breaches matching filter.
func (s *EscalationService) ListBreaches(ctx context.Context, actor domain.Actor, filter repository.BreachFilter) ([]domain.SLABreach, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	for _, st := range filter.Statuses {
		if st != domain.BreachOpen && st != domain.BreachAddressed && st != domain.BreachExcused {
			fields["status"] = "unknown status " + string(st)
		}
	}
	for _, bt := range filter.Types {
		if bt != domain.BreachResponse && bt != domain.BreachResolution {
			fields["type"] = "unknown breach type " + string(bt)
		}
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid filter", fields)
	}
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	list, err := s.repos.Breaches.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "sla breach", "")
	}
	return list, nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
