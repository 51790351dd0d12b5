package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// ResolutionService runs the submit, verify and reject workflow.
type ResolutionService struct {
	core
}

// ResolutionInput is the payload of a submitted resolution.
type ResolutionInput struct {
	Summary      string
	ActionsTaken string
}

// NewResolutionService constructs the service.
func NewResolutionService(deps CoreDependencies) *ResolutionService {
	return &ResolutionService{core: newCore(deps)}
}

// Submit records a resolution for an in-progress ticket and moves it to resolved.
func (s *ResolutionService) Submit(ctx context.Context, actor domain.Actor, ticketID string, input ResolutionInput) (*domain.Resolution, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	input.Summary = strings.TrimSpace(input.Summary)
	input.ActionsTaken = strings.TrimSpace(input.ActionsTaken)
	if input.Summary == "" || len([]rune(input.Summary)) > maxDescriptionLength {
		return nil, apperrors.NewValidationError("invalid resolution", map[string]any{"summary": "required, at most 5000 characters"})
	}

	var (
		resolution *domain.Resolution
		evs        []events.Event
	)
	_, err := s.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Complaint) error {
		switch t.Status {
		case domain.StatusInProgress:
		case domain.StatusResolved:
			return apperrors.NewAlreadySubmitted("a resolution is awaiting verification", map[string]any{"status": t.Status})
		default:
			return invalidTransition(t.Status, domain.StatusResolved)
		}
		if err := s.retireResolution(ctx, t.ID, "superseded"); err != nil {
			return err
		}

		now := s.clock.Now()
		resolution = &domain.Resolution{
			ID:           uuid.NewString(),
			TicketID:     t.ID,
			ResolvedBy:   actor.ID,
			Summary:      input.Summary,
			ActionsTaken: input.ActionsTaken,
			SubmittedAt:  now,
			Verification: domain.VerificationPending,
			Active:       true,
		}
		if err := s.repos.Resolutions.Create(ctx, resolution); err != nil {
			return err
		}
		ev, err := s.transition(ctx, t, domain.StatusResolved, actor, "resolution submitted")
		if err != nil {
			return err
		}
		t.ResolvedAt = &now
		evs = append(evs, ev, s.event(events.EventResolutionSubmitted, t.ID, actor, events.ResolutionPayload{
			ResolutionID: resolution.ID,
			SubmitterID:  t.SubmitterID,
			Summary:      stringPreview(resolution.Summary, 200),
		}))
		return s.closeBreaches(ctx, t.ID, domain.BreachResolution, domain.BreachAddressed, actor, "resolution submitted")
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("resolution submitted", zap.String("ticket_id", ticketID), zap.String("resolution_id", resolution.ID))
	s.publish(ctx, evs...)
	return resolution, nil
}

// Verify accepts the active resolution. Verification implies closure.
func (s *ResolutionService) Verify(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Complaint, error) {
	var evs []events.Event
	complaint, err := s.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Complaint) error {
		if t.SubmitterID != actor.ID && !actor.IsElevated() {
			return apperrors.NewForbidden("only the submitter or a supervisor can verify a resolution")
		}
		if t.Status != domain.StatusResolved {
			return invalidTransition(t.Status, domain.StatusVerified)
		}
		res, err := s.repos.Resolutions.GetActive(ctx, t.ID)
		if err != nil {
			return storeError(err, "resolution", t.ID)
		}
		now := s.clock.Now()
		res.Verification = domain.VerificationVerified
		res.VerifiedBy = strPtr(actor.ID)
		res.VerifiedAt = &now
		if err := s.repos.Resolutions.Update(ctx, res); err != nil {
			return err
		}

		verified, err := s.transition(ctx, t, domain.StatusVerified, actor, "resolution verified")
		if err != nil {
			return err
		}
		closed, err := s.transition(ctx, t, domain.StatusClosed, actor, "closed after verification")
		if err != nil {
			return err
		}
		t.ClosedAt = &now
		evs = append(evs, verified, closed, s.event(events.EventResolutionVerified, t.ID, actor, events.ResolutionPayload{
			ResolutionID: res.ID,
			SubmitterID:  t.SubmitterID,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return complaint, nil
}

// Reject retires the active resolution and sends the ticket back to work
// through reopened.
func (s *ResolutionService) Reject(ctx context.Context, actor domain.Actor, ticketID, reason string) (*domain.Complaint, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason required", map[string]any{"reason": "required"})
	}
	var evs []events.Event
	complaint, err := s.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Complaint) error {
		if t.SubmitterID != actor.ID && !actor.IsElevated() {
			return apperrors.NewForbidden("only the submitter or a supervisor can reject a resolution")
		}
		if t.Status != domain.StatusResolved {
			return invalidTransition(t.Status, domain.StatusReopened)
		}
		res, err := s.repos.Resolutions.GetActive(ctx, t.ID)
		if err != nil {
			return storeError(err, "resolution", t.ID)
		}
		res.Verification = domain.VerificationRejected
		res.RejectionReason = &reason
		res.Active = false
		if err := s.repos.Resolutions.Update(ctx, res); err != nil {
			return err
		}

		reopened, err := s.transition(ctx, t, domain.StatusReopened, actor, reason)
		if err != nil {
			return err
		}
		working, err := s.transition(ctx, t, domain.StatusInProgress, actor, "back in progress after rejection")
		if err != nil {
			return err
		}
		t.ReopenCount++
		t.ResolvedAt = nil
		evs = append(evs, reopened, working, s.event(events.EventResolutionRejected, t.ID, actor, events.ResolutionPayload{
			ResolutionID: res.ID,
			SubmitterID:  t.SubmitterID,
			Reason:       &reason,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return complaint, nil
}

// Active returns the resolution currently attached to the ticket.
func (s *ResolutionService) Active(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Resolution, error) {
	if err := s.checkView(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	res, err := s.repos.Resolutions.GetActive(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "resolution", ticketID)
	}
	return res, nil
}

// List returns every resolution of the ticket, retired ones included.
func (s *ResolutionService) List(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Resolution, error) {
	if err := s.checkView(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	list, err := s.repos.Resolutions.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "resolution", ticketID)
	}
	return list, nil
}

func (s *ResolutionService) checkView(ctx context.Context, actor domain.Actor, ticketID string) error {
	t, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return storeError(err, "ticket", ticketID)
	}
	if !canView(actor, t) {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}
