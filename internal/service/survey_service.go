package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const maxSurveyCommentLength = 2000

// SurveyService sends one satisfaction survey per closed ticket.
type SurveyService struct {
	core
	autoSend bool
}

// SurveyDependencies configures the survey service.
type SurveyDependencies struct {
	CoreDependencies
	AutoSend bool
}

// SurveyResponseInput is a recipient's answer.
type SurveyResponseInput struct {
	Rating  int
	Comment string
}

// NewSurveyService constructs the service.
func NewSurveyService(deps SurveyDependencies) *SurveyService {
	return &SurveyService{core: newCore(deps.CoreDependencies), autoSend: deps.AutoSend}
}

// RegisterHandlers sends the survey automatically once a resolution is verified.
func (s *SurveyService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil || !s.autoSend {
		return
	}
	dispatcher.Subscribe(events.EventResolutionVerified, func(ctx context.Context, ev events.Event) error {
		_, err := s.Send(ctx, domain.SystemActor, ev.TicketID)
		return err
	})
}

// Send creates the ticket's survey. Calling it again returns the existing
// survey unchanged; use Remind to nudge the recipient.
func (s *SurveyService) Send(ctx context.Context, actor domain.Actor, ticketID string) (*domain.SatisfactionSurvey, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	var (
		survey *domain.SatisfactionSurvey
		evs    []events.Event
	)
	_, err := s.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Complaint) error {
		if t.Status != domain.StatusClosed {
			return apperrors.NewInvalidTransition("surveys are sent for closed tickets only", map[string]any{"status": t.Status})
		}
		existing, err := s.repos.Surveys.GetByTicket(ctx, t.ID)
		if err == nil {
			survey = existing
			return errNoChange
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		survey = &domain.SatisfactionSurvey{
			ID:          uuid.NewString(),
			TicketID:    t.ID,
			RecipientID: t.SubmitterID,
			Status:      domain.SurveyPending,
			SentAt:      s.clock.Now(),
		}
		if err := s.repos.Surveys.Create(ctx, survey); err != nil {
			return err
		}
		evs = append(evs, s.event(events.EventSurveySent, t.ID, actor, events.SurveyPayload{
			SurveyID:    survey.ID,
			RecipientID: survey.RecipientID,
		}))
		return errNoChange
	})
	if err != nil {
		return nil, err
	}
	if len(evs) > 0 {
		s.logger.Info("survey sent", zap.String("ticket_id", ticketID), zap.String("survey_id", survey.ID))
	}
	s.publish(ctx, evs...)
	return survey, nil
}

// Remind re-notifies the recipient of a pending survey.
func (s *SurveyService) Remind(ctx context.Context, actor domain.Actor, ticketID string) (*domain.SatisfactionSurvey, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	var (
		survey *domain.SatisfactionSurvey
		evs    []events.Event
	)
	_, err := s.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Complaint) error {
		existing, err := s.repos.Surveys.GetByTicket(ctx, t.ID)
		if err != nil {
			return storeError(err, "survey", t.ID)
		}
		if existing.Status != domain.SurveyPending {
			return apperrors.NewAlreadySubmitted("survey already answered", map[string]any{"survey_id": existing.ID})
		}
		now := s.clock.Now()
		existing.ReminderCount++
		existing.LastReminderAt = &now
		if err := s.repos.Surveys.Update(ctx, existing); err != nil {
			return err
		}
		survey = existing
		evs = append(evs, s.event(events.EventSurveyReminder, t.ID, actor, events.SurveyPayload{
			SurveyID:    existing.ID,
			RecipientID: existing.RecipientID,
			Reminder:    existing.ReminderCount,
		}))
		return errNoChange
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return survey, nil
}

// Respond stores the single response to a survey.
func (s *SurveyService) Respond(ctx context.Context, actor domain.Actor, surveyID string, input SurveyResponseInput) (*domain.SurveyResponse, error) {
	input.Comment = strings.TrimSpace(input.Comment)
	fields := map[string]any{}
	if input.Rating < 1 || input.Rating > 5 {
		fields["rating"] = "must be between 1 and 5"
	}
	if len([]rune(input.Comment)) > maxSurveyCommentLength {
		fields["comment"] = "at most 2000 characters"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid survey response", fields)
	}

	var response *domain.SurveyResponse
	err := s.atomically(ctx, func(ctx context.Context) error {
		survey, err := s.repos.Surveys.GetByID(ctx, surveyID)
		if err != nil {
			return err
		}
		if survey.RecipientID != actor.ID {
			return apperrors.NewForbidden("only the survey recipient can respond")
		}
		if survey.Status == domain.SurveyCompleted {
			return apperrors.NewAlreadySubmitted("survey already answered", map[string]any{"survey_id": surveyID})
		}
		response = &domain.SurveyResponse{
			SurveyID:     survey.ID,
			RespondentID: actor.ID,
			Rating:       input.Rating,
			Comment:      input.Comment,
			SubmittedAt:  s.clock.Now(),
		}
		if err := s.repos.Surveys.CreateResponse(ctx, response); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewAlreadySubmitted("survey already answered", map[string]any{"survey_id": surveyID})
			}
			return err
		}
		survey.Status = domain.SurveyCompleted
		return s.repos.Surveys.Update(ctx, survey)
	})
	if err != nil {
		return nil, storeError(err, "survey", surveyID)
	}
	return response, nil
}

// Get returns a survey visible to actor.
func (s *SurveyService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.SatisfactionSurvey, error) {
	survey, err := s.repos.Surveys.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "survey", id)
	}
	if survey.RecipientID != actor.ID && !actor.IsHandler() {
		return nil, apperrors.NewForbidden("access denied")
	}
	return survey, nil
}

// GetByTicket returns the survey attached to a ticket.
func (s *SurveyService) GetByTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.SatisfactionSurvey, error) {
	survey, err := s.repos.Surveys.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "survey", ticketID)
	}
	if survey.RecipientID != actor.ID && !actor.IsHandler() {
		return nil, apperrors.NewForbidden("access denied")
	}
	return survey, nil
}

// Response returns the answer to a survey.
func (s *SurveyService) Response(ctx context.Context, actor domain.Actor, surveyID string) (*domain.SurveyResponse, error) {
	if _, err := s.Get(ctx, actor, surveyID); err != nil {
		return nil, err
	}
	resp, err := s.repos.Surveys.GetResponse(ctx, surveyID)
	if err != nil {
		return nil, storeError(err, "survey response", surveyID)
	}
	return resp, nil
}
