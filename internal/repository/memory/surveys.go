package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
)

type surveyRepo struct {
	s *Store
}

func (r *surveyRepo) Create(ctx context.Context, survey *domain.SatisfactionSurvey) error {
	return r.s.write(ctx, func(d *state) error {
		for id, existing := range d.surveys {
			if id == survey.ID || existing.TicketID == survey.TicketID {
				return repository.ErrDuplicate
			}
		}
		d.surveys[survey.ID] = *survey
		return nil
	})
}

func (r *surveyRepo) Update(ctx context.Context, survey *domain.SatisfactionSurvey) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.surveys[survey.ID]; !ok {
			return repository.ErrNotFound
		}
		d.surveys[survey.ID] = *survey
		return nil
	})
}

func (r *surveyRepo) GetByID(ctx context.Context, id string) (*domain.SatisfactionSurvey, error) {
	var out domain.SatisfactionSurvey
	err := r.s.read(ctx, func(d *state) error {
		survey, ok := d.surveys[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = survey
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *surveyRepo) GetByTicket(ctx context.Context, ticketID string) (*domain.SatisfactionSurvey, error) {
	var out *domain.SatisfactionSurvey
	err := r.s.read(ctx, func(d *state) error {
		for _, survey := range d.surveys {
			if survey.TicketID == ticketID {
				found := survey
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *surveyRepo) CreateResponse(ctx context.Context, resp *domain.SurveyResponse) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.responses[resp.SurveyID]; ok {
			return repository.ErrDuplicate
		}
		d.responses[resp.SurveyID] = *resp
		return nil
	})
}

func (r *surveyRepo) GetResponse(ctx context.Context, surveyID string) (*domain.SurveyResponse, error) {
	var out domain.SurveyResponse
	err := r.s.read(ctx, func(d *state) error {
		resp, ok := d.responses[surveyID]
		if !ok {
			return repository.ErrNotFound
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *surveyRepo) ListResponses(ctx context.Context) ([]domain.SurveyResponse, error) {
	var result []domain.SurveyResponse
	err := r.s.read(ctx, func(d *state) error {
		for _, resp := range d.responses {
			result = append(result, resp)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].SubmittedAt.Before(result[j].SubmittedAt) })
	return result, err
}
