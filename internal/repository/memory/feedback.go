package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
)

type feedbackRepo struct {
	s *Store
}

func (r *feedbackRepo) Create(ctx context.Context, f *domain.AnonymousFeedback) error {
	return r.s.write(ctx, func(d *state) error {
		for id, existing := range d.feedback {
			if id == f.ID || existing.TokenHash == f.TokenHash {
				return repository.ErrDuplicate
			}
		}
		d.feedback[f.ID] = *f
		return nil
	})
}

func (r *feedbackRepo) Update(ctx context.Context, f *domain.AnonymousFeedback) error {
	return r.s.write(ctx, func(d *state) error {
		existing, ok := d.feedback[f.ID]
		if !ok {
			return repository.ErrNotFound
		}
		updated := *f
		updated.TokenHash = existing.TokenHash
		d.feedback[f.ID] = updated
		return nil
	})
}

func (r *feedbackRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.feedback[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.feedback, id)
		return nil
	})
}

func (r *feedbackRepo) GetByID(ctx context.Context, id string) (*domain.AnonymousFeedback, error) {
	var out domain.AnonymousFeedback
	err := r.s.read(ctx, func(d *state) error {
		f, ok := d.feedback[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *feedbackRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.AnonymousFeedback, error) {
	var out *domain.AnonymousFeedback
	err := r.s.read(ctx, func(d *state) error {
		for _, f := range d.feedback {
			if f.TokenHash == tokenHash {
				found := f
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *feedbackRepo) List(ctx context.Context, filter repository.FeedbackFilter) ([]domain.AnonymousFeedback, error) {
	var result []domain.AnonymousFeedback
	err := r.s.read(ctx, func(d *state) error {
		for _, f := range d.feedback {
			if filter.Status != nil && f.Status != *filter.Status {
				continue
			}
			if filter.Category != nil && f.Category != *filter.Category {
				continue
			}
			result = append(result, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return page(result, filter.Limit, filter.Offset), nil
}
