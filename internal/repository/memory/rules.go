package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
)

type ruleRepo struct {
	s *Store
}

func (r *ruleRepo) Create(ctx context.Context, rule *domain.AssignmentRule) error {
	return r.s.write(ctx, func(d *state) error {
		for id, existing := range d.rules {
			if id == rule.ID || existing.PriorityOrder == rule.PriorityOrder {
				return repository.ErrDuplicate
			}
		}
		d.rules[rule.ID] = rule.Clone()
		return nil
	})
}

func (r *ruleRepo) Update(ctx context.Context, rule *domain.AssignmentRule) error {
	return r.s.write(ctx, func(d *state) error {
		existing, ok := d.rules[rule.ID]
		if !ok {
			return repository.ErrNotFound
		}
		updated := rule.Clone()
		updated.PriorityOrder = existing.PriorityOrder
		d.rules[rule.ID] = updated
		return nil
	})
}

func (r *ruleRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.rules[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.rules, id)
		return nil
	})
}

func (r *ruleRepo) GetByID(ctx context.Context, id string) (*domain.AssignmentRule, error) {
	var out domain.AssignmentRule
	err := r.s.read(ctx, func(d *state) error {
		rule, ok := d.rules[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = rule.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ruleRepo) List(ctx context.Context) ([]domain.AssignmentRule, error) {
	var result []domain.AssignmentRule
	err := r.s.read(ctx, func(d *state) error {
		for _, rule := range d.rules {
			result = append(result, rule.Clone())
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].PriorityOrder < result[j].PriorityOrder })
	return result, err
}

func (r *ruleRepo) Reorder(ctx context.Context, ids []string) error {
	return r.s.write(ctx, func(d *state) error {
		for _, id := range ids {
			if _, ok := d.rules[id]; !ok {
				return repository.ErrNotFound
			}
		}
		for i, id := range ids {
			rule := d.rules[id]
			rule.PriorityOrder = i + 1
			d.rules[id] = rule
		}
		return nil
	})
}
