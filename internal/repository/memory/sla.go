package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
)

type slaConfigRepo struct {
	s *Store
}

func enabledClash(d *state, cfg *domain.SLAConfig) bool {
	if !cfg.Enabled {
		return false
	}
	for id, existing := range d.slaConfigs {
		if id != cfg.ID && existing.Enabled && existing.Category == cfg.Category && existing.Priority == cfg.Priority {
			return true
		}
	}
	return false
}

func (r *slaConfigRepo) Create(ctx context.Context, cfg *domain.SLAConfig) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.slaConfigs[cfg.ID]; ok || enabledClash(d, cfg) {
			return repository.ErrDuplicate
		}
		d.slaConfigs[cfg.ID] = *cfg
		return nil
	})
}

func (r *slaConfigRepo) Update(ctx context.Context, cfg *domain.SLAConfig) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.slaConfigs[cfg.ID]; !ok {
			return repository.ErrNotFound
		}
		if enabledClash(d, cfg) {
			return repository.ErrDuplicate
		}
		d.slaConfigs[cfg.ID] = *cfg
		return nil
	})
}

func (r *slaConfigRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.slaConfigs[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.slaConfigs, id)
		return nil
	})
}

func (r *slaConfigRepo) GetByID(ctx context.Context, id string) (*domain.SLAConfig, error) {
	var out domain.SLAConfig
	err := r.s.read(ctx, func(d *state) error {
		cfg, ok := d.slaConfigs[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *slaConfigRepo) List(ctx context.Context) ([]domain.SLAConfig, error) {
	var result []domain.SLAConfig
	err := r.s.read(ctx, func(d *state) error {
		for _, cfg := range d.slaConfigs {
			result = append(result, cfg)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, err
}

func (r *slaConfigRepo) FindEnabled(ctx context.Context, category domain.ComplaintCategory, priority domain.ComplaintPriority) (*domain.SLAConfig, error) {
	var out *domain.SLAConfig
	err := r.s.read(ctx, func(d *state) error {
		for _, cfg := range d.slaConfigs {
			if cfg.Enabled && cfg.Category == category && cfg.Priority == priority {
				found := cfg
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

type breachRepo struct {
	s *Store
}

func (r *breachRepo) Create(ctx context.Context, b *domain.SLABreach) error {
	return r.s.write(ctx, func(d *state) error {
		for id, existing := range d.breaches {
			if id == b.ID || (existing.TicketID == b.TicketID && existing.BreachType == b.BreachType && existing.DueAt.Equal(b.DueAt)) {
				return repository.ErrDuplicate
			}
		}
		d.breaches[b.ID] = *b
		return nil
	})
}

func (r *breachRepo) Update(ctx context.Context, b *domain.SLABreach) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.breaches[b.ID]; !ok {
			return repository.ErrNotFound
		}
		d.breaches[b.ID] = *b
		return nil
	})
}

func (r *breachRepo) GetByID(ctx context.Context, id string) (*domain.SLABreach, error) {
	var out domain.SLABreach
	err := r.s.read(ctx, func(d *state) error {
		b, ok := d.breaches[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *breachRepo) Find(ctx context.Context, ticketID string, breachType domain.BreachType, dueAt time.Time) (*domain.SLABreach, error) {
	var out *domain.SLABreach
	err := r.s.read(ctx, func(d *state) error {
		for _, b := range d.breaches {
			if b.TicketID == ticketID && b.BreachType == breachType && b.DueAt.Equal(dueAt) {
				found := b
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *breachRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLABreach, error) {
	return r.List(ctx, repository.BreachFilter{TicketID: &ticketID, Limit: -1})
}

func (r *breachRepo) List(ctx context.Context, f repository.BreachFilter) ([]domain.SLABreach, error) {
	var result []domain.SLABreach
	err := r.s.read(ctx, func(d *state) error {
		for _, b := range d.breaches {
			if f.TicketID != nil && b.TicketID != *f.TicketID {
				continue
			}
			if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
				continue
			}
			if len(f.Types) > 0 && !slices.Contains(f.Types, b.BreachType) {
				continue
			}
			if f.DetectedFrom != nil && b.DetectedAt.Before(*f.DetectedFrom) {
				continue
			}
			if f.DetectedTo != nil && b.DetectedAt.After(*f.DetectedTo) {
				continue
			}
			result = append(result, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DetectedAt.Equal(result[j].DetectedAt) {
			return result[i].DetectedAt.Before(result[j].DetectedAt)
		}
		return result[i].ID < result[j].ID
	})
	return page(result, f.Limit, f.Offset), nil
}
