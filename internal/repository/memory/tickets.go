package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
)

type ticketRepo struct {
	s *Store
}

func (r *ticketRepo) Create(ctx context.Context, c *domain.Complaint) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.complaints[c.ID]; ok {
			return repository.ErrDuplicate
		}
		for _, existing := range d.complaints {
			if existing.Key == c.Key {
				return repository.ErrDuplicate
			}
		}
		d.complaints[c.ID] = c.Clone()
		return nil
	})
}

func (r *ticketRepo) Update(ctx context.Context, c *domain.Complaint) error {
	return r.s.write(ctx, func(d *state) error {
		existing, ok := d.complaints[c.ID]
		if !ok || existing.Version != c.Version {
			return repository.ErrVersionConflict
		}
		c.Version++
		d.complaints[c.ID] = c.Clone()
		return nil
	})
}

func (r *ticketRepo) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	var out domain.Complaint
	err := r.s.read(ctx, func(d *state) error {
		c, ok := d.complaints[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ticketRepo) List(ctx context.Context, f repository.ComplaintFilter) ([]domain.Complaint, error) {
	var result []domain.Complaint
	err := r.s.read(ctx, func(d *state) error {
		breached := make(map[string]bool)
		if f.Breached != nil {
			for _, b := range d.breaches {
				breached[b.TicketID] = true
			}
		}
		search := ""
		if f.SearchTerm != nil {
			search = strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		}

		for _, c := range d.complaints {
			if f.SubmitterID != nil && c.SubmitterID != *f.SubmitterID {
				continue
			}
			if f.AssigneeID != nil && (c.AssigneeID == nil || *c.AssigneeID != *f.AssigneeID) {
				continue
			}
			if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, c.Status) {
				continue
			}
			if len(f.Categories) > 0 && !slices.Contains(f.Categories, c.Category) {
				continue
			}
			if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, c.Priority) {
				continue
			}
			if f.Escalated != nil && c.Escalated() != *f.Escalated {
				continue
			}
			if f.Breached != nil && breached[c.ID] != *f.Breached {
				continue
			}
			if f.CreatedFrom != nil && c.CreatedAt.Before(*f.CreatedFrom) {
				continue
			}
			if f.CreatedTo != nil && c.CreatedAt.After(*f.CreatedTo) {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(c.Title), search) &&
				!strings.Contains(strings.ToLower(c.Description), search) &&
				!strings.Contains(strings.ToLower(c.Key), search) {
				continue
			}
			result = append(result, c.Clone())
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
	return page(result, f.Limit, f.Offset), nil
}

func (r *ticketRepo) ListActive(ctx context.Context, afterID string, limit int) ([]domain.Complaint, error) {
	var result []domain.Complaint
	err := r.s.read(ctx, func(d *state) error {
		for id, c := range d.complaints {
			if c.Status.IsTerminal() || id <= afterID {
				continue
			}
			result = append(result, c.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type statusChangeRepo struct {
	s *Store
}

func (r *statusChangeRepo) Create(ctx context.Context, change *domain.StatusChange) error {
	return r.s.write(ctx, func(d *state) error {
		d.changes[change.TicketID] = append(d.changes[change.TicketID], *change)
		return nil
	})
}

func (r *statusChangeRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChange, error) {
	var result []domain.StatusChange
	err := r.s.read(ctx, func(d *state) error {
		result = slices.Clone(d.changes[ticketID])
		return nil
	})
	return result, err
}

type commentRepo struct {
	s *Store
}

func (r *commentRepo) Create(ctx context.Context, comment *domain.ComplaintComment) error {
	return r.s.write(ctx, func(d *state) error {
		d.comments[comment.TicketID] = append(d.comments[comment.TicketID], *comment)
		return nil
	})
}

func (r *commentRepo) GetByID(ctx context.Context, id string) (*domain.ComplaintComment, error) {
	var out *domain.ComplaintComment
	err := r.s.read(ctx, func(d *state) error {
		for _, list := range d.comments {
			for _, c := range list {
				if c.ID == id {
					found := c
					out = &found
					return nil
				}
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *commentRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(d *state) error {
		for ticketID, list := range d.comments {
			idx := slices.IndexFunc(list, func(c domain.ComplaintComment) bool { return c.ID == id })
			if idx >= 0 {
				d.comments[ticketID] = slices.Delete(slices.Clone(list), idx, idx+1)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *commentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.ComplaintComment, error) {
	var result []domain.ComplaintComment
	err := r.s.read(ctx, func(d *state) error {
		result = slices.Clone(d.comments[ticketID])
		return nil
	})
	return result, err
}

type resolutionRepo struct {
	s *Store
}

func (r *resolutionRepo) Create(ctx context.Context, res *domain.Resolution) error {
	return r.s.write(ctx, func(d *state) error {
		if res.Active {
			for _, existing := range d.resolutions[res.TicketID] {
				if existing.Active {
					return repository.ErrDuplicate
				}
			}
		}
		d.resolutions[res.TicketID] = append(d.resolutions[res.TicketID], *res)
		return nil
	})
}

func (r *resolutionRepo) Update(ctx context.Context, res *domain.Resolution) error {
	return r.s.write(ctx, func(d *state) error {
		list := slices.Clone(d.resolutions[res.TicketID])
		idx := slices.IndexFunc(list, func(x domain.Resolution) bool { return x.ID == res.ID })
		if idx < 0 {
			return repository.ErrNotFound
		}
		list[idx] = *res
		d.resolutions[res.TicketID] = list
		return nil
	})
}

func (r *resolutionRepo) GetActive(ctx context.Context, ticketID string) (*domain.Resolution, error) {
	var out *domain.Resolution
	err := r.s.read(ctx, func(d *state) error {
		for _, res := range d.resolutions[ticketID] {
			if res.Active {
				found := res
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *resolutionRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Resolution, error) {
	var result []domain.Resolution
	err := r.s.read(ctx, func(d *state) error {
		result = slices.Clone(d.resolutions[ticketID])
		return nil
	})
	return result, err
}
