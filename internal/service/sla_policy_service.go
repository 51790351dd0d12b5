package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// SLAPolicyService resolves response and resolution targets.
type SLAPolicyService struct {
	core
}

// SLAConfigInput describes a config write.
type SLAConfigInput struct {
	Category          domain.ComplaintCategory
	Priority          domain.ComplaintPriority
	ResponseMinutes   int
	ResolutionMinutes int
	Enabled           bool
}

// NewSLAPolicyService constructs the service.
func NewSLAPolicyService(deps CoreDependencies) *SLAPolicyService {
	return &SLAPolicyService{core: newCore(deps)}
}

// ResolveConfig returns the exact enabled config, then the wildcard-category
// config for the priority, then the built-in default.
func (s *SLAPolicyService) ResolveConfig(ctx context.Context, category domain.ComplaintCategory, priority domain.ComplaintPriority) (domain.SLATargets, error) {
	for _, candidate := range []domain.ComplaintCategory{category, domain.CategoryAny} {
		cfg, err := s.repos.SLAConfigs.FindEnabled(ctx, candidate, priority)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.SLATargets{}, err
		}
		source := "config:" + cfg.ID
		if candidate == domain.CategoryAny {
			source = "wildcard:" + cfg.ID
		}
		return domain.SLATargets{
			ResponseMinutes:   cfg.ResponseMinutes,
			ResolutionMinutes: cfg.ResolutionMinutes,
			Source:            source,
		}, nil
	}

	targets, ok := domain.DefaultSLATargets[priority]
	if !ok {
		targets = domain.DefaultSLATargets[domain.PriorityMedium]
	}
	return targets, nil
}

// ComputeDeadlines returns dueAt and resolutionDueAt measured from base.
func (s *SLAPolicyService) ComputeDeadlines(ctx context.Context, category domain.ComplaintCategory, priority domain.ComplaintPriority, base time.Time) (time.Time, time.Time, domain.SLATargets, error) {
	targets, err := s.ResolveConfig(ctx, category, priority)
	if err != nil {
		return time.Time{}, time.Time{}, domain.SLATargets{}, err
	}
	due, resolutionDue := targets.Deadlines(base)
	return due, resolutionDue, targets, nil
}

// Resolve is the public lookup used by the preview endpoint.
func (s *SLAPolicyService) Resolve(ctx context.Context, category domain.ComplaintCategory, priority domain.ComplaintPriority) (domain.SLATargets, error) {
	if err := validatePair(category, priority); err != nil {
		return domain.SLATargets{}, err
	}
	targets, err := s.ResolveConfig(ctx, category, priority)
	if err != nil {
		return domain.SLATargets{}, storeError(err, "sla config", "")
	}
	return targets, nil
}

// Create stores a new config.
func (s *SLAPolicyService) Create(ctx context.Context, actor domain.Actor, input SLAConfigInput) (*domain.SLAConfig, error) {
	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	if err := validateSLAInput(input); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	cfg := &domain.SLAConfig{
		ID:                uuid.NewString(),
		Category:          input.Category,
		Priority:          input.Priority,
		ResponseMinutes:   input.ResponseMinutes,
		ResolutionMinutes: input.ResolutionMinutes,
		Enabled:           input.Enabled,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := s.atomically(ctx, func(ctx context.Context) error {
		return s.repos.SLAConfigs.Create(ctx, cfg)
	})
	if err != nil {
		return nil, slaWriteError(err, cfg)
	}
	s.logger.Info("sla config created",
		zap.String("sla_config_id", cfg.ID),
		zap.String("category", string(cfg.Category)),
		zap.String("priority", string(cfg.Priority)))
	return cfg, nil
}

// Update replaces the targets of a config.
func (s *SLAPolicyService) Update(ctx context.Context, actor domain.Actor, id string, input SLAConfigInput) (*domain.SLAConfig, error) {
	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	if err := validateSLAInput(input); err != nil {
		return nil, err
	}
	var cfg *domain.SLAConfig
	err := s.atomically(ctx, func(ctx context.Context) error {
		existing, err := s.repos.SLAConfigs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		existing.Category = input.Category
		existing.Priority = input.Priority
		existing.ResponseMinutes = input.ResponseMinutes
		existing.ResolutionMinutes = input.ResolutionMinutes
		existing.Enabled = input.Enabled
		existing.UpdatedAt = s.clock.Now()
		cfg = existing
		return s.repos.SLAConfigs.Update(ctx, existing)
	})
	if err != nil {
		if cfg == nil {
			return nil, storeError(err, "sla config", id)
		}
		return nil, slaWriteError(err, cfg)
	}
	return cfg, nil
}

// Delete removes a config. Existing deadlines are not recomputed.
func (s *SLAPolicyService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := requireElevated(actor); err != nil {
		return err
	}
	err := s.atomically(ctx, func(ctx context.Context) error {
		return s.repos.SLAConfigs.Delete(ctx, id)
	})
	return storeError(err, "sla config", id)
}

// Get returns one config.
func (s *SLAPolicyService) Get(ctx context.Context, id string) (*domain.SLAConfig, error) {
	cfg, err := s.repos.SLAConfigs.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "sla config", id)
	}
	return cfg, nil
}

// List returns all configs.
func (s *SLAPolicyService) List(ctx context.Context) ([]domain.SLAConfig, error) {
	configs, err := s.repos.SLAConfigs.List(ctx)
	if err != nil {
		return nil, storeError(err, "sla config", "")
	}
	return configs, nil
}

func validatePair(category domain.ComplaintCategory, priority domain.ComplaintPriority) error {
	fields := map[string]any{}
	if !category.Valid() && category != domain.CategoryAny {
		fields["category"] = "unknown category"
	}
	if !priority.Valid() {
		fields["priority"] = "unknown priority"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid sla key", fields)
	}
	return nil
}

func validateSLAInput(input SLAConfigInput) error {
	fields := map[string]any{}
	if !input.Category.Valid() && input.Category != domain.CategoryAny {
		fields["category"] = "unknown category"
	}
	if !input.Priority.Valid() {
		fields["priority"] = "unknown priority"
	}
	if input.ResponseMinutes <= 0 {
		fields["response_minutes"] = "must be positive"
	}
	if input.ResolutionMinutes <= 0 {
		fields["resolution_minutes"] = "must be positive"
	} else if input.ResolutionMinutes < input.ResponseMinutes {
		fields["resolution_minutes"] = "must not be shorter than response_minutes"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid sla config", fields)
	}
	return nil
}

func slaWriteError(err error, cfg *domain.SLAConfig) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict("an enabled sla config already exists for this category and priority", map[string]any{
			"category": cfg.Category,
			"priority": cfg.Priority,
		})
	}
	return storeError(err, "sla config", cfg.ID)
}
