package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// AssignmentService owns the ordered routing rules and picks assignees.
type AssignmentService struct {
	core
	defaultAssignee string
	// orderMu serializes operations that renumber PriorityOrder.
	orderMu sync.Mutex
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	CoreDependencies
	DefaultAssignee string
}

// RuleInput describes a rule write.
type RuleInput struct {
	Name       string
	Conditions domain.RuleConditions
	AssigneeID string
	Enabled    bool
}

// Selection is the outcome of rule evaluation.
type Selection struct {
	AssigneeID string  `json:"assignee_id"`
	RuleID     *string `json:"rule_id,omitempty"`
	RuleName   string  `json:"rule_name,omitempty"`
	Fallback   bool    `json:"fallback"`
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		core:            newCore(deps.CoreDependencies),
		defaultAssignee: deps.DefaultAssignee,
	}
}

// SelectAssignee evaluates enabled rules in ascending PriorityOrder and
// returns the first match, or the default queue.
func (s *AssignmentService) SelectAssignee(ctx context.Context, subject domain.RuleSubject) (Selection, error) {
	rules, err := s.repos.Rules.List(ctx)
	if err != nil {
		return Selection{}, err
	}
	for i := range rules {
		if rules[i].Matches(subject) {
			return Selection{
				AssigneeID: rules[i].AssigneeID,
				RuleID:     strPtr(rules[i].ID),
				RuleName:   rules[i].Name,
			}, nil
		}
	}
	return Selection{AssigneeID: s.defaultAssignee, Fallback: true}, nil
}

// Preview evaluates rules for hypothetical ticket attributes.
func (s *AssignmentService) Preview(ctx context.Context, subject domain.RuleSubject) (Selection, error) {
	if err := validatePair(subject.Category, subject.Priority); err != nil {
		return Selection{}, err
	}
	subject.Tags = normalizeTags(subject.Tags)
	sel, err := s.SelectAssignee(ctx, subject)
	if err != nil {
		return Selection{}, storeError(err, "assignment rule", "")
	}
	return sel, nil
}

// CreateRule appends a rule at the end of the evaluation order.
func (s *AssignmentService) CreateRule(ctx context.Context, actor domain.Actor, input RuleInput) (*domain.AssignmentRule, error) {
	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	if err := validateRuleInput(&input); err != nil {
		return nil, err
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	now := s.clock.Now()
	rule := &domain.AssignmentRule{
		ID:         uuid.NewString(),
		Name:       input.Name,
		Conditions: input.Conditions,
		AssigneeID: input.AssigneeID,
		Enabled:    input.Enabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.atomically(ctx, func(ctx context.Context) error {
		rules, err := s.repos.Rules.List(ctx)
		if err != nil {
			return err
		}
		rule.PriorityOrder = 1
		if n := len(rules); n > 0 {
			rule.PriorityOrder = rules[n-1].PriorityOrder + 1
		}
		return s.repos.Rules.Create(ctx, rule)
	})
	if err != nil {
		return nil, storeError(err, "assignment rule", rule.ID)
	}
	s.logger.Info("assignment rule created", zap.String("rule_id", rule.ID), zap.Int("priority_order", rule.PriorityOrder))
	return rule, nil
}

// UpdateRule replaces name, conditions, assignee and enabled flag. Order is untouched.
func (s *AssignmentService) UpdateRule(ctx context.Context, actor domain.Actor, id string, input RuleInput) (*domain.AssignmentRule, error) {
	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	if err := validateRuleInput(&input); err != nil {
		return nil, err
	}
	var rule *domain.AssignmentRule
	err := s.atomically(ctx, func(ctx context.Context) error {
		existing, err := s.repos.Rules.GetByID(ctx, id)
		if err != nil {
			return err
		}
		existing.Name = input.Name
		existing.Conditions = input.Conditions
		existing.AssigneeID = input.AssigneeID
		existing.Enabled = input.Enabled
		existing.UpdatedAt = s.clock.Now()
		rule = existing
		return s.repos.Rules.Update(ctx, existing)
	})
	if err != nil {
		return nil, storeError(err, "assignment rule", id)
	}
	return rule, nil
}

// ToggleRule enables or disables a rule without deleting it.
func (s *AssignmentService) ToggleRule(ctx context.Context, actor domain.Actor, id string, enabled bool) (*domain.AssignmentRule, error) {
	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	var rule *domain.AssignmentRule
	err := s.atomically(ctx, func(ctx context.Context) error {
		existing, err := s.repos.Rules.GetByID(ctx, id)
		if err != nil {
			return err
		}
		existing.Enabled = enabled
		existing.UpdatedAt = s.clock.Now()
		rule = existing
		return s.repos.Rules.Update(ctx, existing)
	})
	if err != nil {
		return nil, storeError(err, "assignment rule", id)
	}
	return rule, nil
}

// DeleteRule removes a rule and closes the gap in the numbering.
func (s *AssignmentService) DeleteRule(ctx context.Context, actor domain.Actor, id string) error {
	if err := requireElevated(actor); err != nil {
		return err
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	err := s.atomically(ctx, func(ctx context.Context) error {
		if err := s.repos.Rules.Delete(ctx, id); err != nil {
			return err
		}
		rules, err := s.repos.Rules.List(ctx)
		if err != nil {
			return err
		}
		ids := make([]string, len(rules))
		for i := range rules {
			ids[i] = rules[i].ID
		}
		return s.repos.Rules.Reorder(ctx, ids)
	})
	return storeError(err, "assignment rule", id)
}

// GetRule returns one rule.
func (s *AssignmentService) GetRule(ctx context.Context, id string) (*domain.AssignmentRule, error) {
	rule, err := s.repos.Rules.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "assignment rule", id)
	}
	return rule, nil
}

// ListRules returns every rule in evaluation order.
func (s *AssignmentService) ListRules(ctx context.Context) ([]domain.AssignmentRule, error) {
	rules, err := s.repos.Rules.List(ctx)
	if err != nil {
		return nil, storeError(err, "assignment rule", "")
	}
	return rules, nil
}

// ReorderRules renumbers PriorityOrder 1..N following ids. ids must name
// every existing rule exactly once.
func (s *AssignmentService) ReorderRules(ctx context.Context, actor domain.Actor, ids []string) ([]domain.AssignmentRule, error) {
	if err := requireElevated(actor); err != nil {
		return nil, err
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	var result []domain.AssignmentRule
	err := s.atomically(ctx, func(ctx context.Context) error {
		rules, err := s.repos.Rules.List(ctx)
		if err != nil {
			return err
		}
		if err := checkCompleteOrdering(rules, ids); err != nil {
			return err
		}
		if err := s.repos.Rules.Reorder(ctx, ids); err != nil {
			return err
		}
		result, err = s.repos.Rules.List(ctx)
		return err
	})
	if err != nil {
		return nil, storeError(err, "assignment rule", "")
	}
	s.logger.Info("assignment rules reordered", zap.Strings("order", ids), zap.String("actor_id", actor.ID))
	return result, nil
}

func checkCompleteOrdering(rules []domain.AssignmentRule, ids []string) error {
	existing := make(map[string]bool, len(rules))
	for i := range rules {
		existing[rules[i].ID] = true
	}
	seen := make(map[string]bool, len(ids))
	var unknown, duplicate []string
	for _, id := range ids {
		if seen[id] {
			duplicate = append(duplicate, id)
			continue
		}
		seen[id] = true
		if !existing[id] {
			unknown = append(unknown, id)
		}
	}
	var missing []string
	for i := range rules {
		if !seen[rules[i].ID] {
			missing = append(missing, rules[i].ID)
		}
	}
	if len(unknown)+len(duplicate)+len(missing) == 0 {
		return nil
	}
	details := map[string]any{}
	if len(unknown) > 0 {
		details["unknown"] = unknown
	}
	if len(duplicate) > 0 {
		details["duplicate"] = duplicate
	}
	if len(missing) > 0 {
		details["missing"] = missing
	}
	return apperrors.NewInvalidTransition("reorder must list every rule exactly once", details)
}

func validateRuleInput(input *RuleInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.AssigneeID = strings.TrimSpace(input.AssigneeID)
	input.Conditions.Tags = normalizeTags(input.Conditions.Tags)

	fields := map[string]any{}
	if input.Name == "" {
		fields["name"] = "required"
	}
	if input.AssigneeID == "" {
		fields["assignee_id"] = "required"
	}
	for _, c := range input.Conditions.Categories {
		if !c.Valid() {
			fields["conditions.categories"] = "unknown category " + string(c)
		}
	}
	for _, p := range input.Conditions.Priorities {
		if !p.Valid() {
			fields["conditions.priorities"] = "unknown priority " + string(p)
		}
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid assignment rule", fields)
	}
	return nil
}
