package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
)

// PolicyHandler manages SLA configs and assignment rules.
type PolicyHandler struct {
	sla   *service.SLAPolicyService
	rules *service.AssignmentService
}

// NewPolicyHandler constructs handler.
func NewPolicyHandler(sla *service.SLAPolicyService, rules *service.AssignmentService) *PolicyHandler {
	return &PolicyHandler{sla: sla, rules: rules}
}

func slaInput(req dto.SLAConfigRequest) service.SLAConfigInput {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return service.SLAConfigInput{
		Category:          req.Category,
		Priority:          req.Priority,
		ResponseMinutes:   req.ResponseMinutes,
		ResolutionMinutes: req.ResolutionMinutes,
		Enabled:           enabled,
	}
}

// ListSLAConfigs GET /sla-configs.
func (h *PolicyHandler) ListSLAConfigs(c *fiber.Ctx) error {
	configs, err := h.sla.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.SLAConfigResponse, 0, len(configs))
	for i := range configs {
		out = append(out, slaConfigResponse(&configs[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// GetSLAConfig GET /sla-configs/:id.
func (h *PolicyHandler) GetSLAConfig(c *fiber.Ctx) error {
	cfg, err := h.sla.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaConfigResponse(cfg)})
}

// CreateSLAConfig POST /sla-configs.
func (h *PolicyHandler) CreateSLAConfig(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.SLAConfigRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	cfg, err := h.sla.Create(c.UserContext(), actor, slaInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": slaConfigResponse(cfg)})
}

// UpdateSLAConfig PUT /sla-configs/:id.
func (h *PolicyHandler) UpdateSLAConfig(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.SLAConfigRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	cfg, err := h.sla.Update(c.UserContext(), actor, c.Params("id"), slaInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaConfigResponse(cfg)})
}

// DeleteSLAConfig DELETE /sla-configs/:id.
func (h *PolicyHandler) DeleteSLAConfig(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.sla.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ResolveTargets GET /sla-configs/resolve?category=&priority=.
func (h *PolicyHandler) ResolveTargets(c *fiber.Ctx) error {
	targets, err := h.sla.Resolve(c.UserContext(),
		domain.ComplaintCategory(c.Query("category")),
		domain.ComplaintPriority(c.Query("priority")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SLATargetsResponse{
		ResponseMinutes:   targets.ResponseMinutes,
		ResolutionMinutes: targets.ResolutionMinutes,
		Source:            targets.Source,
	}})
}

func ruleInput(req dto.RuleRequest) service.RuleInput {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return service.RuleInput{
		Name: req.Name,
		Conditions: domain.RuleConditions{
			Categories: req.Conditions.Categories,
			Priorities: req.Conditions.Priorities,
			Tags:       req.Conditions.Tags,
		},
		AssigneeID: req.AssigneeID,
		Enabled:    enabled,
	}
}

// ListRules GET /assignment-rules.
func (h *PolicyHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.rules.ListRules(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleList(rules)})
}

// GetRule GET /assignment-rules/:id.
func (h *PolicyHandler) GetRule(c *fiber.Ctx) error {
	rule, err := h.rules.GetRule(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// CreateRule POST /assignment-rules.
func (h *PolicyHandler) CreateRule(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.RuleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	rule, err := h.rules.CreateRule(c.UserContext(), actor, ruleInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ruleResponse(rule)})
}

// UpdateRule PUT /assignment-rules/:id.
func (h *PolicyHandler) UpdateRule(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.RuleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	rule, err := h.rules.UpdateRule(c.UserContext(), actor, c.Params("id"), ruleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// ToggleRule PATCH /assignment-rules/:id/enabled.
func (h *PolicyHandler) ToggleRule(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ToggleRuleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	rule, err := h.rules.ToggleRule(c.UserContext(), actor, c.Params("id"), *req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// DeleteRule DELETE /assignment-rules/:id.
func (h *PolicyHandler) DeleteRule(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.rules.DeleteRule(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ReorderRules PUT /assignment-rules/order.
func (h *PolicyHandler) ReorderRules(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ReorderRulesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	rules, err := h.rules.ReorderRules(c.UserContext(), actor, req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleList(rules)})
}

// PreviewAssignee POST /assignment-rules/preview.
func (h *PolicyHandler) PreviewAssignee(c *fiber.Ctx) error {
	var req dto.PreviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	sel, err := h.rules.Preview(c.UserContext(), domain.RuleSubject{
		Category: req.Category,
		Priority: req.Priority,
		Tags:     req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sel})
}
