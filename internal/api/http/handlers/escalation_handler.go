package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/worker"
)

// EscalationHandler exposes manual escalation, breach handling and on-demand sweeps.
type EscalationHandler struct {
	escalation *service.EscalationService
	scheduler  *worker.SLAScheduler
}

// NewEscalationHandler constructs handler.
func NewEscalationHandler(escalation *service.EscalationService, scheduler *worker.SLAScheduler) *EscalationHandler {
	return &EscalationHandler{escalation: escalation, scheduler: scheduler}
}

// Escalate POST /tickets/:id/escalate.
func (h *EscalationHandler) Escalate(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.EscalateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.escalation.Escalate(c.UserContext(), domain.EscalationRequest{
		TicketID:    c.Params("id"),
		Reason:      req.Reason,
		TriggeredBy: domain.TriggerManual,
		TargetLevel: req.TargetLevel,
		EscalatedTo: req.EscalatedTo,
		BreachID:    req.BreachID,
		Actor:       actor,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// ListBreaches GET /breaches.
func (h *EscalationHandler) ListBreaches(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	filter := repository.BreachFilter{}
	if v := c.Query("ticket_id"); v != "" {
		filter.TicketID = &v
	}
	for _, s := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.BreachStatus(s))
	}
	for _, s := range queryList(c, "type") {
		filter.Types = append(filter.Types, domain.BreachType(s))
	}
	if filter.DetectedFrom, err = queryTime(c, "detected_from"); err != nil {
		return err
	}
	if filter.DetectedTo, err = queryTime(c, "detected_to"); err != nil {
		return err
	}
	filter.Limit, filter.Offset = paging(c)

	breaches, err := h.escalation.ListBreaches(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": breachList(breaches)})
}

// GetBreach GET /breaches/:id.
func (h *EscalationHandler) GetBreach(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	breach, err := h.escalation.GetBreach(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": breachResponse(breach)})
}

// AddressBreach POST /breaches/:id/address.
func (h *EscalationHandler) AddressBreach(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	breach, err := h.escalation.AddressBreach(c.UserContext(), actor, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": breachResponse(breach)})
}

// ExcuseBreach POST /breaches/:id/excuse.
func (h *EscalationHandler) ExcuseBreach(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ReasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	breach, err := h.escalation.ExcuseBreach(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": breachResponse(breach)})
}

// RunSweep POST /admin/sla/sweep runs one sweep synchronously and returns its report.
func (h *EscalationHandler) RunSweep(c *fiber.Ctx) error {
	report := h.scheduler.RunOnce(c.UserContext())
	return c.JSON(fiber.Map{"data": report})
}
