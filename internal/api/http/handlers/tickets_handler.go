package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
)

// TicketsHandler exposes the complaint lifecycle.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), actor, service.CreateComplaintInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	filter, err := parseComplaintQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintList(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// UpdateStatus POST /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.StatusUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), actor, c.Params("id"), req.Status, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// Acknowledge POST /tickets/:id/acknowledge.
func (h *TicketsHandler) Acknowledge(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Acknowledge(c.UserContext(), actor, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ReasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Reopen(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// Withdraw POST /tickets/:id/withdraw.
func (h *TicketsHandler) Withdraw(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Withdraw(c.UserContext(), actor, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// UpdatePriority PATCH /tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.PriorityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.UpdatePriority(c.UserContext(), actor, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// Reassign PATCH /tickets/:id/assignee.
func (h *TicketsHandler) Reassign(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Reassign(c.UserContext(), actor, c.Params("id"), req.AssigneeID, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponse(entries)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	comments, err := h.service.Comments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.service.Comment(c.UserContext(), actor, c.Params("id"), req.Body, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// DeleteComment DELETE /comments/:id.
func (h *TicketsHandler) DeleteComment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteComment(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListBreaches GET /tickets/:id/breaches.
func (h *TicketsHandler) ListBreaches(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	breaches, err := h.service.Breaches(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": breachList(breaches)})
}

func parseComplaintQuery(c *fiber.Ctx) (repository.ComplaintFilter, error) {
	filter := repository.ComplaintFilter{}
	for _, s := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.ComplaintStatus(s))
	}
	for _, s := range queryList(c, "category") {
		filter.Categories = append(filter.Categories, domain.ComplaintCategory(s))
	}
	for _, s := range queryList(c, "priority") {
		filter.Priorities = append(filter.Priorities, domain.ComplaintPriority(s))
	}
	if v := c.Query("assignee_id"); v != "" {
		filter.AssigneeID = &v
	}
	if v := c.Query("submitter_id"); v != "" {
		filter.SubmitterID = &v
	}
	if v := strings.TrimSpace(c.Query("q")); v != "" {
		filter.SearchTerm = &v
	}

	var err error
	if filter.Escalated, err = queryBool(c, "escalated"); err != nil {
		return filter, err
	}
	if filter.Breached, err = queryBool(c, "breached"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom, err = queryTime(c, "created_from"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = queryTime(c, "created_to"); err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = paging(c)
	return filter, nil
}
