package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
)

// FeedbackHandler serves anonymous feedback. Submission and lookup are
// unauthenticated; triage endpoints require staff.
type FeedbackHandler struct {
	service *service.AnonymousFeedbackService
}

// NewFeedbackHandler constructs handler.
func NewFeedbackHandler(feedbackService *service.AnonymousFeedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: feedbackService}
}

// Submit POST /feedback.
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	feedback, token, err := h.service.Create(c.UserContext(), service.FeedbackInput{
		Category: req.Category,
		Body:     req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FeedbackCreatedResponse{
		ID:          feedback.ID,
		LookupToken: token,
		CreatedAt:   feedback.CreatedAt,
	}})
}

// Lookup POST /feedback/lookup.
func (h *FeedbackHandler) Lookup(c *fiber.Ctx) error {
	var req dto.FeedbackLookupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	feedback, err := h.service.Lookup(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedbackView(feedback)})
}

// List GET /admin/feedback.
func (h *FeedbackHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	filter := repository.FeedbackFilter{}
	if v := c.Query("status"); v != "" {
		status := domain.FeedbackStatus(v)
		filter.Status = &status
	}
	if v := c.Query("category"); v != "" {
		category := domain.ComplaintCategory(v)
		filter.Category = &category
	}
	filter.Limit, filter.Offset = paging(c)

	items, err := h.service.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	out := make([]dto.FeedbackView, 0, len(items))
	for i := range items {
		out = append(out, feedbackView(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get GET /admin/feedback/:id.
func (h *FeedbackHandler) Get(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	feedback, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedbackView(feedback)})
}

// Respond POST /admin/feedback/:id/response.
func (h *FeedbackHandler) Respond(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackResponseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	feedback, err := h.service.Respond(c.UserContext(), actor, c.Params("id"), req.Response)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedbackView(feedback)})
}

// UpdateStatus PATCH /admin/feedback/:id/status.
func (h *FeedbackHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	feedback, err := h.service.UpdateStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedbackView(feedback)})
}

// Purge DELETE /admin/feedback/:id.
func (h *FeedbackHandler) Purge(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.service.Purge(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
