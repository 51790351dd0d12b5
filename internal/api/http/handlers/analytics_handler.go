package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
)

// AnalyticsHandler serves read-only reporting.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: analytics}
}

func analyticsRange(c *fiber.Ctx) (service.AnalyticsRange, error) {
	var (
		r   service.AnalyticsRange
		err error
	)
	if r.From, err = queryTime(c, "from"); err != nil {
		return r, err
	}
	if r.To, err = queryTime(c, "to"); err != nil {
		return r, err
	}
	return r, nil
}

// Stats GET /analytics/stats.
func (h *AnalyticsHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	r, err := analyticsRange(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), actor, r)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Trend GET /analytics/trend?period=day|week|month.
func (h *AnalyticsHandler) Trend(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	r, err := analyticsRange(c)
	if err != nil {
		return err
	}
	trend, err := h.service.Trend(c.UserContext(), actor, domain.TrendPeriod(c.Query("period")), r)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": trend})
}

// Categories GET /analytics/categories.
func (h *AnalyticsHandler) Categories(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	r, err := analyticsRange(c)
	if err != nil {
		return err
	}
	items, err := h.service.Categories(c.UserContext(), actor, r)
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.CategoryAnalytics{}
	}
	return c.JSON(fiber.Map{"data": items})
}
