package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/service"
)

// WorkflowHandler covers resolution verification and satisfaction surveys.
type WorkflowHandler struct {
	resolutions *service.ResolutionService
	surveys     *service.SurveyService
}

// NewWorkflowHandler constructs handler.
func NewWorkflowHandler(resolutions *service.ResolutionService, surveys *service.SurveyService) *WorkflowHandler {
	return &WorkflowHandler{resolutions: resolutions, surveys: surveys}
}

// SubmitResolution POST /tickets/:id/resolutions.
func (h *WorkflowHandler) SubmitResolution(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ResolutionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.resolutions.Submit(c.UserContext(), actor, c.Params("id"), service.ResolutionInput{
		Summary:      req.Summary,
		ActionsTaken: req.ActionsTaken,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resolutionResponse(res)})
}

// VerifyResolution POST /tickets/:id/resolutions/verify.
func (h *WorkflowHandler) VerifyResolution(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.resolutions.Verify(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// RejectResolution POST /tickets/:id/resolutions/reject.
func (h *WorkflowHandler) RejectResolution(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ReasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.resolutions.Reject(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(ticket)})
}

// ActiveResolution GET /tickets/:id/resolutions/active.
func (h *WorkflowHandler) ActiveResolution(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	res, err := h.resolutions.Active(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resolutionResponse(res)})
}

// ListResolutions GET /tickets/:id/resolutions.
func (h *WorkflowHandler) ListResolutions(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	items, err := h.resolutions.List(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.ResolutionResponse, 0, len(items))
	for i := range items {
		out = append(out, resolutionResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// SendSurvey POST /tickets/:id/survey.
func (h *WorkflowHandler) SendSurvey(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	survey, err := h.surveys.Send(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": surveyView(survey)})
}

// RemindSurvey POST /tickets/:id/survey/remind.
func (h *WorkflowHandler) RemindSurvey(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	survey, err := h.surveys.Remind(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": surveyView(survey)})
}

// TicketSurvey GET /tickets/:id/survey.
func (h *WorkflowHandler) TicketSurvey(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	survey, err := h.surveys.GetByTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": surveyView(survey)})
}

// GetSurvey GET /surveys/:id.
func (h *WorkflowHandler) GetSurvey(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	survey, err := h.surveys.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": surveyView(survey)})
}

// RespondSurvey POST /surveys/:id/response.
func (h *WorkflowHandler) RespondSurvey(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.SurveyResponseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.surveys.Respond(c.UserContext(), actor, c.Params("id"), service.SurveyResponseInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": surveyAnswerView(resp)})
}

// SurveyAnswer GET /surveys/:id/response.
func (h *WorkflowHandler) SurveyAnswer(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	resp, err := h.surveys.Response(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": surveyAnswerView(resp)})
}
