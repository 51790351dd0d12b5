package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Workflow       *handlers.WorkflowHandler
	Escalation     *handlers.EscalationHandler
	Policy         *handlers.PolicyHandler
	Feedback       *handlers.FeedbackHandler
	Analytics      *handlers.AnalyticsHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	public := app.Group("/api/v1")
	public.Post("/feedback", cfg.Feedback.Submit)
	public.Post("/feedback/lookup", cfg.Feedback.Lookup)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	handler := auth.RequireHandler()
	elevated := auth.RequireElevated()

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/status", handler, cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/acknowledge", handler, cfg.Tickets.Acknowledge)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/withdraw", cfg.Tickets.Withdraw)
	tickets.Patch("/:id/priority", handler, cfg.Tickets.UpdatePriority)
	tickets.Patch("/:id/assignee", elevated, cfg.Tickets.Reassign)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/breaches", cfg.Tickets.ListBreaches)
	tickets.Post("/:id/escalate", elevated, cfg.Escalation.Escalate)

	tickets.Get("/:id/resolutions", cfg.Workflow.ListResolutions)
	tickets.Post("/:id/resolutions", handler, cfg.Workflow.SubmitResolution)
	tickets.Get("/:id/resolutions/active", cfg.Workflow.ActiveResolution)
	tickets.Post("/:id/resolutions/verify", cfg.Workflow.VerifyResolution)
	tickets.Post("/:id/resolutions/reject", cfg.Workflow.RejectResolution)

	tickets.Get("/:id/survey", cfg.Workflow.TicketSurvey)
	tickets.Post("/:id/survey", handler, cfg.Workflow.SendSurvey)
	tickets.Post("/:id/survey/remind", handler, cfg.Workflow.RemindSurvey)

	api.Delete("/comments/:id", cfg.Tickets.DeleteComment)

	surveys := api.Group("/surveys")
	surveys.Get("/:id", cfg.Workflow.GetSurvey)
	surveys.Get("/:id/response", cfg.Workflow.SurveyAnswer)
	surveys.Post("/:id/response", cfg.Workflow.RespondSurvey)

	breaches := api.Group("/breaches", handler)
	breaches.Get("/", cfg.Escalation.ListBreaches)
	breaches.Get("/:id", cfg.Escalation.GetBreach)
	breaches.Post("/:id/address", cfg.Escalation.AddressBreach)
	breaches.Post("/:id/excuse", elevated, cfg.Escalation.ExcuseBreach)

	sla := api.Group("/sla-configs", handler)
	sla.Get("/", cfg.Policy.ListSLAConfigs)
	sla.Get("/resolve", cfg.Policy.ResolveTargets)
	sla.Get("/:id", cfg.Policy.GetSLAConfig)
	sla.Post("/", elevated, cfg.Policy.CreateSLAConfig)
	sla.Put("/:id", elevated, cfg.Policy.UpdateSLAConfig)
	sla.Delete("/:id", elevated, cfg.Policy.DeleteSLAConfig)

	rules := api.Group("/assignment-rules", handler)
	rules.Get("/", cfg.Policy.ListRules)
	rules.Post("/preview", cfg.Policy.PreviewAssignee)
	rules.Put("/order", elevated, cfg.Policy.ReorderRules)
	rules.Get("/:id", cfg.Policy.GetRule)
	rules.Post("/", elevated, cfg.Policy.CreateRule)
	rules.Put("/:id", elevated, cfg.Policy.UpdateRule)
	rules.Patch("/:id/enabled", elevated, cfg.Policy.ToggleRule)
	rules.Delete("/:id", elevated, cfg.Policy.DeleteRule)

	analytics := api.Group("/analytics", handler)
	analytics.Get("/stats", cfg.Analytics.Stats)
	analytics.Get("/trend", cfg.Analytics.Trend)
	analytics.Get("/categories", cfg.Analytics.Categories)

	admin := api.Group("/admin")
	admin.Get("/feedback", handler, cfg.Feedback.List)
	admin.Get("/feedback/:id", handler, cfg.Feedback.Get)
	admin.Post("/feedback/:id/response", handler, cfg.Feedback.Respond)
	admin.Patch("/feedback/:id/status", handler, cfg.Feedback.UpdateStatus)
	admin.Delete("/feedback/:id", auth.RequireAdmin(), cfg.Feedback.Purge)
	admin.Post("/sla/sweep", auth.RequireAdmin(), cfg.Escalation.RunSweep)
}
