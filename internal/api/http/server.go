package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/observability"
)

// NewApp builds the fiber application with the shared middleware chain and
// the JSON error envelope.
func NewApp(name string, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, metrics),
	})
	RegisterMiddlewares(app, logger, metrics, timeout)
	return app
}
