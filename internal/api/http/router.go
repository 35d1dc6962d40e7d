package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Complaints *handlers.ComplaintsHandler
	Metrics    *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.JSON(cfg.Metrics.Snapshot())
	})

	app.Get("/", cfg.Complaints.Home)
	app.Post("/submit_complaint", cfg.Complaints.Submit)
	app.Get("/check_status/:ticket", cfg.Complaints.CheckStatus)
	app.Put("/resolve_complaint/:ticket", cfg.Complaints.Resolve)
}
