package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-crosscheck-api/internal/config"
	"github.com/noah-isme/gema-crosscheck-api/internal/handler"
	"github.com/noah-isme/gema-crosscheck-api/internal/middleware"
	"github.com/noah-isme/gema-crosscheck-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CrossCheckHandler      *handler.CrossCheckHandler
	AdminCrossCheckHandler *handler.AdminCrossCheckHandler
	ScoreStreamHandler     *handler.ScoreStreamHandler
	JWTMiddleware          fiber.Handler
	HealthProbes           []handler.HealthProbe
	ExposeMetrics          bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	if deps.ExposeMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	v2 := app.Group("/api/v2", jwtMiddleware)

	// Staff only: distribution, completion and audit trail
	admin := v2.Group("/admin", middleware.RequireStaff())
	if deps.AdminCrossCheckHandler != nil {
		deps.AdminCrossCheckHandler.Register(admin)
	}
	if deps.ScoreStreamHandler != nil {
		deps.ScoreStreamHandler.Register(admin)
	}

	// Students: solutions, reviews, feedback
	if deps.CrossCheckHandler != nil {
		deps.CrossCheckHandler.Register(v2)
	}
}
