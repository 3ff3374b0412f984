package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-multigraders/internal/config"
	"github.com/noah-isme/gema-multigraders/internal/grading"
	"github.com/noah-isme/gema-multigraders/internal/handler"
	"github.com/noah-isme/gema-multigraders/internal/middleware"
	"github.com/noah-isme/gema-multigraders/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler       *handler.GradingHandler
	DefinitionHandler    *handler.DefinitionHandler
	NotificationHandler  *handler.NotificationHandler
	AdminActivityHandler *handler.AdminActivityHandler
	SeedHandler          *handler.SeedHandler
	JWTMiddleware        fiber.Handler
	HealthProbes         map[string]handler.Probe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Seeding is guarded by its own token.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/admin/seed"))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	areas := api.Group("/grading/areas", jwtMiddleware)
	if deps.DefinitionHandler != nil {
		deps.DefinitionHandler.Register(areas)
	}
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(areas)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware, middleware.WithAuth(func(c *fiber.Ctx) error {
			return c.Next()
		}, middleware.AuthOptions{RequireUser: true}))
		deps.NotificationHandler.Register(notifications)
	}

	if deps.AdminActivityHandler != nil {
		activities := api.Group("/admin/activities", jwtMiddleware, middleware.RequireCapability(grading.CapSiteConfig))
		deps.AdminActivityHandler.Register(activities)
	}
}
