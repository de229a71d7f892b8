package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/identity-service/internal/api/http/handlers"
	"github.com/spec-kit/identity-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Profiles       *handlers.ProfilesHandler
	AuthMiddleware *auth.Middleware
	Registry       *prometheus.Registry
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/verify-email", cfg.Auth.VerifyEmail)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)
	authGroup.Post("/validate-user", cfg.Auth.ValidateUser)
	authGroup.Post("/validate-token", cfg.Auth.ValidateToken)
	authGroup.Post("/refresh-token", cfg.Auth.RefreshToken)

	profiles := app.Group("/profiles", cfg.AuthMiddleware.Handle)
	profiles.Post("/", cfg.Profiles.Create)
	profiles.Get("/", cfg.Profiles.FindAll)
	profiles.Get("/search", cfg.Profiles.Search)
	profiles.Get("/stats", cfg.Profiles.Stats)
	profiles.Get("/by-auth/:authId", cfg.Profiles.FindByAuthRef)
	profiles.Get("/by-email/:email", cfg.Profiles.FindByEmail)
	profiles.Get("/:id/exists", cfg.Profiles.Exists)
	profiles.Get("/:id", cfg.Profiles.FindOne)
	profiles.Patch("/:id", cfg.Profiles.Update)
	profiles.Delete("/:id", cfg.Profiles.Delete)
}
