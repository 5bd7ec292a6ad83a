package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Incidents      *handlers.IncidentsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	UploadDir      string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	incidents := api.Group("/incidents", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	incidents.Post("", cfg.Incidents.Create)
	incidents.Get("", cfg.Incidents.List)
	incidents.Get("/:id", cfg.Incidents.Get)
	incidents.Patch("/:id", cfg.Incidents.Update)

	incidents.Post("/:id/comments", cfg.Incidents.AddComments)
	incidents.Get("/:id/comments", cfg.Incidents.ListComments)

	incidents.Post("/:id/attachments", cfg.Incidents.AddAttachments)
	incidents.Put("/:id/attachments", cfg.Incidents.ReplaceAttachments)
	incidents.Delete("/:id/attachments", cfg.Incidents.RemoveAttachments)
	incidents.Get("/:id/attachments", cfg.Incidents.ListAttachments)

	users := api.Group("/users", cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.RoleAdmin, domain.RoleERP))
	users.Get("", cfg.Users.List)

	// Attachment downloads resolve against the upload root; storage paths are
	// relative and collision-proof.
	app.Static("/files", cfg.UploadDir)
}
