package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/safe2go/support-import/internal/api/http/handlers"
	"github.com/safe2go/support-import/internal/auth"
	"github.com/safe2go/support-import/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Imports        *handlers.ImportHandler
	AuthMiddleware *auth.AuthMiddleware
	ImportRole     domain.OperatorRole
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireRole())
	api.Post("/extract", cfg.Imports.Extract)
	api.Get("/imports/:id", cfg.Imports.GetImport)
	api.Get("/tickets/:external_id/history", cfg.Imports.GetTicketTrail)

	importRole := cfg.ImportRole
	if importRole == "" {
		importRole = domain.OperatorRoleAdmin
	}
	// Guarded per route so GET /imports/:id stays open to every operator.
	canImport := auth.RequireRole(importRole)
	api.Post("/imports/text", canImport, cfg.Imports.ImportText)
	api.Post("/imports/ocr", canImport, cfg.Imports.ImportImage)
	api.Post("/imports/json", canImport, cfg.Imports.ImportJSON)
}
