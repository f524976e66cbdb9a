package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// DependencyCheck probes one collaborator of the import service. A failing
// optional check marks the service degraded but still ready: without Redis
// recognition runs uncached, without NATS events stay local.
type DependencyCheck struct {
	Name     string
	Optional bool
	Ping     func(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	ocrLanguages []string
	checks       []DependencyCheck
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, ocrLanguages []string, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{
		serviceName:  serviceName,
		version:      version,
		ocrLanguages: ocrLanguages,
		checks:       checks,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "alive",
		"service":       h.serviceName,
		"version":       h.version,
		"ocr_languages": h.ocrLanguages,
	})
}

// Ready runs every dependency check. Only a failing required dependency
// makes the service unavailable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	deps := fiber.Map{}
	status := "ready"
	for _, check := range h.checks {
		if check.Ping == nil {
			continue
		}
		err := check.Ping(ctx)
		switch {
		case err == nil:
			deps[check.Name] = "ok"
		case check.Optional:
			deps[check.Name] = "degraded: " + err.Error()
			if status == "ready" {
				status = "degraded"
			}
		default:
			deps[check.Name] = err.Error()
			status = "unavailable"
		}
	}

	if status != "unavailable" {
		return c.JSON(fiber.Map{
			"status":       status,
			"dependencies": deps,
		})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": deps,
		},
	})
}
