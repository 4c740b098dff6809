package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// DependencyCheck is one backend probed by the readiness endpoint. A nil
// Ping means the backend is not configured and Fallback is reported instead.
// Only Required failures make the service unready.
type DependencyCheck struct {
	Name     string
	Ping     func(context.Context) error
	Fallback string
	Required bool
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	checks      []DependencyCheck
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, checks: checks}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings every dependency. A degraded cache still reports ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	deps := fiber.Map{}
	ready := true
	for _, check := range h.checks {
		if check.Ping == nil {
			deps[check.Name] = check.Fallback
			continue
		}
		if err := check.Ping(ctx); err != nil {
			deps[check.Name] = err.Error()
			if check.Required {
				ready = false
			}
			continue
		}
		deps[check.Name] = "ok"
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"service":      h.serviceName,
		"dependencies": deps,
	})
}
