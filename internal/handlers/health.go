package handlers

import (
	"aeterna/internal/camara"
	"aeterna/internal/services"
	"time"

	"github.com/gofiber/fiber/v2"
)

// OperatorStatus reports the last operator probe
type OperatorStatus interface {
	Snapshot() services.OperatorHealth
}

// HealthHandler handles health check requests
type HealthHandler struct {
	hub      *services.SessionHub
	mode     camara.Mode
	operator OperatorStatus
}

// NewHealthHandler creates a new health handler. operator may be nil when probing is disabled.
func NewHealthHandler(hub *services.SessionHub, mode camara.Mode, operator OperatorStatus) *HealthHandler {
	return &HealthHandler{hub: hub, mode: mode, operator: operator}
}

// Liveness answers GET /healthz
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":      "healthy",
		"connections": h.hub.Count(),
		"transport":   h.mode,
		"timestamp":   time.Now().Format(time.RFC3339),
	}
	if h.operator != nil {
		body["operator"] = h.operator.Snapshot()
	}
	return c.JSON(body)
}
