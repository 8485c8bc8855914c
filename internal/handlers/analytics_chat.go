package handlers

import (
	"aeterna/internal/middleware"
	"aeterna/internal/models"
	"aeterna/internal/services"
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// chatRequestTimeout bounds one chat turn. It stays under the server's write timeout.
const chatRequestTimeout = 55 * time.Second

// ChatComposer composes analytics replies
type ChatComposer interface {
	GenerateResponse(ctx context.Context, req services.GenerateRequest) (*models.ChatResponse, error)
}

// AnalyticsChatHandler handles analytics chat turns over HTTP
type AnalyticsChatHandler struct {
	composer ChatComposer
	hub      *services.SessionHub
	timeout  time.Duration
}

// NewAnalyticsChatHandler creates a new analytics chat handler. hub may be nil.
func NewAnalyticsChatHandler(composer ChatComposer, hub *services.SessionHub) *AnalyticsChatHandler {
	return &AnalyticsChatHandler{composer: composer, hub: hub, timeout: chatRequestTimeout}
}

// Handle answers POST /analytics-chat
func (h *AnalyticsChatHandler) Handle(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "prompt is required",
		})
	}

	// Identity token verified by the identity middleware, if any
	token, _ := c.Locals(middleware.LocalsIdentityToken).(string)

	// fasthttp does not cancel the user context when the client goes away, so
	// the deadline is what makes outstanding telco and assistant calls stop.
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	resp, err := h.composer.GenerateResponse(ctx, services.GenerateRequest{
		Persona:   req.Persona,
		Prompt:    req.Prompt,
		Context:   req.Context,
		SessionID: req.SessionID,
		Language:  req.Language,
		AuthToken: token,
	})
	if err != nil {
		log.Printf("❌ [ANALYTICS] Chat failed for persona %q: %v", req.Persona, err)
		return writeError(c, err)
	}

	if h.hub != nil && resp.Metadata != nil {
		h.hub.Broadcast(c.UserContext(), resp.Metadata.SessionID, models.SessionEvent{
			Event: models.EventResponse,
			Data: map[string]interface{}{
				"persona":  resp.Persona,
				"messages": resp.Messages,
				"metadata": resp.Metadata,
			},
		})
	}

	return c.JSON(resp)
}
