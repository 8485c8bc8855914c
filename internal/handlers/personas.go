package handlers

import (
	"aeterna/internal/models"
	"aeterna/internal/persona"
	"errors"

	"github.com/gofiber/fiber/v2"
)

// PersonaHandler exposes the persona catalogue and demo identity tokens
type PersonaHandler struct {
	directory  *persona.Directory
	production bool
}

// NewPersonaHandler creates a new persona handler. Demo tokens are refused in production.
func NewPersonaHandler(directory *persona.Directory, production bool) *PersonaHandler {
	return &PersonaHandler{directory: directory, production: production}
}

// List returns every persona with its demo users
func (h *PersonaHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"personas": h.directory.Personas(),
		"users":    h.directory.Users(),
	})
}

// IssueToken mints an identity token for a demo user of the persona.
// The body may name a specific {"user_id"}; otherwise the persona's first user is used.
func (h *PersonaHandler) IssueToken(c *fiber.Ctx) error {
	if h.production {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	}

	p, ok := h.directory.FindPersona(c.Params("key"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Persona not found"})
	}

	var body struct {
		UserID string `json:"user_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	user, ok := h.pickUser(p.Key, body.UserID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No demo user for persona"})
	}

	token, err := h.directory.DemoToken(user.UserID)
	if err != nil {
		if errors.Is(err, persona.ErrUnknownUser) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"persona": p.Key,
		"user":    user,
	})
}

func (h *PersonaHandler) pickUser(personaKey, userID string) (models.PersonaUser, bool) {
	for _, u := range h.directory.Users() {
		if u.Persona != personaKey {
			continue
		}
		if userID == "" || u.UserID == userID {
			return u, true
		}
	}
	return models.PersonaUser{}, false
}
