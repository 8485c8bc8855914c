package handlers

import (
	"aeterna/internal/models"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"
)

// AttractionLister returns the first limit attractions; limit <= 0 returns all
type AttractionLister interface {
	Page(limit int) ([]models.Attraction, error)
}

// AttractionHandler serves the read-only attraction catalogue
type AttractionHandler struct {
	catalogue AttractionLister
}

// NewAttractionHandler creates a new attraction handler
func NewAttractionHandler(catalogue AttractionLister) *AttractionHandler {
	return &AttractionHandler{catalogue: catalogue}
}

// List returns every attraction as {"data": [...]}
func (h *AttractionHandler) List(c *fiber.Ctx) error {
	items, err := h.catalogue.Page(0)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get returns one attraction by id
func (h *AttractionHandler) Get(c *fiber.Ctx) error {
	items, err := h.catalogue.Page(0)
	if err != nil {
		return writeError(c, err)
	}
	id := c.Params("id")
	for _, a := range items {
		if a.ID == id {
			return c.JSON(a)
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attraction not found"})
}

// Export returns the catalogue as YAML
func (h *AttractionHandler) Export(c *fiber.Ctx) error {
	items, err := h.catalogue.Page(0)
	if err != nil {
		return writeError(c, err)
	}
	out, err := yaml.Marshal(items)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/yaml")
	return c.Send(out)
}
