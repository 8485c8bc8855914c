package handlers

import (
	"aeterna/internal/camara"
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CamaraHandler proxies the network API reads used by the frontend
type CamaraHandler struct {
	client *camara.Client
}

// NewCamaraHandler creates a new CAMARA handler
func NewCamaraHandler(client *camara.Client) *CamaraHandler {
	return &CamaraHandler{client: client}
}

// QoSProfiles handles GET /api/camara/qos-profiles
func (h *CamaraHandler) QoSProfiles(c *fiber.Ctx) error {
	return respond(c, func(ctx context.Context) (interface{}, error) {
		return h.client.ListQoSProfiles(ctx)
	})
}

// SimSwap handles POST /api/camara/sim-swap
func (h *CamaraHandler) SimSwap(c *fiber.Ctx) error {
	var q camara.SimSwapQuery
	if ok, err := parsePhoneBody(c, &q, &q.PhoneNumber); !ok {
		return err
	}
	return respond(c, func(ctx context.Context) (interface{}, error) {
		return h.client.CheckSimSwap(ctx, q)
	})
}

// Location handles POST /api/camara/location
func (h *CamaraHandler) Location(c *fiber.Ctx) error {
	var q camara.LocationQuery
	if ok, err := parsePhoneBody(c, &q, &q.PhoneNumber); !ok {
		return err
	}
	return respond(c, func(ctx context.Context) (interface{}, error) {
		return h.client.RetrieveLocation(ctx, q)
	})
}

// PopulationDensity handles POST /api/camara/population-density
func (h *CamaraHandler) PopulationDensity(c *fiber.Ctx) error {
	var q camara.DensityQuery
	if err := c.BodyParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if q.Area.RadiusMeters <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "area.radiusMeters must be positive"})
	}
	if q.Area.Type == "" {
		q.Area.Type = "Circle"
	}
	return respond(c, func(ctx context.Context) (interface{}, error) {
		return h.client.PopulationDensity(ctx, q)
	})
}

// QualityOnDemand handles POST /api/camara/quality-on-demand
func (h *CamaraHandler) QualityOnDemand(c *fiber.Ctx) error {
	var q camara.QoDRequest
	if ok, err := parsePhoneBody(c, &q, &q.PhoneNumber); !ok {
		return err
	}
	return respond(c, func(ctx context.Context) (interface{}, error) {
		return h.client.RequestQualityOnDemand(ctx, q)
	})
}

// parsePhoneBody decodes a body that must carry a phone number. When it
// reports false the 400 response has already been written.
func parsePhoneBody(c *fiber.Ctx, out interface{}, phone *string) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(*phone) == "" {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "phoneNumber is required"})
	}
	return true, nil
}

func respond(c *fiber.Ctx, call func(ctx context.Context) (interface{}, error)) error {
	result, err := call(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}
