package handlers

import (
	"aeterna/internal/camara"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
)

// statusForKind maps a failure kind to the HTTP status returned to clients.
// Operator and assistant failures are gateway errors; local misconfiguration is ours.
func statusForKind(kind camara.Kind) int {
	switch kind {
	case camara.KindTokenAcquisition, camara.KindUpstream, camara.KindResourceCreation:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as {error, kind}. A request that ran out of time is a 504.
func writeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
			"error": err.Error(),
			"kind":  "timeout",
		})
	}

	kind := camara.KindOf(err)
	label := string(kind)
	if label == "" {
		label = "internal"
	}
	return c.Status(statusForKind(kind)).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  label,
	})
}
