package middleware

import (
	"aeterna/pkg/auth"
	"log"

	"github.com/gofiber/fiber/v2"
)

// LocalsIdentityToken holds a verified identity token taken from the request
const LocalsIdentityToken = "identity_token"

// LocalsUserID holds the identity token's subject, or "anonymous"
const LocalsUserID = "user_id"

// OptionalIdentityMiddleware verifies an identity token when one is presented.
// Supports both Authorization header and query parameter (for WebSocket connections).
// Requests without a valid token continue as anonymous.
func OptionalIdentityMiddleware(tokens *auth.IdentityTokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string

		// 1. Try Authorization header first
		if authHeader := c.Get("Authorization"); authHeader != "" {
			if extracted, err := auth.ExtractToken(authHeader); err == nil {
				token = extracted
			}
		}

		// 2. Try query parameter (for WebSocket connections)
		if token == "" {
			token = c.Query("token")
		}

		c.Locals(LocalsUserID, "anonymous")
		if token == "" || tokens == nil {
			return c.Next()
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			log.Printf("⚠️  Identity token rejected: %v (continuing as anonymous)", err)
			return c.Next()
		}

		c.Locals(LocalsUserID, claims.SubjectID())
		c.Locals(LocalsIdentityToken, token)
		return c.Next()
	}
}
