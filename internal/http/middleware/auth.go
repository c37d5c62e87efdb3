package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/auth"
)

// CallerLocalKey is the key used to store the authenticated caller identity
// in Fiber's context locals.
const CallerLocalKey = "auth_caller"

// TokenVerifier validates a raw bearer token and extracts its claims.
type TokenVerifier interface {
	Verify(raw string) (auth.Claims, error)
}

// Auth requires a valid bearer token on every request it guards.
//
// Behavior:
// - Missing/invalid/expired token: 401 via the global error handler.
// - Valid token without the required scope: 403.
// - Otherwise the caller identity is stored under CallerLocalKey.
func Auth(verifier TokenVerifier, requiredScope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractBearer(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return fiber.ErrUnauthorized
		}
		claims, err := verifier.Verify(raw)
		if err != nil {
			return fiber.ErrUnauthorized
		}
		if requiredScope != "" && !claims.HasScope(requiredScope) {
			return fiber.ErrForbidden
		}
		c.Locals(CallerLocalKey, claims.Subject)
		return c.Next()
	}
}

// CallerFromCtx returns the identity stored by Auth, or "" when absent.
func CallerFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(CallerLocalKey).(string); ok {
		return v
	}
	return ""
}

func extractBearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
