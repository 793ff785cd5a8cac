// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"quest-entry-service/logger"

	"github.com/gofiber/fiber/v2"
)

// AdminAuth guards operator routes with a static Bearer token.
func AdminAuth(token string, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Service().WithField("path", c.Path()).Warn("admin token missing")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Admin token missing.",
			})
		}

		// Accept "Bearer <token>" or the raw value.
		got := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			log.Service().WithField("path", c.Path()).Warn("invalid admin token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid admin token.",
			})
		}
		return c.Next()
	}
}
