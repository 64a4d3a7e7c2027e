// Package middleware holds fiber middleware for the admin API.
package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyAuth protects admin endpoints with a bearer key checked against a
// bcrypt hash. An empty hash locks the admin API entirely.
// Expects: Authorization: Bearer <api_key>
func APIKeyAuth(hash string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			logger.Warn("Admin API key not configured")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Admin API key not configured. Run spctl hash-api-key.",
			})
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Authorization header",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid Authorization header format. Expected: Bearer <api_key>",
			})
		}

		providedKey := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if providedKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is empty",
			})
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(providedKey)); err != nil {
			logger.Warn("Rejected admin API key", slog.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		return c.Next()
	}
}

// HashAPIKey returns the bcrypt hash stored in SITEPULSE_ADMIN_API_KEY_HASH.
func HashAPIKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
