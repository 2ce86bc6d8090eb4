package middleware

import (
	"easybills/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" && c.Path() == "/ws" {
			// Websocket clients cannot set headers from the browser, so a
			// query parameter is accepted there. Everywhere else the token
			// stays out of the URL, which request logs record in full.
			token = c.Query("token")
		}
		if token == "" {
			logger.Warn("Missing authorization token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
			})
		}

		// Remove "Bearer " prefix if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			logger.Warn("Invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		// Store claims in context
		c.Locals("userID", claims.UserID)
		c.Locals("email", claims.Email)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// RequireRole rejects requests whose token does not carry the given role.
// It must run after AuthMiddleware.
func RequireRole(role string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actual, _ := c.Locals("role").(string)
		if actual != role {
			logger.Warn("Insufficient role",
				zap.String("required", role),
				zap.String("actual", actual),
			)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions",
			})
		}
		return c.Next()
	}
}
