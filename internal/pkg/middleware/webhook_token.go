package middleware

import (
	"crypto/hmac"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/env"
)

const ProvisionerTokenHeader = "X-Provisioner-Token"

// ProvisionerWebhookAuth authenticates callbacks from the provisioning
// backend via a shared token header. Comparison is constant-time. An empty
// configured token rejects everything; running without webhook auth is not a
// supported mode.
func ProvisionerWebhookAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := strings.TrimSpace(env.GetEnv("PROVISIONER_WEBHOOK_TOKEN", ""))
		if expected == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_unavailable", "message": "Webhook authentication not configured"})
		}

		token := strings.TrimSpace(c.Get(ProvisionerTokenHeader))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing provisioner token"})
		}
		if !hmac.Equal([]byte(token), []byte(expected)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid provisioner token"})
		}

		return c.Next()
	}
}
