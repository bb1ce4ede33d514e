// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CallerContextMiddleware extracts the caller's wallet address and roles
// set by the Gateway after wallet authentication. Every mutating ledger
// route requires a wallet identity; queries stay open.
func CallerContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		wallet := c.Get("X-User-ID")
		rolesStr := c.Get("X-User-Roles")

		if wallet == "" {
			log.Printf("❌ [CALLER_CTX] X-User-ID required but missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		// Attach to ctx for handlers
		c.Locals("user_id", wallet)
		c.Locals("user_roles", roles)

		return c.Next()
	}
}
