package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopmate/sentinel/internal/monitor"
)

// RejectBlockedIPs drops requests from addresses the monitor has blocked.
// The check runs before any handler so a blocked client cannot reach the
// API at all.
func RejectBlockedIPs(m *monitor.Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.IsIPBlocked(c.IP()) {
			return fiber.NewError(fiber.StatusForbidden, "address is blocked")
		}
		return c.Next()
	}
}
