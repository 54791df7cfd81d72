package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopmate/sentinel/internal/audit"
)

// AuditRequests turns denied requests into security events after the
// handler chain has run. 401 becomes an authentication failure, 403 an
// authorization failure and 429 a rate limit event.
func AuditRequests(logger *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		reqCtx := RequestContextFromCtx(c)
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				reqCtx.StatusCode = e.Code
			}
		}
		switch reqCtx.StatusCode {
		case fiber.StatusUnauthorized:
			logger.LogAuthentication(reqCtx, false, "request rejected: unauthorized", nil)
		case fiber.StatusForbidden:
			logger.LogAuthorization(reqCtx, false, "request rejected: forbidden", nil)
		case fiber.StatusTooManyRequests:
			logger.LogRateLimitExceeded(reqCtx, "request rejected: rate limited", nil)
		}
		return err
	}
}
