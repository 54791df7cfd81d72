package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopmate/sentinel/internal/security"
)

// RequestContextFromCtx builds the security request context out of a fiber
// request. The status code reflects the response written so far, so call
// this after the handler when logging outcomes.
func RequestContextFromCtx(c *fiber.Ctx) security.RequestContext {
	return security.RequestContext{
		IP:         c.IP(),
		Method:     c.Method(),
		Path:       c.Path(),
		StatusCode: c.Response().StatusCode(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
		UserID:     userIDFromLocals(c),
		SessionID:  c.Cookies("session_id"),
		ShopDomain: c.Get("X-Shop-Domain"),
	}
}

func userIDFromLocals(c *fiber.Ctx) string {
	if id, ok := c.Locals(localsKeyUserID).(string); ok {
		return id
	}
	return ""
}
