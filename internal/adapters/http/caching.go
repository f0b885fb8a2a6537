package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses the handler left
// alone. Live session data is never cached; site lists change rarely.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var policy string
		switch {
		case path == "/v1/health" || path == "/v1/ready" || path == "/v1/session":
			policy = "no-store"
		case path == "/v1/scene" || path == "/metrics":
			policy = "no-cache"
		case strings.HasPrefix(path, "/v1/companies/"):
			policy = "private, max-age=60"
		}

		if policy != "" {
			c.Set(fiber.HeaderCacheControl, policy)
		}
		return err
	}
}
