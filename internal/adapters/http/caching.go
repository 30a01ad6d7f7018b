package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets a default Cache-Control on GET responses that did
// not set one. Land data changes only on confirmed transactions, and the
// owner lists are invalidated server-side, so client TTLs stay short.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		if ttl := cacheControlFor(c.Path()); ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

func cacheControlFor(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready":
		return "public, max-age=10"
	case path == "/metrics" || path == "/v1/ledger/status":
		return "no-cache"
	case strings.HasPrefix(path, "/v1/owners/"):
		return "private, max-age=15"
	case strings.HasPrefix(path, "/v1/lands/near"):
		return "public, max-age=60"
	case strings.HasSuffix(path, "/transfers"):
		return "public, max-age=30"
	case strings.HasPrefix(path, "/v1/lands/"):
		return "public, max-age=60"
	case strings.HasPrefix(path, "/docs"):
		return "public, max-age=3600"
	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=30"
	}
	return ""
}
