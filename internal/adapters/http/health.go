package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": Version,
		})
	}
}

// readinessCheck names a dependency and whether the service needs it.
type readinessCheck struct {
	name     string
	pinger   Pinger
	required bool
}

// ReadyHandler probes the database, ledger node, NATS and cache. The cache
// and NATS are optional; the service runs degraded without them.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		for _, rc := range []readinessCheck{
			{name: "database", pinger: deps.DB, required: true},
			{name: "ledger", pinger: deps.Ledger, required: true},
			{name: "cache", pinger: deps.Cache},
		} {
			if rc.pinger == nil {
				checks[rc.name] = "not configured"
				allOK = allOK && !rc.required
				continue
			}
			if err := rc.pinger.Ping(ctx); err != nil {
				checks[rc.name] = "error: " + err.Error()
				allOK = allOK && !rc.required
				continue
			}
			checks[rc.name] = "ok"
		}

		switch {
		case deps.NATS == nil:
			checks["nats"] = "not configured"
		case deps.NATS.IsConnected():
			checks["nats"] = "ok"
		default:
			checks["nats"] = "disconnected"
		}

		status := "ready"
		code := fiber.StatusOK
		if !allOK {
			status = "not ready"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
