package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/fieldtrack/internal/core/ports"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		}
		if deps.Session != nil {
			body["session"] = deps.Session.ID()
		}
		return c.JSON(body)
	}
}

// ReadyHandler checks the session, NATS, the location broker, the cache and
// the site database. Components that are not configured are reported but do
// not fail readiness, except the session.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		if deps.Session != nil {
			if _, err := deps.Session.State(ctx); err != nil {
				checks["session"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["session"] = "ok"
			}
		} else {
			checks["session"] = "not configured"
			allOK = false
		}

		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		if deps.MQTT != nil {
			if deps.MQTT.IsConnectionOpen() {
				checks["mqtt"] = "ok"
			} else {
				checks["mqtt"] = "disconnected"
				allOK = false
			}
		} else {
			checks["mqtt"] = "not configured"
		}

		if deps.Cache != nil {
			var err error
			if p, ok := deps.Cache.(Pinger); ok {
				err = p.Ping(ctx)
			} else if _, err = deps.Cache.Get(ctx, "__health_check__"); errors.Is(err, ports.ErrCacheMiss) {
				err = nil
			}
			if err != nil {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		if deps.DB != nil {
			if err := deps.DB.Ping(ctx); err != nil {
				checks["database"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["database"] = "ok"
			}
		} else {
			checks["database"] = "not configured"
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
