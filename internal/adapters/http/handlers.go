package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/fieldtrack/internal/bridge"
	"github.com/samirrijal/fieldtrack/internal/renderer"
)

// SceneHandler returns a snapshot of every object on the map.
func SceneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Scene.Snapshot())
	}
}

// SessionHandler returns the renderer session state.
func SessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		st, err := deps.Session.State(ctx)
		switch {
		case errors.Is(err, renderer.ErrClosed):
			return errUnavailable(c, "session closed")
		case errors.Is(err, context.DeadlineExceeded):
			return errUnavailable(c, "session busy")
		case err != nil:
			LoggerFromCtx(c.UserContext()).Error("session state", "error", err)
			return errInternal(c, "failed to read session state")
		}
		return c.JSON(st)
	}
}

// CommandHandler accepts one command envelope and queues it on the session.
func CommandHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := append([]byte(nil), c.Body()...)
		cmd, err := bridge.DecodeCommand(body)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		deps.Session.Dispatch(body)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": cmd.Type()})
	}
}

// CompanySitesHandler lists the sites assigned to a company.
func CompanySitesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		company := c.Params("company")
		if company == "" {
			return errBadRequest(c, "company is required")
		}
		sites, err := deps.Sites.ListByCompany(c.UserContext(), company)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("list sites", "company", company, "error", err)
			return errInternal(c, "failed to list sites")
		}
		return c.JSON(sites)
	}
}
