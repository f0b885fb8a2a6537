package http

import "github.com/gofiber/fiber/v2"

// APIError is the JSON body of every non-2xx response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

var errorCodes = map[int]string{
	fiber.StatusBadRequest:          "bad_request",
	fiber.StatusNotFound:            "not_found",
	fiber.StatusTooManyRequests:     "rate_limited",
	fiber.StatusInternalServerError: "internal_error",
	fiber.StatusServiceUnavailable:  "unavailable",
}

func respondError(c *fiber.Ctx, status int, msg string) error {
	code, ok := errorCodes[status]
	if !ok {
		code = "error"
	}
	rid, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   msg,
		RequestID: rid,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return respondError(c, fiber.StatusBadRequest, msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return respondError(c, fiber.StatusNotFound, msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return respondError(c, fiber.StatusInternalServerError, msg)
}

// errUnavailable is returned while the session is closed or not answering.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return respondError(c, fiber.StatusServiceUnavailable, msg)
}
