// Package response renders the portal's JSON envelopes.
package response

import (
	"portal_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorBody is the failure envelope.
type ErrorBody struct {
	OK        bool       `json:"ok"`
	Error     *ErrorInfo `json:"error"`
	RequestID string     `json:"request_id,omitempty"`
}

// OK writes {"ok": true, ...fields}.
func OK(c *fiber.Ctx, fields fiber.Map) error {
	body := fiber.Map{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(body)
}

// Created writes a 201 with the OK envelope.
func Created(c *fiber.Ctx, fields fiber.Map) error {
	c.Status(fiber.StatusCreated)
	return OK(c, fields)
}

// Error writes the failure envelope for err with err's status.
func Error(c *fiber.Ctx, err *apperr.AppError) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.Status(err.Status).JSON(ErrorBody{
		OK: false,
		Error: &ErrorInfo{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
		RequestID: requestID,
	})
}

// Fail is Error with a fresh AppError.
func Fail(c *fiber.Ctx, status int, code, message string) error {
	return Error(c, apperr.New(code, message, status))
}
