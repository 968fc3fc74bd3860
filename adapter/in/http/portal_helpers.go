package http

import (
	"context"
	"net/url"

	"portal_server/core/domain"
	"portal_server/infra/middleware"
	"portal_server/pkg/apperr"
	"portal_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// GetUserEmail returns the session email set by the session middleware.
func GetUserEmail(c *fiber.Ctx) (string, error) {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return "", apperr.Unauthorized("")
	}
	return email, nil
}

// requestContext carries the request id and user for logging.
func requestContext(c *fiber.Ctx) context.Context {
	return c.UserContext()
}

func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	return nil
}

// emailParam reads an email path parameter, tolerating percent-encoding.
func emailParam(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return domain.NormalizeEmail(raw)
}

// gmailFailure renders the Gmail connection failures in the shape the page
// expects (connected/reconnect flags); other errors go to the error handler.
func gmailFailure(c *fiber.Ctx, err error) error {
	if !apperr.HasCode(err, apperr.CodeNotConnected) && !apperr.HasCode(err, apperr.CodeReconnectRequired) {
		return err
	}
	appErr := apperr.AsAppError(err)
	requestID, _ := c.Locals(middleware.LocalsRequestID).(string)
	return c.Status(appErr.Status).JSON(fiber.Map{
		"ok":        false,
		"connected": false,
		"reconnect": appErr.Code == apperr.CodeReconnectRequired,
		"error": response.ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
		"request_id": requestID,
	})
}
