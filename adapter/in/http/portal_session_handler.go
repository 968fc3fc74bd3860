package http

import (
	"portal_server/core/service/auth"
	"portal_server/pkg/logger"
	"portal_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// SessionHandler serves session introspection and the page bootstrap config.
type SessionHandler struct {
	oauth       *auth.OAuthService
	portalToken string
}

func NewSessionHandler(oauth *auth.OAuthService, portalToken string) *SessionHandler {
	return &SessionHandler{oauth: oauth, portalToken: portalToken}
}

func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("/session", h.Session)
	router.Get("/config", h.Config)
}

func (h *SessionHandler) Session(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	connected, err := h.oauth.GmailConnected(requestContext(c), email)
	if err != nil {
		logger.WithContext(requestContext(c)).WithError(err).Warn("[Session] could not check Gmail credentials")
	}
	return response.OK(c, fiber.Map{"email": email, "gmailConnected": connected})
}

func (h *SessionHandler) Config(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"token": h.portalToken})
}
