package http

import (
	"portal_server/core/service/auth"
	"portal_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type AllowlistHandler struct {
	allowlist *auth.AllowlistService
}

func NewAllowlistHandler(allowlist *auth.AllowlistService) *AllowlistHandler {
	return &AllowlistHandler{allowlist: allowlist}
}

func (h *AllowlistHandler) Register(router fiber.Router) {
	router.Get("/allowlist", h.Get)
	router.Put("/allowlist", h.Update)
}

func (h *AllowlistHandler) Get(c *fiber.Ctx) error {
	list, err := h.allowlist.Get(requestContext(c))
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{
		"emails":   list.Emails,
		"source":   list.Source,
		"editable": list.Editable,
	})
}

func (h *AllowlistHandler) Update(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var req struct {
		Emails []string `json:"emails"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	list, err := h.allowlist.Update(requestContext(c), email, req.Emails)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{
		"emails":   list.Emails,
		"source":   list.Source,
		"editable": list.Editable,
	})
}
