package http

import (
	"portal_server/core/domain"
	"portal_server/core/service/chatlog"
	"portal_server/pkg/apperr"
	"portal_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ChatLogHandler syncs the chat log and manages who may read it.
type ChatLogHandler struct {
	chatlog *chatlog.Service
}

func NewChatLogHandler(chatlog *chatlog.Service) *ChatLogHandler {
	return &ChatLogHandler{chatlog: chatlog}
}

func (h *ChatLogHandler) Register(router fiber.Router) {
	cl := router.Group("/chatlog")
	cl.Get("/", h.Get)
	cl.Put("/", h.Replace)
	cl.Get("/share", h.GetViewers)
	cl.Put("/share", h.SetViewers)
	cl.Get("/shared", h.SharedWithMe)
	cl.Get("/shared/:owner", h.GetShared)
}

func logBody(log *domain.ChatLog) fiber.Map {
	return fiber.Map{
		"owner":     log.Owner,
		"entries":   log.Entries,
		"updatedAt": log.UpdatedAt,
	}
}

func (h *ChatLogHandler) Get(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	log, err := h.chatlog.Get(requestContext(c), email)
	if err != nil {
		return err
	}
	return response.OK(c, logBody(log))
}

func (h *ChatLogHandler) Replace(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var req struct {
		Entries []domain.ChatEntry `json:"entries"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	log, err := h.chatlog.Replace(requestContext(c), email, req.Entries)
	if err != nil {
		return err
	}
	return response.OK(c, logBody(log))
}

func (h *ChatLogHandler) GetViewers(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	viewers, err := h.chatlog.Viewers(requestContext(c), email)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"viewers": viewers})
}

func (h *ChatLogHandler) SetViewers(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var req struct {
		Viewers []string `json:"viewers"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	viewers, err := h.chatlog.SetViewers(requestContext(c), email, req.Viewers)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"viewers": viewers})
}

func (h *ChatLogHandler) SharedWithMe(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	owners, err := h.chatlog.SharedWithMe(requestContext(c), email)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"owners": owners})
}

func (h *ChatLogHandler) GetShared(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	owner := emailParam(c, "owner")
	if owner == "" {
		return apperr.MissingField("owner")
	}
	log, err := h.chatlog.GetShared(requestContext(c), email, owner)
	if err != nil {
		return err
	}
	return response.OK(c, logBody(log))
}
