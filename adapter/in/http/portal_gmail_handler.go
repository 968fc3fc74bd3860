package http

import (
	"portal_server/core/service/mail"
	"portal_server/pkg/httputil"
	"portal_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type GmailHandler struct {
	mail *mail.Service
}

func NewGmailHandler(mail *mail.Service) *GmailHandler {
	return &GmailHandler{mail: mail}
}

func (h *GmailHandler) Register(router fiber.Router) {
	gmail := router.Group("/gmail")
	gmail.Get("/unread", h.Unread)
	gmail.Get("/preview", h.Preview)
	gmail.Get("/message/:id", h.Message)
	gmail.Get("/message/:id/attachment/:attachmentId", h.Attachment)
	gmail.Post("/message/:id/read", h.MarkRead)
	gmail.Post("/message/:id/trash", h.Trash)
}

func (h *GmailHandler) Unread(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	n, err := h.mail.UnreadCount(requestContext(c), email)
	if err != nil {
		return gmailFailure(c, err)
	}
	return response.OK(c, fiber.Map{"connected": true, "unread": n})
}

func (h *GmailHandler) Preview(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	messages, err := h.mail.Preview(requestContext(c), email)
	if err != nil {
		return gmailFailure(c, err)
	}
	return response.OK(c, fiber.Map{"connected": true, "messages": messages})
}

func (h *GmailHandler) Message(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	msg, err := h.mail.Message(requestContext(c), email, c.Params("id"))
	if err != nil {
		return gmailFailure(c, err)
	}
	return response.OK(c, fiber.Map{"connected": true, "message": msg})
}

// Attachment streams the attachment bytes with a sanitized download filename.
func (h *GmailHandler) Attachment(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	att, err := h.mail.Attachment(requestContext(c), email,
		c.Params("id"), c.Params("attachmentId"), c.Query("name"), c.Query("type"))
	if err != nil {
		return gmailFailure(c, err)
	}

	c.Set(fiber.HeaderContentType, att.MimeType)
	c.Set(fiber.HeaderContentDisposition, httputil.ContentDisposition(att.Filename))
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderCacheControl, "private, no-store")
	return c.Send(att.Data)
}

func (h *GmailHandler) MarkRead(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	if err := h.mail.MarkRead(requestContext(c), email, c.Params("id")); err != nil {
		return gmailFailure(c, err)
	}
	return response.OK(c, nil)
}

func (h *GmailHandler) Trash(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	if err := h.mail.Trash(requestContext(c), email, c.Params("id")); err != nil {
		return gmailFailure(c, err)
	}
	return response.OK(c, nil)
}
