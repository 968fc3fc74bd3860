package http

import (
	"portal_server/core/service/notes"
	"portal_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type NotesHandler struct {
	notes *notes.Service
}

func NewNotesHandler(notes *notes.Service) *NotesHandler {
	return &NotesHandler{notes: notes}
}

func (h *NotesHandler) Register(router fiber.Router) {
	n := router.Group("/notes")
	n.Get("/", h.List)
	n.Post("/", h.Create)
	n.Put("/:id", h.Update)
	n.Delete("/:id", h.Delete)
}

type noteRequest struct {
	Text string `json:"text"`
}

func (h *NotesHandler) List(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	list, err := h.notes.List(requestContext(c), email)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"notes": list})
}

func (h *NotesHandler) Create(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var req noteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	note, err := h.notes.Create(requestContext(c), email, req.Text)
	if err != nil {
		return err
	}
	return response.Created(c, fiber.Map{"note": note})
}

func (h *NotesHandler) Update(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var req noteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	note, err := h.notes.Update(requestContext(c), email, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"note": note})
}

func (h *NotesHandler) Delete(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	if err := h.notes.Delete(requestContext(c), email, c.Params("id")); err != nil {
		return err
	}
	return response.OK(c, nil)
}
