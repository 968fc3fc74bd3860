package http

import (
	"portal_server/core/domain"
	"portal_server/core/service/cookbook"
	"portal_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type CookbookHandler struct {
	cookbook *cookbook.Service
}

func NewCookbookHandler(cookbook *cookbook.Service) *CookbookHandler {
	return &CookbookHandler{cookbook: cookbook}
}

func (h *CookbookHandler) Register(router fiber.Router) {
	cb := router.Group("/cookbook")
	cb.Get("/pantry", h.GetPantry)
	cb.Post("/pantry", h.SavePantry)
	cb.Get("/appliances", h.GetAppliances)
	cb.Post("/appliances", h.SaveAppliances)
	cb.Post("/generate", h.Generate)
	cb.Get("/recipes", h.ListRecipes)
	cb.Post("/recipes", h.SaveRecipe)
	cb.Delete("/recipes/:id", h.DeleteRecipe)
	cb.Get("/export", h.Export)
	cb.Post("/import", h.Import)
}

// =============================================================================
// Pantry & Appliances
// =============================================================================

func (h *CookbookHandler) GetPantry(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	pantry, err := h.cookbook.GetPantry(requestContext(c), email)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"pantry": pantry})
}

func (h *CookbookHandler) SavePantry(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var req struct {
		Pantry []domain.PantryItem `json:"pantry"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	pantry, err := h.cookbook.SavePantry(requestContext(c), email, req.Pantry)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"pantry": pantry})
}

func (h *CookbookHandler) GetAppliances(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	appliances, err := h.cookbook.GetAppliances(requestContext(c), email)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"appliances": appliances})
}

func (h *CookbookHandler) SaveAppliances(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var req struct {
		Appliances []string `json:"appliances"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	appliances, err := h.cookbook.SaveAppliances(requestContext(c), email, req.Appliances)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"appliances": appliances})
}

// =============================================================================
// Generation
// =============================================================================

func (h *CookbookHandler) Generate(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var req struct {
		MealType    string `json:"mealType"`
		PeopleCount int    `json:"peopleCount"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.cookbook.Generate(requestContext(c), email, req.MealType, req.PeopleCount)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"recipe": res.Recipe, "html": res.HTML})
}

// =============================================================================
// Saved Recipes
// =============================================================================

func (h *CookbookHandler) ListRecipes(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	recipes, err := h.cookbook.ListRecipes(requestContext(c), email)
	if err != nil {
		return err
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	return response.OK(c, fiber.Map{"recipes": recipes})
}

func (h *CookbookHandler) SaveRecipe(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var req domain.Recipe
	if err := parseBody(c, &req); err != nil {
		return err
	}
	recipe, err := h.cookbook.SaveRecipe(requestContext(c), email, req)
	if err != nil {
		return err
	}
	return response.Created(c, fiber.Map{"recipe": recipe})
}

func (h *CookbookHandler) DeleteRecipe(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	if err := h.cookbook.DeleteRecipe(requestContext(c), email, c.Params("id")); err != nil {
		return err
	}
	return response.OK(c, nil)
}

// =============================================================================
// Import / Export
// =============================================================================

func (h *CookbookHandler) Export(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	doc, err := h.cookbook.Export(requestContext(c), email)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="cookbook-export.json"`)
	return c.JSON(doc)
}

func (h *CookbookHandler) Import(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	var doc domain.CookbookExport
	if err := parseBody(c, &doc); err != nil {
		return err
	}
	if err := h.cookbook.Import(requestContext(c), email, &doc); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{
		"pantry":     len(doc.Pantry),
		"appliances": len(doc.Appliances),
		"recipes":    len(doc.Recipes),
	})
}
