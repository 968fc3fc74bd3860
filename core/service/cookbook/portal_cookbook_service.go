// Package cookbook manages the pantry, appliances and generated recipes.
package cookbook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/apperr"
	"portal_server/pkg/logger"

	"github.com/google/uuid"
)

const (
	ExportVersion = 1

	MaxPantryItems   = 300
	MaxAppliances    = 50
	MaxNameLength    = 100
	MaxRecipeLength  = 20000
	MaxMealTypeLen   = 50
	MaxPeopleCount   = 20
	maxTitleRunes    = 120
	generationWindow = time.Hour
)

// systemPrompt tells the model how to shape its answer. Recipes are written in
// Polish to match the cookbook page.
const systemPrompt = `You are a practical home chef. Write one recipe in Polish using mostly the
ingredients the user has. Start with a "# " title, then "## " sections for ingredients and steps.
Use "- " for list items and **bold** sparingly. Only use the listed appliances. Do not add any
text before the title.`

// Generated is a model answer with its rendered HTML.
type Generated struct {
	Recipe string `json:"recipe"`
	HTML   string `json:"html"`
}

// Service implements the cookbook use cases.
type Service struct {
	repo      out.CookbookRepository
	recipes   out.RecipeRepository
	generator out.RecipeGenerator
	counter   out.Counter
	limit     int
	now       func() time.Time
}

// NewService creates a cookbook service. generator may be nil when no model is
// configured; limit <= 0 disables the per-user generation quota.
func NewService(repo out.CookbookRepository, recipes out.RecipeRepository, generator out.RecipeGenerator, counter out.Counter, limit int) *Service {
	return &Service{
		repo:      repo,
		recipes:   recipes,
		generator: generator,
		counter:   counter,
		limit:     limit,
		now:       time.Now,
	}
}

// =============================================================================
// Pantry & Appliances
// =============================================================================

func (s *Service) GetPantry(ctx context.Context, owner string) ([]domain.PantryItem, error) {
	items, err := s.repo.GetPantry(ctx, owner)
	if err != nil {
		return nil, apperr.StorageError("get pantry", err)
	}
	return items, nil
}

func (s *Service) SavePantry(ctx context.Context, owner string, items []domain.PantryItem) ([]domain.PantryItem, error) {
	cleaned, err := NormalizePantry(items)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SavePantry(ctx, owner, cleaned); err != nil {
		return nil, apperr.StorageError("save pantry", err)
	}
	return cleaned, nil
}

func (s *Service) GetAppliances(ctx context.Context, owner string) ([]string, error) {
	appliances, err := s.repo.GetAppliances(ctx, owner)
	if err != nil {
		return nil, apperr.StorageError("get appliances", err)
	}
	return appliances, nil
}

func (s *Service) SaveAppliances(ctx context.Context, owner string, appliances []string) ([]string, error) {
	cleaned, err := NormalizeAppliances(appliances)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveAppliances(ctx, owner, cleaned); err != nil {
		return nil, apperr.StorageError("save appliances", err)
	}
	return cleaned, nil
}

// NormalizePantry trims every field and rejects unnamed or oversized items.
func NormalizePantry(items []domain.PantryItem) ([]domain.PantryItem, error) {
	if len(items) > MaxPantryItems {
		return nil, apperr.InvalidInput("pantry", fmt.Sprintf("at most %d items", MaxPantryItems))
	}
	cleaned := make([]domain.PantryItem, 0, len(items))
	for i, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		item.Qty = strings.TrimSpace(item.Qty)
		item.Unit = strings.TrimSpace(item.Unit)
		item.Exp = strings.TrimSpace(item.Exp)
		if item.Name == "" {
			return nil, apperr.InvalidInput("pantry", "item "+strconv.Itoa(i)+" has no name")
		}
		if utf8.RuneCountInString(item.Name) > MaxNameLength ||
			utf8.RuneCountInString(item.Qty) > MaxNameLength ||
			utf8.RuneCountInString(item.Unit) > MaxNameLength {
			return nil, apperr.InvalidInput("pantry", "item "+strconv.Itoa(i)+" is too long")
		}
		if item.Exp != "" {
			if _, err := time.Parse("2006-01-02", item.Exp); err != nil {
				return nil, apperr.InvalidInput("pantry", "item "+strconv.Itoa(i)+" has an invalid expiry date")
			}
		}
		cleaned = append(cleaned, item)
	}
	return cleaned, nil
}

// NormalizeAppliances trims, drops empties and de-duplicates case-insensitively.
func NormalizeAppliances(appliances []string) ([]string, error) {
	seen := make(map[string]struct{}, len(appliances))
	cleaned := make([]string, 0, len(appliances))
	for _, a := range appliances {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if utf8.RuneCountInString(a) > MaxNameLength {
			return nil, apperr.InvalidInput("appliances", "name too long")
		}
		key := strings.ToLower(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, a)
	}
	if len(cleaned) > MaxAppliances {
		return nil, apperr.InvalidInput("appliances", fmt.Sprintf("at most %d appliances", MaxAppliances))
	}
	return cleaned, nil
}

// =============================================================================
// Generation
// =============================================================================

// Generate builds a prompt from the stored pantry and appliances and asks the model for a recipe.
func (s *Service) Generate(ctx context.Context, owner, mealType string, peopleCount int) (*Generated, error) {
	log := logger.WithContext(ctx).WithField("op", "cookbook.generate")

	if s.generator == nil {
		return nil, apperr.ServiceUnavailable("recipe generator", nil)
	}

	mealType = strings.TrimSpace(mealType)
	if mealType == "" {
		return nil, apperr.MissingField("mealType")
	}
	if utf8.RuneCountInString(mealType) > MaxMealTypeLen {
		return nil, apperr.InvalidInput("mealType", "too long")
	}
	if peopleCount == 0 {
		peopleCount = 1
	}
	if peopleCount < 1 || peopleCount > MaxPeopleCount {
		return nil, apperr.InvalidInput("peopleCount", fmt.Sprintf("must be between 1 and %d", MaxPeopleCount))
	}

	if err := s.checkQuota(ctx, owner); err != nil {
		return nil, err
	}

	pantry, err := s.repo.GetPantry(ctx, owner)
	if err != nil {
		return nil, apperr.StorageError("get pantry", err)
	}
	appliances, err := s.repo.GetAppliances(ctx, owner)
	if err != nil {
		return nil, apperr.StorageError("get appliances", err)
	}

	prompt := BuildPrompt(domain.RecipeRequest{
		MealType:    mealType,
		PeopleCount: peopleCount,
		Pantry:      pantry,
		Appliances:  appliances,
	}, s.now())

	start := time.Now()
	text, err := s.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		log.WithError(err).Warn("recipe generation failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.ServiceUnavailable("recipe generator", err)
		}
		return nil, apperr.ExternalError("recipe generator", err)
	}
	log.WithDuration(time.Since(start)).Info("recipe generated for %d people", peopleCount)

	return &Generated{Recipe: text, HTML: FormatRecipeHTML(text)}, nil
}

func (s *Service) checkQuota(ctx context.Context, owner string) error {
	if s.counter == nil || s.limit <= 0 {
		return nil
	}
	window := s.now().UTC().Truncate(generationWindow).Unix()
	key := "portal:cookbook:quota:" + owner + ":" + strconv.FormatInt(window, 10)
	n, err := s.counter.Increment(ctx, key, generationWindow)
	if err != nil {
		return apperr.StorageError("recipe quota", err)
	}
	if n > int64(s.limit) {
		return apperr.ErrRateLimited.WithDetail("limit", s.limit)
	}
	return nil
}

// BuildPrompt lists what the user has, flagging items that expire soon so the
// model uses them first.
func BuildPrompt(req domain.RecipeRequest, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meal: %s\nPeople: %d\n\n", req.MealType, req.PeopleCount)

	b.WriteString("Ingredients available:\n")
	if len(req.Pantry) == 0 {
		b.WriteString("- (none listed, suggest something from basic staples)\n")
	}
	soon := now.AddDate(0, 0, 3)
	for _, item := range req.Pantry {
		b.WriteString("- ")
		b.WriteString(item.Name)
		if item.Qty != "" {
			b.WriteString(": ")
			b.WriteString(item.Qty)
			if item.Unit != "" {
				b.WriteString(" ")
				b.WriteString(item.Unit)
			}
		}
		if item.Exp != "" {
			if exp, err := time.Parse("2006-01-02", item.Exp); err == nil && !exp.After(soon) {
				b.WriteString(" (expires " + item.Exp + ", use first)")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\nAppliances: ")
	if len(req.Appliances) == 0 {
		b.WriteString("stovetop only")
	} else {
		b.WriteString(strings.Join(req.Appliances, ", "))
	}
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Saved Recipes
// =============================================================================

func (s *Service) ListRecipes(ctx context.Context, owner string) ([]domain.Recipe, error) {
	recipes, err := s.recipes.List(ctx, owner)
	if err != nil {
		return nil, apperr.StorageError("list recipes", err)
	}
	return recipes, nil
}

// SaveRecipe stores a recipe under a new id. An empty title is taken from the content.
func (s *Service) SaveRecipe(ctx context.Context, owner string, r domain.Recipe) (*domain.Recipe, error) {
	recipe, err := s.prepareRecipe(owner, r)
	if err != nil {
		return nil, err
	}
	recipe.ID = uuid.NewString()
	if err := s.recipes.Save(ctx, recipe); err != nil {
		return nil, apperr.StorageError("save recipe", err)
	}
	return recipe, nil
}

func (s *Service) prepareRecipe(owner string, r domain.Recipe) (*domain.Recipe, error) {
	r.Content = strings.TrimSpace(r.Content)
	if r.Content == "" {
		return nil, apperr.MissingField("content")
	}
	if len(r.Content) > MaxRecipeLength {
		return nil, apperr.InvalidInput("content", "too long")
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		r.Title = recipeTitle(r.Content)
	}
	if utf8.RuneCountInString(r.Title) > maxTitleRunes {
		r.Title = string([]rune(r.Title)[:maxTitleRunes])
	}
	r.Owner = owner
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	return &r, nil
}

func (s *Service) DeleteRecipe(ctx context.Context, owner, id string) error {
	err := s.recipes.Delete(ctx, owner, id)
	if errors.Is(err, out.ErrNotFound) {
		return apperr.NotFound("recipe")
	}
	if err != nil {
		return apperr.StorageError("delete recipe", err)
	}
	return nil
}

// =============================================================================
// Import / Export
// =============================================================================

func (s *Service) Export(ctx context.Context, owner string) (*domain.CookbookExport, error) {
	pantry, err := s.GetPantry(ctx, owner)
	if err != nil {
		return nil, err
	}
	appliances, err := s.GetAppliances(ctx, owner)
	if err != nil {
		return nil, err
	}
	recipes, err := s.ListRecipes(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &domain.CookbookExport{
		Version:    ExportVersion,
		ExportedAt: s.now().UTC(),
		Pantry:     pantry,
		Appliances: appliances,
		Recipes:    recipes,
	}, nil
}

// Import validates the whole document before writing anything. Recipes are
// added with fresh ids; pantry and appliances are replaced.
func (s *Service) Import(ctx context.Context, owner string, doc *domain.CookbookExport) error {
	if doc == nil {
		return apperr.BadRequest("empty import")
	}
	if doc.Version != ExportVersion {
		return apperr.InvalidInput("version", "unsupported export version")
	}

	pantry, err := NormalizePantry(doc.Pantry)
	if err != nil {
		return err
	}
	appliances, err := NormalizeAppliances(doc.Appliances)
	if err != nil {
		return err
	}
	recipes := make([]*domain.Recipe, 0, len(doc.Recipes))
	for _, r := range doc.Recipes {
		recipe, err := s.prepareRecipe(owner, r)
		if err != nil {
			return err
		}
		recipe.ID = uuid.NewString()
		recipes = append(recipes, recipe)
	}

	if err := s.repo.SavePantry(ctx, owner, pantry); err != nil {
		return apperr.StorageError("import pantry", err)
	}
	if err := s.repo.SaveAppliances(ctx, owner, appliances); err != nil {
		return apperr.StorageError("import appliances", err)
	}
	for _, recipe := range recipes {
		if err := s.recipes.Save(ctx, recipe); err != nil {
			return apperr.StorageError("import recipes", err)
		}
	}
	return nil
}
