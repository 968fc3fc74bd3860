package persistence

import (
	"context"
	"fmt"
	"sort"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/kv"
)

const (
	pantryKeyPrefix     = "portal:cookbook:pantry:"
	appliancesKeyPrefix = "portal:cookbook:appliances:"
	recipesKeyPrefix    = "portal:cookbook:recipes:"
	maxStoredRecipes    = 100
)

// KVCookbookRepository stores pantry and appliances in Redis.
type KVCookbookRepository struct {
	kv *kv.Store
}

func NewKVCookbookRepository(store *kv.Store) *KVCookbookRepository {
	return &KVCookbookRepository{kv: store}
}

var _ out.CookbookRepository = (*KVCookbookRepository)(nil)

func (r *KVCookbookRepository) GetPantry(ctx context.Context, owner string) ([]domain.PantryItem, error) {
	items := []domain.PantryItem{}
	if _, err := r.kv.GetJSON(ctx, pantryKeyPrefix+owner, &items); err != nil {
		return nil, fmt.Errorf("load pantry: %w", err)
	}
	return items, nil
}

func (r *KVCookbookRepository) SavePantry(ctx context.Context, owner string, items []domain.PantryItem) error {
	if err := r.kv.SetJSON(ctx, pantryKeyPrefix+owner, items, 0); err != nil {
		return fmt.Errorf("save pantry: %w", err)
	}
	return nil
}

func (r *KVCookbookRepository) GetAppliances(ctx context.Context, owner string) ([]string, error) {
	appliances := []string{}
	if _, err := r.kv.GetJSON(ctx, appliancesKeyPrefix+owner, &appliances); err != nil {
		return nil, fmt.Errorf("load appliances: %w", err)
	}
	return appliances, nil
}

func (r *KVCookbookRepository) SaveAppliances(ctx context.Context, owner string, appliances []string) error {
	if err := r.kv.SetJSON(ctx, appliancesKeyPrefix+owner, appliances, 0); err != nil {
		return fmt.Errorf("save appliances: %w", err)
	}
	return nil
}

// KVRecipeRepository keeps a user's saved recipes as one JSON list in Redis.
// It is used when no MongoDB is configured.
type KVRecipeRepository struct {
	kv *kv.Store
}

func NewKVRecipeRepository(store *kv.Store) *KVRecipeRepository {
	return &KVRecipeRepository{kv: store}
}

var _ out.RecipeRepository = (*KVRecipeRepository)(nil)

func (r *KVRecipeRepository) load(ctx context.Context, owner string) ([]domain.Recipe, error) {
	recipes := []domain.Recipe{}
	if _, err := r.kv.GetJSON(ctx, recipesKeyPrefix+owner, &recipes); err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}
	for i := range recipes {
		recipes[i].Owner = owner
	}
	return recipes, nil
}

func (r *KVRecipeRepository) List(ctx context.Context, owner string) ([]domain.Recipe, error) {
	recipes, err := r.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recipes, func(i, j int) bool {
		return recipes[i].CreatedAt.After(recipes[j].CreatedAt)
	})
	return recipes, nil
}

// Save upserts by id and keeps the newest maxStoredRecipes.
func (r *KVRecipeRepository) Save(ctx context.Context, recipe *domain.Recipe) error {
	recipes, err := r.load(ctx, recipe.Owner)
	if err != nil {
		return err
	}

	replaced := false
	for i := range recipes {
		if recipes[i].ID == recipe.ID {
			recipes[i] = *recipe
			replaced = true
			break
		}
	}
	if !replaced {
		recipes = append(recipes, *recipe)
	}

	sort.SliceStable(recipes, func(i, j int) bool {
		return recipes[i].CreatedAt.After(recipes[j].CreatedAt)
	})
	if len(recipes) > maxStoredRecipes {
		recipes = recipes[:maxStoredRecipes]
	}

	if err := r.kv.SetJSON(ctx, recipesKeyPrefix+recipe.Owner, recipes, 0); err != nil {
		return fmt.Errorf("save recipes: %w", err)
	}
	return nil
}

func (r *KVRecipeRepository) Delete(ctx context.Context, owner, id string) error {
	recipes, err := r.load(ctx, owner)
	if err != nil {
		return err
	}

	kept := recipes[:0]
	for _, rec := range recipes {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(recipes) {
		return out.ErrNotFound
	}

	if err := r.kv.SetJSON(ctx, recipesKeyPrefix+owner, kept, 0); err != nil {
		return fmt.Errorf("save recipes: %w", err)
	}
	return nil
}
