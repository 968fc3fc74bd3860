package mongodb

import (
	"context"
	"fmt"

	"portal_server/core/domain"
	"portal_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionRecipes = "recipes"
	maxListedRecipes  = 100
)

// RecipeAdapter implements out.RecipeRepository using MongoDB.
type RecipeAdapter struct {
	collection *mongo.Collection
}

// NewRecipeAdapter creates a new MongoDB recipe adapter.
func NewRecipeAdapter(db *mongo.Database) *RecipeAdapter {
	return &RecipeAdapter{collection: db.Collection(collectionRecipes)}
}

var _ out.RecipeRepository = (*RecipeAdapter)(nil)

// EnsureIndexes creates necessary indexes for the collection.
func (a *RecipeAdapter) EnsureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "owner", Value: 1},
			{Key: "created_at", Value: -1},
		},
	})
	return err
}

// List returns the owner's recipes, newest first.
func (a *RecipeAdapter) List(ctx context.Context, owner string) ([]domain.Recipe, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(maxListedRecipes)

	cursor, err := a.collection.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer cursor.Close(ctx)

	recipes := []domain.Recipe{}
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, fmt.Errorf("failed to decode recipes: %w", err)
	}
	return recipes, nil
}

// Save upserts a recipe by id.
func (a *RecipeAdapter) Save(ctx context.Context, recipe *domain.Recipe) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"_id": recipe.ID, "owner": recipe.Owner}

	if _, err := a.collection.ReplaceOne(ctx, filter, recipe, opts); err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

// Delete removes one of the owner's recipes.
func (a *RecipeAdapter) Delete(ctx context.Context, owner, id string) error {
	res, err := a.collection.DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if res.DeletedCount == 0 {
		return out.ErrNotFound
	}
	return nil
}
