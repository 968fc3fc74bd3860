package domain

import "time"

// PantryItem is one ingredient the user has at home.
type PantryItem struct {
	Name string `json:"name" bson:"name"`
	Qty  string `json:"qty" bson:"qty"`
	Unit string `json:"unit,omitempty" bson:"unit,omitempty"`
	Exp  string `json:"exp,omitempty" bson:"exp,omitempty"`
}

// Recipe is a generated recipe the user chose to keep.
type Recipe struct {
	ID          string    `json:"id" bson:"_id"`
	Owner       string    `json:"-" bson:"owner"`
	Title       string    `json:"title" bson:"title"`
	Content     string    `json:"content" bson:"content"`
	MealType    string    `json:"mealType,omitempty" bson:"meal_type,omitempty"`
	PeopleCount int       `json:"peopleCount,omitempty" bson:"people_count,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

// RecipeRequest holds the user's choices for generation.
type RecipeRequest struct {
	MealType    string
	PeopleCount int
	Pantry      []PantryItem
	Appliances  []string
}

// CookbookExport is the import/export document.
type CookbookExport struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	Pantry     []PantryItem `json:"pantry"`
	Appliances []string     `json:"appliances"`
	Recipes    []Recipe     `json:"recipes,omitempty"`
}
