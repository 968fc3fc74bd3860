package out

import (
	"context"
	"errors"
	"time"

	"portal_server/core/domain"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// CookbookRepository stores a user's pantry and appliances.
type CookbookRepository interface {
	GetPantry(ctx context.Context, owner string) ([]domain.PantryItem, error)
	SavePantry(ctx context.Context, owner string, items []domain.PantryItem) error
	GetAppliances(ctx context.Context, owner string) ([]string, error)
	SaveAppliances(ctx context.Context, owner string, appliances []string) error
}

// RecipeRepository stores saved recipes.
type RecipeRepository interface {
	List(ctx context.Context, owner string) ([]domain.Recipe, error)
	Save(ctx context.Context, recipe *domain.Recipe) error
	// Delete returns ErrNotFound when owner has no recipe with id.
	Delete(ctx context.Context, owner, id string) error
}

// RecipeGenerator produces recipe text from a prompt.
type RecipeGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// NotesRepository stores a user's notes as one ordered list.
type NotesRepository interface {
	List(ctx context.Context, owner string) ([]domain.Note, error)
	Replace(ctx context.Context, owner string, notes []domain.Note) error
}

// ChatLogRepository stores chat logs and their sharing ACLs.
type ChatLogRepository interface {
	GetLog(ctx context.Context, owner string) (*domain.ChatLog, error)
	SaveLog(ctx context.Context, log *domain.ChatLog) error
	GetViewers(ctx context.Context, owner string) ([]string, error)
	// SetViewers replaces the ACL and keeps the reverse index in sync.
	SetViewers(ctx context.Context, owner string, viewers []string) error
	// SharedWith lists owners whose ACL contains viewer.
	SharedWith(ctx context.Context, viewer string) ([]string, error)
}

// Counter is a windowed counter used for per-user quotas.
type Counter interface {
	// Increment bumps key and returns the new value. The window starts on the first increment.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}
