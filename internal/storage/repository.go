package storage

import (
	"context"
	"time"

	"github.com/prompt-gallery/internal/model"
)

// Lookups return (nil, nil) when the row does not exist. Mutations keyed by id
// report whether a row was touched instead of failing on a missing id.

type UserStore interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	EnsureAdmin(ctx context.Context, email, passwordHash, name string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}

type CategoryStore interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id string) (*model.Category, error)
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) (bool, error)
	// DeleteAndReassign removes the category and moves its prompts to
	// fallbackID in one transaction. It returns the number of reassigned prompts.
	DeleteAndReassign(ctx context.Context, id, fallbackID string) (int64, error)
}

type PromptStore interface {
	Create(ctx context.Context, prompt *model.Prompt) error
	FindByID(ctx context.Context, id string) (*model.Prompt, error)
	List(ctx context.Context) ([]model.Prompt, error)
	CountByStatus(ctx context.Context, status model.PromptStatus) (int, error)
	Approve(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	// ToggleFavorite flips the (user, prompt) membership and adjusts
	// favorites_count in the same transaction. found is false when the prompt
	// does not exist.
	ToggleFavorite(ctx context.Context, promptID, userID string) (result FavoriteResult, found bool, err error)
	IncrementCopies(ctx context.Context, id string) (count int, found bool, err error)
	FavoritePromptIDs(ctx context.Context, userID string) ([]string, error)
	CountFavorites(ctx context.Context, promptID string) (int, error)
}

type ImageStore interface {
	Create(ctx context.Context, image *model.Image) error
	FindByID(ctx context.Context, id string) (*model.Image, error)
	List(ctx context.Context) ([]model.Image, error)
	Delete(ctx context.Context, id string) (bool, error)
	// ListOrphanUploads returns user-uploaded images created before
	// createdBefore that no prompt references.
	ListOrphanUploads(ctx context.Context, createdBefore time.Time) ([]model.Image, error)
}

type AdCodeStore interface {
	List(ctx context.Context) ([]model.AdCode, error)
	Upsert(ctx context.Context, ad *model.AdCode) error
	UpdateCode(ctx context.Context, id, code string) (bool, error)
}

type FavoriteResult struct {
	Favorited bool `json:"favorited"`
	Count     int  `json:"favoritesCount"`
}

// Store bundles every repository of one backend.
type Store struct {
	Users      UserStore
	Categories CategoryStore
	Prompts    PromptStore
	Images     ImageStore
	AdCodes    AdCodeStore
	Ping       func(ctx context.Context) error
	Close      func() error
}

// NewSQLStore wires the sqlx repositories over db.
func NewSQLStore(db *Database) *Store {
	return &Store{
		Users:      NewUserRepository(db),
		Categories: NewCategoryRepository(db),
		Prompts:    NewPromptRepository(db),
		Images:     NewImageRepository(db),
		AdCodes:    NewAdCodeRepository(db),
		Ping:       db.Ping,
		Close:      db.Close,
	}
}
