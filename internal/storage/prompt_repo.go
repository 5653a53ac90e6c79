package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prompt-gallery/internal/model"
)

const promptColumns = `id, text, category_id, image_id, status, submitted_by, favorites_count, copies_count, created_at`

type PromptRepository struct {
	db *Database
}

func NewPromptRepository(db *Database) *PromptRepository {
	return &PromptRepository{db: db}
}

func (r *PromptRepository) Create(ctx context.Context, prompt *model.Prompt) error {
	if prompt.ID == "" {
		prompt.ID = NewPromptID()
	}
	if prompt.Status == "" {
		prompt.Status = model.PromptStatusPending
	}
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO prompts (id, text, category_id, image_id, status, submitted_by, favorites_count, copies_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		prompt.ID, prompt.Text, prompt.CategoryID, prompt.ImageID, prompt.Status,
		prompt.SubmittedBy, prompt.FavoritesCount, prompt.CopiesCount, prompt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}
	return nil
}

func (r *PromptRepository) FindByID(ctx context.Context, id string) (*model.Prompt, error) {
	var prompt model.Prompt
	query := r.db.Rebind(`SELECT ` + promptColumns + ` FROM prompts WHERE id = ?`)
	err := r.db.GetContext(ctx, &prompt, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find prompt: %w", err)
	}
	return &prompt, nil
}

// List returns every prompt, newest first.
func (r *PromptRepository) List(ctx context.Context) ([]model.Prompt, error) {
	var prompts []model.Prompt
	query := `SELECT ` + promptColumns + ` FROM prompts ORDER BY created_at DESC, id`
	if err := r.db.SelectContext(ctx, &prompts, query); err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	return prompts, nil
}

func (r *PromptRepository) CountByStatus(ctx context.Context, status model.PromptStatus) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM prompts WHERE status = ?`)
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("failed to count prompts: %w", err)
	}
	return count, nil
}

// Approve is idempotent: an approved prompt stays approved and still counts
// as found.
func (r *PromptRepository) Approve(ctx context.Context, id string) (bool, error) {
	query := r.db.Rebind(`UPDATE prompts SET status = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, model.PromptStatusApproved, id)
	if err != nil {
		return false, fmt.Errorf("failed to approve prompt: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Delete removes the prompt and its favorite memberships.
func (r *PromptRepository) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM favorites WHERE prompt_id = ?`), id); err != nil {
		return false, fmt.Errorf("failed to delete favorites: %w", err)
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM prompts WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete prompt: %w", err)
	}
	rows, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit prompt delete: %w", err)
	}
	return rows > 0, nil
}

func (r *PromptRepository) ToggleFavorite(ctx context.Context, promptID, userID string) (FavoriteResult, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return FavoriteResult{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM prompts WHERE id = ?`), promptID)
	if err != nil {
		return FavoriteResult{}, false, fmt.Errorf("failed to find prompt: %w", err)
	}
	if exists == 0 {
		return FavoriteResult{}, false, nil
	}

	insert := tx.Rebind(`
		INSERT INTO favorites (user_id, prompt_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, prompt_id) DO NOTHING
	`)
	result, err := tx.ExecContext(ctx, insert, userID, promptID, time.Now().UTC())
	if err != nil {
		return FavoriteResult{}, true, fmt.Errorf("failed to add favorite: %w", err)
	}
	inserted, _ := result.RowsAffected()

	favorited := inserted == 1
	if favorited {
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE prompts SET favorites_count = favorites_count + 1 WHERE id = ?`), promptID)
	} else {
		result, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM favorites WHERE user_id = ? AND prompt_id = ?`), userID, promptID)
		if err == nil {
			if removed, _ := result.RowsAffected(); removed == 1 {
				_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE prompts SET favorites_count = favorites_count - 1 WHERE id = ? AND favorites_count > 0`), promptID)
			}
		}
	}
	if err != nil {
		return FavoriteResult{}, true, fmt.Errorf("failed to update favorites count: %w", err)
	}

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT favorites_count FROM prompts WHERE id = ?`), promptID); err != nil {
		return FavoriteResult{}, true, fmt.Errorf("failed to read favorites count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return FavoriteResult{}, true, fmt.Errorf("failed to commit favorite toggle: %w", err)
	}
	return FavoriteResult{Favorited: favorited, Count: count}, true, nil
}

func (r *PromptRepository) IncrementCopies(ctx context.Context, id string) (int, bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE prompts SET copies_count = copies_count + 1 WHERE id = ?`), id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment copies: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return 0, false, nil
	}

	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT copies_count FROM prompts WHERE id = ?`), id); err != nil {
		return 0, true, fmt.Errorf("failed to read copies count: %w", err)
	}
	return count, true, nil
}

func (r *PromptRepository) FavoritePromptIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	query := r.db.Rebind(`SELECT prompt_id FROM favorites WHERE user_id = ? ORDER BY created_at`)
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return ids, nil
}

func (r *PromptRepository) CountFavorites(ctx context.Context, promptID string) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM favorites WHERE prompt_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, promptID); err != nil {
		return 0, fmt.Errorf("failed to count favorites: %w", err)
	}
	return count, nil
}

func NewPromptID() string {
	return "p-" + uuid.NewString()
}
