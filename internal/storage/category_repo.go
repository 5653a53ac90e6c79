package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/prompt-gallery/internal/model"
)

type CategoryRepository struct {
	db *Database
}

func NewCategoryRepository(db *Database) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, name, icon FROM categories ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*model.Category, error) {
	var category model.Category
	query := r.db.Rebind(`SELECT id, name, icon FROM categories WHERE id = ?`)
	err := r.db.GetContext(ctx, &category, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if category.ID == "" {
		category.ID = NewCategoryID()
	}
	query := r.db.Rebind(`INSERT INTO categories (id, name, icon) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, category.ID, category.Name, category.Icon); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *model.Category) (bool, error) {
	query := r.db.Rebind(`UPDATE categories SET name = ?, icon = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, category.Name, category.Icon, category.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update category: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *CategoryRepository) DeleteAndReassign(ctx context.Context, id, fallbackID string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE prompts SET category_id = ? WHERE category_id = ?`), fallbackID, id)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign prompts: %w", err)
	}
	reassigned, _ := result.RowsAffected()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM categories WHERE id = ?`), id); err != nil {
		return 0, fmt.Errorf("failed to delete category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit category delete: %w", err)
	}
	return reassigned, nil
}

func NewCategoryID() string {
	return "cat-" + uuid.NewString()
}
