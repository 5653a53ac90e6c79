package storage

import (
	"context"
	"fmt"

	"github.com/prompt-gallery/internal/model"
)

type AdCodeRepository struct {
	db *Database
}

func NewAdCodeRepository(db *Database) *AdCodeRepository {
	return &AdCodeRepository{db: db}
}

func (r *AdCodeRepository) List(ctx context.Context) ([]model.AdCode, error) {
	var ads []model.AdCode
	if err := r.db.SelectContext(ctx, &ads, `SELECT id, name, code, type FROM ad_codes ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list ad codes: %w", err)
	}
	return ads, nil
}

// Upsert creates the placement or refreshes its name and type. The stored code
// of an existing placement is kept.
func (r *AdCodeRepository) Upsert(ctx context.Context, ad *model.AdCode) error {
	query := r.db.Rebind(`
		INSERT INTO ad_codes (id, name, code, type) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, type = excluded.type
	`)
	if _, err := r.db.ExecContext(ctx, query, ad.ID, ad.Name, ad.Code, ad.Type); err != nil {
		return fmt.Errorf("failed to upsert ad code: %w", err)
	}
	return nil
}

func (r *AdCodeRepository) UpdateCode(ctx context.Context, id, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE ad_codes SET code = ? WHERE id = ?`), code, id)
	if err != nil {
		return false, fmt.Errorf("failed to update ad code: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
